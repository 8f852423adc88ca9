package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinDisputeTitleLength        = 3
	MaxDisputeTitleLength        = 200
	MinDisputeDescriptionLength  = 10
	MaxDisputeDescriptionLength  = 5000
	MaxDesiredOutcomeLength      = 1000
	MinMessageLength             = 1
	MaxMessageLength             = 5000
	MaxEvidenceDescriptionLength = 1000
	MaxEvidenceURLLength         = 500
	MaxNotesLength               = 2000
	MaxReasonLength              = 1000
	MinAmount                    = 0.0
	MaxAmount                    = 100000000.0 // 100 миллионов
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateDisputeTitle проверяет заголовок спора.
func ValidateDisputeTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок спора обязателен")
	}

	title = strings.TrimSpace(title)

	if err := ValidateLength("заголовок спора", title, MinDisputeTitleLength, MaxDisputeTitleLength); err != nil {
		return err
	}

	return nil
}

// ValidateDisputeDescription проверяет описание спора.
func ValidateDisputeDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание спора обязательно")
	}

	description = strings.TrimSpace(description)

	if err := ValidateLength("описание спора", description, MinDisputeDescriptionLength, MaxDisputeDescriptionLength); err != nil {
		return err
	}

	return nil
}

// ValidateDesiredOutcome проверяет желаемый исход спора.
func ValidateDesiredOutcome(outcome string) error {
	if outcome == "" {
		return nil
	}

	outcome = strings.TrimSpace(outcome)

	if err := ValidateLength("желаемый исход", outcome, 0, MaxDesiredOutcomeLength); err != nil {
		return err
	}

	return nil
}

// ValidateMessageContent проверяет содержимое сообщения.
func ValidateMessageContent(content string) error {
	if content == "" {
		return fmt.Errorf("сообщение не может быть пустым")
	}

	content = strings.TrimSpace(content)

	if err := ValidateLength("сообщение", content, MinMessageLength, MaxMessageLength); err != nil {
		return err
	}

	return nil
}

// ValidateNotes проверяет комментарий к операции.
func ValidateNotes(notes string) error {
	if notes == "" {
		return nil
	}

	notes = strings.TrimSpace(notes)

	if err := ValidateLength("комментарий", notes, 0, MaxNotesLength); err != nil {
		return err
	}

	return nil
}

// ValidateReason проверяет причину операции.
func ValidateReason(reason string) error {
	if reason == "" {
		return fmt.Errorf("причина обязательна")
	}

	reason = strings.TrimSpace(reason)

	if err := ValidateLength("причина", reason, 1, MaxReasonLength); err != nil {
		return err
	}

	return nil
}

// ValidateAmount проверяет денежную сумму.
func ValidateAmount(amount float64) error {
	if amount <= MinAmount {
		return fmt.Errorf("сумма должна быть положительной")
	}
	if amount > MaxAmount {
		return fmt.Errorf("сумма не может превышать %.0f", MaxAmount)
	}
	return nil
}

// ValidateEvidenceURL проверяет ссылку на доказательство.
func ValidateEvidenceURL(link string) error {
	if link == "" {
		return fmt.Errorf("ссылка на доказательство обязательна")
	}

	link = strings.TrimSpace(link)

	if err := ValidateLength("ссылка на доказательство", link, 0, MaxEvidenceURLLength); err != nil {
		return err
	}

	// Проверка формата URL
	parsedURL, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("некорректный формат URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("ссылка должна начинаться с http:// или https://")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("ссылка должна содержать доменное имя")
	}

	return nil
}

// ValidateEvidenceDescription проверяет описание доказательства.
func ValidateEvidenceDescription(description string) error {
	if description == "" {
		return nil
	}

	description = strings.TrimSpace(description)

	if err := ValidateLength("описание доказательства", description, 0, MaxEvidenceDescriptionLength); err != nil {
		return err
	}

	return nil
}
