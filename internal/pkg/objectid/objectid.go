package objectid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// ID представляет непрозрачный идентификатор документа: 24 hex-символа,
// совместимый с ObjectId (4 байта unix-времени + 8 случайных байт).
type ID string

// Nil представляет пустой идентификатор.
const Nil ID = ""

// encodedLen длина идентификатора в hex-представлении.
const encodedLen = 24

// New генерирует новый идентификатор.
func New() ID {
	var raw [12]byte
	binary.BigEndian.PutUint32(raw[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(raw[4:]); err != nil {
		// crypto/rand на поддерживаемых платформах не возвращает ошибок
		panic(fmt.Sprintf("objectid: не удалось получить случайные байты: %v", err))
	}
	return ID(hex.EncodeToString(raw[:]))
}

// Parse проверяет строку и возвращает идентификатор.
func Parse(s string) (ID, error) {
	if !IsValid(s) {
		return Nil, fmt.Errorf("objectid: %q не является валидным идентификатором", s)
	}
	return ID(s), nil
}

// IsValid сообщает, является ли строка валидным 24-символьным hex идентификатором.
func IsValid(s string) bool {
	if len(s) != encodedLen {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// IsZero сообщает, пустой ли идентификатор.
func (id ID) IsZero() bool {
	return id == Nil
}

func (id ID) String() string {
	return string(id)
}

// Timestamp извлекает время создания из первых 4 байт идентификатора.
func (id ID) Timestamp() time.Time {
	if !IsValid(string(id)) {
		return time.Time{}
	}
	raw, _ := hex.DecodeString(string(id[:8]))
	return time.Unix(int64(binary.BigEndian.Uint32(raw)), 0)
}
