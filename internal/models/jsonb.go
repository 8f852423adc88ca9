package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Вложенные документы (журналы, треды, условия) хранятся в JSONB колонках.
// Общие помощники для driver.Valuer / sql.Scanner.

func jsonbValue(v interface{}) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonb: не удалось сериализовать: %w", err)
	}
	return raw, nil
}

func jsonbScan(dst interface{}, src interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch s := src.(type) {
	case []byte:
		raw = s
	case string:
		raw = []byte(s)
	default:
		return fmt.Errorf("jsonb: неожиданный тип %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
