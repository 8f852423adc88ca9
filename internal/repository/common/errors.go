package common

import "errors"

// ErrStateConflict возвращается, когда условное обновление не нашло строку:
// статус документа изменился между чтением и записью.
var ErrStateConflict = errors.New("document state changed concurrently")
