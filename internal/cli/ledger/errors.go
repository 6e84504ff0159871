package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyUnavailable: ни одна стратегия не вернула ключ шифрования.
	ErrKeyUnavailable = errors.New("transport key unavailable")
	// ErrUnsupportedInvocation: узел не поддерживает форму вызова; пробуем следующую стратегию.
	ErrUnsupportedInvocation = errors.New("unsupported invocation shape")
	// ErrNotFound: контракт не хранит значения для запроса.
	ErrNotFound = errors.New("not found")
)

// TxError: ошибка транспорта или бизнес-ошибка транзакции.
type TxError struct {
	Strategy string
	Err      error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Strategy, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }
