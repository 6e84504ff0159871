package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Attempt: именованная попытка выполнить операцию одним способом.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FirstSuccess выполняет попытки по порядку и возвращает первый успешный результат
// вместе с именем сработавшей попытки. next решает, переходить ли к следующей попытке
// после ошибки; если next вернул false, ошибка возвращается сразу.
// Если все попытки исчерпаны, возвращаются все ошибки, объединённые через errors.Join.
func FirstSuccess[T any](ctx context.Context, attempts []Attempt[T], next func(error) bool, log *zap.SugaredLogger) (T, string, error) {
	var zero T
	if len(attempts) == 0 {
		return zero, "", errors.New("no strategies configured")
	}
	errs := make([]error, 0, len(attempts))
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, a.Name, err
		}
		v, err := a.Run(ctx)
		if err == nil {
			return v, a.Name, nil
		}
		if !next(err) {
			return zero, a.Name, err
		}
		if log != nil {
			log.Warnw("strategy failed, trying next", "strategy", a.Name, "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
	}
	return zero, attempts[len(attempts)-1].Name, errors.Join(errs...)
}

// always: предикат для FirstSuccess, при котором любая ошибка ведёт к следующей попытке.
func always(error) bool { return true }
