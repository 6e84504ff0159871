package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/crypto"
)

// KeySource: маршруты узла, отдающие ключ шифрования транзакций.
type KeySource interface {
	TxKey(ctx context.Context) ([]byte, error)
	TxKeyLegacy(ctx context.Context) ([]byte, error)
}

// KeyStrategy: один способ получить ключ.
type KeyStrategy struct {
	Name  string
	Fetch func(ctx context.Context) ([]byte, error)
}

var errEmptyKey = errors.New("empty key")

// KeyResolver перебирает стратегии в фиксированном порядке и возвращает первый непустой ключ.
type KeyResolver struct {
	strategies []KeyStrategy
	log        *zap.SugaredLogger
	now        func() time.Time
}

// NewKeyResolver создаёт резолвер со стратегиями по умолчанию:
// сначала registration/v1beta1, затем старый маршрут reg.
func NewKeyResolver(src KeySource, log *zap.SugaredLogger) *KeyResolver {
	return NewKeyResolverWith(log,
		KeyStrategy{Name: "registration", Fetch: src.TxKey},
		KeyStrategy{Name: "legacy-reg", Fetch: src.TxKeyLegacy},
	)
}

// NewKeyResolverWith создаёт резолвер с явным списком стратегий.
func NewKeyResolverWith(log *zap.SugaredLogger, strategies ...KeyStrategy) *KeyResolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &KeyResolver{strategies: strategies, log: log, now: time.Now}
}

// Resolve возвращает ключ или ErrKeyUnavailable. Повторов внутри одного вызова нет.
func (r *KeyResolver) Resolve(ctx context.Context) (*crypto.TransportKey, error) {
	attempts := make([]Attempt[[]byte], 0, len(r.strategies))
	for _, s := range r.strategies {
		fetch := s.Fetch
		attempts = append(attempts, Attempt[[]byte]{
			Name: s.Name,
			Run: func(ctx context.Context) ([]byte, error) {
				key, err := fetch(ctx)
				if err != nil {
					return nil, err
				}
				if len(key) == 0 {
					return nil, errEmptyKey
				}
				return key, nil
			},
		})
	}
	key, name, err := FirstSuccess(ctx, attempts, always, r.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}
	r.log.Debugw("transport key resolved", "strategy", name)
	return &crypto.TransportKey{Key: key, ResolvedAt: r.now()}, nil
}
