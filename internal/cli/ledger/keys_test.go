package ledger

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emlanis/secret-ai-writer/internal/cli/api"
)

func keyStrategy(name string, key []byte, err error, calls *int) KeyStrategy {
	return KeyStrategy{Name: name, Fetch: func(context.Context) ([]byte, error) {
		*calls++
		return key, err
	}}
}

func TestKeyResolver_FallsBackToSecondStrategy(t *testing.T) {
	var first, second int
	r := NewKeyResolverWith(nil,
		keyStrategy("registration", nil, errors.New("unreachable"), &first),
		keyStrategy("legacy-reg", []byte("k2"), nil, &second),
	)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	key, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("k2"), key.Key)
	assert.Equal(t, fixed, key.ResolvedAt)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestKeyResolver_EmptyKeyIsAFailure(t *testing.T) {
	var a, b int
	r := NewKeyResolverWith(nil,
		keyStrategy("a", []byte{}, nil, &a),
		keyStrategy("b", []byte("ok"), nil, &b),
	)
	key, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), key.Key)
}

func TestKeyResolver_AllFail(t *testing.T) {
	var a, b int
	r := NewKeyResolverWith(nil,
		keyStrategy("a", nil, errors.New("x"), &a),
		keyStrategy("b", nil, errors.New("y"), &b),
	)
	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrKeyUnavailable)
	// без повторов внутри одного вызова
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestKeyResolver_OverLCD(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/registration/v1beta1/tx-key":
			http.NotFound(w, r)
		case "/reg/tx-key":
			_, _ = w.Write([]byte(`{"result":{"TxKey":"` + base64.StdEncoding.EncodeToString(key) + `"}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	r := NewKeyResolver(api.NewLCDClient(ts.URL, time.Second, nil), nil)
	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, key, got.Key)
}
