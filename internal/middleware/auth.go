package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName: имя cookie с JWT.
	CookieName = "auth_token"
	// TokenTTL: срок жизни выдаваемого токена.
	TokenTTL = 24 * time.Hour
)

type ctxKey struct{}

// Claims: JWT с адресом кошелька владельца черновиков.
type Claims struct {
	jwt.RegisteredClaims
	Address string `json:"address"`
}

// IssueToken выпускает подписанный HS256 токен для адреса.
func IssueToken(secret, address string, ttl time.Duration) (string, error) {
	if address == "" {
		return "", errors.New("empty address")
	}
	if ttl <= 0 {
		ttl = TokenTTL
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Address: address,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken проверяет подпись и срок токена и возвращает адрес.
func ParseToken(secret, tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Address == "" {
		return "", errors.New("invalid token")
	}
	return claims.Address, nil
}

// SetLoginCookie выпускает токен и кладёт его в cookie ответа.
func SetLoginCookie(w http.ResponseWriter, address, secret string) error {
	token, err := IssueToken(secret, address, TokenTTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(TokenTTL),
	})
	return nil
}

// WithAuth кладёт адрес из валидного токена (Bearer или cookie) в контекст.
// Запрос без токена проходит анонимно: адрес тогда берётся из тела.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			if raw == "" {
				if c, err := r.Cookie(CookieName); err == nil {
					raw = c.Value
				}
			}
			if raw != "" {
				if addr, err := ParseToken(secret, raw); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, addr))
				} else {
					sugar.Debugw("auth token rejected", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// GetUserAddressFromContext возвращает адрес, установленный WithAuth.
func GetUserAddressFromContext(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(ctxKey{}).(string)
	return addr, ok && addr != ""
}
