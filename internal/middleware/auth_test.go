package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testAddr = "secret1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq"

// Тест: SetLoginCookie + WithAuth — адрес попадает в контекст
func TestWithAuth_ValidCookieSetsAddress(t *testing.T) {
	const secret = "test-secret"

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if addr, ok := GetUserAddressFromContext(r.Context()); ok && addr == testAddr {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	h := WithAuth(secret)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rrCookie := httptest.NewRecorder()
	if err := SetLoginCookie(rrCookie, testAddr, secret); err != nil {
		t.Fatalf("SetLoginCookie: %v", err)
	}
	for _, c := range rrCookie.Result().Cookies() {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid cookie, got %d", rr.Code)
	}
}

// Тест: Bearer-токен из заголовка Authorization
func TestWithAuth_BearerHeader(t *testing.T) {
	tok, err := IssueToken("s", testAddr, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	var got string
	h := WithAuth("s")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserAddressFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != testAddr {
		t.Fatalf("address from bearer: got %q", got)
	}
}

// Тест: отсутствие токена — адрес не устанавливается
func TestWithAuth_NoCookieLeavesAnonymous(t *testing.T) {
	h := WithAuth("any-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserAddressFromContext(r.Context()); ok {
			t.Fatalf("address must not be set without token")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// Тест: токен, подписанный другим секретом, игнорируется
func TestWithAuth_InvalidToken(t *testing.T) {
	rrCookie := httptest.NewRecorder()
	_ = SetLoginCookie(rrCookie, testAddr, "secret-A")

	h := WithAuth("secret-B")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserAddressFromContext(r.Context()); ok {
			t.Fatalf("address must not be set with invalid token")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rrCookie.Result().Cookies() {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := IssueToken("s", testAddr, time.Nanosecond)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := ParseToken("s", tok); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}

func TestIssueToken_EmptyAddress(t *testing.T) {
	if _, err := IssueToken("s", "", time.Minute); err == nil {
		t.Fatalf("empty address must be rejected")
	}
}
