package studio_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/framecraft/backend-store/internal/studio"
)

func protected(t *testing.T, token string) http.Handler {
	t.Helper()
	return studio.Middleware{Token: token}.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRequireTokenAcceptsBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/studio/orders", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	protected(t, "s3cret").ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}
}

func TestRequireTokenAcceptsHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/studio/orders", nil)
	req.Header.Set("X-Studio-Token", "s3cret")
	rr := httptest.NewRecorder()
	protected(t, "s3cret").ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}
}

func TestRequireTokenRejects(t *testing.T) {
	cases := map[string]func(*http.Request){
		"missing": func(r *http.Request) {},
		"wrong":   func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
	}
	for name, setup := range cases {
		req := httptest.NewRequest(http.MethodGet, "/studio/orders", nil)
		setup(req)
		rr := httptest.NewRecorder()
		protected(t, "s3cret").ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", name, rr.Code)
		}
	}
}

func TestRequireTokenUnconfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/studio/orders", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	protected(t, "").ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
}
