package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, target string, header map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAdmin_AllowsAdminKey_BlocksPublicKey(t *testing.T) {
	h := RequireAdmin(Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}})(okHandler)

	if code := serve(h, "/admin", map[string]string{"X-API-Key": "adm_key"}); code != http.StatusOK {
		t.Fatalf("admin key should pass; got %d", code)
	}
	if code := serve(h, "/admin", map[string]string{"X-API-Key": "pub_key"}); code != http.StatusForbidden {
		t.Fatalf("public key should be forbidden; got %d", code)
	}
	if code := serve(h, "/admin", nil); code != http.StatusUnauthorized {
		t.Fatalf("missing key should be 401; got %d", code)
	}
}

func TestRequireAdmin_ClosedWithoutAdminKeys(t *testing.T) {
	h := RequireAdmin(Keys{})(okHandler)
	if code := serve(h, "/admin", map[string]string{"X-API-Key": "anything"}); code != http.StatusForbidden {
		t.Fatalf("want 403 with no admin keys configured; got %d", code)
	}
}

func TestRequireAny_KeySources(t *testing.T) {
	h := RequireAny(Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}})(okHandler)

	cases := []struct {
		name   string
		target string
		header map[string]string
		want   int
	}{
		{"bearer", "/", map[string]string{"Authorization": "Bearer pub_key"}, http.StatusOK},
		{"bearer lowercase", "/", map[string]string{"Authorization": "bearer adm_key"}, http.StatusOK},
		{"header", "/", map[string]string{"X-API-Key": "pub_key"}, http.StatusOK},
		{"query", "/?api_key=pub_key", nil, http.StatusOK},
		{"wrong", "/", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"missing", "/", nil, http.StatusUnauthorized},
	}
	for _, c := range cases {
		if code := serve(h, c.target, c.header); code != c.want {
			t.Fatalf("%s: got %d want %d", c.name, code, c.want)
		}
	}
}

func TestRequireAny_OpenWithoutKeys(t *testing.T) {
	if code := serve(RequireAny(Keys{})(okHandler), "/", nil); code != http.StatusOK {
		t.Fatalf("want open access for local dev; got %d", code)
	}
}
