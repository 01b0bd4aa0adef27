package server

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"madeproof-backend/internal/attest"
	"madeproof-backend/internal/receipts"
	"madeproof-backend/internal/shared/config"
	"madeproof-backend/internal/shared/server/middleware"
	"madeproof-backend/internal/signing"
)

func newTestRouter(cfg config.Config) *gin.Engine {
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	svc := &attest.Service{Signer: signing.NewSigner(nil)}
	return NewRouter(RouterDeps{
		Config:          cfg,
		ReceiptsHandler: receipts.NewHandler(svc),
		Limiter:         middleware.NewRateLimiter(nil),
	})
}

func uploadFrom(r http.Handler, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp.Code
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	r := newTestRouter(config.Defaults())

	if code := uploadFrom(r, "203.0.113.9:5000", "198.51.100.1"); code == http.StatusTooManyRequests {
		t.Fatalf("first upload must not be limited")
	}
	limited := 0
	for i := 2; i < 22; i++ {
		if uploadFrom(r, "203.0.113.9:5000", "198.51.100."+strconv.Itoa(i)) == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 20 {
		t.Fatalf("expected every spoofed upload limited, got %d of 20", limited)
	}
}

func TestRateLimitHonorsForwardedForFromTrustedProxy(t *testing.T) {
	cfg := config.Defaults()
	cfg.TrustedProxies = []string{"10.0.0.1"}
	r := newTestRouter(cfg)

	for i := 1; i <= 3; i++ {
		if code := uploadFrom(r, "10.0.0.1:443", "198.51.100."+strconv.Itoa(i)); code == http.StatusTooManyRequests {
			t.Fatalf("distinct client %d behind the proxy must have its own bucket", i)
		}
	}
	if code := uploadFrom(r, "10.0.0.1:443", "198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("repeat client behind the proxy expected 429, got %d", code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9090": ":9090", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
