package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newRateLimitedHandler(t *testing.T, limit int, prefix string) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	config := RateLimitConfig{
		RequestsPerWindow: limit,
		Window:            time.Minute,
		KeyPrefix:         prefix,
	}
	handler := RateLimitMiddleware(redisClient, config, zap.NewNop())(okHandler())
	return handler, mr
}

func generateRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
	req.RemoteAddr = remoteAddr
	return req
}

// Feature: kiosk-library, Property 15: Generation requests beyond the window limit are blocked
func TestProperty_RateLimitingBlocksExcessiveRequests(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("exactly the limit is admitted per window", prop.ForAll(
		func(limit int, excess int) bool {
			handler, _ := newRateLimitedHandler(t, limit, "test_generate")

			success, blocked := 0, 0
			for i := 0; i < limit+excess; i++ {
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, generateRequest("192.168.1.100:5123"))
				switch w.Code {
				case http.StatusOK:
					success++
				case http.StatusTooManyRequests:
					blocked++
				}
			}
			return success == limit && blocked == excess
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimitHeaders(t *testing.T) {
	handler, _ := newRateLimitedHandler(t, 2, "test_headers")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, generateRequest("10.0.0.1:1000"))
	if w.Header().Get("X-RateLimit-Limit") != "2" || w.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("unexpected headers: %v", w.Header())
	}

	handler.ServeHTTP(httptest.NewRecorder(), generateRequest("10.0.0.1:1001"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, generateRequest("10.0.0.1:1002"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Fatalf("expected Retry-After within the window, got %q", w.Header().Get("Retry-After"))
	}
}

func TestRateLimitKeysByHostNotPort(t *testing.T) {
	handler, mr := newRateLimitedHandler(t, 1, "test_host")

	handler.ServeHTTP(httptest.NewRecorder(), generateRequest("10.0.0.2:1000"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, generateRequest("10.0.0.2:2000"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("a new source port must not reset the limit, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, generateRequest("10.0.0.3:1000"))
	if w.Code != http.StatusOK {
		t.Fatalf("other hosts have their own window, got %d", w.Code)
	}

	if !mr.Exists("test_host:ip:10.0.0.2") {
		t.Fatalf("expected per-host key, have %v", mr.Keys())
	}
}

func TestRateLimitWindowExpires(t *testing.T) {
	handler, mr := newRateLimitedHandler(t, 1, "test_window")

	handler.ServeHTTP(httptest.NewRecorder(), generateRequest("10.0.0.4:1"))
	mr.FastForward(time.Minute + time.Second)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, generateRequest("10.0.0.4:1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected a fresh window, got %d", w.Code)
	}
}

func TestRateLimitFailsOpenWhenRedisIsDown(t *testing.T) {
	handler, mr := newRateLimitedHandler(t, 1, "test_down")
	mr.Close()

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, generateRequest("10.0.0.5:1"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected requests to pass while redis is unavailable, got %d", w.Code)
		}
	}
}

func TestRateLimitKeysByOperator(t *testing.T) {
	handler, mr := newRateLimitedHandler(t, 5, "test_operator")

	req := generateRequest("10.0.0.9:1")
	claims := &OperatorClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "op-7"}}
	req = req.WithContext(context.WithValue(req.Context(), operatorKey, claims))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !mr.Exists("test_operator:operator:op-7") {
		t.Fatalf("expected operator key, have %v", mr.Keys())
	}
}
