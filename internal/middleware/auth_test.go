package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject string, scopes []string, expiresIn time.Duration) string {
	t.Helper()
	claims := OperatorClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Feature: kiosk-library, Property 12: Protected endpoints reject missing tokens
func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without a usable bearer token are rejected", prop.ForAll(
		func(header string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/api/exports/library", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.OneGenOf(
			gen.Const(""),
			gen.AnyString(),
			gen.AlphaString().Map(func(s string) string { return "Bearer " + s }),
		),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/library/root", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "operator-1", nil, -time.Hour))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsMissingSubject(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/library/root", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "", []string{ScopeExport}, time.Hour))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsOtherAlgorithms(t *testing.T) {
	handler := AuthMiddleware(testSecret, zap.NewNop())(okHandler())

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "operator-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/library/root", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

// Feature: kiosk-library, Property 13: Valid tokens carry the operator into the request
func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens expose the operator to handlers", prop.ForAll(
		func(subject string, scope string) bool {
			var seen *OperatorClaims
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = GetOperator(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/library/root", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, subject, []string{scope}, time.Hour))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && seen != nil && seen.Subject == subject && seen.HasScope(scope)
		},
		gen.Identifier(),
		gen.OneConstOf(ScopeGenerate, ScopeExport, ScopeLibrary),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRequireScope(t *testing.T) {
	auth := AuthMiddleware(testSecret, zap.NewNop())
	handler := auth(RequireScope(ScopeExport, zap.NewNop())(okHandler()))

	tests := []struct {
		name   string
		scopes []string
		want   int
	}{
		{"granted", []string{ScopeGenerate, ScopeExport}, http.StatusOK},
		{"missing", []string{ScopeGenerate}, http.StatusForbidden},
		{"none", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/exports/archive", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, "operator-1", tt.scopes, time.Hour))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	RequireScope(ScopeExport, zap.NewNop())(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without an operator, got %d", w.Code)
	}
}
