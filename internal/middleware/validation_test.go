package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type testRootRequest struct {
	Path string `json:"path" validate:"notblank,max=64"`
	Mode string `json:"mode" validate:"omitempty,oneof=read readwrite"`
}

func decodeRoot(t *testing.T, body map[string]any) (testRootRequest, error) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, "/api/library/root", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	var out testRootRequest
	return out, DecodeAndValidate(req, &out)
}

// Feature: kiosk-library, Property 14: Blank required fields are rejected
func TestProperty_BlankFieldsAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	whitespace := gen.IntRange(0, 10).Map(func(n int) string {
		return strings.Repeat(" \t\n", n)
	})

	properties.Property("blank paths fail validation with a field message", prop.ForAll(
		func(path string) bool {
			_, err := decodeRoot(t, map[string]any{"path": path})
			if err == nil {
				return false
			}
			errs := FormatValidationErrors(err)
			return len(errs) == 1 && errs[0].Field == "Path" && errs[0].Message != ""
		},
		whitespace,
	))

	properties.Property("non-blank short paths pass validation", prop.ForAll(
		func(path string) bool {
			_, err := decodeRoot(t, map[string]any{"path": path, "mode": "readwrite"})
			return err == nil
		},
		gen.Identifier().Map(func(s string) string {
			if len(s) > 64 {
				return s[:64]
			}
			return s
		}),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidationMessages(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"too long", map[string]any{"path": strings.Repeat("a", 65)}, "Value is too long"},
		{"bad mode", map[string]any{"path": "kiosk", "mode": "admin"}, "Value must be one of read readwrite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRoot(t, tt.body)
			errs := FormatValidationErrors(err)
			if len(errs) != 1 || errs[0].Message != tt.want {
				t.Fatalf("expected %q, got %+v", tt.want, errs)
			}
		})
	}
}

func TestDecodeAndValidateRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/library/root", strings.NewReader("{"))

	var out testRootRequest
	err := DecodeAndValidate(req, &out)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if len(FormatValidationErrors(err)) != 0 {
		t.Fatal("decode errors are not validation errors")
	}
}

func TestLimitBody(t *testing.T) {
	var readErr error
	handler := LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))

	if !IsBodyTooLarge(readErr) {
		t.Fatalf("expected a body size error, got %v", readErr)
	}
	if IsBodyTooLarge(errors.New("other")) {
		t.Fatal("unrelated errors are not size errors")
	}
}
