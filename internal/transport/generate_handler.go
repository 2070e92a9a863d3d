package transport

import (
	"context"
	"errors"
	"net/http"

	"kiosk-architect/internal/domain"
	"kiosk-architect/internal/generation"
	"kiosk-architect/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Generator turns free-form product text into a ProductRecord
type Generator interface {
	Generate(ctx context.Context, text string) (domain.ProductRecord, error)
}

// GenerateRequest represents the generation request payload
type GenerateRequest struct {
	Text string `json:"text" validate:"notblank,max=200000"`
}

// GenerateResponse wraps the generated record
type GenerateResponse struct {
	Record domain.ProductRecord `json:"record"`
}

// GenerateHandler handles HTTP requests for record generation
type GenerateHandler struct {
	generator Generator
	logger    *zap.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(generator Generator, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		generator: generator,
		logger:    logger,
	}
}

// RegisterRoutes registers the generation route behind the given middleware
func (h *GenerateHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.With(middlewares...).Post("/api/generate", h.Generate)
}

// Generate handles POST /api/generate
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Generate validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.generator.Generate(r.Context(), req.Text)
	if err != nil {
		h.respondGenerationError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, GenerateResponse{Record: record})
}

func (h *GenerateHandler) respondGenerationError(w http.ResponseWriter, err error) {
	details := map[string]any{"hint": generation.Hint(err)}

	var genErr *generation.Error
	if errors.As(err, &genErr) {
		details["attempts"] = genErr.Attempts
	}

	switch {
	case errors.Is(err, generation.ErrEmptyInput):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "input text is empty", details)
	case errors.Is(err, generation.ErrNoCredentials):
		h.logger.Error("Generation requested without configured API keys")
		middleware.RespondWithErrorDetails(w, http.StatusServiceUnavailable, "generation is not configured", details)
	case errors.Is(err, generation.ErrServiceOverloaded):
		h.logger.Warn("Generation service overloaded", zap.Error(err))
		w.Header().Set("Retry-After", "30")
		middleware.RespondWithErrorDetails(w, http.StatusServiceUnavailable, "generation service overloaded", details)
	case errors.Is(err, generation.ErrCredentialsExhausted):
		h.logger.Error("All generation credentials were rejected", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusBadGateway, "generation credentials rejected", details)
	case errors.Is(err, generation.ErrMalformedResponse):
		h.logger.Warn("Generation returned a malformed record", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusBadGateway, "generation returned an invalid record", details)
	default:
		h.logger.Error("Generation failed", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusInternalServerError, "failed to generate content", details)
	}
}
