package transport

import (
	"errors"
	"net/http"

	"kiosk-architect/internal/middleware"
	"kiosk-architect/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SelectRootRequest represents the library root selection payload
type SelectRootRequest struct {
	Path string `json:"path" validate:"notblank,max=1024"`
}

// LibraryHandler handles HTTP requests for the library root
type LibraryHandler struct {
	libraryService service.LibraryService
	logger         *zap.Logger
}

// NewLibraryHandler creates a new LibraryHandler
func NewLibraryHandler(libraryService service.LibraryService, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{
		libraryService: libraryService,
		logger:         logger,
	}
}

// RegisterRoutes registers all library root routes
func (h *LibraryHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Route("/api/library/root", func(r chi.Router) {
		r.Use(middlewares...)
		r.Get("/", h.GetRoot)
		r.Put("/", h.SelectRoot)
		r.Post("/permission", h.RequestPermission)
	})
}

// GetRoot returns the stored root and its current permission state
func (h *LibraryHandler) GetRoot(w http.ResponseWriter, r *http.Request) {
	status, err := h.libraryService.CurrentRoot(r.Context())
	if err != nil {
		h.respondRootError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, status)
}

// SelectRoot stores a new library root and requests readwrite access on it
func (h *LibraryHandler) SelectRoot(w http.ResponseWriter, r *http.Request) {
	var req SelectRootRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Select root validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := h.libraryService.SelectRoot(r.Context(), req.Path)
	if err != nil {
		h.respondRootError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, status)
}

// RequestPermission asks again for readwrite access on the stored root
func (h *LibraryHandler) RequestPermission(w http.ResponseWriter, r *http.Request) {
	status, err := h.libraryService.RequestPermission(r.Context())
	if err != nil {
		h.respondRootError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, status)
}

func (h *LibraryHandler) respondRootError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoLibraryRoot):
		middleware.RespondWithError(w, http.StatusNotFound, "no library root selected")
	case errors.Is(err, service.ErrInvalidRootPath):
		middleware.RespondWithError(w, http.StatusBadRequest, "library root path is required")
	default:
		h.logger.Error("Library root operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to access library root")
	}
}
