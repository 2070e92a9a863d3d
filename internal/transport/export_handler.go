package transport

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"kiosk-architect/internal/library"
	"kiosk-architect/internal/middleware"
	"kiosk-architect/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ExportHandler handles HTTP requests for library and archive exports
type ExportHandler struct {
	exportService service.ExportService
	maxUpload     int64
	logger        *zap.Logger
}

// NewExportHandler creates a new ExportHandler. maxUpload caps the request
// body in bytes.
func NewExportHandler(exportService service.ExportService, maxUpload int64, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		maxUpload:     maxUpload,
		logger:        logger,
	}
}

// RegisterRoutes registers all export routes
func (h *ExportHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Route("/api/exports", func(r chi.Router) {
		r.Use(middlewares...)
		r.Get("/history", h.History)

		r.Group(func(r chi.Router) {
			r.Use(middleware.LimitBody(h.maxUpload))
			r.Post("/library", h.ExportToLibrary)
			r.Post("/archive", h.ExportToArchive)
		})
	})
}

// ExportToLibrary writes the posted record into the library root
func (h *ExportHandler) ExportToLibrary(w http.ResponseWriter, r *http.Request) {
	record, media, err := parseExportForm(r)
	if err != nil {
		h.respondFormError(w, err)
		return
	}

	result, err := h.exportService.ExportToLibrary(r.Context(), record, media)
	if err != nil {
		h.respondExportError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, result)
}

// ExportToArchive returns the posted record as a zip download
func (h *ExportHandler) ExportToArchive(w http.ResponseWriter, r *http.Request) {
	record, media, err := parseExportForm(r)
	if err != nil {
		h.respondFormError(w, err)
		return
	}

	archive, err := h.exportService.ExportToArchive(r.Context(), record, media)
	if err != nil {
		h.respondExportError(w, err)
		return
	}

	w.Header().Set("Content-Type", library.ArchiveContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": archive.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive.Data); err != nil {
		h.logger.Warn("Failed to send archive", zap.String("filename", archive.Filename), zap.Error(err))
	}
}

// History lists recent exports, newest first
func (h *ExportHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	manifests, err := h.exportService.History(r.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrHistoryUnavailable) {
			middleware.RespondWithError(w, http.StatusServiceUnavailable, "export history is not available")
			return
		}
		h.logger.Error("Failed to list export history", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list export history")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, manifests)
}

func (h *ExportHandler) respondFormError(w http.ResponseWriter, err error) {
	h.logger.Debug("Export form rejected", zap.Error(err))
	switch {
	case middleware.IsBodyTooLarge(err):
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "upload too large")
	case errors.Is(err, errMissingRecord):
		middleware.RespondWithError(w, http.StatusBadRequest, "record is required")
	case errors.Is(err, errInvalidRecord):
		middleware.RespondWithError(w, http.StatusBadRequest, "record is not a valid product record")
	default:
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
	}
}

func (h *ExportHandler) respondExportError(w http.ResponseWriter, err error) {
	var details map[string]any
	var writeErr *library.WriteError
	if errors.As(err, &writeErr) {
		details = map[string]any{"op": writeErr.Op, "path": writeErr.Path}
	}

	switch {
	case errors.Is(err, service.ErrNoLibraryRoot):
		middleware.RespondWithError(w, http.StatusConflict, "no library root selected")
	case errors.Is(err, library.ErrPermission):
		middleware.RespondWithErrorDetails(w, http.StatusForbidden, "permission to the library root was denied", details)
	case errors.Is(err, library.ErrStructure):
		h.logger.Error("Export produced an invalid structure", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusInternalServerError, "invalid library structure", details)
	case errors.Is(err, library.ErrIO):
		middleware.RespondWithErrorDetails(w, http.StatusInternalServerError, "failed to save to library", details)
	default:
		h.logger.Error("Export failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "export failed")
	}
}
