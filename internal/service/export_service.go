package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kiosk-architect/internal/domain"
	"kiosk-architect/internal/imaging"
	"kiosk-architect/internal/library"
	"kiosk-architect/internal/observability"
	"kiosk-architect/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrHistoryUnavailable = errors.New("export history requires a database")

// LibraryExport describes a finished export into the library root
type LibraryExport struct {
	Root        library.Handle `json:"root"`
	ProductPath string         `json:"product_path"`
	Files       []string       `json:"files"`
	Pruned      []string       `json:"pruned"`
}

// ArchiveExport is a finished zip archive ready for download
type ArchiveExport struct {
	Filename string   `json:"filename"`
	Files    []string `json:"files"`
	Data     []byte   `json:"-"`
}

// ExportService realizes product records as library folders or zip archives.
// Calls targeting the same library root are serialized.
type ExportService interface {
	ExportToLibrary(ctx context.Context, record domain.ProductRecord, media domain.MediaBundle) (*LibraryExport, error)
	ExportToArchive(ctx context.Context, record domain.ProductRecord, media domain.MediaBundle) (*ArchiveExport, error)
	History(ctx context.Context, limit int) ([]*domain.ExportManifest, error)
}

type exportService struct {
	writer     *library.LibraryWriter
	handles    repository.HandleRepository
	checker    library.PermissionChecker
	manifests  repository.ManifestRepository
	normalizer *imaging.Normalizer
	metrics    *observability.Metrics
	logger     *zap.Logger
	locks      *rootLocks
	now        func() time.Time
	prune      bool
}

// ExportOption configures the export service
type ExportOption func(*exportService)

// WithManifests records every export and enables stale-file pruning
func WithManifests(manifests repository.ManifestRepository, prune bool) ExportOption {
	return func(s *exportService) {
		s.manifests = manifests
		s.prune = prune
	}
}

// WithExportClock replaces the clock used for manifests and archive entries
func WithExportClock(now func() time.Time) ExportOption {
	return func(s *exportService) {
		s.now = now
	}
}

// NewExportService creates a new instance of ExportService
func NewExportService(
	writer *library.LibraryWriter,
	handles repository.HandleRepository,
	checker library.PermissionChecker,
	normalizer *imaging.Normalizer,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...ExportOption,
) ExportService {
	s := &exportService{
		writer:     writer,
		handles:    handles,
		checker:    checker,
		normalizer: normalizer,
		metrics:    metrics,
		logger:     logger,
		locks:      newRootLocks(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportToLibrary writes the record below the stored library root. Permission
// is verified first; once writing starts it runs to completion even if ctx is
// cancelled, and a failure may leave a partial tree that a re-run repairs.
func (s *exportService) ExportToLibrary(ctx context.Context, record domain.ProductRecord, media domain.MediaBundle) (*LibraryExport, error) {
	result, err := s.exportToLibrary(ctx, record, media)
	s.count(domain.BackendLibrary, err)
	return result, err
}

func (s *exportService) exportToLibrary(ctx context.Context, record domain.ProductRecord, media domain.MediaBundle) (*LibraryExport, error) {
	handle, err := s.handles.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrHandleNotFound) {
			return nil, ErrNoLibraryRoot
		}
		return nil, fmt.Errorf("failed to load library root: %w", err)
	}

	if !library.VerifyPermission(s.checker, handle, true) {
		return nil, &library.WriteError{Op: "authorize", Path: handle.Path, Kind: library.ErrPermission}
	}

	tree, err := library.Project(record, s.normalizer.NormalizeBundle(media))
	if err != nil {
		return nil, fmt.Errorf("failed to project record: %w", err)
	}

	unlock := s.locks.lock(handle.Path)
	defer unlock()

	// Bookkeeping after the write must not be abandoned half way.
	bg := context.WithoutCancel(ctx)

	if err := s.writer.Write(handle.Path, tree); err != nil {
		s.logger.Error("Library export failed",
			zap.String("root", handle.Path),
			zap.String("product", tree.ProductPath()),
			zap.Error(err),
		)
		return nil, err
	}

	files := tree.Paths()
	pruned := s.pruneStale(bg, handle, tree)

	s.saveManifest(bg, &domain.ExportManifest{
		ID:          uuid.New(),
		Backend:     domain.BackendLibrary,
		RootPath:    handle.Path,
		ProductPath: tree.ProductPath(),
		SKU:         record.SKU,
		Files:       files,
		Pruned:      pruned,
		CreatedAt:   s.now().UTC(),
	})

	s.logger.Info("Library export completed",
		zap.String("root", handle.Path),
		zap.String("product", tree.ProductPath()),
		zap.Int("files", len(files)),
		zap.Int("pruned", len(pruned)),
	)

	return &LibraryExport{Root: handle, ProductPath: tree.ProductPath(), Files: files, Pruned: pruned}, nil
}

// pruneStale deletes product files written by the previous export of the same
// product folder that the current tree no longer contains. Failures are logged
// and leave the stale files in place.
func (s *exportService) pruneStale(ctx context.Context, handle library.Handle, tree library.Tree) []string {
	pruned := []string{}
	if s.manifests == nil || !s.prune {
		return pruned
	}

	previous, err := s.manifests.Latest(ctx, handle.Path, tree.ProductPath())
	if err != nil {
		if !errors.Is(err, repository.ErrManifestNotFound) {
			s.logger.Warn("Could not load previous export manifest", zap.Error(err))
		}
		return pruned
	}

	removed, err := s.writer.Prune(handle.Path, tree, previous.Files)
	if err != nil {
		s.logger.Warn("Failed to prune stale files", zap.String("product", tree.ProductPath()), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.PrunedFilesTotal.Add(float64(len(removed)))
	}
	return append(pruned, removed...)
}

// ExportToArchive builds a zip archive of the record without touching the
// library root.
func (s *exportService) ExportToArchive(ctx context.Context, record domain.ProductRecord, media domain.MediaBundle) (*ArchiveExport, error) {
	result, err := s.exportToArchive(ctx, record, media)
	s.count(domain.BackendArchive, err)
	return result, err
}

func (s *exportService) exportToArchive(ctx context.Context, record domain.ProductRecord, media domain.MediaBundle) (*ArchiveExport, error) {
	tree, err := library.Project(record, s.normalizer.NormalizeBundle(media))
	if err != nil {
		return nil, fmt.Errorf("failed to project record: %w", err)
	}

	data, err := library.BuildArchive(tree, library.WithClock(s.now))
	if err != nil {
		if errors.Is(err, library.ErrStructure) {
			s.logger.Error("Archive structure is invalid for a sanitized tree",
				zap.String("product", tree.ProductPath()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	files := tree.Paths()
	s.saveManifest(context.WithoutCancel(ctx), &domain.ExportManifest{
		ID:          uuid.New(),
		Backend:     domain.BackendArchive,
		ProductPath: tree.ProductPath(),
		SKU:         record.SKU,
		Files:       files,
		Pruned:      []string{},
		CreatedAt:   s.now().UTC(),
	})

	return &ArchiveExport{Filename: tree.Product.Name + ".zip", Files: files, Data: data}, nil
}

// History lists recent exports, newest first
func (s *exportService) History(ctx context.Context, limit int) ([]*domain.ExportManifest, error) {
	if s.manifests == nil {
		return nil, ErrHistoryUnavailable
	}
	return s.manifests.List(ctx, limit)
}

func (s *exportService) saveManifest(ctx context.Context, manifest *domain.ExportManifest) {
	if s.manifests == nil {
		return
	}
	if err := s.manifests.Save(ctx, manifest); err != nil {
		s.logger.Warn("Failed to record export manifest",
			zap.String("backend", string(manifest.Backend)),
			zap.String("product", manifest.ProductPath),
			zap.Error(err),
		)
	}
}

func (s *exportService) count(backend domain.ExportBackend, err error) {
	if s.metrics == nil {
		return
	}
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, library.ErrPermission):
		result = "permission_denied"
	case errors.Is(err, library.ErrStructure):
		result = "structure_error"
	case errors.Is(err, library.ErrIO):
		result = "io_error"
	default:
		result = "error"
	}
	s.metrics.ExportsTotal.WithLabelValues(string(backend), result).Inc()
}
