package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kiosk-architect/internal/library"
	"kiosk-architect/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrNoLibraryRoot   = errors.New("no library root has been selected")
	ErrInvalidRootPath = errors.New("library root path is required")
)

// RootStatus is the stored library root together with its current access
type RootStatus struct {
	Handle library.Handle          `json:"handle"`
	State  library.PermissionState `json:"state"`
}

// LibraryService manages the user-authorized library root
type LibraryService interface {
	CurrentRoot(ctx context.Context) (*RootStatus, error)
	SelectRoot(ctx context.Context, path string) (*RootStatus, error)
	RequestPermission(ctx context.Context) (*RootStatus, error)
}

type libraryService struct {
	handles repository.HandleRepository
	checker library.PermissionChecker
	logger  *zap.Logger
	now     func() time.Time
}

// NewLibraryService creates a new instance of LibraryService
func NewLibraryService(handles repository.HandleRepository, checker library.PermissionChecker, logger *zap.Logger) LibraryService {
	return &libraryService{
		handles: handles,
		checker: checker,
		logger:  logger,
		now:     time.Now,
	}
}

// CurrentRoot returns the stored root and queries its state without prompting
func (s *libraryService) CurrentRoot(ctx context.Context) (*RootStatus, error) {
	handle, err := s.storedHandle(ctx)
	if err != nil {
		return nil, err
	}
	return &RootStatus{Handle: handle, State: s.checker.Query(handle)}, nil
}

// SelectRoot asks for readwrite access on path and remembers it as the root
func (s *libraryService) SelectRoot(ctx context.Context, path string) (*RootStatus, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidRootPath
	}

	handle := library.NewHandle(path, s.now())
	state := s.checker.Request(handle, library.ModeReadWrite)

	if err := s.handles.Save(ctx, handle); err != nil {
		return nil, fmt.Errorf("failed to store library root: %w", err)
	}

	s.logger.Info("Library root selected",
		zap.String("path", handle.Path),
		zap.String("state", string(state)),
	)
	return &RootStatus{Handle: handle, State: state}, nil
}

// RequestPermission asks again for readwrite access on the stored root
func (s *libraryService) RequestPermission(ctx context.Context) (*RootStatus, error) {
	handle, err := s.storedHandle(ctx)
	if err != nil {
		return nil, err
	}
	state := s.checker.Request(handle, library.ModeReadWrite)
	return &RootStatus{Handle: handle, State: state}, nil
}

func (s *libraryService) storedHandle(ctx context.Context) (library.Handle, error) {
	handle, err := s.handles.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrHandleNotFound) {
			return library.Handle{}, ErrNoLibraryRoot
		}
		return library.Handle{}, fmt.Errorf("failed to load library root: %w", err)
	}
	return handle, nil
}
