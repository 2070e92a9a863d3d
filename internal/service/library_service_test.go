package service

import (
	"context"
	"errors"
	"testing"

	"kiosk-architect/internal/library"
	"kiosk-architect/internal/repository"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func TestLibraryServiceSelectRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	handles := repository.NewMemoryHandleRepository()
	svc := NewLibraryService(handles, library.NewAuthorizer(fsys), zap.NewNop())
	ctx := context.Background()

	if _, err := svc.CurrentRoot(ctx); !errors.Is(err, ErrNoLibraryRoot) {
		t.Fatalf("expected ErrNoLibraryRoot, got %v", err)
	}

	status, err := svc.SelectRoot(ctx, "showroom/kiosk")
	if err != nil {
		t.Fatalf("SelectRoot returned error: %v", err)
	}
	if status.State != library.StateReadWrite || status.Handle.Path != "/showroom/kiosk" {
		t.Fatalf("unexpected status %+v", status)
	}
	if ok, _ := afero.DirExists(fsys, "/showroom/kiosk"); !ok {
		t.Fatalf("expected root directory to be created on request")
	}

	current, err := svc.CurrentRoot(ctx)
	if err != nil {
		t.Fatalf("CurrentRoot returned error: %v", err)
	}
	if current.Handle.Path != "/showroom/kiosk" || current.State != library.StateReadWrite {
		t.Fatalf("unexpected current root %+v", current)
	}
}

func TestLibraryServiceSelectRootRejectsBlankPath(t *testing.T) {
	svc := NewLibraryService(repository.NewMemoryHandleRepository(), library.NewAuthorizer(afero.NewMemMapFs()), zap.NewNop())

	if _, err := svc.SelectRoot(context.Background(), "  "); !errors.Is(err, ErrInvalidRootPath) {
		t.Fatalf("expected ErrInvalidRootPath, got %v", err)
	}
}

func TestLibraryServiceRequestPermission(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := base.MkdirAll("/kiosk", 0o755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	handles := repository.NewMemoryHandleRepository()
	ctx := context.Background()

	readOnly := NewLibraryService(handles, library.NewAuthorizer(afero.NewReadOnlyFs(base)), zap.NewNop())
	if _, err := readOnly.RequestPermission(ctx); !errors.Is(err, ErrNoLibraryRoot) {
		t.Fatalf("expected ErrNoLibraryRoot, got %v", err)
	}

	status, err := readOnly.SelectRoot(ctx, "/kiosk")
	if err != nil {
		t.Fatalf("SelectRoot returned error: %v", err)
	}
	if status.State != library.StateRead {
		t.Fatalf("expected read-only state, got %s", status.State)
	}

	writable := NewLibraryService(handles, library.NewAuthorizer(base), zap.NewNop())
	status, err = writable.RequestPermission(ctx)
	if err != nil {
		t.Fatalf("RequestPermission returned error: %v", err)
	}
	if status.State != library.StateReadWrite {
		t.Fatalf("expected readwrite after request, got %s", status.State)
	}
}
