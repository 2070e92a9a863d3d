package library

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Mode is the access level asked of a storage capability
type Mode string

const (
	ModeRead      Mode = "read"
	ModeReadWrite Mode = "readwrite"
)

// PermissionState is the current access granted on a root directory
type PermissionState string

const (
	StateRead         PermissionState = "read"
	StateReadWrite    PermissionState = "readwrite"
	StateDenied       PermissionState = "denied"
	StatePromptNeeded PermissionState = "prompt-needed"
)

// Allows reports whether the state satisfies mode.
func (s PermissionState) Allows(mode Mode) bool {
	switch mode {
	case ModeRead:
		return s == StateRead || s == StateReadWrite
	case ModeReadWrite:
		return s == StateReadWrite
	default:
		return false
	}
}

// Handle identifies a user-authorized root directory inside the library base.
type Handle struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	GrantedAt time.Time `json:"granted_at"`
}

// NewHandle builds a handle for p. The path is cleaned and anchored at the
// library base so it can never address anything outside of it.
func NewHandle(p string, now time.Time) Handle {
	clean := path.Clean("/" + filepath.ToSlash(strings.TrimSpace(p)))
	name := path.Base(clean)
	if name == "/" {
		name = "library"
	}
	return Handle{Name: name, Path: clean, GrantedAt: now.UTC()}
}

// PermissionChecker queries and requests access on a root directory.
type PermissionChecker interface {
	Query(h Handle) PermissionState
	Request(h Handle, mode Mode) PermissionState
}

// Authorizer checks access to handles by probing the filesystem.
type Authorizer struct {
	fs afero.Fs
}

// NewAuthorizer creates an Authorizer over fsys.
func NewAuthorizer(fsys afero.Fs) *Authorizer {
	return &Authorizer{fs: fsys}
}

// Query reports the current state without changing anything visible.
// A missing directory needs a prompt; a writable directory is readwrite.
func (a *Authorizer) Query(h Handle) PermissionState {
	info, err := a.fs.Stat(h.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StatePromptNeeded
		}
		return StateDenied
	}
	if !info.IsDir() {
		return StateDenied
	}

	scratch, err := afero.TempFile(a.fs, h.Path, ".kiosk-scratch-*")
	if err != nil {
		return StateRead
	}
	name := scratch.Name()
	scratch.Close()
	a.fs.Remove(name)
	return StateReadWrite
}

// Request grants access where possible. A missing root directory is created.
func (a *Authorizer) Request(h Handle, mode Mode) PermissionState {
	state := a.Query(h)
	if state != StatePromptNeeded {
		return state
	}
	if err := a.fs.MkdirAll(h.Path, 0o755); err != nil {
		return StateDenied
	}
	return a.Query(h)
}

// VerifyPermission queries the handle and requests access when the current
// state does not already satisfy the mode.
func VerifyPermission(checker PermissionChecker, h Handle, readWrite bool) bool {
	mode := ModeRead
	if readWrite {
		mode = ModeReadWrite
	}
	if checker.Query(h).Allows(mode) {
		return true
	}
	return checker.Request(h, mode).Allows(mode)
}
