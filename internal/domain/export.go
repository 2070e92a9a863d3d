package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportBackend identifies which writer produced an export
type ExportBackend string

const (
	BackendLibrary ExportBackend = "library"
	BackendArchive ExportBackend = "archive"
)

// ExportManifest records the files written by one export run
type ExportManifest struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Backend     ExportBackend `json:"backend" db:"backend"`
	RootPath    string        `json:"root_path" db:"root_path"`
	ProductPath string        `json:"product_path" db:"product_path"`
	SKU         string        `json:"sku" db:"sku"`
	Files       []string      `json:"files" db:"files"`
	Pruned      []string      `json:"pruned" db:"pruned"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
