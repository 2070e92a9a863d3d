package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"kiosk-architect/internal/domain"
)

var ErrManifestNotFound = errors.New("export manifest not found")

// ManifestRepository stores the file lists written by past exports
type ManifestRepository interface {
	Save(ctx context.Context, manifest *domain.ExportManifest) error
	Latest(ctx context.Context, rootPath, productPath string) (*domain.ExportManifest, error)
	List(ctx context.Context, limit int) ([]*domain.ExportManifest, error)
}

type manifestRepository struct {
	db *sql.DB
}

// NewManifestRepository creates a new instance of ManifestRepository
func NewManifestRepository(db *sql.DB) ManifestRepository {
	return &manifestRepository{db: db}
}

// Save inserts a manifest. File lists are stored as JSONB arrays.
func (r *manifestRepository) Save(ctx context.Context, manifest *domain.ExportManifest) error {
	files, err := json.Marshal(nonNil(manifest.Files))
	if err != nil {
		return fmt.Errorf("failed to encode manifest files: %w", err)
	}
	pruned, err := json.Marshal(nonNil(manifest.Pruned))
	if err != nil {
		return fmt.Errorf("failed to encode pruned files: %w", err)
	}

	query := `
		INSERT INTO export_manifests (id, backend, root_path, product_path, sku, files, pruned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		manifest.ID,
		manifest.Backend,
		manifest.RootPath,
		manifest.ProductPath,
		manifest.SKU,
		files,
		pruned,
		manifest.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save export manifest: %w", err)
	}

	return nil
}

// Latest returns the most recent library export for a product folder below rootPath
func (r *manifestRepository) Latest(ctx context.Context, rootPath, productPath string) (*domain.ExportManifest, error) {
	query := `
		SELECT id, backend, root_path, product_path, sku, files, pruned, created_at
		FROM export_manifests
		WHERE root_path = $1 AND product_path = $2 AND backend = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	manifest, err := scanManifest(r.db.QueryRowContext(ctx, query, rootPath, productPath, domain.BackendLibrary))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrManifestNotFound
		}
		return nil, fmt.Errorf("failed to find export manifest: %w", err)
	}

	return manifest, nil
}

// List returns the most recent manifests of any backend, newest first
func (r *manifestRepository) List(ctx context.Context, limit int) ([]*domain.ExportManifest, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, backend, root_path, product_path, sku, files, pruned, created_at
		FROM export_manifests
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list export manifests: %w", err)
	}
	defer rows.Close()

	manifests := []*domain.ExportManifest{}
	for rows.Next() {
		manifest, err := scanManifest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export manifest: %w", err)
		}
		manifests = append(manifests, manifest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export manifests: %w", err)
	}

	return manifests, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManifest(row rowScanner) (*domain.ExportManifest, error) {
	manifest := &domain.ExportManifest{}
	var files, pruned []byte

	err := row.Scan(
		&manifest.ID,
		&manifest.Backend,
		&manifest.RootPath,
		&manifest.ProductPath,
		&manifest.SKU,
		&files,
		&pruned,
		&manifest.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(files, &manifest.Files); err != nil {
		return nil, fmt.Errorf("failed to decode manifest files: %w", err)
	}
	if err := json.Unmarshal(pruned, &manifest.Pruned); err != nil {
		return nil, fmt.Errorf("failed to decode pruned files: %w", err)
	}
	manifest.Files = nonNil(manifest.Files)
	manifest.Pruned = nonNil(manifest.Pruned)

	return manifest, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
