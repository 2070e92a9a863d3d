package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"kiosk-architect/internal/domain"

	"github.com/gabriel-vasile/mimetype"
)

// Multipart field names of an export request
const (
	FieldRecord      = "record"
	FieldLogo        = "logo"
	FieldCover       = "cover"
	FieldGallery     = "gallery"
	FieldVideos      = "videos"
	FieldManuals     = "manuals"
	FieldManualNames = "manual_names"
)

// formMemory is the part of a multipart body held in memory before
// spilling to temporary files.
const formMemory = 32 << 20

var (
	errMissingRecord = errors.New("missing record field")
	errInvalidRecord = errors.New("record is not a valid product record")
)

// parseExportForm reads the record and its attachments from a multipart body
func parseExportForm(r *http.Request) (domain.ProductRecord, domain.MediaBundle, error) {
	var media domain.MediaBundle

	if err := r.ParseMultipartForm(formMemory); err != nil {
		return domain.ProductRecord{}, media, err
	}
	form := r.MultipartForm
	defer form.RemoveAll()

	raw, ok := form.Value[FieldRecord]
	if !ok || strings.TrimSpace(raw[0]) == "" {
		return domain.ProductRecord{}, media, errMissingRecord
	}

	record := domain.NewProductRecord()
	if err := json.Unmarshal([]byte(raw[0]), &record); err != nil {
		return domain.ProductRecord{}, media, fmt.Errorf("%w: %v", errInvalidRecord, err)
	}
	record.Normalize()

	var err error
	if media.Logo, err = readSingle(form, FieldLogo); err != nil {
		return record, media, err
	}
	if media.Cover, err = readSingle(form, FieldCover); err != nil {
		return record, media, err
	}
	if media.Gallery, err = readAll(form, FieldGallery); err != nil {
		return record, media, err
	}
	if media.Videos, err = readAll(form, FieldVideos); err != nil {
		return record, media, err
	}

	manuals, err := readAll(form, FieldManuals)
	if err != nil {
		return record, media, err
	}
	names := form.Value[FieldManualNames]
	for i, asset := range manuals {
		name := ""
		if i < len(names) {
			name = strings.TrimSpace(names[i])
		}
		if name == "" {
			name = strings.TrimSuffix(asset.Filename, filepath.Ext(asset.Filename))
		}
		media.Manuals = append(media.Manuals, domain.Manual{Asset: asset, DisplayName: name})
	}

	return record, media, nil
}

func readSingle(form *multipart.Form, field string) (*domain.Asset, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	asset, err := readAsset(headers[0])
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func readAll(form *multipart.Form, field string) ([]domain.Asset, error) {
	headers := form.File[field]
	assets := make([]domain.Asset, 0, len(headers))
	for _, fh := range headers {
		asset, err := readAsset(fh)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func readAsset(fh *multipart.FileHeader) (domain.Asset, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	return domain.Asset{
		Data:        data,
		ContentType: contentType,
		Filename:    fh.Filename,
	}, nil
}
