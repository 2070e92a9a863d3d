package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"kiosk-architect/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultWidth  = 500
	DefaultHeight = 500
	JPEGQuality   = 90
)

var errUnsupportedFormat = errors.New("unsupported image format")

// Normalizer fits images onto a fixed size canvas so every kiosk tile has
// the same dimensions.
type Normalizer struct {
	width    int
	height   int
	logger   *zap.Logger
	failures prometheus.Counter
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCanvas overrides the default canvas size used by NormalizeBundle.
func WithCanvas(width, height int) Option {
	return func(n *Normalizer) {
		if width > 0 && height > 0 {
			n.width, n.height = width, height
		}
	}
}

// WithFailureCounter counts assets that were passed through unchanged.
func WithFailureCounter(c prometheus.Counter) Option {
	return func(n *Normalizer) {
		n.failures = c
	}
}

// NewNormalizer creates a Normalizer with a 500x500 canvas.
func NewNormalizer(logger *zap.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{width: DefaultWidth, height: DefaultHeight, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize scales the asset to fit inside width x height, centers it and
// pads the rest of the canvas. JPEG output is padded white, everything else
// transparent. On any failure the original asset is returned unchanged.
func (n *Normalizer) Normalize(asset domain.Asset, width, height int) domain.Asset {
	out, err := n.fit(asset, width, height)
	if err != nil {
		n.logger.Warn("Image normalization failed, keeping original",
			zap.String("filename", asset.Filename),
			zap.String("content_type", asset.ContentType),
			zap.Error(err),
		)
		if n.failures != nil {
			n.failures.Inc()
		}
		return asset
	}
	return out
}

// NormalizeBundle normalizes the logo, cover and gallery images of media.
// Videos and manuals are left alone.
func (n *Normalizer) NormalizeBundle(media domain.MediaBundle) domain.MediaBundle {
	out := media
	if media.Logo != nil && media.Logo.IsImage() {
		logo := n.Normalize(*media.Logo, n.width, n.height)
		out.Logo = &logo
	}
	if media.Cover != nil && media.Cover.IsImage() {
		cover := n.Normalize(*media.Cover, n.width, n.height)
		out.Cover = &cover
	}
	if len(media.Gallery) > 0 {
		out.Gallery = make([]domain.Asset, len(media.Gallery))
		for i, asset := range media.Gallery {
			if asset.IsImage() {
				asset = n.Normalize(asset, n.width, n.height)
			}
			out.Gallery[i] = asset
		}
	}
	return out
}

func (n *Normalizer) fit(asset domain.Asset, width, height int) (domain.Asset, error) {
	if width <= 0 || height <= 0 {
		return asset, fmt.Errorf("invalid canvas %dx%d", width, height)
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(asset.Data).String()
	}
	format, err := formatFor(contentType)
	if err != nil {
		return asset, err
	}

	src, err := imaging.Decode(bytes.NewReader(asset.Data), imaging.AutoOrientation(true))
	if err != nil {
		return asset, fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return asset, errors.New("image has no pixels")
	}

	scale := math.Min(float64(width)/float64(bounds.Dx()), float64(height)/float64(bounds.Dy()))
	fitW := max(1, int(math.Round(float64(bounds.Dx())*scale)))
	fitH := max(1, int(math.Round(float64(bounds.Dy())*scale)))
	resized := imaging.Resize(src, fitW, fitH, imaging.Lanczos)

	background := color.Color(color.Transparent)
	if format == imaging.JPEG {
		background = color.White
	}
	canvas := imaging.New(width, height, background)
	canvas = imaging.Paste(canvas, resized, image.Pt((width-fitW)/2, (height-fitH)/2))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, format, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return asset, fmt.Errorf("encode: %w", err)
	}

	return domain.Asset{
		Data:        buf.Bytes(),
		ContentType: contentType,
		Filename:    asset.Filename,
	}, nil
}

func formatFor(contentType string) (imaging.Format, error) {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	switch strings.TrimSpace(mediaType) {
	case "image/jpeg", "image/jpg":
		return imaging.JPEG, nil
	case "image/png":
		return imaging.PNG, nil
	case "image/gif":
		return imaging.GIF, nil
	case "image/bmp":
		return imaging.BMP, nil
	case "image/tiff":
		return imaging.TIFF, nil
	default:
		return 0, fmt.Errorf("%w: %s", errUnsupportedFormat, contentType)
	}
}
