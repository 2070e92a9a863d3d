package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"kiosk-architect/internal/domain"
	"kiosk-architect/internal/imaging"
	"kiosk-architect/internal/library"
	"kiosk-architect/internal/repository"
	"kiosk-architect/internal/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type exportFlags struct {
	record  string
	logo    string
	cover   string
	gallery []string
	videos  []string
	manuals []string
	root    string
	zip     string
}

func (a *app) newExportCommand() *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a product record into a library folder or zip archive",
		Long: `Writes the record and its media as <Brand>/<Category>/<Product> either below
a library root (--root) or into a zip archive (--zip). Images are normalized
onto the configured canvas before writing.`,
		Example: `  kioskctl export --record acme.json --cover front.jpg --gallery a.png --gallery b.png \
    --manual "User Guide=guide.pdf" --root /media/kiosk`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (f.root == "") == (f.zip == "") {
				return errors.New("exactly one of --root or --zip is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.record, "record", "r", "", "Product record JSON file")
	cmd.Flags().StringVar(&f.logo, "logo", "", "Brand logo image")
	cmd.Flags().StringVar(&f.cover, "cover", "", "Cover image")
	cmd.Flags().StringArrayVar(&f.gallery, "gallery", nil, "Gallery image, repeatable")
	cmd.Flags().StringArrayVar(&f.videos, "video", nil, "Video file, repeatable")
	cmd.Flags().StringArrayVar(&f.manuals, "manual", nil, `Manual as "Display Name=path" or path, repeatable`)
	cmd.Flags().StringVar(&f.root, "root", "", "Library root directory")
	cmd.Flags().StringVar(&f.zip, "zip", "", "Archive file or directory to write the archive into")
	cmd.MarkFlagRequired("record")
	return cmd
}

func (a *app) runExport(cmd *cobra.Command, f exportFlags) error {
	record, err := a.loadRecord(f.record)
	if err != nil {
		return err
	}
	media, err := a.loadMedia(f)
	if err != nil {
		return err
	}

	handles := repository.NewMemoryHandleRepository()
	checker := library.NewAuthorizer(a.fs)
	normalizer := imaging.NewNormalizer(a.logger,
		imaging.WithCanvas(a.cfg.Library.NormalizeWidth, a.cfg.Library.NormalizeHeight),
	)
	exports := service.NewExportService(library.NewLibraryWriter(a.fs), handles, checker, normalizer, nil, a.logger)

	if f.zip != "" {
		archive, err := exports.ExportToArchive(cmd.Context(), record, media)
		if err != nil {
			return err
		}
		target := f.zip
		if isDir, _ := afero.IsDir(a.fs, target); isDir {
			target = filepath.Join(target, archive.Filename)
		}
		if err := afero.WriteFile(a.fs, target, archive.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		a.logger.Info("Archive written", zap.String("path", target), zap.Int("files", len(archive.Files)))
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	}

	root, err := filepath.Abs(f.root)
	if err != nil {
		return fmt.Errorf("invalid root %s: %w", f.root, err)
	}
	handle := library.Handle{Name: filepath.Base(root), Path: root, GrantedAt: time.Now().UTC()}
	if err := handles.Save(cmd.Context(), handle); err != nil {
		return err
	}

	result, err := exports.ExportToLibrary(cmd.Context(), record, media)
	if err != nil {
		return err
	}
	for _, p := range result.Files {
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(root, filepath.FromSlash(p)))
	}
	return nil
}

func (a *app) loadRecord(path string) (domain.ProductRecord, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return domain.ProductRecord{}, fmt.Errorf("failed to read record: %w", err)
	}
	record := domain.NewProductRecord()
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.ProductRecord{}, fmt.Errorf("record %s is not valid JSON: %w", path, err)
	}
	record.Normalize()
	return record, nil
}

func (a *app) loadMedia(f exportFlags) (domain.MediaBundle, error) {
	var media domain.MediaBundle

	if f.logo != "" {
		asset, err := a.loadAsset(f.logo)
		if err != nil {
			return media, err
		}
		media.Logo = &asset
	}
	if f.cover != "" {
		asset, err := a.loadAsset(f.cover)
		if err != nil {
			return media, err
		}
		media.Cover = &asset
	}
	for _, p := range f.gallery {
		asset, err := a.loadAsset(p)
		if err != nil {
			return media, err
		}
		media.Gallery = append(media.Gallery, asset)
	}
	for _, p := range f.videos {
		asset, err := a.loadAsset(p)
		if err != nil {
			return media, err
		}
		media.Videos = append(media.Videos, asset)
	}
	for _, spec := range f.manuals {
		name, p := parseManual(a.fs, spec)
		asset, err := a.loadAsset(p)
		if err != nil {
			return media, err
		}
		media.Manuals = append(media.Manuals, domain.Manual{Asset: asset, DisplayName: name})
	}
	return media, nil
}

func (a *app) loadAsset(path string) (domain.Asset, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return domain.Asset{
		Data:        data,
		ContentType: mimetype.Detect(data).String(),
		Filename:    filepath.Base(path),
	}, nil
}

// parseManual splits "Display Name=path" at the first "=". A spec naming an
// existing file is taken as a path as a whole, so paths may contain "=".
// Without a name the file stem is used.
func parseManual(fsys afero.Fs, spec string) (name, path string) {
	path = spec
	exists, _ := afero.Exists(fsys, spec)
	if n, p, ok := strings.Cut(spec, "="); ok && !exists {
		name, path = strings.TrimSpace(n), p
	}
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return name, path
}
