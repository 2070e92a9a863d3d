// Package cli implements kioskctl, the command line front end for generating
// product records and exporting them into a kiosk library.
package cli

import (
	"context"

	"kiosk-architect/internal/config"
	"kiosk-architect/internal/domain"
	"kiosk-architect/internal/logger"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Generator turns product text into a record.
type Generator interface {
	Generate(ctx context.Context, text string) (domain.ProductRecord, error)
}

type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	logLevel  string
	generator Generator
	fs        afero.Fs
}

// Option customizes the command tree.
type Option func(*app)

// WithConfig skips loading configuration from the environment.
func WithConfig(cfg *config.Config) Option {
	return func(a *app) {
		a.cfg = cfg
	}
}

// WithGenerator replaces the configured generation client.
func WithGenerator(g Generator) Option {
	return func(a *app) {
		a.generator = g
	}
}

// WithFs replaces the filesystem used for reading inputs and writing exports.
func WithFs(fsys afero.Fs) Option {
	return func(a *app) {
		a.fs = fsys
	}
}

// NewRootCommand builds the kioskctl command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "kioskctl",
		Short:         "Generate and export kiosk product libraries",
		Long:          `Turn product text into structured records and write them as brand/category/product folders or zip archives.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				a.cfg = config.Load()
			}
			level := a.logLevel
			if level == "" {
				level = a.cfg.Server.LogLevel
			}
			a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(a.newGenerateCommand())
	root.AddCommand(a.newExportCommand())
	root.AddCommand(a.newMigrateCommand())
	return root
}
