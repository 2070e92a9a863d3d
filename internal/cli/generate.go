package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"kiosk-architect/internal/generation"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) newGenerateCommand() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a product record from text",
		Long: `Sends product text (plain or HTML) to the generation service and prints the
structured record as JSON. Configured API keys are tried in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readInput(cmd, input)
			if err != nil {
				return err
			}

			record, err := a.generatorOrDefault().Generate(cmd.Context(), text)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), generation.Hint(err))
				return err
			}

			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			data = append(data, '\n')

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := afero.WriteFile(a.fs, output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			a.logger.Info("Record written", zap.String("path", output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "File with product text, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the record to a file instead of stdout")
	return cmd
}

func (a *app) readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func (a *app) generatorOrDefault() Generator {
	if a.generator != nil {
		return a.generator
	}
	return generation.NewClient(a.cfg.OpenAI.Keys, a.logger,
		generation.WithCompleterFactory(generation.OpenAICompleters(a.cfg.OpenAI.BaseURL)),
		generation.WithModel(a.cfg.OpenAI.Model),
		generation.WithBackoff(a.cfg.OpenAI.Backoff),
	)
}
