package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/nconklindev/docsheet/internal/config"
	"github.com/nconklindev/docsheet/internal/converter"
	"github.com/nconklindev/docsheet/internal/journal"
	"github.com/nconklindev/docsheet/internal/types"
)

// errStatus makes the process exit with status 1 after the result has
// already been printed.
var errStatus = errors.New("conversion failed")

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <source.docx> <target>",
		Short: "Convert the tables of a Word document into the target file",
		Long: `convert maps the rows of every matching table in source.docx onto the target
columns and writes them to target in one step. A missing target is created; an
existing target with the expected header is appended to. The outcome is printed
in the configured output format and the command exits with status 1 when the
conversion fails.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			v, err := converter.VariantFor(cfg.Variant, args[1])
			if err != nil {
				return err
			}

			res := converter.New(v, args[0], args[1],
				converter.WithLogDir(cfg.LogDir),
				converter.WithLogLevel(cfg.LogLevel()),
			).Convert()

			if j := openJournal(cfg); j != nil {
				if _, err := j.Record(cmd.Context(), res); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: run not recorded: %v\n", err)
				}
				j.Close()
			}

			if err := renderResult(cmd.OutOrStdout(), cfg.Output, res); err != nil {
				return err
			}
			if res.Status == types.StatusError {
				return errStatus
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("limit")
			if n <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", n)
			}

			if _, err := os.Stat(cfg.Journal.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			j, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), n)
			if err != nil {
				return err
			}
			return renderHistory(cmd.OutOrStdout(), cfg.Output, entries)
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "number of runs to show")
	return cmd
}

// encode writes v as JSON or YAML. ok is false for the text format.
func encode(w io.Writer, format string, v any) (ok bool, err error) {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("marshaling YAML: %w", err)
		}
		return true, enc.Close()
	}
	return false, nil
}

func renderResult(w io.Writer, format string, res types.ConversionResult) error {
	if ok, err := encode(w, format, res); ok {
		return err
	}

	fmt.Fprintf(w, "%s: %s\n", res.Status, res.Message)
	fmt.Fprintf(w, "  source:  %s\n", res.SourcePath)
	fmt.Fprintf(w, "  target:  %s", res.TargetPath)
	if res.Mode != "" {
		fmt.Fprintf(w, " (%s, %s)", res.Variant, res.Mode)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  rows:    %d written, %d failed, %d skipped (%d blank, %d empty after processing)\n",
		res.SuccessCount, res.ErrorCount, res.SkippedCount, res.SkippedBlank, res.SkippedEmpty)
	if res.LogPath != "" {
		fmt.Fprintf(w, "  log:     %s\n", res.LogPath)
	}
	return nil
}

func renderHistory(w io.Writer, format string, entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	if ok, err := encode(w, format, entries); ok {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "STATUS", "VARIANT", "MODE", "WRITTEN", "FAILED", "SKIPPED", "SOURCE", "TARGET")
	for _, e := range entries {
		t.Row(
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(e.Status), e.Variant, string(e.Mode),
			strconv.Itoa(e.SuccessCount), strconv.Itoa(e.ErrorCount), strconv.Itoa(e.SkippedCount),
			e.SourcePath, e.TargetPath)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
