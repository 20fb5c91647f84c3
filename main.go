package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nconklindev/docsheet/internal/config"
	"github.com/nconklindev/docsheet/internal/journal"
	"github.com/nconklindev/docsheet/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docsheet",
		Short: "Convert handover tables in Word documents to spreadsheet records",
		Long: `docsheet reads every table of a Word (.docx) document whose header matches
the handover list layout, maps its rows onto the document management import
columns and appends them to an .xlsx workbook or a UTF-8 CSV file.

Run without arguments to pick the files interactively.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runTUI(cfg)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("docsheet %s\ncommit: %s\nbuilt: %s\n", version, commit, date))

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: ./docsheet.yaml or <user config dir>/docsheet/docsheet.yaml)")
	pf.String("variant", "", "output variant: excel or csv (default: from the target extension)")
	pf.String("log-dir", "", "directory for conversion logs (default: next to the target)")
	pf.Bool("verbose", false, "log every processed row")
	pf.StringP("output", "o", config.OutputText, "result format: text, json or yaml")
	pf.Bool("journal", true, "record runs in the run journal")
	pf.String("journal-path", "", "run journal database (default: <user config dir>/docsheet/journal.db)")

	root.AddCommand(newConvertCmd(), newHistoryCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}

// openJournal returns nil when the journal is disabled or cannot be opened.
func openJournal(cfg config.Config) *journal.Journal {
	if !cfg.Journal.Enabled {
		return nil
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run history disabled: %v\n", err)
		return nil
	}
	return j
}

func runTUI(cfg config.Config) error {
	var rec ui.Recorder
	if j := openJournal(cfg); j != nil {
		defer j.Close()
		rec = j
	}

	p := tea.NewProgram(ui.InitialModel(cfg, rec), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errStatus) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
