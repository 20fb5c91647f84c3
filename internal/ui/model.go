package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/docsheet/internal/config"
	"github.com/nconklindev/docsheet/internal/converter"
	"github.com/nconklindev/docsheet/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateFilePicker state = iota
	stateTarget
	stateProcessing
	stateComplete
)

// variants cycles with tab on the target screen. The empty entry infers the
// variant from the target extension.
var variants = []string{"", converter.VariantExcel, converter.VariantCSV}

// Recorder files a finished run, typically in the run journal.
type Recorder interface {
	Record(ctx context.Context, res types.ConversionResult) (string, error)
}

// ConvertFunc runs one conversion to completion.
type ConvertFunc func(v *converter.Variant, source, target string) types.ConversionResult

type Model struct {
	state      state
	filepicker filepicker.Model
	target     textinput.Model
	spinner    spinner.Model
	source     string
	variantIdx int
	inputErr   string
	result     *types.ConversionResult
	journalErr error
	width      int
	height     int

	convert  ConvertFunc
	recorder Recorder
}

type conversionCompleteMsg struct {
	result     types.ConversionResult
	journalErr error
}

// InitialModel builds the TUI. rec may be nil to skip the run journal.
func InitialModel(cfg config.Config, rec Recorder) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".docx"}
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(accent)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(highlight)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(highlight)
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(muted)
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(accent).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(muted)

	ti := textinput.New()
	ti.Placeholder = "records.xlsx"
	ti.Prompt = "Target: "
	ti.CharLimit = 4096
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	m := Model{
		state:      stateFilePicker,
		filepicker: fp,
		target:     ti,
		spinner:    sp,
		recorder:   rec,
	}
	for i, v := range variants {
		if v == cfg.Variant || (cfg.Variant == "xlsx" && v == converter.VariantExcel) {
			m.variantIdx = i
		}
	}

	logDir, level := cfg.LogDir, cfg.LogLevel()
	m.convert = func(v *converter.Variant, source, target string) types.ConversionResult {
		return converter.New(v, source, target,
			converter.WithLogDir(logDir),
			converter.WithLogLevel(level),
		).Convert()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for the title, subtitle and help text
		height := msg.Height - 14
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case stateTarget:
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.state = stateFilePicker
				m.target.Blur()
				m.inputErr = ""
				return m, nil
			case "tab":
				m.variantIdx = (m.variantIdx + 1) % len(variants)
				return m, nil
			case "enter":
				return m.startConversion()
			}
			var cmd tea.Cmd
			m.target, cmd = m.target.Update(msg)
			return m, cmd

		case stateProcessing:
			// One run at a time: keys other than quit are ignored until it finishes.
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil

		case stateComplete:
			switch msg.String() {
			case "n":
				return m.reset()
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		if m.state != stateProcessing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionCompleteMsg:
		res := msg.result
		m.result = &res
		m.journalErr = msg.journalErr
		m.state = stateComplete
		return m, nil
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			return m.selectSource(path)
		}
		return m, cmd
	}

	return m, nil
}

// selectSource moves to the target screen with a target suggested next to
// the source document.
func (m Model) selectSource(path string) (Model, tea.Cmd) {
	m.source = path
	m.inputErr = ""

	ext := ".xlsx"
	if variants[m.variantIdx] == converter.VariantCSV {
		ext = ".csv"
	}
	m.target.SetValue(strings.TrimSuffix(path, filepath.Ext(path)) + ext)
	m.target.CursorEnd()
	m.state = stateTarget
	return m, m.target.Focus()
}

func (m Model) startConversion() (Model, tea.Cmd) {
	target := strings.TrimSpace(m.target.Value())
	if target == "" {
		m.inputErr = "Enter a target file path."
		return m, nil
	}

	v, err := converter.VariantFor(variants[m.variantIdx], target)
	if err != nil {
		m.inputErr = err.Error()
		return m, nil
	}

	m.inputErr = ""
	m.state = stateProcessing
	m.target.Blur()

	convert, rec, source := m.convert, m.recorder, m.source
	run := func() tea.Msg {
		res := convert(v, source, target)
		msg := conversionCompleteMsg{result: res}
		if rec != nil {
			_, msg.journalErr = rec.Record(context.Background(), res)
		}
		return msg
	}

	return m, tea.Batch(m.spinner.Tick, run)
}

func (m Model) reset() (Model, tea.Cmd) {
	m.state = stateFilePicker
	m.result = nil
	m.journalErr = nil
	m.source = ""
	m.target.SetValue("")
	return m, m.filepicker.Init()
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateTarget:
		return m.viewTarget()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	title := TitleStyle.Render("📄 docsheet - Word tables to spreadsheet records")
	byLine := lipgloss.JoinHorizontal(lipgloss.Top,
		SubtitleStyle.Render("by Nick Conklin • "),
		LinkStyle.Render("https://github.com/nconklindev/docsheet"))

	s.WriteString(lipgloss.JoinVertical(lipgloss.Left, title, byLine))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select the Word document holding the handover tables"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func variantLabel(name string) string {
	if name == "" {
		return "auto (from extension)"
	}
	return name
}

func (m Model) viewTarget() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📄 Choose the Target File"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Source: %s", filepath.Base(m.source))))
	s.WriteString("\n\n")
	s.WriteString(m.target.View())
	s.WriteString("\n\n")

	for i, v := range variants {
		line := fmt.Sprintf("( ) %s", variantLabel(v))
		if i == m.variantIdx {
			line = SelectedStyle.Render(fmt.Sprintf("(•) %s", variantLabel(v)))
		} else {
			line = UnselectedStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	if m.inputErr != "" {
		s.WriteString("\n")
		s.WriteString(ErrorStyle.Render(m.inputErr))
		s.WriteString("\n")
	}

	s.WriteString(HelpStyle.Render("tab: switch format • enter: convert • esc: back • ctrl+c: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📄 Processing..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Converting %s", m.spinner.View(), filepath.Base(m.source)))

	return BoxStyle.Render(s.String())
}

// truncatePath keeps the end of p when it is wider than the window allows.
func (m Model) truncatePath(p string) string {
	maxLen := m.width - 20
	if maxLen < 30 {
		maxLen = 30
	}
	if len(p) > maxLen {
		return "..." + p[len(p)-maxLen+3:]
	}
	return p
}

func (m Model) viewComplete() string {
	var s strings.Builder
	res := m.result

	switch res.Status {
	case types.StatusSuccess:
		s.WriteString(SuccessStyle.Render("✓ Conversion Complete!"))
	case types.StatusWarning:
		s.WriteString(WarningStyle.Render("! Nothing Written"))
	default:
		s.WriteString(ErrorStyle.Render("✗ Conversion Failed"))
	}
	s.WriteString("\n\n")
	s.WriteString(res.Message)
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("Source: %s\n", m.truncatePath(res.SourcePath)))
	s.WriteString(fmt.Sprintf("Target: %s\n", m.truncatePath(res.TargetPath)))
	if res.Mode != "" {
		s.WriteString(fmt.Sprintf("Mode:   %s (%s)\n", res.Mode, res.Variant))
	}
	if res.LogPath != "" {
		s.WriteString(fmt.Sprintf("Log:    %s\n", m.truncatePath(res.LogPath)))
	}
	s.WriteString(fmt.Sprintf("Rows written: %d • failed: %d • skipped: %d\n",
		res.SuccessCount, res.ErrorCount, res.SkippedCount))

	if res.Status == types.StatusSuccess {
		s.WriteString("\n")
		s.WriteString(HintStyle.Render(fmt.Sprintf("Open %s to review the new rows.", filepath.Base(res.TargetPath))))
		s.WriteString("\n")
	}
	if m.journalErr != nil {
		s.WriteString("\n")
		s.WriteString(ErrorStyle.Render(fmt.Sprintf("Run history not saved: %v", m.journalErr)))
		s.WriteString("\n")
	}

	s.WriteString(HelpStyle.Render("n: convert another file • enter/q/esc: exit"))

	return BoxStyle.Render(s.String())
}
