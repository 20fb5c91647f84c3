package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/docsheet/internal/config"
	"github.com/nconklindev/docsheet/internal/converter"
	"github.com/nconklindev/docsheet/internal/types"
)

type fakeRecorder struct {
	runs []types.ConversionResult
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, res types.ConversionResult) (string, error) {
	f.runs = append(f.runs, res)
	return "run-1", f.err
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(Model)
	require.True(t, ok)
	return got, cmd
}

// completion runs cmd and returns the conversion result message it yields.
func completion(t *testing.T, cmd tea.Cmd) conversionCompleteMsg {
	t.Helper()
	require.NotNil(t, cmd)

	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if done, ok := c().(conversionCompleteMsg); ok {
				return done
			}
		}
		t.Fatal("batch holds no conversion command")
	}
	done, ok := msg.(conversionCompleteMsg)
	require.True(t, ok, "unexpected message %T", msg)
	return done
}

type call struct {
	variant        string
	source, target string
}

func newModel(rec Recorder, status types.Status, calls *[]call) Model {
	m := InitialModel(config.Config{Output: config.OutputText}, rec)
	m.convert = func(v *converter.Variant, source, target string) types.ConversionResult {
		*calls = append(*calls, call{variant: v.Name, source: source, target: target})
		return types.ConversionResult{
			Status:       status,
			Message:      "Conversion complete: 3 rows written.",
			Mode:         types.ModeCreate,
			Variant:      v.Name,
			SuccessCount: 3,
			SourcePath:   source,
			TargetPath:   target,
		}
	}
	return m
}

func TestSelectSourceSuggestsTarget(t *testing.T) {
	var calls []call
	m := newModel(nil, types.StatusSuccess, &calls)

	m, _ = m.selectSource("/docs/handover.docx")

	assert.Equal(t, stateTarget, m.state)
	assert.Equal(t, "/docs/handover.xlsx", m.target.Value())
	assert.Contains(t, m.View(), "handover.docx")
}

func TestVariantFromConfig(t *testing.T) {
	m := InitialModel(config.Config{Variant: "csv"}, nil)
	assert.Equal(t, converter.VariantCSV, variants[m.variantIdx])

	m, _ = m.selectSource("/docs/handover.docx")
	assert.Equal(t, "/docs/handover.csv", m.target.Value())
}

func TestTabCyclesVariant(t *testing.T) {
	var calls []call
	m := newModel(nil, types.StatusSuccess, &calls)
	m, _ = m.selectSource("/docs/handover.docx")

	seen := []string{variants[m.variantIdx]}
	for range variants {
		m, _ = update(t, m, key("tab"))
		seen = append(seen, variants[m.variantIdx])
	}
	assert.Equal(t, []string{"", "excel", "csv", ""}, seen)
}

func TestConvertRunsOnceAndRecords(t *testing.T) {
	var calls []call
	rec := &fakeRecorder{}
	m := newModel(rec, types.StatusSuccess, &calls)
	m, _ = m.selectSource("/docs/handover.docx")
	m, _ = update(t, m, key("tab")) // excel

	m, cmd := update(t, m, key("enter"))
	require.Equal(t, stateProcessing, m.state)

	// A second enter while running must not start another conversion.
	m, again := update(t, m, key("enter"))
	assert.Nil(t, again)
	assert.Equal(t, stateProcessing, m.state)

	done := completion(t, cmd)
	require.Len(t, calls, 1)
	assert.Equal(t, call{variant: "excel", source: "/docs/handover.docx", target: "/docs/handover.xlsx"}, calls[0])
	require.Len(t, rec.runs, 1)
	assert.NoError(t, done.journalErr)

	m, _ = update(t, m, done)
	assert.Equal(t, stateComplete, m.state)
	view := m.View()
	assert.Contains(t, view, "Conversion complete: 3 rows written.")
	assert.Contains(t, view, "Open handover.xlsx")
}

func TestConvertInfersCSVFromExtension(t *testing.T) {
	var calls []call
	m := newModel(nil, types.StatusSuccess, &calls)
	m, _ = m.selectSource("/docs/handover.docx")
	m.target.SetValue("/out/records.CSV")

	_, cmd := update(t, m, key("enter"))
	completion(t, cmd)

	require.Len(t, calls, 1)
	assert.Equal(t, converter.VariantCSV, calls[0].variant)
}

func TestEmptyTargetIsRejected(t *testing.T) {
	var calls []call
	m := newModel(nil, types.StatusSuccess, &calls)
	m, _ = m.selectSource("/docs/handover.docx")
	m.target.SetValue("   ")

	m, cmd := update(t, m, key("enter"))

	assert.Nil(t, cmd)
	assert.Equal(t, stateTarget, m.state)
	assert.Contains(t, m.View(), "Enter a target file path.")
	assert.Empty(t, calls)
}

func TestFailedRunAndJournalError(t *testing.T) {
	var calls []call
	rec := &fakeRecorder{err: errors.New("disk full")}
	m := newModel(rec, types.StatusError, &calls)
	m, _ = m.selectSource("/docs/handover.docx")

	m, cmd := update(t, m, key("enter"))
	m, _ = update(t, m, completion(t, cmd))

	view := m.View()
	assert.Contains(t, view, "Conversion Failed")
	assert.Contains(t, view, "Run history not saved: disk full")
	assert.NotContains(t, view, "to review the new rows")
}

func TestNewConversionResets(t *testing.T) {
	var calls []call
	m := newModel(nil, types.StatusWarning, &calls)
	m, _ = m.selectSource("/docs/handover.docx")
	m, cmd := update(t, m, key("enter"))
	m, _ = update(t, m, completion(t, cmd))
	require.Equal(t, stateComplete, m.state)

	m, _ = update(t, m, key("n"))

	assert.Equal(t, stateFilePicker, m.state)
	assert.Nil(t, m.result)
	assert.Empty(t, m.target.Value())
}

func TestCompleteScreenKeys(t *testing.T) {
	var calls []call
	m := newModel(nil, types.StatusSuccess, &calls)
	m, _ = m.selectSource("/docs/handover.docx")
	m, cmd := update(t, m, key("enter"))
	m, _ = update(t, m, completion(t, cmd))

	assert.Contains(t, m.View(), "enter/q/esc: exit")

	m, cmd = update(t, m, key("x"))
	assert.Nil(t, cmd)
	assert.Equal(t, stateComplete, m.state)

	for _, k := range []string{"enter", "q", "esc"} {
		_, cmd = update(t, m, key(k))
		require.NotNil(t, cmd, k)
		assert.IsType(t, tea.QuitMsg{}, cmd(), k)
	}
}

func TestEscReturnsToPicker(t *testing.T) {
	var calls []call
	m := newModel(nil, types.StatusSuccess, &calls)
	m, _ = m.selectSource("/docs/handover.docx")

	m, _ = update(t, m, key("esc"))
	assert.Equal(t, stateFilePicker, m.state)
}
