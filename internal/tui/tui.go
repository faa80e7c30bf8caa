// Package tui is the interactive terminal front end: an input area, a
// read-only result area and two actions, start processing and load
// breakpoint.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TobiSchelling/sentiscope/internal/database"
	"github.com/TobiSchelling/sentiscope/internal/pipeline"
	"github.com/TobiSchelling/sentiscope/internal/runner"
)

// Service runs the pipeline and loads the checkpoint.
type Service interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	Load() (*database.Checkpoint, error)
}

// processedMsg carries a finished pipeline run back to the UI loop.
type processedMsg struct {
	result *pipeline.Result
	err    error
}

// loadedMsg carries a loaded checkpoint back to the UI loop.
type loadedMsg struct {
	checkpoint *database.Checkpoint
	err        error
}

// Model is the bubbletea model of the TUI.
type Model struct {
	svc  Service
	ctx  context.Context
	keys KeyMap

	input   textarea.Model
	result  viewport.Model
	spinner spinner.Model
	help    help.Model

	inflight int
	status   string
	err      error
	width    int
	height   int
}

// New creates the model.
func New(ctx context.Context, svc Service) Model {
	ta := textarea.New()
	ta.Placeholder = "Type or paste the text to analyze..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		svc:     svc,
		ctx:     ctx,
		keys:    DefaultKeyMap(),
		input:   ta,
		result:  viewport.New(80, 8),
		spinner: sp,
		help:    help.New(),
		width:   80,
		height:  24,
	}
	m.resize()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Processing reports whether a run is in flight.
func (m Model) Processing() bool {
	return m.inflight > 0
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Process):
			return m.startProcessing()
		case key.Matches(msg, m.keys.Load):
			m.status = "Loading breakpoint..."
			return m, m.load()
		}

	case processedMsg:
		return m.handleProcessed(msg), nil

	case loadedMsg:
		return m.handleLoaded(msg), nil

	case spinner.TickMsg:
		if !m.Processing() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startProcessing() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		m.status = "Enter some text first."
		return m, nil
	}

	m.inflight++
	m.err = nil
	m.status = "Processing..."
	m.result.SetContent("")
	return m, tea.Batch(m.spinner.Tick, m.process(text))
}

// process runs the pipeline off the UI goroutine.
func (m Model) process(text string) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		res, err := svc.Run(ctx, pipeline.Input{Text: text, Source: "tui"})
		return processedMsg{result: res, err: err}
	}
}

// load reads the checkpoint off the UI goroutine.
func (m Model) load() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		cp, err := svc.Load()
		return loadedMsg{checkpoint: cp, err: err}
	}
}

func (m Model) handleProcessed(msg processedMsg) Model {
	if m.inflight > 0 {
		m.inflight--
	}

	switch {
	case errors.Is(msg.err, runner.ErrSuperseded):
		return m
	case msg.err != nil:
		m.err = msg.err
		m.status = ""
		return m
	}

	res := msg.result
	if res.Classification == nil {
		m.status = "No classification returned."
		m.result.SetContent(m.renderResult("", nil, res.Sentiment.Label, res.Sentiment.Compound))
		return m
	}
	m.status = "Done."
	m.result.SetContent(m.renderResult(*res.Classification, res.Emotions, res.Sentiment.Label, res.Sentiment.Compound))
	return m
}

func (m Model) handleLoaded(msg loadedMsg) Model {
	if errors.Is(msg.err, database.ErrCheckpointNotFound) {
		m.status = "Breakpoint data not found."
		return m
	}
	if msg.err != nil {
		m.err = msg.err
		m.status = ""
		return m
	}

	cp := msg.checkpoint
	m.err = nil
	m.input.SetValue(cp.Text)
	classification := ""
	if cp.Classification != nil {
		classification = *cp.Classification
	}
	m.result.SetContent(m.renderResult(classification, nil, cp.SentimentLabel, cp.SentimentScore))
	m.status = "Breakpoint loaded."
	return m
}

func (m Model) renderResult(classification string, emotions []string, label string, score float64) string {
	w := m.result.Width - 2
	if w < 10 {
		w = 10
	}

	var b strings.Builder
	if classification != "" {
		b.WriteString(lipgloss.NewStyle().Width(w).Render(classification))
		b.WriteString("\n")
	}
	if len(emotions) > 0 {
		b.WriteString(mutedStyle.Render("Emotions: " + strings.Join(emotions, " · ")))
		b.WriteString("\n")
	}
	if label != "" {
		b.WriteString(mutedStyle.Render("Local score: "))
		b.WriteString(sentimentStyle(label).Render(fmt.Sprintf("%s (%.3f)", label, score)))
	}
	return b.String()
}

// Result returns the text shown in the result area.
func (m Model) Result() string {
	return m.result.View()
}

// Input returns the current input text.
func (m Model) Input() string {
	return m.input.Value()
}

func (m *Model) resize() {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	inputHeight := (m.height - 8) / 2
	if inputHeight < 3 {
		inputHeight = 3
	}
	m.input.SetWidth(w)
	m.input.SetHeight(inputHeight)
	m.result.Width = w
	m.result.Height = max(m.height-inputHeight-10, 3)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sentiscope"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Input"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Result"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.result.View()))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.Processing():
		b.WriteString(m.spinner.View() + " " + m.status)
	default:
		b.WriteString(mutedStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, svc Service) error {
	p := tea.NewProgram(New(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
