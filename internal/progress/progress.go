// Package progress implements an optional terminal progress display driven
// by pipeline.Event notifications. It is a pure observer: nothing in the
// pipeline blocks on it, and it never influences stage outcomes.
package progress

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/copytree/copytree/internal/pipeline"
)

var (
	stageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	fileStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// DefaultMaxShown bounds how many in-flight filenames are rendered at once.
const DefaultMaxShown = 5

type filesMsg []string
type stageMsg string
type doneMsg struct{}

type model struct {
	spinner  spinner.Model
	stage    string
	active   []string
	maxShown int
	done     bool
}

func newModel(maxShown int) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	return model{spinner: s, maxShown: maxShown}
}

func (m model) Init() tea.Cmd { return m.spinner.Tick }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case filesMsg:
		m.active = []string(msg)
		return m, nil
	case stageMsg:
		m.stage = string(msg)
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		return doneStyle.Render("copytree: done") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), stageStyle.Render(m.stage))

	shown := m.active
	if len(shown) > m.maxShown {
		shown = shown[:m.maxShown]
	}
	for _, f := range shown {
		fmt.Fprintf(&b, "  %s\n", fileStyle.Render(f))
	}
	if len(m.active) > m.maxShown {
		fmt.Fprintf(&b, "  ... and %d more\n", len(m.active)-m.maxShown)
	}
	return b.String()
}

// Observer drives a bubbletea display from pipeline.Events. Use Sink() as
// the pipeline.Runner's EventSink, Start() before the run, and Stop() once
// the run has returned (success or error).
type Observer struct {
	program *tea.Program
	done    chan struct{}
}

// New returns an Observer showing up to maxShown in-flight filenames at
// once. maxShown <= 0 falls back to DefaultMaxShown.
func New(maxShown int) *Observer {
	if maxShown <= 0 {
		maxShown = DefaultMaxShown
	}
	program := tea.NewProgram(newModel(maxShown), tea.WithOutput(os.Stderr))
	return &Observer{program: program}
}

// Sink returns the pipeline.EventSink that feeds this Observer. Publish
// never blocks on the terminal: tea.Program.Send is itself non-blocking
// once the program loop is running.
func (o *Observer) Sink() pipeline.EventSink {
	return pipeline.FuncSink(func(e pipeline.Event) {
		switch e.Kind {
		case pipeline.EventStageBefore:
			o.program.Send(stageMsg(e.Stage))
		case pipeline.EventActiveFiles:
			if names, ok := e.Payload.([]string); ok {
				sorted := append([]string(nil), names...)
				sort.Strings(sorted)
				o.program.Send(filesMsg(sorted))
			}
		case pipeline.EventRunAborted:
			o.program.Send(doneMsg{})
		}
	})
}

// Start runs the bubbletea program on a background goroutine.
func (o *Observer) Start() {
	o.done = make(chan struct{})
	go func() {
		_, _ = o.program.Run()
		close(o.done)
	}()
}

// Stop signals the display to quit and waits for its goroutine to exit.
func (o *Observer) Stop() {
	o.program.Send(doneMsg{})
	if o.done != nil {
		<-o.done
	}
}

// ShouldShow reports whether a progress observer is worth constructing:
// output isn't going to stdout (which would interleave with the display)
// and the given stream is an interactive terminal.
func ShouldShow(target pipeline.OutputTarget, interactive bool) bool {
	return target != pipeline.OutputStdout && interactive
}
