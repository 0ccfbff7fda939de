// Package tui renders the flash pipeline as a Bubble Tea program.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"isoflash/internal/app"
	"isoflash/internal/domain"
	"isoflash/internal/eta"
	"isoflash/internal/presentation"
)

// Messages for the TUI
type (
	PhaseMsg struct {
		Phase domain.Phase
		Err   error
	}
	StepMsg struct {
		Text string
	}
	LineMsg struct {
		Line string
	}
	ProgressMsg struct {
		Progress app.Progress
	}
	DoneMsg struct {
		Result app.Result
		Err    error
	}
	tickMsg time.Time
)

// FlashFunc runs the whole flash and returns its outcome. It is started as a
// tea.Cmd, so it runs off the UI goroutine.
type FlashFunc func() (app.Result, error)

type Config struct {
	Image   domain.Image
	Device  string
	Verbose bool
	Flash   FlashFunc
	// Cancel stops a running flash. The model keeps running until the flash
	// reports back so the device is never left mid-command.
	Cancel func()
}

var stages = []struct {
	phase domain.Phase
	label string
}{
	{domain.PhaseUnmounting, "Unmount device"},
	{domain.PhaseWriting, "Write image"},
	{domain.PhaseFinalizing, "Sync and eject"},
}

type Model struct {
	config     Config
	Phase      domain.Phase
	failedAt   domain.Phase
	spinner    spinner.Model
	progress   progress.Model
	steps      []string
	lastLine   string
	latest     app.Progress
	hasLatest  bool
	Result     app.Result
	Err        error
	Cancelling bool
	Done       bool
	width      int
}

func NewModel(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return Model{
		config:   cfg,
		Phase:    domain.PhaseNotStarted,
		failedAt: domain.PhaseNotStarted,
		spinner:  s,
		progress: p,
		width:    80,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tickCmd()}
	if m.config.Flash != nil {
		flash := m.config.Flash
		cmds = append(cmds, func() tea.Msg {
			result, err := flash()
			return DoneMsg{Result: result, Err: err}
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.Done {
				return m, tea.Quit
			}
			if m.config.Cancel == nil {
				return m, tea.Quit
			}
			if !m.Cancelling {
				m.Cancelling = true
				m.config.Cancel()
			}
			return m, nil
		case "enter":
			if m.Done {
				return m, tea.Quit
			}
		}

	case PhaseMsg:
		if msg.Phase == domain.PhaseFailed {
			m.failedAt = m.Phase
			m.Err = msg.Err
		}
		m.Phase = msg.Phase
		return m, nil

	case StepMsg:
		m.steps = append(m.steps, msg.Text)
		return m, nil

	case LineMsg:
		m.lastLine = msg.Line
		return m, nil

	case ProgressMsg:
		m.latest = msg.Progress
		m.hasLatest = true
		return m, m.progress.SetPercent(m.fraction())

	case DoneMsg:
		m.Done = true
		m.Result = msg.Result
		if msg.Err != nil {
			m.Err = msg.Err
			if m.Phase != domain.PhaseFailed {
				m.failedAt = m.Phase
				m.Phase = domain.PhaseFailed
			}
		}
		return m, nil

	case spinner.TickMsg:
		if !m.Done {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tickMsg:
		if !m.Done {
			return m, tickCmd()
		}
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fraction() float64 {
	if m.Phase > domain.PhaseWriting && m.Phase != domain.PhaseFailed {
		return 1
	}
	if !m.hasLatest {
		return 0
	}
	return m.latest.Sample.Fraction(m.latest.Total)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderStages())

	if m.Phase == domain.PhaseWriting || m.hasLatest {
		b.WriteString("\n")
		b.WriteString(m.renderTransfer())
	}

	if m.config.Verbose && len(m.steps) > 0 {
		b.WriteString("\n")
		for _, step := range m.steps {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %s %s", iconArrow, step)))
			b.WriteString("\n")
		}
	}

	switch {
	case m.Phase == domain.PhaseComplete:
		b.WriteString("\n")
		b.WriteString(successStyle.Render(fmt.Sprintf("  %s Bootable USB installer created successfully!", iconSuccess)))
		b.WriteString("\n")
	case m.Err != nil:
		b.WriteString("\n")
		b.WriteString(errorBoxStyle.Render(errorStyle.Render(fmt.Sprintf("%s Error: %s", iconError, m.Err.Error()))))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render(iconDisc + " isoflash")
	subtitle := subtitleStyle.Render("Writing a bootable USB drive")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		"",
		dimStyle.Render("Image:  "+presentation.FormatImage(m.config.Image)),
		dimStyle.Render("Device: "+m.config.Device),
	)
}

func (m Model) renderStages() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Progress"))
	b.WriteString("\n")
	for _, stage := range stages {
		b.WriteString("  ")
		b.WriteString(m.stageLine(stage.phase, stage.label))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) stageLine(phase domain.Phase, label string) string {
	switch {
	case m.Phase == domain.PhaseFailed && m.failedAt == phase:
		return errorStyle.Render(iconError + " " + label)
	case m.Phase == domain.PhaseFailed && m.failedAt < phase:
		return dimStyle.Render(iconPending + " " + label)
	case m.Phase == phase && !m.Done:
		return m.spinner.View() + activeStyle.Render(label)
	case m.Phase > phase:
		return successStyle.Render(iconSuccess + " " + label)
	default:
		return dimStyle.Render(iconPending + " " + label)
	}
}

func (m Model) renderTransfer() string {
	var b strings.Builder
	fraction := m.fraction()

	b.WriteString(fmt.Sprintf("  %s %s\n\n", m.progress.ViewAs(fraction), dimStyle.Render(fmt.Sprintf("%.0f%%", fraction*100))))

	written := "-"
	rate := "-"
	remaining := eta.Format(math.Inf(1))
	if m.hasLatest {
		written = fmt.Sprintf("%s / %s",
			presentation.FormatBytes(m.latest.Sample.Bytes),
			presentation.FormatBytes(m.latest.Total))
		if m.latest.Sample.HasRate {
			rate = fmt.Sprintf("%.1f MB/s", m.latest.Sample.RateMBs)
		}
		remaining = eta.Format(m.latest.Remaining)
	}

	b.WriteString(fmt.Sprintf("  %s %s\n", statLabelStyle.Render("Written:"), statValueStyle.Render(written)))
	b.WriteString(fmt.Sprintf("  %s %s\n", statLabelStyle.Render("Rate:"), statValueStyle.Render(rate)))
	b.WriteString(fmt.Sprintf("  %s %s\n", statLabelStyle.Render("Remaining:"), statValueStyle.Render(remaining)))

	if m.lastLine != "" {
		b.WriteString("\n  ")
		b.WriteString(dimStyle.Render(truncate(m.lastLine, max(m.width-4, 20))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderHelp() string {
	var help string
	switch {
	case m.Done:
		help = "Press Enter or q to exit"
	case m.Cancelling:
		help = "Cancelling, waiting for the current command to stop..."
	default:
		help = "Writing... Press q to cancel"
	}
	return helpStyle.Render(help)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
