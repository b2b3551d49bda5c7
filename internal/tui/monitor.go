// Package tui implements the interactive buffer monitor.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
	"github.com/Iron-Ham/profilebuffer/internal/tui/styles"
)

// Source is the part of a capture.Buffer the monitor drives.
type Source interface {
	ID() string
	State() capture.State
	Stats() capture.Stats
	Flags() capture.Flags
	Start() error
	Stop() error
	Clear()
	SetOption(id capture.OptionID, value bool) error
}

var _ Source = (*capture.Buffer)(nil)

// maxBarWidth caps the fill gauge on wide terminals.
const maxBarWidth = 60

type tickMsg time.Time

// Model is the bubbletea model of the monitor.
type Model struct {
	src     Source
	title   string
	refresh time.Duration
	now     func() time.Time

	bar   progress.Model
	stats capture.Stats
	flags capture.Flags

	lastSample time.Time
	lastCount  uint64
	rate       float64

	status   string
	statusOK bool
	quitting bool
}

// NewModel creates a monitor for src that samples every refresh.
func NewModel(src Source, title string, refresh time.Duration) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 40

	m := Model{
		src:     src,
		title:   title,
		refresh: refresh,
		now:     time.Now,
		bar:     bar,
	}
	m.sample()
	return m
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sample reads the buffer and updates the capture rate.
func (m *Model) sample() {
	now := m.now()
	m.stats = m.src.Stats()
	m.flags = m.src.Flags()

	if !m.lastSample.IsZero() {
		if elapsed := now.Sub(m.lastSample).Seconds(); elapsed > 0 && m.stats.Captured >= m.lastCount {
			m.rate = float64(m.stats.Captured-m.lastCount) / elapsed
		}
	}
	m.lastSample = now
	m.lastCount = m.stats.Captured
}

// Update handles key presses, ticks and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.sample()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-24, 10), maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "s":
		if m.src.State() == capture.StateCapturing {
			m.setStatus("capture stopped", m.src.Stop())
		} else {
			m.setStatus("capture started", m.src.Start())
		}

	case "c":
		m.src.Clear()
		m.setStatus("buffer cleared", nil)

	case "z":
		m.toggle(capture.ZeroPoints, m.flags.ZeroPoints)
	case "r":
		m.toggle(capture.Realtime, m.flags.Realtime)
	case "l":
		m.toggle(capture.LossDetection, m.flags.LossDetection)

	default:
		return m, nil
	}

	m.sample()
	return m, nil
}

func (m *Model) toggle(id capture.OptionID, current bool) {
	next := !current
	state := "off"
	if next {
		state = "on"
	}
	m.setStatus(fmt.Sprintf("%s %s", id, state), m.src.SetOption(id, next))
}

func (m *Model) setStatus(ok string, err error) {
	if err != nil {
		m.status = err.Error()
		m.statusOK = false
		return
	}
	m.status = ok
	m.statusOK = true
}

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.stats
	var b strings.Builder

	badge := styles.StatusBadge.Background(styles.StateColor(s.State)).Render(strings.ToUpper(s.State))
	b.WriteString(styles.Title.Render(m.title) + "\n")
	b.WriteString(styles.Subtitle.Render("buffer "+m.src.ID()) + "  " + badge + "\n\n")

	row := func(label, value string) {
		b.WriteString(styles.Label.Render(label) + value + "\n")
	}

	row("Fill", fmt.Sprintf("%s %3.0f%%", m.bar.ViewAs(s.Utilization()), s.Utilization()*100))
	row("Size", fmt.Sprintf("%d / %d", s.Size, max(s.Capacity-1, 0)))
	row("Rate", fmt.Sprintf("%.0f profiles/s", m.rate))
	row("Captured", fmt.Sprintf("%d", s.Captured))
	row("Intercepted", fmt.Sprintf("%d", s.Intercepted))
	row("Overwritten", fmt.Sprintf("%d", s.Overwritten))
	row("Fetch failures", fmt.Sprintf("%d", s.FetchFailures))
	row("Loss events", fmt.Sprintf("%d (%d lost)", s.LossEvents, s.ProfilesLost))
	b.WriteString("\n")

	row("Zero points", styles.OnOff(m.flags.ZeroPoints))
	row("Realtime", styles.OnOff(m.flags.Realtime))
	row("Loss detection", styles.OnOff(m.flags.LossDetection))

	if s.LastError != "" {
		b.WriteString("\n" + styles.ErrorMsg.Render("Last error: "+s.LastError) + "\n")
	}
	if m.status != "" {
		style := styles.ErrorMsg
		if m.statusOK {
			style = styles.SuccessMsg
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}

	body := styles.ContentBox.Render(b.String())
	return lipgloss.JoinVertical(lipgloss.Left, body, m.help())
}

func (m Model) help() string {
	keys := []struct{ key, desc string }{
		{"s", "start/stop"},
		{"c", "clear"},
		{"z", "zero points"},
		{"r", "realtime"},
		{"l", "loss detection"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, styles.HelpKey.Render(k.key)+" "+k.desc)
	}
	return styles.HelpBar.Render(strings.Join(parts, "  "))
}
