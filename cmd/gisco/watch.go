package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gisco/internal/host"
	"gisco/internal/relay"
	"gisco/internal/widget"
)

// Color scheme and styles for the watch view
var (
	watchPrimaryColor = lipgloss.Color("#7C3AED")
	watchSuccessColor = lipgloss.Color("#10B981")
	watchWarningColor = lipgloss.Color("#F59E0B")
	watchErrorColor   = lipgloss.Color("#EF4444")
	watchMutedColor   = lipgloss.Color("#6B7280")

	watchHeaderStyle = lipgloss.NewStyle().
				Foreground(watchPrimaryColor).
				Bold(true).
				Padding(0, 1)

	watchConnectedStyle = lipgloss.NewStyle().
				Foreground(watchSuccessColor).
				Bold(true)

	watchWaitingStyle = lipgloss.NewStyle().
				Foreground(watchWarningColor)

	watchErrorStyle = lipgloss.NewStyle().
			Foreground(watchErrorColor).
			Bold(true)

	watchMutedStyle = lipgloss.NewStyle().
			Foreground(watchMutedColor)

	watchKindStyles = map[string]lipgloss.Style{
		"resize":   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		"error":    watchErrorStyle,
		"metadata": lipgloss.NewStyle().Foreground(watchWarningColor),
		"message":  watchMutedStyle,
	}
)

// maxWatchRows bounds the scrollback kept in memory.
const maxWatchRows = 64

// watchEvent is one decoded cross-frame message shown in the feed.
type watchEvent struct {
	at     time.Time
	origin string
	kind   string
	detail string
}

// connTickMsg refreshes the connection indicator.
type connTickMsg struct{}

type watchModel struct {
	endpoint *relay.Endpoint
	wsURL    string

	events chan watchEvent
	remove func()

	rows      []watchEvent
	spin      spinner.Model
	connected bool
	width     int
	quitting  bool
}

func newWatchModel(endpoint *relay.Endpoint, wsURL string) *watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = watchWaitingStyle

	return &watchModel{
		endpoint: endpoint,
		wsURL:    wsURL,
		events:   make(chan watchEvent, 64),
		spin:     sp,
		width:    80,
	}
}

func (m *watchModel) Init() tea.Cmd {
	remove, err := m.endpoint.Listen(func(msg host.Message) {
		ev := classifyWatchEvent(msg)
		select {
		case m.events <- ev:
		default:
		}
	})
	if err == nil {
		m.remove = remove
	}
	return tea.Batch(m.spin.Tick, m.nextEvent(), m.tick())
}

func (m *watchModel) nextEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m *watchModel) tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return connTickMsg{}
	})
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.remove != nil {
				m.remove()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case watchEvent:
		m.rows = append(m.rows, msg)
		if len(m.rows) > maxWatchRows {
			m.rows = m.rows[len(m.rows)-maxWatchRows:]
		}
		return m, m.nextEvent()

	case connTickMsg:
		m.connected = m.endpoint.Connected()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(watchHeaderStyle.Render("gisco relay watch"))
	b.WriteString("\n")
	b.WriteString(watchMutedStyle.Render(" " + m.wsURL))
	b.WriteString("\n\n")

	if m.connected {
		client, version := m.endpoint.LastHello()
		status := fmt.Sprintf(" ● page connected (%s, protocol %d)", client, version)
		b.WriteString(watchConnectedStyle.Render(status))
	} else {
		b.WriteString(" " + m.spin.View())
		b.WriteString(watchWaitingStyle.Render("waiting for a page to connect"))
	}
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(watchMutedStyle.Render("   no signals yet"))
		b.WriteString("\n")
	}

	visible := m.rows
	if len(visible) > 16 {
		visible = visible[len(visible)-16:]
	}
	for _, ev := range visible {
		kindStyle, ok := watchKindStyles[ev.kind]
		if !ok {
			kindStyle = watchMutedStyle
		}
		line := fmt.Sprintf("   %s %s %s",
			watchMutedStyle.Render(ev.at.Format("15:04:05")),
			kindStyle.Render(fmt.Sprintf("%-9s", ev.kind)),
			truncateDetail(ev.detail, m.width-26))
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(watchMutedStyle.Render(" press q to quit"))
	b.WriteString("\n")
	return b.String()
}

// classifyWatchEvent turns a raw cross-frame message into a feed row.
func classifyWatchEvent(msg host.Message) watchEvent {
	ev := watchEvent{at: time.Now(), origin: msg.Origin, kind: "message"}

	sig, raw, ok := widget.DecodeSignal(msg.Data)
	if !ok {
		ev.detail = truncateDetail(string(msg.Data), 60)
		return ev
	}

	switch {
	case sig.Error != "":
		ev.kind = "error"
		ev.detail = sig.Error
	case sig.ResizeHeight != nil:
		ev.kind = "resize"
		if px, ok := sig.HeightPixels(); ok {
			ev.detail = fmt.Sprintf("%dpx", px)
		} else {
			ev.detail = "invalid height"
		}
	default:
		ev.kind = "metadata"
		ev.detail = truncateDetail(string(raw), 60)
	}
	return ev
}

func truncateDetail(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if max < 8 {
		max = 8
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
