// Package ui renders a live dashboard of a crawl run.
package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/benchscrape/internal/crawler"
)

// EventMsg carries one crawl event into the dashboard
type EventMsg crawler.Event

// DoneMsg reports the end of a run
type DoneMsg struct {
	Stats crawler.Stats
	Err   error
}

type tickMsg time.Time

// Panel is one area of the dashboard
type Panel interface {
	Update(tea.Msg) tea.Cmd
	View() string
	SetSize(width, height int)
}

var (
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			PaddingLeft(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))
)

// Dashboard is the bubbletea model of a crawl run. Quitting cancels the run
// and waits for it to wind down.
type Dashboard struct {
	stats    *StatsPanel
	nodes    *NodeList
	console  *Console
	cancel   context.CancelFunc
	width    int
	height   int
	stopping bool
	done     bool
	err      error
}

// NewDashboard creates a dashboard; cancel stops the observed run
func NewDashboard(title string, cancel context.CancelFunc) *Dashboard {
	return &Dashboard{
		stats:   NewStatsPanel(title),
		nodes:   NewNodeList(),
		console: NewConsole(),
		cancel:  cancel,
	}
}

func tick() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the elapsed time ticker
func (d *Dashboard) Init() tea.Cmd {
	return tick()
}

// SetSize lays the panels out: statistics and nodes side by side above
// the console
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height

	halfWidth := width / 2
	topHeight := height * 3 / 5

	d.stats.SetSize(halfWidth, topHeight)
	d.nodes.SetSize(max(width-halfWidth-2, 0), max(topHeight-2, 0))
	d.console.SetSize(width, height-topHeight)
}

// Update processes messages and updates panels
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.SetSize(msg.Width, msg.Height)
		return d, nil

	case tickMsg:
		if d.done {
			return d, nil
		}
		return d, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if d.done {
				return d, tea.Quit
			}
			if !d.stopping {
				d.stopping = true
				d.console.AddEntry(LevelWarning, "Stopping, waiting for in-flight requests")
				d.cancel()
			}
			return d, nil
		}

	case EventMsg:
		e := crawler.Event(msg)
		d.nodes.Apply(e)
		d.stats.Apply(e, d.nodes.Pending())
		d.console.Apply(e)
		return d, nil

	case DoneMsg:
		d.done = true
		d.err = msg.Err
		d.stats.SetTotals(msg.Stats)
		if msg.Err != nil {
			d.console.AddEntry(LevelError, fmt.Sprintf("Run stopped: %v", msg.Err))
		}
		return d, tea.Quit
	}

	var cmds []tea.Cmd
	for _, p := range []Panel{d.stats, d.nodes, d.console} {
		cmds = append(cmds, p.Update(msg))
	}
	return d, tea.Batch(cmds...)
}

// View renders the complete layout
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing...\n"
	}

	topRow := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.stats.View(),
		borderStyle.Width(d.nodes.width).Height(d.nodes.height).Render(d.nodes.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, topRow, d.console.View())
}

// Err returns the error the run ended with
func (d *Dashboard) Err() error {
	return d.err
}

// Stopping reports whether the user asked the run to stop
func (d *Dashboard) Stopping() bool {
	return d.stopping
}
