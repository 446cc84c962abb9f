package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/benchscrape/internal/crawler"
	"github.com/go-scripts/benchscrape/internal/fetch"
)

// LogLevel represents the severity of a console entry
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelWarning
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARN"
	default:
		return "INFO"
	}
}

// maxEntries bounds the console history
const maxEntries = 500

// LogEntry represents a single console message
type LogEntry struct {
	timestamp time.Time
	level     LogLevel
	message   string
}

// Console lists crawl events, filterable by severity
type Console struct {
	viewport  viewport.Model
	entries   []LogEntry
	width     int
	height    int
	style     lipgloss.Style
	showLevel LogLevel // only entries at or above this level are shown
	now       func() time.Time
}

var (
	errorLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	infoLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)
)

// NewConsole creates an empty console
func NewConsole() *Console {
	c := &Console{
		entries:   make([]LogEntry, 0),
		style:     borderStyle.Copy().BorderForeground(lipgloss.Color("196")),
		showLevel: LevelInfo,
		now:       time.Now,
	}
	c.viewport = viewport.New(0, 0)
	return c
}

// SetSize updates the console dimensions
func (c *Console) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.viewport.Width = max(width-4, 0)
	c.viewport.Height = max(height-4, 0)
}

// AddEntry adds a new entry, dropping the oldest beyond maxEntries
func (c *Console) AddEntry(level LogLevel, msg string) {
	c.entries = append(c.entries, LogEntry{
		timestamp: c.now(),
		level:     level,
		message:   msg,
	})
	if len(c.entries) > maxEntries {
		c.entries = c.entries[len(c.entries)-maxEntries:]
	}
	c.updateContent()
}

// Apply turns a crawl event into a console entry. Discovery and fetch
// events are too frequent to list.
func (c *Console) Apply(e crawler.Event) {
	switch e.Kind {
	case crawler.EventStored:
		c.AddEntry(LevelInfo, fmt.Sprintf("Stored %s %q as %s", e.Level, e.Name, e.Key))
	case crawler.EventSkipped:
		c.AddEntry(LevelInfo, fmt.Sprintf("Skipped %s %q", e.Level, e.Name))
	case crawler.EventFailed:
		level := LevelError
		if errors.Is(e.Err, fetch.ErrNotFound) {
			level = LevelWarning
		}
		c.AddEntry(level, fmt.Sprintf("%s %q: %v", e.Level, e.URL, e.Err))
	case crawler.EventDone:
		c.AddEntry(LevelInfo, "Crawl finished")
	}
}

// Update handles UI updates
func (c *Console) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.viewport.LineUp(1)
		case "down", "j":
			c.viewport.LineDown(1)
		case "pgup":
			c.viewport.HalfViewUp()
		case "pgdown":
			c.viewport.HalfViewDown()
		case "1":
			c.showLevel = LevelInfo
			c.updateContent()
		case "2":
			c.showLevel = LevelWarning
			c.updateContent()
		case "3":
			c.showLevel = LevelError
			c.updateContent()
		}
	}

	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return cmd
}

// View renders the console
func (c *Console) View() string {
	filterInfo := fmt.Sprintf("\nFilter: %s (1:Info 2:Warn 3:Error)", c.showLevel)
	stats := fmt.Sprintf(
		"Total: %d | Errors: %d | Warnings: %d",
		len(c.entries),
		c.countByLevel(LevelError),
		c.countByLevel(LevelWarning),
	)

	return c.style.Width(c.width).Render(
		c.viewport.View() +
			infoStyle.Render(filterInfo) + "\n" +
			infoStyle.Render(stats),
	)
}

// Lines returns the visible entries without styling
func (c *Console) Lines() []string {
	var lines []string
	for _, entry := range c.entries {
		if entry.level >= c.showLevel {
			lines = append(lines, fmt.Sprintf("[%s] %s", entry.level, entry.message))
		}
	}
	return lines
}

func (c *Console) updateContent() {
	atBottom := c.viewport.AtBottom()

	var sb strings.Builder
	for _, entry := range c.entries {
		if entry.level < c.showLevel {
			continue
		}

		var logStyle lipgloss.Style
		switch entry.level {
		case LevelError:
			logStyle = errorLogStyle
		case LevelWarning:
			logStyle = warningLogStyle
		default:
			logStyle = infoLogStyle
		}

		fmt.Fprintf(&sb, "%s [%s] %s\n",
			timestampStyle.Render(entry.timestamp.Format("15:04:05")),
			logStyle.Render(entry.level.String()),
			entry.message,
		)
	}

	c.viewport.SetContent(sb.String())
	if atBottom {
		c.viewport.GotoBottom()
	}
}

func (c *Console) countByLevel(level LogLevel) int {
	count := 0
	for _, entry := range c.entries {
		if entry.level == level {
			count++
		}
	}
	return count
}
