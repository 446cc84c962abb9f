package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/benchscrape/internal/crawler"
)

// CrawlStats holds crawling statistics
type CrawlStats struct {
	crawler.Stats
	Pending    int
	StartTime  time.Time
	CurrentURL string
	Recent     []string
}

// StatsPanel displays crawling statistics
type StatsPanel struct {
	stats      CrawlStats
	title      string
	width      int
	height     int
	style      lipgloss.Style
	labelStyle lipgloss.Style
	valueStyle lipgloss.Style
}

func NewStatsPanel(title string) *StatsPanel {
	return &StatsPanel{
		title: title,
		stats: CrawlStats{
			StartTime: time.Now(),
			Recent:    make([]string, 0, 5),
		},
		style: borderStyle.Copy().
			BorderForeground(lipgloss.Color("99")),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
	}
}

func (s *StatsPanel) SetSize(width, height int) {
	s.width = width
	s.height = height
}

func (s *StatsPanel) Update(msg tea.Msg) tea.Cmd {
	return nil
}

func (s *StatsPanel) View() string {
	settled := s.stats.Stored + s.stats.Skipped + s.stats.Failed

	pagesPerSecond := 0.0
	if elapsed := time.Since(s.stats.StartTime).Seconds(); elapsed > 0 {
		pagesPerSecond = float64(s.stats.Fetched) / elapsed
	}

	successRate := 0.0
	if settled > 0 {
		successRate = float64(s.stats.Stored+s.stats.Skipped) / float64(settled) * 100
	}

	stats := []struct {
		label string
		value string
	}{
		{"Discovered", fmt.Sprintf("%d (%d pending)", s.stats.Discovered, s.stats.Pending)},
		{"Fetched", fmt.Sprintf("%d", s.stats.Fetched)},
		{"Stored", fmt.Sprintf("%d", s.stats.Stored)},
		{"Skipped", fmt.Sprintf("%d", s.stats.Skipped)},
		{"Failed", fmt.Sprintf("%d", s.stats.Failed)},
		{"Success Rate", fmt.Sprintf("%.1f%% (%d/%d)", successRate, s.stats.Stored+s.stats.Skipped, settled)},
		{"Pages/Second", fmt.Sprintf("%.2f", pagesPerSecond)},
		{"Elapsed Time", s.formatElapsedTime()},
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(s.title) + "\n\n")

	columnWidth := max((s.width-8)/2, 1)
	for _, stat := range stats {
		fmt.Fprintf(&content, "%-*s %s\n",
			columnWidth,
			s.labelStyle.Render(stat.label+":"),
			s.valueStyle.Render(stat.value),
		)
	}

	if s.stats.CurrentURL != "" {
		content.WriteString("\nCurrent: " + infoStyle.Render(s.stats.CurrentURL) + "\n")
	}
	if len(s.stats.Recent) > 0 {
		content.WriteString("\nRecently stored:\n")
		for _, key := range s.stats.Recent {
			content.WriteString(infoStyle.Render("• "+key) + "\n")
		}
	}

	return s.style.Width(s.width).Height(s.height).Render(content.String())
}

// Stats returns the statistics shown
func (s *StatsPanel) Stats() CrawlStats {
	return s.stats
}

// Apply folds one crawl event into the statistics
func (s *StatsPanel) Apply(e crawler.Event, pending int) {
	switch e.Kind {
	case crawler.EventDiscovered:
		s.stats.Discovered++
	case crawler.EventFetched:
		s.stats.Fetched++
		s.stats.CurrentURL = e.URL
	case crawler.EventStored:
		s.stats.Stored++
		s.addRecent(e.Key)
	case crawler.EventSkipped:
		s.stats.Skipped++
	case crawler.EventFailed:
		s.stats.Failed++
	}
	s.stats.Pending = pending
}

// SetTotals replaces the counters with the final ones reported by a runner
func (s *StatsPanel) SetTotals(stats crawler.Stats) {
	s.stats.Stats = stats
	s.stats.CurrentURL = ""
}

func (s *StatsPanel) formatElapsedTime() string {
	elapsed := time.Since(s.stats.StartTime)
	return fmt.Sprintf("%02d:%02d:%02d",
		int(elapsed.Hours()),
		int(elapsed.Minutes())%60,
		int(elapsed.Seconds())%60,
	)
}

func (s *StatsPanel) addRecent(key string) {
	if key == "" {
		return
	}
	s.stats.Recent = append(s.stats.Recent, key)
	if len(s.stats.Recent) > 5 {
		s.stats.Recent = s.stats.Recent[1:]
	}
}
