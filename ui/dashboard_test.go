package ui

import (
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/benchscrape/internal/crawler"
	"github.com/go-scripts/benchscrape/internal/fetch"
	"github.com/go-scripts/benchscrape/internal/types"
)

func send(d *Dashboard, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, m := range msgs {
		_, cmd = d.Update(m)
	}
	return cmd
}

func TestDashboardFoldsEvents(t *testing.T) {
	d := NewDashboard("Crawl", func() {})
	send(d,
		tea.WindowSizeMsg{Width: 120, Height: 40},
		EventMsg{Kind: crawler.EventDiscovered, Level: types.LevelDataset, Name: "ImageNet", URL: "https://x/dataset/imagenet"},
		EventMsg{Kind: crawler.EventDiscovered, Level: types.LevelDataset, Name: "COCO", URL: "https://x/dataset/coco"},
		EventMsg{Kind: crawler.EventStored, Level: types.LevelDataset, Name: "ImageNet", URL: "https://x/dataset/imagenet", Key: "cv/ImageNet.html"},
		EventMsg{Kind: crawler.EventFailed, Level: types.LevelDataset, Name: "COCO", URL: "https://x/dataset/coco", Err: errors.New("timeout")},
	)

	stats := d.stats.Stats()
	assert.Equal(t, 2, stats.Discovered)
	assert.Equal(t, 1, stats.Stored)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Pending)
	assert.Equal(t, []string{"cv/ImageNet.html"}, stats.Recent)

	lines := d.console.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "[ERROR]")

	assert.Contains(t, d.View(), "Crawl")
}

func TestConsoleSeverity(t *testing.T) {
	c := NewConsole()
	c.Apply(crawler.Event{Kind: crawler.EventFailed, URL: "u1", Err: fmt.Errorf("fetch u1: %w", fetch.ErrNotFound)})
	c.Apply(crawler.Event{Kind: crawler.EventFailed, URL: "u2", Err: errors.New("reset")})
	c.Apply(crawler.Event{Kind: crawler.EventFetched, URL: "u3"})

	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[WARN]")

	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	assert.Len(t, c.Lines(), 1)
}

func TestConsoleKeepsBoundedHistory(t *testing.T) {
	c := NewConsole()
	for i := 0; i < maxEntries+10; i++ {
		c.AddEntry(LevelInfo, fmt.Sprintf("entry %d", i))
	}
	lines := c.Lines()
	assert.Len(t, lines, maxEntries)
	assert.Equal(t, "[INFO] entry 10", lines[0])
}

func TestDashboardQuitCancelsThenWaits(t *testing.T) {
	cancelled := 0
	d := NewDashboard("Crawl", func() { cancelled++ })

	cmd := send(d, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd, "keeps running until the crawl winds down")
	send(d, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, cancelled)
	assert.True(t, d.Stopping())

	cmd = send(d, DoneMsg{Stats: crawler.Stats{Stored: 3}, Err: errors.New("context canceled")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.EqualError(t, d.Err(), "context canceled")
	assert.Equal(t, 3, d.stats.Stats().Stored)
}

func TestNodeListTracksStatus(t *testing.T) {
	n := NewNodeList()
	e := crawler.Event{Kind: crawler.EventDiscovered, Level: types.LevelArea, Name: "Audio", URL: "https://x/area/audio"}
	n.Apply(e)
	n.Apply(e)
	assert.Equal(t, 1, n.Pending())
	require.Len(t, n.list.Items(), 1)

	e.Kind = crawler.EventFetched
	n.Apply(e)
	assert.Zero(t, n.Pending())
	assert.Equal(t, "fetched", n.list.Items()[0].(NodeItem).status)

	n.Apply(crawler.Event{Kind: crawler.EventStored, URL: "https://x/unknown"})
	assert.Len(t, n.list.Items(), 1)
}
