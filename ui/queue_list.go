package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/benchscrape/internal/crawler"
)

// NodeItem is one discovered node of the crawl
type NodeItem struct {
	name   string
	url    string
	level  string
	status string
}

// FilterValue implements list.Item interface
func (i NodeItem) FilterValue() string { return i.name }

// Title returns the item's title
func (i NodeItem) Title() string { return i.name }

// Description returns the item's description
func (i NodeItem) Description() string {
	return fmt.Sprintf("%s | %s | %s", i.level, i.status, i.url)
}

// NodeList shows discovered nodes and what became of them
type NodeList struct {
	list    list.Model
	index   map[string]int
	width   int
	height  int
	pending int
}

// NewNodeList creates an empty node list
func NewNodeList() *NodeList {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("170"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("244"))

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Discovered"
	l.Styles.Title = l.Styles.Title.Foreground(lipgloss.Color("240"))
	l.SetFilteringEnabled(false)

	return &NodeList{list: l, index: make(map[string]int)}
}

// SetSize updates the list dimensions
func (n *NodeList) SetSize(width, height int) {
	n.width = width
	n.height = height
	n.list.SetSize(width, height)
}

// Update handles UI updates
func (n *NodeList) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	n.list, cmd = n.list.Update(msg)
	return cmd
}

// View renders the component
func (n *NodeList) View() string {
	return n.list.View()
}

func itemKey(e crawler.Event) string {
	return e.Level.String() + " " + e.URL
}

// Apply records an event against the node it concerns
func (n *NodeList) Apply(e crawler.Event) {
	if e.URL == "" {
		return
	}
	key := itemKey(e)

	if e.Kind == crawler.EventDiscovered {
		if _, ok := n.index[key]; ok {
			return
		}
		n.index[key] = len(n.list.Items())
		n.list.InsertItem(len(n.list.Items()), NodeItem{
			name:   e.Name,
			url:    e.URL,
			level:  e.Level.String(),
			status: "pending",
		})
		n.pending++
		n.updateTitle()
		return
	}

	i, ok := n.index[key]
	if !ok {
		return
	}
	item, ok := n.list.Items()[i].(NodeItem)
	if !ok {
		return
	}
	if item.status == "pending" {
		n.pending--
	}
	item.status = e.Kind.String()
	n.list.SetItem(i, item)
	n.updateTitle()
}

// Pending returns the number of discovered nodes not yet settled
func (n *NodeList) Pending() int {
	return n.pending
}

func (n *NodeList) updateTitle() {
	n.list.Title = fmt.Sprintf("Discovered (%d pending)", n.pending)
}
