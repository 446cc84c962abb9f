package types

import "strings"

// Level identifies a tier of a catalog hierarchy
type Level int

const (
	LevelListing Level = iota
	LevelArea
	LevelSubtask
	LevelTask
	LevelDataset
)

var levelNames = map[Level][2]string{
	LevelListing: {"listing", "listings"},
	LevelArea:    {"area", "areas"},
	LevelSubtask: {"subtask", "subtasks"},
	LevelTask:    {"task", "tasks"},
	LevelDataset: {"dataset", "datasets"},
}

func (l Level) String() string {
	if n, ok := levelNames[l]; ok {
		return n[0]
	}
	return "unknown"
}

// Plural returns the plural level name, used for ledger set names
func (l Level) Plural() string {
	if n, ok := levelNames[l]; ok {
		return n[1]
	}
	return "unknown"
}

// Node is one resource of a catalog hierarchy discovered while crawling.
// Nodes are never mutated after creation.
type Node struct {
	Name      string
	URL       string
	Level     Level
	Parent    *Node
	Synthetic bool
}

// Lineage returns the names from the root down to this node
func (n *Node) Lineage() []string {
	var names []string
	for cur := n; cur != nil; cur = cur.Parent {
		names = append(names, cur.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// Ancestor returns the nearest node at the given level, including n itself
func (n *Node) Ancestor(level Level) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Level == level {
			return cur
		}
	}
	return nil
}

// AncestorName returns the name of Ancestor(level) or an empty string
func (n *Node) AncestorName(level Level) string {
	if a := n.Ancestor(level); a != nil {
		return a.Name
	}
	return ""
}

// Schema is the fixed, ordered column set of one tabular export
type Schema struct {
	Name    string
	Columns []string
}

// Has reports whether the schema declares the column
func (s Schema) Has(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Record is one extracted row keyed by column name
type Record map[string]string

// NewRecord returns a record holding every column of the schema as ""
func NewRecord(schema Schema) Record {
	r := make(Record, len(schema.Columns))
	for _, c := range schema.Columns {
		r[c] = ""
	}
	return r
}

// Row renders the record in schema order; unknown or missing fields are ""
func (r Record) Row(schema Schema) []string {
	row := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		row[i] = r[c]
	}
	return row
}

// SetIfEmpty stores value only when the field has not been resolved yet
func (r Record) SetIfEmpty(field, value string) {
	if r[field] == "" && strings.TrimSpace(value) != "" {
		r[field] = value
	}
}
