package extract

import "strings"

// Strategy is one way of resolving a field from a page
type Strategy interface {
	Name() string
	Try(p *Page) (string, bool)
}

type funcStrategy struct {
	name string
	fn   func(*Page) string
}

func (s funcStrategy) Name() string { return s.name }

func (s funcStrategy) Try(p *Page) (string, bool) {
	v := strings.TrimSpace(s.fn(p))
	return v, v != ""
}

// Func adapts fn to a Strategy; an empty result counts as no match
func Func(name string, fn func(*Page) string) Strategy {
	return funcStrategy{name: name, fn: fn}
}

// Const always yields value
func Const(name, value string) Strategy {
	return Func(name, func(*Page) string { return value })
}

// Cascade tries strategies in order, first match wins
type Cascade []Strategy

// Resolve returns the first value found and the name of the strategy that
// produced it. Both are empty when nothing matched.
func (c Cascade) Resolve(p *Page) (value, strategy string) {
	for _, s := range c {
		if v, ok := s.Try(p); ok {
			return v, s.Name()
		}
	}
	return "", ""
}

// Value is Resolve without the strategy name
func (c Cascade) Value(p *Page) string {
	v, _ := c.Resolve(p)
	return v
}
