package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func urls() *Queue[string] {
	return New(func(s string) string { return s })
}

func TestQueueOrderAndDedupe(t *testing.T) {
	q := urls()

	assert.True(t, q.Add("https://a"))
	assert.True(t, q.Add("https://b"))
	assert.False(t, q.Add("https://a"))
	assert.True(t, q.Add("https://c"))
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, []string{"https://a", "https://b", "https://c"}, q.Drain())
	assert.Equal(t, 0, q.Len())

	// Drained items stay deduplicated
	assert.False(t, q.Add("https://a"))
	assert.True(t, q.Add("https://d"))
	assert.Equal(t, []string{"https://d"}, q.Drain())
	assert.Empty(t, q.Drain())
}

func TestQueueCustomKey(t *testing.T) {
	type link struct{ name, url string }
	q := New(func(l link) string { return l.url })

	q.Add(link{"First", "https://x/1"})
	q.Add(link{"Second name", "https://x/1"})
	q.Add(link{"Other", "https://x/2"})

	items := q.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].name)
	assert.Equal(t, "Other", items[1].name)
}

func TestQueueConcurrentAdd(t *testing.T) {
	q := urls()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Add(fmt.Sprintf("https://x/%d", i))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, q.Len())
}
