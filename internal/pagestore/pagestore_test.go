package pagestore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/benchscrape/internal/fetch"
	"github.com/go-scripts/benchscrape/internal/types"
)

type countingFetcher struct {
	calls int
	body  []byte
	err   error
}

func (f *countingFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

func TestSanitizeName(t *testing.T) {
	allowed := regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"spaces and slashes", "Image Classification/ImageNet", 50, "Image_Classification_ImageNet"},
		{"keeps dots and dashes", "COCO-2017.v1", 50, "COCO-2017.v1"},
		{"unicode", "Ünïcode – data", 50, "_n_code___data"},
		{"truncates", strings.Repeat("a", 80), 30, strings.Repeat("a", 30)},
		{"empty", "", 30, "_"},
		{"dot dot", "..", 30, "__"},
		{"shell chars", `a<b>c:"d"|e?f*g`, 50, "a_b_c__d__e_f_g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input, tt.limit)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
			assert.Regexp(t, allowed, got)
			assert.LessOrEqual(t, len(got), tt.limit)
		})
	}
}

func TestSanitizeNameProperty(t *testing.T) {
	allowed := regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	inputs := []string{
		"a/b\\c", "名前データセット", "\x00\x01\x02", "   ", "a b c d e f g h i j k l m n o p q r s t u v w x y z",
		"../../etc/passwd", "100% real", "tab\tnew\nline",
	}
	for _, in := range inputs {
		for _, limit := range []int{1, 5, 30, 50} {
			got := SanitizeName(in, limit)
			assert.Regexp(t, allowed, got, "input %q", in)
			assert.LessOrEqual(t, len(got), limit, "input %q", in)
			assert.NotEqual(t, "..", got)
		}
	}
}

func pwcNode() *types.Node {
	area := &types.Node{Name: "Computer Vision", Level: types.LevelArea}
	subtask := &types.Node{Name: "Image Classification", Level: types.LevelSubtask, Parent: area}
	task := &types.Node{Name: "Image Classification", Level: types.LevelTask, Parent: subtask, Synthetic: true}
	return &types.Node{Name: "ImageNet", Level: types.LevelDataset, Parent: task}
}

func TestPwcKey(t *testing.T) {
	n := pwcNode()
	assert.Equal(t, "Computer_Vision/Image_Classification/ImageNet.html", PwcKey(n, 50, 30))

	task := &types.Node{Name: "Fine-Grained", Level: types.LevelTask, Parent: n.Parent.Parent}
	ds := &types.Node{Name: "CUB 200", Level: types.LevelDataset, Parent: task}
	assert.Equal(t, "Computer_Vision/Image_Classification/Fine-Grained/CUB_200.html", PwcKey(ds, 50, 30))
}

func TestHfKeyAndName(t *testing.T) {
	key := HfKey("openai/gsm8k", 100)
	assert.Equal(t, "huggingface_openai_gsm8k.html", key)
	assert.Equal(t, "huggingface_openai_gsm8k", NameFromKey(key))
	assert.Equal(t, "ImageNet", NameFromKey("a/b/ImageNet.html"))
}

func TestDiskStore(t *testing.T) {
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "pages"))
	require.NoError(t, err)

	assert.False(t, store.Exists("a/b.html"))
	require.NoError(t, store.Put("a/b.html", []byte("<html></html>")))
	require.NoError(t, store.Put("c.html", []byte("x")))
	assert.True(t, store.Exists("a/b.html"))

	body, err := store.Get("a/b.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))

	_, err = store.Get("missing.html")
	assert.ErrorIs(t, err, ErrNotStored)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b.html", "c.html"}, keys)

	assert.Error(t, store.Put("../escape.html", []byte("x")))
	assert.False(t, store.Exists("../escape.html"))
}

func TestDiskStoreListsOnlyPages(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put("huggingface_squad.html", []byte("<html>squad</html>")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "benchscrape.log"), []byte(strings.Repeat("log line\n", 2000)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".x.html.123.tmp"), []byte("partial"), 0o644))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"huggingface_squad.html"}, keys)
}

func TestDiskStorePutReplacesAtomically(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put("a/page.html", []byte("first")))
	require.NoError(t, store.Put("a/page.html", []byte("second")))

	body, err := store.Get("a/page.html")
	require.NoError(t, err)
	assert.Equal(t, "second", string(body))

	entries, err := os.ReadDir(filepath.Join(root, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp file is left behind")
	assert.Equal(t, "page.html", entries[0].Name())

	info, err := os.Stat(filepath.Join(root, "a", "page.html"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put("b.html", []byte("2")))
	require.NoError(t, store.Put("a.html", []byte("1")))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.html"}, keys)

	_, err = store.Get("c.html")
	assert.ErrorIs(t, err, ErrNotStored)
}

func TestDownloaderSaveIsIdempotent(t *testing.T) {
	f := &countingFetcher{body: []byte("<html>page</html>")}
	d := NewDownloader(f, NewMemoryStore(), log.New(io.Discard))

	skipped, err := d.Save(context.Background(), "x/page.html", "https://example.com/page")
	require.NoError(t, err)
	assert.False(t, skipped)

	skipped, err = d.Save(context.Background(), "x/page.html", "https://example.com/page")
	require.NoError(t, err)
	assert.True(t, skipped)

	assert.Equal(t, 1, f.calls)
}

func TestDownloaderSaveFailures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *countingFetcher
		wantErr error
	}{
		{"not found", &countingFetcher{err: fetch.ErrNotFound}, fetch.ErrNotFound},
		{"blank body", &countingFetcher{body: []byte("  \n ")}, fetch.ErrEmptyBody},
		{"transport", &countingFetcher{err: errors.New("connection reset")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			d := NewDownloader(tt.fetcher, store, log.New(io.Discard))

			_, err := d.Save(context.Background(), "p.html", "https://example.com")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.False(t, store.Exists("p.html"))
		})
	}
}

func TestSavePlaceholder(t *testing.T) {
	store := NewMemoryStore()
	f := &countingFetcher{}
	d := NewDownloader(f, store, log.New(io.Discard))

	n := pwcNode()
	synthetic := &types.Node{Name: n.Parent.Name, URL: "https://paperswithcode.com/task/image-classification", Level: types.LevelDataset, Parent: n.Parent, Synthetic: true}

	skipped, err := d.SavePlaceholder("p.html", synthetic)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Zero(t, f.calls)

	body, err := store.Get("p.html")
	require.NoError(t, err)
	page := string(body)
	assert.Contains(t, page, `<meta name="synthetic" content="true">`)
	assert.Contains(t, page, `<meta property="og:url" content="https://paperswithcode.com/task/image-classification">`)
	assert.Contains(t, page, `<meta name="area" content="Computer Vision">`)
	assert.Contains(t, page, `class="dataset-description"`)

	skipped, err = d.SavePlaceholder("p.html", synthetic)
	require.NoError(t, err)
	assert.True(t, skipped)
}

func TestPruneSelfNamedDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Speech", "Speech"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Speech", "Speech", "x.html"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Audio", "Music"), 0o755))

	found, err := PruneSelfNamedDirs(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "Speech", "Speech")}, found)
	assert.DirExists(t, filepath.Join(root, "Speech", "Speech"))

	removed, err := PruneSelfNamedDirs(root, false)
	require.NoError(t, err)
	assert.Equal(t, found, removed)
	assert.NoDirExists(t, filepath.Join(root, "Speech", "Speech"))
	assert.DirExists(t, filepath.Join(root, "Audio", "Music"))
}
