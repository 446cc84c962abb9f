package pagestore

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-scripts/benchscrape/internal/types"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.\-]`)

// SanitizeName makes name safe for use as a single path segment.
// The result only contains [A-Za-z0-9_.-], is at most limit bytes long,
// is never empty and is never "." or "..".
func SanitizeName(name string, limit int) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	if strings.Trim(s, ".") == "" {
		s = strings.Repeat("_", max(len(s), 1))
	}
	return s
}

// PwcKey builds the key of a benchmark-catalog dataset page from its lineage:
// area/subtask/task/dataset.html. The subtask segment is dropped when it equals
// the task segment so pass-through tasks do not nest a folder in itself.
func PwcKey(n *types.Node, nameLimit, dirLimit int) string {
	area := SanitizeName(n.AncestorName(types.LevelArea), dirLimit)
	subtask := SanitizeName(n.AncestorName(types.LevelSubtask), dirLimit)
	task := SanitizeName(n.AncestorName(types.LevelTask), dirLimit)
	file := SanitizeName(n.Name, nameLimit) + ".html"

	if subtask == task {
		return path.Join(area, task, file)
	}
	return path.Join(area, subtask, task, file)
}

// HfKey builds the key of a dataset-catalog page
func HfKey(name string, nameLimit int) string {
	return "huggingface_" + SanitizeName(name, nameLimit) + ".html"
}

// NameFromKey returns the base file name of key without its extension
func NameFromKey(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

// HfListingPrefix marks stored listing pages of the dataset catalog
const HfListingPrefix = "huggingface_page_"

// HfListingKey builds the key of one stored listing page
func HfListingKey(page int) string {
	return HfListingPrefix + strconv.Itoa(page) + ".html"
}
