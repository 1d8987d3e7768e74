package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Kind classifies a media entry.
type Kind string

// Media kinds recognised by the browser.
const (
	KindImage       Kind = "Image"
	KindVideo       Kind = "Video"
	KindUnsupported Kind = "Unsupported"
)

// SortOrder determines how scanned entries are ordered.
type SortOrder string

// Supported sort orders.
const (
	SortAlpha       SortOrder = "alpha"
	SortAlphaStrict SortOrder = "alpha-strict"
	SortModified    SortOrder = "mtime"
)

// ParseSortOrder validates a configured sort order, defaulting to alpha.
func ParseSortOrder(value string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortAlpha:
		return SortAlpha, nil
	case SortAlphaStrict:
		return SortAlphaStrict, nil
	case SortModified:
		return SortModified, nil
	default:
		return "", fmt.Errorf("invalid sort_order %q (use alpha|alpha-strict|mtime)", value)
	}
}

// Detector classifies a path by media kind.
type Detector interface {
	Classify(path string) Kind
}

// ExtDetector classifies media by file extension.
type ExtDetector struct{}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

var videoExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".mov":  true,
}

// Classify returns the media kind for a path.
func (ExtDetector) Classify(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return KindImage
	case videoExts[ext]:
		return KindVideo
	default:
		return KindUnsupported
	}
}

// Entry is one media file captured by a directory scan.
type Entry struct {
	Path string
	Kind Kind

	sortKey string
	modTime time.Time
}

// Name returns the base filename of the entry.
func (e Entry) Name() string {
	return filepath.Base(e.Path)
}

// Index is an ordered snapshot of the media files in one directory.
// It is built by exactly one scan and replaced wholesale by the next.
type Index struct {
	dir     string
	order   SortOrder
	entries []Entry
	byPath  map[string]int
}

// Scan builds an index for path. A file path is resolved to its parent
// directory; a directory path is scanned directly (non-recursive).
func Scan(path string, order SortOrder, detector Detector) (*Index, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	listing, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(listing))
	for _, item := range listing {
		if item.IsDir() {
			continue
		}
		full := filepath.Join(dir, item.Name())
		kind := detector.Classify(full)
		if kind == KindUnsupported {
			continue
		}
		entry := Entry{Path: full, Kind: kind, sortKey: strings.ToLower(item.Name())}
		if order == SortModified {
			if fi, err := item.Info(); err == nil {
				entry.modTime = fi.ModTime()
			}
		}
		entries = append(entries, entry)
	}

	sortEntries(entries, order)

	byPath := make(map[string]int, len(entries))
	for i, entry := range entries {
		byPath[entry.Path] = i
	}
	return &Index{dir: dir, order: order, entries: entries, byPath: byPath}, nil
}

// ScanFirstMedia returns the first recognised media file in dir per the
// sort order. The second return is false when dir holds no media.
func ScanFirstMedia(dir string, order SortOrder, detector Detector) (string, bool, error) {
	index, err := Scan(dir, order, detector)
	if err != nil {
		return "", false, err
	}
	if index.Len() == 0 {
		return "", false, nil
	}
	return index.entries[0].Path, true, nil
}

func sortEntries(entries []Entry, order SortOrder) {
	switch order {
	case SortAlphaStrict:
		sort.Slice(entries, func(i, j int) bool {
			return filepath.Base(entries[i].Path) < filepath.Base(entries[j].Path)
		})
	case SortModified:
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].modTime.Equal(entries[j].modTime) {
				return entries[i].sortKey < entries[j].sortKey
			}
			return entries[i].modTime.Before(entries[j].modTime)
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].sortKey == entries[j].sortKey {
				return filepath.Base(entries[i].Path) < filepath.Base(entries[j].Path)
			}
			return entries[i].sortKey < entries[j].sortKey
		})
	}
}

// Dir returns the scanned directory.
func (x *Index) Dir() string {
	return x.dir
}

// Order returns the sort order the index was built with.
func (x *Index) Order() SortOrder {
	return x.order
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.entries)
}

// Entry returns the entry at position i.
func (x *Index) Entry(i int) Entry {
	return x.entries[i]
}

// Lookup returns the position of path in the index.
func (x *Index) Lookup(path string) (int, bool) {
	i, ok := x.byPath[path]
	return i, ok
}

// Entries returns a copy of the ordered entries.
func (x *Index) Entries() []Entry {
	out := make([]Entry, len(x.entries))
	copy(out, x.entries)
	return out
}
