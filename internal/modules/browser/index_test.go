package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir string, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScanFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jpg")
	writeFile(t, dir, "A.png")
	writeFile(t, dir, "c.mp4")
	writeFile(t, dir, "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	index, err := Scan(dir, SortAlpha, ExtDetector{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if index.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", index.Len())
	}
	if index.Entry(0).Name() != "A.png" || index.Entry(1).Name() != "b.jpg" || index.Entry(2).Name() != "c.mp4" {
		t.Fatalf("unexpected order: %v %v %v", index.Entry(0).Name(), index.Entry(1).Name(), index.Entry(2).Name())
	}
	if index.Entry(0).Kind != KindImage || index.Entry(2).Kind != KindVideo {
		t.Fatalf("unexpected kinds")
	}
}

func TestScanFromFilePathListsSiblings(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.jpg")
	writeFile(t, dir, "b.jpg")

	index, err := Scan(a, SortAlpha, ExtDetector{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if index.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", index.Len())
	}
	if index.Dir() != dir {
		t.Fatalf("expected dir %s, got %s", dir, index.Dir())
	}
	if _, ok := index.Lookup(a); !ok {
		t.Fatalf("expected lookup hit for %s", a)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope"), SortAlpha, ExtDetector{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScanAlphaStrict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jpg")
	writeFile(t, dir, "A.png")

	index, err := Scan(dir, SortAlphaStrict, ExtDetector{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if index.Entry(0).Name() != "A.png" {
		t.Fatalf("expected byte order, got %s first", index.Entry(0).Name())
	}
}

func TestScanModifiedOrder(t *testing.T) {
	dir := t.TempDir()
	old := writeFile(t, dir, "z.jpg")
	recent := writeFile(t, dir, "a.jpg")

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	index, err := Scan(dir, SortModified, ExtDetector{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if index.Entry(0).Path != old || index.Entry(1).Path != recent {
		t.Fatalf("expected oldest first")
	}
}

func TestScanFirstMedia(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jpg")
	a := writeFile(t, dir, "a.jpg")

	first, ok, err := ScanFirstMedia(dir, SortAlpha, ExtDetector{})
	if err != nil {
		t.Fatalf("scan first: %v", err)
	}
	if !ok || first != a {
		t.Fatalf("expected %s, got %s ok=%v", a, first, ok)
	}
}

func TestScanFirstMediaEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt")

	_, ok, err := ScanFirstMedia(dir, SortAlpha, ExtDetector{})
	if err != nil {
		t.Fatalf("scan first: %v", err)
	}
	if ok {
		t.Fatalf("expected no media")
	}
}

func TestParseSortOrder(t *testing.T) {
	if order, err := ParseSortOrder(""); err != nil || order != SortAlpha {
		t.Fatalf("expected alpha default, got %v %v", order, err)
	}
	if _, err := ParseSortOrder("random"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestExtDetector(t *testing.T) {
	det := ExtDetector{}
	if det.Classify("/m/a.JPG") != KindImage {
		t.Fatalf("expected image")
	}
	if det.Classify("/m/a.mkv") != KindVideo {
		t.Fatalf("expected video")
	}
	if det.Classify("/m/a.txt") != KindUnsupported {
		t.Fatalf("expected unsupported")
	}
}
