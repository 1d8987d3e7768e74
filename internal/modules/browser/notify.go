package browser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Notification levels.
const (
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notification is a user-facing, fire-and-forget message.
type Notification struct {
	Level   string
	Message string
	Skipped []string
	Dismiss time.Duration
}

// Notifier delivers notifications to the UI layer.
type Notifier interface {
	Emit(n Notification)
}

// maxListedSkips caps how many filenames one aggregated warning spells
// out; the remainder is summarised as a count.
const maxListedSkips = 5

// SkipAggregator collects the filenames skipped during one navigation
// gesture and renders them as a single grouped warning. Only base
// names are kept so user-facing text never leaks directory layout.
type SkipAggregator struct {
	names   []string
	dismiss time.Duration
}

// NewSkipAggregator creates an aggregator for one gesture.
func NewSkipAggregator(dismiss time.Duration) *SkipAggregator {
	return &SkipAggregator{dismiss: dismiss}
}

// Add records a skipped file.
func (a *SkipAggregator) Add(path string) {
	a.names = append(a.names, filepath.Base(path))
}

// Empty reports whether anything was skipped.
func (a *SkipAggregator) Empty() bool {
	return len(a.names) == 0
}

// Names returns the skipped filenames in order.
func (a *SkipAggregator) Names() []string {
	return a.names
}

// Flush emits the grouped warning and resets the aggregator. Exactly
// one notification is produced per gesture that skipped anything.
func (a *SkipAggregator) Flush(notify Notifier) {
	if a.Empty() {
		return
	}
	notify.Emit(Notification{
		Level:   LevelWarning,
		Message: a.message(),
		Skipped: a.names,
		Dismiss: a.dismiss,
	})
	a.names = nil
}

func (a *SkipAggregator) message() string {
	listed := a.names
	extra := 0
	if len(listed) > maxListedSkips {
		extra = len(listed) - maxListedSkips
		listed = listed[:maxListedSkips]
	}
	noun := "file"
	if len(a.names) > 1 {
		noun = "files"
	}
	msg := fmt.Sprintf("skipped %d unreadable %s: %s", len(a.names), noun, strings.Join(listed, ", "))
	if extra > 0 {
		msg += fmt.Sprintf(" (+%d more)", extra)
	}
	return msg
}
