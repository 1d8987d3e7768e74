package browser

// Direction of a navigation gesture.
type Direction string

// Navigation directions.
const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// Position is the cursor's tagged location: either a valid index into
// the current directory index, or a remembered path that the last scan
// did not match. Consumers must handle both cases.
type Position struct {
	Indexed bool
	Index   int
	Path    string
}

// Cursor tracks the browser position over a directory index.
//
// Two navigation protocols coexist and must never be mixed within one
// gesture: the pure peek methods combined with Confirm (used by the
// orchestrator so the cursor only moves after a load succeeds), and the
// eager NavigateNext/NavigatePrevious pair for synchronous callers that
// bypass the retry machinery.
type Cursor struct {
	index *Index
	pos   Position
}

// NewCursor creates a cursor over index, resolved against path.
func NewCursor(index *Index, path string) *Cursor {
	c := &Cursor{index: index, pos: Position{Path: path}}
	if path != "" {
		c.Confirm(path)
	}
	return c
}

// Position returns the current tagged position.
func (c *Cursor) Position() Position {
	return c.pos
}

// Index returns the directory index the cursor is bound to.
func (c *Cursor) Index() *Index {
	return c.index
}

// Current returns the entry at the confirmed position.
func (c *Cursor) Current() (Entry, bool) {
	if !c.pos.Indexed {
		return Entry{}, false
	}
	return c.index.Entry(c.pos.Index), true
}

// Rebind re-resolves the cursor against a fresh index. The confirmed
// path is looked up again; a miss falls back to Unresolved so a stale
// index position can never survive a rescan.
func (c *Cursor) Rebind(index *Index) {
	path := c.pos.Path
	if c.pos.Indexed {
		path = c.index.Entry(c.pos.Index).Path
	}
	c.index = index
	c.pos = Position{Path: path}
	if path != "" {
		c.Confirm(path)
	}
}

// PeekNext returns the entry one step forward. Pure: never moves the
// cursor. A single-entry index wraps onto itself; only an empty index
// yields no entry.
func (c *Cursor) PeekNext() (Entry, bool) {
	return c.PeekAt(1, DirectionNext)
}

// PeekPrevious returns the entry one step backward.
func (c *Cursor) PeekPrevious() (Entry, bool) {
	return c.PeekAt(1, DirectionPrevious)
}

// PeekAt returns the entry n steps away in the given direction,
// wrapping around the index. It reports false when the index is empty
// or n steps would pass beyond a full cycle.
func (c *Cursor) PeekAt(n int, dir Direction) (Entry, bool) {
	length := c.indexLen()
	if length == 0 || n < 1 || n > length {
		return Entry{}, false
	}
	return c.index.Entry(c.step(n, dir, length)), true
}

// PeekNthNextImage returns the n-th image forward, transparently
// skipping video entries while counting steps.
func (c *Cursor) PeekNthNextImage(n int) (Entry, bool) {
	return c.PeekImageAt(n, DirectionNext)
}

// PeekNthPreviousImage returns the n-th image backward.
func (c *Cursor) PeekNthPreviousImage(n int) (Entry, bool) {
	return c.PeekImageAt(n, DirectionPrevious)
}

// PeekImageAt returns the n-th image entry in the given direction,
// counting only Image entries within one full cycle of the index.
func (c *Cursor) PeekImageAt(n int, dir Direction) (Entry, bool) {
	length := c.indexLen()
	if length == 0 || n < 1 {
		return Entry{}, false
	}
	seen := 0
	for step := 1; step <= length; step++ {
		entry := c.index.Entry(c.step(step, dir, length))
		if entry.Kind != KindImage {
			continue
		}
		seen++
		if seen == n {
			return entry, true
		}
	}
	return Entry{}, false
}

// Confirm resolves path against the current index and moves the cursor
// there; a path missing from the index leaves the cursor Unresolved at
// that path. Confirming the already-confirmed path is a no-op.
func (c *Cursor) Confirm(path string) {
	if c.index != nil {
		if i, ok := c.index.Lookup(path); ok {
			c.pos = Position{Indexed: true, Index: i}
			return
		}
	}
	c.pos = Position{Path: path}
}

// NavigateNext peeks one step forward and confirms it immediately.
// Eager protocol only; not for use inside an orchestrated gesture.
func (c *Cursor) NavigateNext() (Entry, bool) {
	return c.navigate(DirectionNext)
}

// NavigatePrevious peeks one step backward and confirms it immediately.
func (c *Cursor) NavigatePrevious() (Entry, bool) {
	return c.navigate(DirectionPrevious)
}

func (c *Cursor) navigate(dir Direction) (Entry, bool) {
	entry, ok := c.PeekAt(1, dir)
	if !ok {
		return Entry{}, false
	}
	c.Confirm(entry.Path)
	return entry, true
}

func (c *Cursor) indexLen() int {
	if c.index == nil {
		return 0
	}
	return c.index.Len()
}

// step maps n steps from the current position to an index offset. An
// unresolved cursor sits virtually before the start (going next) or
// after the end (going previous), so browsing an unresolved directory
// begins at its first or last entry.
func (c *Cursor) step(n int, dir Direction, length int) int {
	base := -1
	if c.pos.Indexed {
		base = c.pos.Index
	} else if dir == DirectionPrevious {
		base = length
	}
	if dir == DirectionPrevious {
		return ((base-n)%length + length) % length
	}
	return ((base+n)%length + length) % length
}
