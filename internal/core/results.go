package core

import "github.com/Bawycle/lens/pkg/lens"

// NodesResult holds a list of presence records.
type NodesResult struct {
	Nodes []lens.Presence
}

// StatusResult holds browser presence and state.
type StatusResult struct {
	Browser lens.Presence
	State   lens.BrowserState
}

// NavigateResult reports the outcome of a navigation command.
type NavigateResult struct {
	BrowserID  string
	Target     string
	Dispatched bool
}

// ListResult holds a directory listing page.
type ListResult struct {
	BrowserID string
	Listing   lens.ListReply
	FullPaths bool
}

// RescanResult reports a completed rescan.
type RescanResult struct {
	BrowserID string
	Directory string
	Length    int64
}
