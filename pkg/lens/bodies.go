package lens

// OpenBody is the payload for browser.open.
type OpenBody struct {
	Path string `json:"path"`
}

// NavigateBody is the payload for browser.next and browser.prev.
type NavigateBody struct {
	ImagesOnly bool `json:"imagesOnly,omitempty"`
}

// NavigateReply reports the tentative target of an accepted gesture.
type NavigateReply struct {
	Target     string `json:"target,omitempty"`
	Dispatched bool   `json:"dispatched"`
}

// RescanBody is the payload for browser.rescan.
type RescanBody struct{}

// RescanReply reports the result of an explicit rescan.
type RescanReply struct {
	Directory string `json:"directory"`
	Length    int64  `json:"length"`
}

// ListBody fetches a window of the current directory index.
type ListBody struct {
	Start int64 `json:"start"`
	Count int64 `json:"count"`
}

// ListReply is the reply body for browser.list.
type ListReply struct {
	Entries []ListEntry `json:"entries"`
	Start   int64       `json:"start"`
	Count   int64       `json:"count"`
	Total   int64       `json:"total"`
}

// ListEntry is one index entry returned by browser.list.
type ListEntry struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Current bool   `json:"current,omitempty"`
}
