package ports

import (
	"context"

	"github.com/Bawycle/lens/pkg/lens"
)

// Broker publishes commands and reads retained state/presence.
type Broker interface {
	ReplyTopic() string
	PublishCommand(ctx context.Context, nodeID string, cmd lens.CommandEnvelope) (lens.ReplyEnvelope, error)
	ListPresence(ctx context.Context) ([]lens.Presence, error)
	GetBrowserState(ctx context.Context, nodeID string) (lens.BrowserState, error)
	WatchBrowser(ctx context.Context, nodeID string) (<-chan lens.BrowserState, <-chan lens.Event, <-chan error)
}

// Clock returns the current unix time in seconds.
type Clock interface {
	NowUnix() int64
}

// IDGen returns unique correlation IDs.
type IDGen interface {
	NewID() string
}
