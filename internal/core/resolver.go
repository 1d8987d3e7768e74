package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Bawycle/lens/internal/ports"
	"github.com/Bawycle/lens/pkg/lens"
)

// Resolver resolves selectors to node presence.
type Resolver struct {
	Presence ports.Broker
	Config   Config
}

// ResolveBrowser resolves a browser selector using config defaults.
func (r Resolver) ResolveBrowser(ctx context.Context, selector string) (lens.Presence, error) {
	return r.resolveByKind(ctx, selector, "browser", r.Config.Defaults.Browser)
}

func (r Resolver) resolveByKind(ctx context.Context, selector string, kind string, def string) (lens.Presence, error) {
	if selector == "" {
		selector = def
	}

	presence, err := r.Presence.ListPresence(ctx)
	if err != nil {
		return lens.Presence{}, WrapError(ExitRuntime, "list presence", err)
	}

	filtered := filterPresenceByKind(presence, kind)
	if selector == "" {
		if len(filtered) == 1 {
			return filtered[0], nil
		}
		return lens.Presence{}, &CLIError{Code: ExitUsage, Msg: "selector required"}
	}
	return resolveSelector(selector, filtered, r.Config.Aliases)
}

func filterPresenceByKind(presence []lens.Presence, kind string) []lens.Presence {
	if kind == "" {
		return presence
	}
	out := make([]lens.Presence, 0, len(presence))
	for _, p := range presence {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func resolveSelector(selector string, presence []lens.Presence, aliases map[string]string) (lens.Presence, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return lens.Presence{}, &CLIError{Code: ExitUsage, Msg: "selector required"}
	}

	if strings.HasPrefix(selector, "lens:") {
		return resolveExact(selector, presence)
	}

	if alias, ok := aliases[selector]; ok {
		if strings.HasPrefix(alias, "lens:") {
			return resolveExact(alias, presence)
		}
		selector = alias
	}

	matches := make([]lens.Presence, 0)
	for _, p := range presence {
		if strings.EqualFold(p.Name, selector) || strings.EqualFold(p.NodeID, selector) {
			matches = append(matches, p)
		}
	}

	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) == 0 {
		return lens.Presence{}, &CLIError{Code: ExitNotFound, Msg: fmt.Sprintf("no match for %q", selector)}
	}
	return lens.Presence{}, &CLIError{Code: ExitUsage, Msg: fmt.Sprintf("ambiguous selector %q: %s", selector, suggestionList(matches))}
}

func resolveExact(nodeID string, presence []lens.Presence) (lens.Presence, error) {
	for _, p := range presence {
		if p.NodeID == nodeID {
			return p, nil
		}
	}
	return lens.Presence{}, &CLIError{Code: ExitNotFound, Msg: fmt.Sprintf("node not found: %s", nodeID)}
}

func suggestionList(matches []lens.Presence) string {
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.NodeID))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
