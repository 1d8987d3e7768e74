package core

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/Bawycle/lens/internal/ports"
	"github.com/Bawycle/lens/pkg/lens"
)

// Service orchestrates lens CLI use cases.
type Service struct {
	Broker   ports.Broker
	Resolver Resolver
	Clock    ports.Clock
	IDGen    ports.IDGen
	Config   Config
}

// ListNodes returns presence entries with optional filters.
func (s Service) ListNodes(ctx context.Context, kind string, onlineOnly bool) (NodesResult, error) {
	nodes, err := s.Broker.ListPresence(ctx)
	if err != nil {
		return NodesResult{}, WrapError(ExitRuntime, "list nodes", err)
	}
	if kind != "" {
		filtered := nodes[:0]
		for _, node := range nodes {
			if node.Kind == kind {
				filtered = append(filtered, node)
			}
		}
		nodes = filtered
	}
	// Online filtering relies on presence; with retained presence this is best-effort.
	if onlineOnly {
		filtered := nodes[:0]
		for _, node := range nodes {
			if node.TS > 0 {
				filtered = append(filtered, node)
			}
		}
		nodes = filtered
	}
	return NodesResult{Nodes: nodes}, nil
}

// Status returns browser state.
func (s Service) Status(ctx context.Context, selector string) (StatusResult, error) {
	browser, err := s.Resolver.ResolveBrowser(ctx, selector)
	if err != nil {
		return StatusResult{}, err
	}
	state, err := s.Broker.GetBrowserState(ctx, browser.NodeID)
	if err != nil {
		return StatusResult{}, WrapError(ExitRuntime, "get browser state", err)
	}
	return StatusResult{Browser: browser, State: state}, nil
}

// WatchStatus streams state and events for a browser.
func (s Service) WatchStatus(ctx context.Context, selector string) (lens.Presence, <-chan lens.BrowserState, <-chan lens.Event, <-chan error, error) {
	browser, err := s.Resolver.ResolveBrowser(ctx, selector)
	if err != nil {
		return lens.Presence{}, nil, nil, nil, err
	}
	states, events, errs := s.Broker.WatchBrowser(ctx, browser.NodeID)
	return browser, states, events, errs, nil
}

// Open points a browser at a file or directory.
func (s Service) Open(ctx context.Context, selector string, path string) (NavigateResult, error) {
	browser, err := s.Resolver.ResolveBrowser(ctx, selector)
	if err != nil {
		return NavigateResult{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return NavigateResult{}, &CLIError{Code: ExitUsage, Msg: "path required"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return NavigateResult{}, WrapError(ExitUsage, "resolve path", err)
	}

	cmd, err := lens.NewCommand("browser.open", lens.OpenBody{Path: abs})
	if err != nil {
		return NavigateResult{}, WrapError(ExitRuntime, "build command", err)
	}
	reply, err := s.publish(ctx, browser.NodeID, cmd)
	if err != nil {
		return NavigateResult{}, err
	}

	var body lens.NavigateReply
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		return NavigateResult{}, WrapError(ExitRuntime, "decode open reply", err)
	}
	return NavigateResult{BrowserID: browser.NodeID, Target: body.Target, Dispatched: body.Dispatched}, nil
}

// Next advances the browser to the next entry.
func (s Service) Next(ctx context.Context, selector string, imagesOnly bool) (NavigateResult, error) {
	return s.navigate(ctx, selector, "browser.next", imagesOnly)
}

// Prev moves the browser to the previous entry.
func (s Service) Prev(ctx context.Context, selector string, imagesOnly bool) (NavigateResult, error) {
	return s.navigate(ctx, selector, "browser.prev", imagesOnly)
}

func (s Service) navigate(ctx context.Context, selector string, cmdType string, imagesOnly bool) (NavigateResult, error) {
	browser, err := s.Resolver.ResolveBrowser(ctx, selector)
	if err != nil {
		return NavigateResult{}, err
	}
	cmd, err := lens.NewCommand(cmdType, lens.NavigateBody{ImagesOnly: imagesOnly})
	if err != nil {
		return NavigateResult{}, WrapError(ExitRuntime, "build command", err)
	}
	reply, err := s.publish(ctx, browser.NodeID, cmd)
	if err != nil {
		return NavigateResult{}, err
	}

	var body lens.NavigateReply
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		return NavigateResult{}, WrapError(ExitRuntime, "decode navigate reply", err)
	}
	return NavigateResult{BrowserID: browser.NodeID, Target: body.Target, Dispatched: body.Dispatched}, nil
}

// List returns a page of the browser's directory listing.
func (s Service) List(ctx context.Context, selector string, start, count int64, fullPaths bool) (ListResult, error) {
	browser, err := s.Resolver.ResolveBrowser(ctx, selector)
	if err != nil {
		return ListResult{}, err
	}
	cmd, err := lens.NewCommand("browser.list", lens.ListBody{Start: start, Count: count})
	if err != nil {
		return ListResult{}, WrapError(ExitRuntime, "build command", err)
	}
	reply, err := s.publish(ctx, browser.NodeID, cmd)
	if err != nil {
		return ListResult{}, err
	}

	var body lens.ListReply
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		return ListResult{}, WrapError(ExitRuntime, "decode list reply", err)
	}
	return ListResult{BrowserID: browser.NodeID, Listing: body, FullPaths: fullPaths}, nil
}

// Rescan forces a fresh directory scan on the browser.
func (s Service) Rescan(ctx context.Context, selector string) (RescanResult, error) {
	browser, err := s.Resolver.ResolveBrowser(ctx, selector)
	if err != nil {
		return RescanResult{}, err
	}
	cmd, err := lens.NewCommand("browser.rescan", lens.RescanBody{})
	if err != nil {
		return RescanResult{}, WrapError(ExitRuntime, "build command", err)
	}
	reply, err := s.publish(ctx, browser.NodeID, cmd)
	if err != nil {
		return RescanResult{}, err
	}

	var body lens.RescanReply
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		return RescanResult{}, WrapError(ExitRuntime, "decode rescan reply", err)
	}
	return RescanResult{BrowserID: browser.NodeID, Directory: body.Directory, Length: body.Length}, nil
}

func (s Service) publish(ctx context.Context, nodeID string, cmd lens.CommandEnvelope) (lens.ReplyEnvelope, error) {
	cmd = s.decorateCommand(cmd)
	reply, err := s.Broker.PublishCommand(ctx, nodeID, cmd)
	if err != nil {
		return lens.ReplyEnvelope{}, WrapError(ExitRuntime, "publish command", err)
	}
	if reply.Err != nil {
		return lens.ReplyEnvelope{}, ErrorForReplyCode(reply.Err.Code, reply.Err.Message)
	}
	return reply, nil
}

func (s Service) decorateCommand(cmd lens.CommandEnvelope) lens.CommandEnvelope {
	cmd.ID = s.IDGen.NewID()
	cmd.TS = s.Clock.NowUnix()
	cmd.From = s.Config.Identity
	cmd.ReplyTo = s.Broker.ReplyTopic()
	return cmd
}
