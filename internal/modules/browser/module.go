package browser

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/Bawycle/lens/pkg/lens"
)

// Client is the MQTT surface the module needs; satisfied by
// *mqttserver.Client.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler paho.MessageHandler) error
	Unsubscribe(topic string) error
}

// Config configures the browser module.
type Config struct {
	NodeID          string
	TopicBase       string
	Name            string
	Path            string
	SortOrder       string
	MaxSkipAttempts int
	NotifyDismissMS int64
}

const maxSkipAttemptsCap = 25

// Module exposes a directory media browser over the lens protocol.
// All navigation state (index, cursor, orchestrator) is owned by the
// Run goroutine; MQTT handlers and the loader only pass messages in.
type Module struct {
	log      *zap.Logger
	client   Client
	config   Config
	cmdTopic string

	detector Detector
	order    SortOrder
	dismiss  time.Duration

	loader  Loader
	results <-chan LoadResult
	cmds    chan lens.CommandEnvelope

	orch         *Orchestrator
	stateVersion int64
}

// NewModule creates a browser module.
func NewModule(log *zap.Logger, client Client, loader Loader, results <-chan LoadResult, cfg Config) (*Module, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.NodeID) == "" {
		return nil, errors.New("node_id required")
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("path required")
	}
	if strings.TrimSpace(cfg.TopicBase) == "" {
		cfg.TopicBase = lens.BaseTopic
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "Media Browser"
	}
	if cfg.MaxSkipAttempts <= 0 {
		cfg.MaxSkipAttempts = 5
	}
	if cfg.MaxSkipAttempts > maxSkipAttemptsCap {
		cfg.MaxSkipAttempts = maxSkipAttemptsCap
	}
	if cfg.NotifyDismissMS <= 0 {
		cfg.NotifyDismissMS = 5000
	}
	order, err := ParseSortOrder(cfg.SortOrder)
	if err != nil {
		return nil, err
	}

	return &Module{
		log:      log,
		client:   client,
		config:   cfg,
		cmdTopic: lens.TopicCommands(cfg.TopicBase, cfg.NodeID),
		detector: ExtDetector{},
		order:    order,
		dismiss:  time.Duration(cfg.NotifyDismissMS) * time.Millisecond,
		loader:   loader,
		results:  results,
		cmds:     make(chan lens.CommandEnvelope, 16),
	}, nil
}

// Run starts the module.
func (m *Module) Run(ctx context.Context) error {
	if err := m.publishPresence(); err != nil {
		return err
	}

	index, err := Scan(m.config.Path, m.order, m.detector)
	if err != nil {
		m.log.Warn("initial scan failed", zap.Error(err), zap.String("path", m.config.Path))
	}
	cursor := NewCursor(index, "")
	m.orch = NewOrchestrator(m.log, cursor, m.loader, m.notifier(), m.config.MaxSkipAttempts, m.dismiss)

	if target, kind, ok := m.startTarget(index); ok {
		m.orch.Open(ctx, target, kind)
	}
	m.publishState()

	handler := func(_ paho.Client, msg paho.Message) {
		m.handleMessage(msg)
	}
	if err := m.client.Subscribe(m.cmdTopic, 1, handler); err != nil {
		return err
	}
	defer m.client.Unsubscribe(m.cmdTopic)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-m.cmds:
			m.handleCommand(ctx, cmd)
		case res := <-m.results:
			if ctx.Err() != nil {
				return nil
			}
			m.handleResult(ctx, res)
		}
	}
}

func (m *Module) handleResult(ctx context.Context, res LoadResult) {
	if m.orch.HandleResult(ctx, res) {
		m.publishState()
	}
}

// startTarget picks what to show first: the configured file itself, or
// the first media file of a configured directory.
func (m *Module) startTarget(index *Index) (string, Kind, bool) {
	abs, err := filepath.Abs(m.config.Path)
	if err != nil {
		return "", "", false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", false
	}
	if !info.IsDir() {
		return abs, m.detector.Classify(abs), true
	}
	first, ok, err := ScanFirstMedia(abs, m.order, m.detector)
	if err != nil || !ok {
		return "", "", false
	}
	return first, m.detector.Classify(first), true
}

func (m *Module) publishPresence() error {
	presence := lens.Presence{
		NodeID: m.config.NodeID,
		Kind:   "browser",
		Name:   m.config.Name,
		Caps: map[string]any{
			"open":   true,
			"next":   true,
			"prev":   true,
			"rescan": true,
			"list":   true,
		},
		TS: time.Now().Unix(),
	}
	payload, err := json.Marshal(presence)
	if err != nil {
		return err
	}
	return m.client.Publish(lens.TopicPresence(m.config.TopicBase, m.config.NodeID), 1, true, payload)
}

// handleMessage runs on the MQTT client goroutine; it only validates
// and forwards so every mutation stays on the run loop.
func (m *Module) handleMessage(msg paho.Message) {
	var cmd lens.CommandEnvelope
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		m.log.Warn("invalid command", zap.Error(err))
		return
	}
	select {
	case m.cmds <- cmd:
	default:
		m.log.Warn("command queue full, dropping", zap.String("type", cmd.Type))
	}
}

func (m *Module) handleCommand(ctx context.Context, cmd lens.CommandEnvelope) {
	reply := m.dispatchCommand(ctx, cmd)
	if cmd.ReplyTo == "" {
		return
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		m.log.Error("marshal reply", zap.Error(err))
		return
	}
	if err := m.client.Publish(cmd.ReplyTo, 1, false, payload); err != nil {
		m.log.Error("publish reply", zap.Error(err))
	}
}

func (m *Module) dispatchCommand(ctx context.Context, cmd lens.CommandEnvelope) lens.ReplyEnvelope {
	reply := lens.ReplyEnvelope{
		ID:   cmd.ID,
		Type: "ack",
		OK:   true,
		TS:   time.Now().Unix(),
	}
	switch cmd.Type {
	case "browser.open":
		return m.browserOpen(ctx, cmd, reply)
	case "browser.next":
		return m.browserNavigate(ctx, cmd, reply, DirectionNext)
	case "browser.prev":
		return m.browserNavigate(ctx, cmd, reply, DirectionPrevious)
	case "browser.rescan":
		return m.browserRescan(cmd, reply)
	case "browser.list":
		return m.browserList(cmd, reply)
	default:
		return errorReply(cmd, "INVALID", "unsupported command")
	}
}

func (m *Module) browserOpen(ctx context.Context, cmd lens.CommandEnvelope, reply lens.ReplyEnvelope) lens.ReplyEnvelope {
	var body lens.OpenBody
	if err := json.Unmarshal(cmd.Body, &body); err != nil {
		return errorReply(cmd, "INVALID", "invalid body")
	}
	path, err := filepath.Abs(strings.TrimSpace(body.Path))
	if err != nil || body.Path == "" {
		return errorReply(cmd, "INVALID", "path required")
	}
	if err := m.rescan(path); err != nil {
		return errorReply(cmd, "IO", err.Error())
	}
	m.orch.Open(ctx, path, m.detector.Classify(path))
	m.publishState()
	return withBody(reply, lens.NavigateReply{Target: path, Dispatched: true})
}

func (m *Module) browserNavigate(ctx context.Context, cmd lens.CommandEnvelope, reply lens.ReplyEnvelope, dir Direction) lens.ReplyEnvelope {
	var body lens.NavigateBody
	if len(cmd.Body) > 0 {
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, "INVALID", "invalid body")
		}
	}
	// Tolerate files added or removed since the last scan: a gesture
	// always begins against a fresh index.
	if err := m.rescan(m.scanRoot()); err != nil {
		return errorReply(cmd, "IO", err.Error())
	}
	target, dispatched := m.orch.Navigate(ctx, dir, body.ImagesOnly)
	return withBody(reply, lens.NavigateReply{Target: target, Dispatched: dispatched})
}

func (m *Module) browserRescan(cmd lens.CommandEnvelope, reply lens.ReplyEnvelope) lens.ReplyEnvelope {
	if err := m.rescan(m.scanRoot()); err != nil {
		return errorReply(cmd, "IO", err.Error())
	}
	index := m.orch.Cursor().Index()
	m.publishState()
	return withBody(reply, lens.RescanReply{
		Directory: index.Dir(),
		Length:    int64(index.Len()),
	})
}

func (m *Module) browserList(cmd lens.CommandEnvelope, reply lens.ReplyEnvelope) lens.ReplyEnvelope {
	var body lens.ListBody
	if len(cmd.Body) > 0 {
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, "INVALID", "invalid body")
		}
	}
	cursor := m.orch.Cursor()
	index := cursor.Index()
	if index == nil {
		return withBody(reply, lens.ListReply{})
	}
	pos := cursor.Position()
	entries := index.Entries()
	items := make([]lens.ListEntry, 0, len(entries))
	for i, entry := range entries {
		items = append(items, lens.ListEntry{
			Path:    entry.Path,
			Name:    entry.Name(),
			Kind:    string(entry.Kind),
			Current: pos.Indexed && pos.Index == i,
		})
	}
	window := paginate(items, body.Start, body.Count)
	return withBody(reply, lens.ListReply{
		Entries: window,
		Start:   body.Start,
		Count:   int64(len(window)),
		Total:   int64(len(items)),
	})
}

// rescan rebuilds the index wholesale and re-resolves the cursor
// against it; a confirmed path that disappeared falls back to
// Unresolved rather than keeping a stale position.
func (m *Module) rescan(path string) error {
	index, err := Scan(path, m.order, m.detector)
	if err != nil {
		return err
	}
	m.orch.Cursor().Rebind(index)
	return nil
}

func (m *Module) scanRoot() string {
	if index := m.orch.Cursor().Index(); index != nil {
		return index.Dir()
	}
	return m.config.Path
}

func (m *Module) publishState() {
	m.stateVersion++
	cursor := m.orch.Cursor()
	state := lens.BrowserState{
		StateVersion: m.stateVersion,
		TS:           time.Now().Unix(),
	}
	pos := cursor.Position()
	if entry, ok := cursor.Current(); ok {
		state.Current = &lens.CurrentMediaState{Path: entry.Path, Kind: string(entry.Kind)}
	} else if pos.Path != "" {
		state.Current = &lens.CurrentMediaState{Path: pos.Path, Unresolved: true}
	}
	if index := cursor.Index(); index != nil {
		position := int64(-1)
		if pos.Indexed {
			position = int64(pos.Index)
		}
		state.Index = &lens.IndexState{
			Directory: index.Dir(),
			Position:  position,
			Length:    int64(index.Len()),
			SortOrder: string(index.Order()),
		}
	}
	payload, err := json.Marshal(state)
	if err != nil {
		m.log.Error("marshal state", zap.Error(err))
		return
	}
	if err := m.client.Publish(lens.TopicState(m.config.TopicBase, m.config.NodeID), 1, true, payload); err != nil {
		m.log.Warn("publish state", zap.Error(err))
	}
}

type eventNotifier struct {
	m *Module
}

func (m *Module) notifier() Notifier {
	return eventNotifier{m: m}
}

// Emit publishes a notification on the events topic. Fire and forget:
// a publish failure is logged, never propagated into navigation state.
func (n eventNotifier) Emit(note Notification) {
	m := n.m
	m.log.Info("browser notice",
		zap.String("level", note.Level),
		zap.String("message", note.Message),
		zap.Strings("skipped", note.Skipped))
	event := lens.Event{
		Type:      lens.EventNotice,
		Level:     note.Level,
		Message:   note.Message,
		Skipped:   note.Skipped,
		DismissMS: note.Dismiss.Milliseconds(),
		TS:        time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		m.log.Error("marshal event", zap.Error(err))
		return
	}
	if err := m.client.Publish(lens.TopicEvents(m.config.TopicBase, m.config.NodeID), 1, false, payload); err != nil {
		m.log.Warn("publish event", zap.Error(err))
	}
}

func withBody(reply lens.ReplyEnvelope, body any) lens.ReplyEnvelope {
	payload, _ := json.Marshal(body)
	reply.Body = payload
	return reply
}

func errorReply(cmd lens.CommandEnvelope, code string, message string) lens.ReplyEnvelope {
	return lens.ReplyEnvelope{
		ID:   cmd.ID,
		Type: "error",
		OK:   false,
		TS:   time.Now().Unix(),
		Err:  &lens.ReplyError{Code: code, Message: message},
	}
}

func paginate[T any](items []T, start int64, count int64) []T {
	if start < 0 {
		start = 0
	}
	if count <= 0 {
		count = int64(len(items))
	}
	end := start + count
	if start > int64(len(items)) {
		return nil
	}
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}
