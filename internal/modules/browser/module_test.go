package browser

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/Bawycle/lens/pkg/lens"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	published  []published
	subscribed []string
	handler    paho.MessageHandler
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload []byte) error {
	c.published = append(c.published, published{topic: topic, retained: retained, payload: payload})
	return nil
}

func (c *fakeClient) Subscribe(topic string, _ byte, handler paho.MessageHandler) error {
	c.subscribed = append(c.subscribed, topic)
	c.handler = handler
	return nil
}

func (c *fakeClient) Unsubscribe(_ string) error { return nil }

func (c *fakeClient) onTopic(topic string) []published {
	var out []published
	for _, p := range c.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func newTestModule(t *testing.T) (*Module, *fakeClient, *fakeLoader, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg")
	writeFile(t, dir, "b.jpg")
	writeFile(t, dir, "c.mp4")

	client := &fakeClient{}
	loader := &fakeLoader{}
	module, err := NewModule(nil, client, loader, make(chan LoadResult), Config{
		NodeID: "pics",
		Path:   dir,
	})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}

	index, err := Scan(dir, module.order, module.detector)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	cursor := NewCursor(index, filepath.Join(dir, "a.jpg"))
	module.orch = NewOrchestrator(module.log, cursor, loader, module.notifier(), module.config.MaxSkipAttempts, module.dismiss)
	return module, client, loader, dir
}

func decodeReply[T any](t *testing.T, reply lens.ReplyEnvelope) T {
	t.Helper()
	if !reply.OK {
		t.Fatalf("expected ok reply, got %+v", reply.Err)
	}
	var body T
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		t.Fatalf("decode reply body: %v", err)
	}
	return body
}

func TestNewModuleValidation(t *testing.T) {
	if _, err := NewModule(nil, &fakeClient{}, &fakeLoader{}, nil, Config{Path: "/m"}); err == nil {
		t.Fatalf("expected node_id error")
	}
	if _, err := NewModule(nil, &fakeClient{}, &fakeLoader{}, nil, Config{NodeID: "pics"}); err == nil {
		t.Fatalf("expected path error")
	}
	if _, err := NewModule(nil, &fakeClient{}, &fakeLoader{}, nil, Config{NodeID: "pics", Path: "/m", SortOrder: "random"}); err == nil {
		t.Fatalf("expected sort order error")
	}

	module, err := NewModule(nil, &fakeClient{}, &fakeLoader{}, nil, Config{NodeID: "pics", Path: "/m"})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	if module.config.MaxSkipAttempts != 5 || module.dismiss != 5*time.Second {
		t.Fatalf("defaults not applied: %+v", module.config)
	}
	if module.config.MaxSkipAttempts > maxSkipAttemptsCap {
		t.Fatalf("cap exceeded")
	}
}

func TestBrowserListMarksCurrent(t *testing.T) {
	module, _, _, dir := newTestModule(t)

	reply := module.dispatchCommand(context.Background(), lens.CommandEnvelope{ID: "1", Type: "browser.list"})
	body := decodeReply[lens.ListReply](t, reply)

	if body.Total != 3 || len(body.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", body)
	}
	if body.Entries[0].Path != filepath.Join(dir, "a.jpg") || !body.Entries[0].Current {
		t.Fatalf("expected a.jpg current, got %+v", body.Entries[0])
	}
	if body.Entries[2].Kind != string(KindVideo) {
		t.Fatalf("expected video kind, got %+v", body.Entries[2])
	}
}

func TestBrowserListPagination(t *testing.T) {
	module, _, _, _ := newTestModule(t)

	cmd, err := lens.NewCommand("browser.list", lens.ListBody{Start: 1, Count: 1})
	if err != nil {
		t.Fatalf("new command: %v", err)
	}
	body := decodeReply[lens.ListReply](t, module.dispatchCommand(context.Background(), cmd))

	if body.Total != 3 || body.Count != 1 || len(body.Entries) != 1 {
		t.Fatalf("unexpected page: %+v", body)
	}
	if body.Entries[0].Name != "b.jpg" {
		t.Fatalf("expected b.jpg, got %s", body.Entries[0].Name)
	}
}

func TestBrowserNextDispatchesAndConfirms(t *testing.T) {
	module, client, loader, dir := newTestModule(t)

	reply := module.dispatchCommand(context.Background(), lens.CommandEnvelope{ID: "1", Type: "browser.next"})
	body := decodeReply[lens.NavigateReply](t, reply)

	want := filepath.Join(dir, "b.jpg")
	if !body.Dispatched || body.Target != want {
		t.Fatalf("expected dispatch of %s, got %+v", want, body)
	}
	if loader.last(t).Path != want {
		t.Fatalf("loader did not receive %s", want)
	}

	req := loader.last(t)
	module.handleResult(context.Background(), LoadResult{Path: req.Path, Generation: req.Generation})

	states := client.onTopic(lens.TopicState(lens.BaseTopic, "pics"))
	if len(states) == 0 {
		t.Fatalf("expected retained state publish")
	}
	last := states[len(states)-1]
	if !last.retained {
		t.Fatalf("state must be retained")
	}
	var state lens.BrowserState
	if err := json.Unmarshal(last.payload, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Current == nil || state.Current.Path != want {
		t.Fatalf("expected current %s, got %+v", want, state.Current)
	}
	if state.Index == nil || state.Index.Position != 1 || state.Index.Length != 3 {
		t.Fatalf("unexpected index state %+v", state.Index)
	}
}

func TestBrowserOpenRequiresPath(t *testing.T) {
	module, _, _, _ := newTestModule(t)

	cmd, _ := lens.NewCommand("browser.open", lens.OpenBody{})
	reply := module.dispatchCommand(context.Background(), cmd)
	if reply.OK || reply.Err == nil || reply.Err.Code != "INVALID" {
		t.Fatalf("expected INVALID, got %+v", reply)
	}
}

func TestBrowserOpenSwitchesDirectory(t *testing.T) {
	module, _, loader, _ := newTestModule(t)

	other := t.TempDir()
	target := writeFile(t, other, "z.jpg")
	writeFile(t, other, "y.jpg")

	cmd, _ := lens.NewCommand("browser.open", lens.OpenBody{Path: target})
	body := decodeReply[lens.NavigateReply](t, module.dispatchCommand(context.Background(), cmd))
	if body.Target != target || !body.Dispatched {
		t.Fatalf("unexpected reply %+v", body)
	}
	if loader.last(t).Path != target {
		t.Fatalf("loader did not receive %s", target)
	}
	if got := module.orch.Cursor().Index().Dir(); got != other {
		t.Fatalf("expected index over %s, got %s", other, got)
	}
}

func TestBrowserRescanPicksUpNewFiles(t *testing.T) {
	module, _, _, dir := newTestModule(t)
	writeFile(t, dir, "d.jpg")

	reply := module.dispatchCommand(context.Background(), lens.CommandEnvelope{ID: "1", Type: "browser.rescan"})
	body := decodeReply[lens.RescanReply](t, reply)
	if body.Length != 4 || body.Directory != dir {
		t.Fatalf("unexpected rescan reply %+v", body)
	}
}

func TestNavigateRescansBeforeGesture(t *testing.T) {
	module, _, loader, dir := newTestModule(t)

	// A file created after the initial scan must become the immediate
	// next target, not wait for an explicit rescan.
	added := writeFile(t, dir, "ab.jpg")
	body := decodeReply[lens.NavigateReply](t, module.dispatchCommand(context.Background(), lens.CommandEnvelope{ID: "1", Type: "browser.next"}))
	if body.Target != added {
		t.Fatalf("expected %s, got %s", added, body.Target)
	}
	if loader.last(t).Path != added {
		t.Fatalf("loader did not receive %s", added)
	}
}

func TestUnsupportedCommand(t *testing.T) {
	module, _, _, _ := newTestModule(t)

	reply := module.dispatchCommand(context.Background(), lens.CommandEnvelope{ID: "1", Type: "browser.shuffle"})
	if reply.OK || reply.Err == nil || reply.Err.Code != "INVALID" {
		t.Fatalf("expected INVALID, got %+v", reply)
	}
}

func TestHandleMessageForwardsToRunLoop(t *testing.T) {
	module, _, _, _ := newTestModule(t)

	cmd, _ := lens.NewCommand("browser.next", lens.NavigateBody{})
	cmd.ID = "42"
	payload, _ := json.Marshal(cmd)
	module.handleMessage(stubMessage{payload: payload})

	select {
	case got := <-module.cmds:
		if got.ID != "42" || got.Type != "browser.next" {
			t.Fatalf("unexpected command %+v", got)
		}
	default:
		t.Fatalf("command not queued")
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	module, _, _, _ := newTestModule(t)

	module.handleMessage(stubMessage{payload: []byte("{nope")})
	select {
	case got := <-module.cmds:
		t.Fatalf("garbage forwarded: %+v", got)
	default:
	}
}

func TestEventNotifierPublishes(t *testing.T) {
	module, client, _, _ := newTestModule(t)

	module.notifier().Emit(Notification{
		Level:   LevelWarning,
		Message: "skipped 1 unreadable file: a.jpg",
		Skipped: []string{"a.jpg"},
		Dismiss: 5 * time.Second,
	})

	events := client.onTopic(lens.TopicEvents(lens.BaseTopic, "pics"))
	if len(events) != 1 {
		t.Fatalf("expected one event publish, got %d", len(events))
	}
	var event lens.Event
	if err := json.Unmarshal(events[0].payload, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Type != lens.EventNotice || event.Level != lens.LevelWarning || event.DismissMS != 5000 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := paginate(items, 0, 0); len(got) != 5 {
		t.Fatalf("expected all items, got %v", got)
	}
	if got := paginate(items, 3, 10); len(got) != 2 || got[0] != 4 {
		t.Fatalf("expected tail, got %v", got)
	}
	if got := paginate(items, 9, 2); got != nil {
		t.Fatalf("expected nil past end, got %v", got)
	}
}

type stubMessage struct {
	payload []byte
}

func (m stubMessage) Duplicate() bool   { return false }
func (m stubMessage) Qos() byte         { return 1 }
func (m stubMessage) Retained() bool    { return false }
func (m stubMessage) Topic() string     { return "" }
func (m stubMessage) MessageID() uint16 { return 0 }
func (m stubMessage) Payload() []byte   { return m.payload }
func (m stubMessage) Ack()              {}
