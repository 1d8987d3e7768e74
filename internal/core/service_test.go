package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Bawycle/lens/pkg/lens"
)

type fakeBroker struct {
	presence  []lens.Presence
	state     lens.BrowserState
	reply     lens.ReplyEnvelope
	published []lens.CommandEnvelope
	toNode    []string
}

func (f *fakeBroker) ReplyTopic() string { return "lens/v1/reply/test" }

func (f *fakeBroker) PublishCommand(_ context.Context, nodeID string, cmd lens.CommandEnvelope) (lens.ReplyEnvelope, error) {
	f.published = append(f.published, cmd)
	f.toNode = append(f.toNode, nodeID)
	return f.reply, nil
}

func (f *fakeBroker) ListPresence(_ context.Context) ([]lens.Presence, error) {
	return f.presence, nil
}

func (f *fakeBroker) GetBrowserState(_ context.Context, _ string) (lens.BrowserState, error) {
	return f.state, nil
}

func (f *fakeBroker) WatchBrowser(_ context.Context, _ string) (<-chan lens.BrowserState, <-chan lens.Event, <-chan error) {
	stateCh := make(chan lens.BrowserState)
	eventCh := make(chan lens.Event)
	errCh := make(chan error)
	close(stateCh)
	close(eventCh)
	close(errCh)
	return stateCh, eventCh, errCh
}

type fixedClock struct{}

func (fixedClock) NowUnix() int64 { return 1700000000 }

type fixedIDGen struct{}

func (fixedIDGen) NewID() string { return "id-1" }

func okReply(t *testing.T, body any) lens.ReplyEnvelope {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	return lens.ReplyEnvelope{ID: "id-1", Type: "ack", OK: true, Body: payload}
}

func newTestService(broker *fakeBroker) Service {
	cfg := Config{Identity: "tester@host"}
	return Service{
		Broker:   broker,
		Resolver: Resolver{Presence: broker, Config: cfg},
		Clock:    fixedClock{},
		IDGen:    fixedIDGen{},
		Config:   cfg,
	}
}

func browserPresence() []lens.Presence {
	return []lens.Presence{{NodeID: "lens:browser:pics", Kind: "browser", Name: "Photo Frame"}}
}

func TestNextDecoratesAndTargets(t *testing.T) {
	broker := &fakeBroker{presence: browserPresence()}
	broker.reply = okReply(t, lens.NavigateReply{Target: "/m/b.jpg", Dispatched: true})

	result, err := newTestService(broker).Next(context.Background(), "", true)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if result.Target != "/m/b.jpg" || !result.Dispatched {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(broker.published) != 1 || broker.toNode[0] != "lens:browser:pics" {
		t.Fatalf("command not published to browser node")
	}

	cmd := broker.published[0]
	if cmd.ID != "id-1" || cmd.From != "tester@host" || cmd.TS != 1700000000 {
		t.Fatalf("command not decorated: %+v", cmd)
	}
	if cmd.ReplyTo != "lens/v1/reply/test" || cmd.Type != "browser.next" {
		t.Fatalf("unexpected envelope: %+v", cmd)
	}
	var body lens.NavigateBody
	if err := json.Unmarshal(cmd.Body, &body); err != nil || !body.ImagesOnly {
		t.Fatalf("images-only flag lost: %+v err=%v", body, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	broker := &fakeBroker{presence: browserPresence()}
	_, err := newTestService(broker).Open(context.Background(), "", "  ")
	if ExitCode(err) != ExitUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
	if len(broker.published) != 0 {
		t.Fatalf("nothing should be published")
	}
}

func TestReplyErrorMapsToExitCode(t *testing.T) {
	broker := &fakeBroker{presence: browserPresence()}
	broker.reply = lens.ReplyEnvelope{
		ID:  "id-1",
		Err: &lens.ReplyError{Code: "IO", Message: "scan failed"},
	}

	_, err := newTestService(broker).Rescan(context.Background(), "")
	if ExitCode(err) != ExitIO {
		t.Fatalf("expected IO exit, got %v", err)
	}
}

func TestListDecodesPage(t *testing.T) {
	broker := &fakeBroker{presence: browserPresence()}
	broker.reply = okReply(t, lens.ListReply{
		Entries: []lens.ListEntry{{Path: "/m/a.jpg", Name: "a.jpg", Kind: "image", Current: true}},
		Start:   0,
		Count:   1,
		Total:   3,
	})

	result, err := newTestService(broker).List(context.Background(), "", 0, 1, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Listing.Total != 3 || len(result.Listing.Entries) != 1 {
		t.Fatalf("unexpected listing %+v", result.Listing)
	}
	if !result.Listing.Entries[0].Current {
		t.Fatalf("current flag lost")
	}
}

func TestStatusReturnsRetainedState(t *testing.T) {
	broker := &fakeBroker{presence: browserPresence()}
	broker.state = lens.BrowserState{
		Current: &lens.CurrentMediaState{Path: "/m/a.jpg", Kind: "image"},
		Index:   &lens.IndexState{Directory: "/m", Position: 0, Length: 3},
	}

	result, err := newTestService(broker).Status(context.Background(), "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if result.Browser.NodeID != "lens:browser:pics" {
		t.Fatalf("wrong browser %+v", result.Browser)
	}
	if result.State.Current == nil || result.State.Current.Path != "/m/a.jpg" {
		t.Fatalf("state missing: %+v", result.State)
	}
}

func TestListNodesFiltersKind(t *testing.T) {
	broker := &fakeBroker{presence: []lens.Presence{
		{NodeID: "lens:browser:pics", Kind: "browser", TS: 1},
		{NodeID: "lens:broker:b", Kind: "broker", TS: 1},
	}}

	result, err := newTestService(broker).ListNodes(context.Background(), "browser", true)
	if err != nil {
		t.Fatalf("list nodes: %v", err)
	}
	if len(result.Nodes) != 1 || result.Nodes[0].NodeID != "lens:browser:pics" {
		t.Fatalf("unexpected nodes %+v", result.Nodes)
	}
}
