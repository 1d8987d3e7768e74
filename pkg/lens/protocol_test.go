package lens

import "testing"

func TestValidateCommandEnvelope(t *testing.T) {
	cmd, err := NewCommand("browser.open", OpenBody{Path: "/media/a.jpg"})
	if err != nil {
		t.Fatalf("new command: %v", err)
	}
	if err := ValidateCommandEnvelope(cmd); err == nil {
		t.Fatalf("expected error for missing fields")
	}

	cmd.ID = "id"
	cmd.TS = 1
	cmd.From = "tester"
	if err := ValidateCommandEnvelope(cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCommandEnvelopeMissingFields(t *testing.T) {
	cmd := CommandEnvelope{}
	if err := ValidateCommandEnvelope(cmd); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTopics(t *testing.T) {
	if got := TopicCommands(BaseTopic, "n1"); got != "lens/v1/node/n1/cmd" {
		t.Fatalf("unexpected command topic %q", got)
	}
	if got := TopicState(BaseTopic, "n1"); got != "lens/v1/node/n1/state" {
		t.Fatalf("unexpected state topic %q", got)
	}
	if got := TopicReply(BaseTopic, "c1"); got != "lens/v1/reply/c1" {
		t.Fatalf("unexpected reply topic %q", got)
	}
}
