package core

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != ExitOK {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := ExitCode(&CLIError{Code: ExitNotFound, Msg: "missing"}); got != ExitNotFound {
		t.Fatalf("expected %d, got %d", ExitNotFound, got)
	}
	if got := ExitCode(errors.New("plain")); got != ExitRuntime {
		t.Fatalf("expected runtime exit, got %d", got)
	}
}

func TestErrorForReplyCode(t *testing.T) {
	cases := map[string]int{
		"NOT_FOUND": ExitNotFound,
		"INVALID":   ExitUsage,
		"IO":        ExitIO,
		"OTHER":     ExitRuntime,
	}
	for code, want := range cases {
		if got := ErrorForReplyCode(code, "msg").Code; got != want {
			t.Fatalf("code %s: expected %d, got %d", code, want, got)
		}
	}
}

func TestCLIErrorMessage(t *testing.T) {
	err := WrapError(ExitRuntime, "do thing", errors.New("boom"))
	if err.Error() != "do thing: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
