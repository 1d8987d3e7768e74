package core

import (
	"context"
	"testing"

	"github.com/Bawycle/lens/pkg/lens"
)

func TestResolverAlias(t *testing.T) {
	presence := []lens.Presence{{NodeID: "lens:browser:one", Kind: "browser", Name: "Photo Frame"}}
	resolver := Resolver{
		Presence: &fakeBroker{presence: presence},
		Config: Config{
			Aliases: map[string]string{"frame": "lens:browser:one"},
		},
	}
	got, err := resolver.ResolveBrowser(context.Background(), "frame")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.NodeID != "lens:browser:one" {
		t.Fatalf("expected alias resolution")
	}
}

func TestResolverByName(t *testing.T) {
	presence := []lens.Presence{
		{NodeID: "lens:browser:one", Kind: "browser", Name: "Photo Frame"},
		{NodeID: "lens:browser:two", Kind: "browser", Name: "Bedroom"},
	}
	resolver := Resolver{Presence: &fakeBroker{presence: presence}}
	got, err := resolver.ResolveBrowser(context.Background(), "bedroom")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.NodeID != "lens:browser:two" {
		t.Fatalf("expected name match, got %s", got.NodeID)
	}
}

func TestResolverAmbiguous(t *testing.T) {
	presence := []lens.Presence{
		{NodeID: "lens:browser:one", Kind: "browser", Name: "Photo Frame"},
		{NodeID: "lens:browser:two", Kind: "browser", Name: "Photo Frame"},
	}
	resolver := Resolver{Presence: &fakeBroker{presence: presence}}
	_, err := resolver.ResolveBrowser(context.Background(), "Photo Frame")
	if err == nil {
		t.Fatalf("expected ambiguous error")
	}
}

func TestResolverSingleNodeDefault(t *testing.T) {
	presence := []lens.Presence{{NodeID: "lens:browser:one", Kind: "browser", Name: "Photo Frame"}}
	resolver := Resolver{Presence: &fakeBroker{presence: presence}}
	got, err := resolver.ResolveBrowser(context.Background(), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.NodeID != "lens:browser:one" {
		t.Fatalf("expected lone browser")
	}
}

func TestResolverIgnoresOtherKinds(t *testing.T) {
	presence := []lens.Presence{
		{NodeID: "lens:broker:b", Kind: "broker", Name: "Broker"},
		{NodeID: "lens:browser:one", Kind: "browser", Name: "Photo Frame"},
	}
	resolver := Resolver{Presence: &fakeBroker{presence: presence}}
	got, err := resolver.ResolveBrowser(context.Background(), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.NodeID != "lens:browser:one" {
		t.Fatalf("kind filter failed, got %s", got.NodeID)
	}
}
