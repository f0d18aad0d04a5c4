package tools

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/conduitchat/conduit/internal/chat"
	"github.com/conduitchat/conduit/internal/config"
)

func testRegistry() *Registry {
	cfg := &config.ToolsConfig{
		SerpAPIKey:         "serp-test",
		TravelGuideBaseURL: "http://travel.test",
	}
	return NewRegistry(cfg, &http.Client{Timeout: time.Second})
}

func TestResolve_DefaultsAlwaysPresent(t *testing.T) {
	r := testRegistry()

	active, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	names := Names(active)
	if len(names) != 2 || names[0] != NameSearch || names[1] != NameWikipedia {
		t.Errorf("Expected only the default search and wikipedia tools, got %v", names)
	}
}

func TestResolve_InactiveDescriptorExcluded(t *testing.T) {
	r := testRegistry()

	active, err := r.Resolve([]chat.ToolDescriptor{
		{Name: NameSerpAPIQuery, Active: false},
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	for _, name := range Names(active) {
		if name == NameSerpAPIQuery {
			t.Error("Inactive serpApiQuery descriptor must not activate the tool")
		}
	}

	names := Names(active)
	if len(names) != 2 || names[0] != NameSearch || names[1] != NameWikipedia {
		t.Errorf("Default tools must remain present, got %v", names)
	}
}

func TestResolve_ActiveOptInsIncluded(t *testing.T) {
	r := testRegistry()

	active, err := r.Resolve([]chat.ToolDescriptor{
		{Name: NameSerpAPIQuery, Active: true},
		{Name: NameTravelGuide, Active: true},
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	names := Names(active)
	want := []string{NameSearch, NameWikipedia, NameSerpAPIQuery, NameTravelGuide}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestResolve_UnknownNameFails(t *testing.T) {
	r := testRegistry()

	_, err := r.Resolve([]chat.ToolDescriptor{
		{Name: "calculator", Active: true},
	})
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Expected ErrUnknownTool, got %v", err)
	}
}

func TestResolve_UnknownButInactiveIgnored(t *testing.T) {
	r := testRegistry()

	if _, err := r.Resolve([]chat.ToolDescriptor{
		{Name: "calculator", Active: false},
	}); err != nil {
		t.Fatalf("Inactive descriptors must not be validated, got error: %v", err)
	}
}
