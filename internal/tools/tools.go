package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/conduitchat/conduit/internal/chat"
	"github.com/conduitchat/conduit/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

// Registry tool names
const (
	NameSearch       = "search"
	NameWikipedia    = "wikipedia"
	NameSerpAPIQuery = "serpApiQuery"
	NameTravelGuide  = "travelGuide"
)

// ErrUnknownTool is returned when a request enables a name that is not in
// the registry.
var ErrUnknownTool = errors.New("unknown tool")

// Tool is one capability the agent may invoke. Definition describes the
// tool to the model; Invoke runs it with the model's raw JSON arguments.
type Tool interface {
	Definition() openai.FunctionDefinition
	Invoke(ctx context.Context, args string) (string, error)
}

// Registry holds the fixed catalog of opt-in tools. The search and
// Wikipedia tools are always active and live outside the registry; registry
// entries only join a run when a request names them with active=true.
type Registry struct {
	defaults []Tool
	optIn    map[string]Tool
}

// NewRegistry builds the catalog from configuration. httpClient is shared
// by all HTTP-backed tools; nil selects a client with a sane timeout.
func NewRegistry(cfg *config.ToolsConfig, httpClient *http.Client) *Registry {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	search := NewSearchTool(cfg.SerpAPIKey, httpClient)
	wikipedia := NewWikipediaTool(httpClient)

	return &Registry{
		defaults: []Tool{search, wikipedia},
		optIn: map[string]Tool{
			NameSerpAPIQuery: NewSerpAPIQueryTool(cfg.SerpAPIKey, httpClient),
			NameTravelGuide:  NewTravelGuideTool(cfg.TravelGuideBaseURL, httpClient),
		},
	}
}

// Resolve returns the active tool set for a request: the always-included
// defaults plus every registry entry a descriptor enables. A descriptor
// naming something outside the registry fails the whole request with
// ErrUnknownTool; inactive descriptors are ignored, even for unknown names
// the registry could never serve.
func (r *Registry) Resolve(descriptors []chat.ToolDescriptor) ([]Tool, error) {
	active := make([]Tool, 0, len(r.defaults)+len(descriptors))
	active = append(active, r.defaults...)

	for _, d := range descriptors {
		if !d.Active {
			continue
		}
		tool, ok := r.optIn[d.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTool, d.Name)
		}
		active = append(active, tool)
	}
	return active, nil
}

// Names returns the names of the given tools, in order
func Names(ts []Tool) []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Definition().Name
	}
	return names
}
