package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/conduitchat/conduit/internal/agent"
	"github.com/conduitchat/conduit/internal/chat"
	"github.com/conduitchat/conduit/internal/completion"
	apierrors "github.com/conduitchat/conduit/internal/errors"
	"github.com/conduitchat/conduit/internal/logging"
	"github.com/conduitchat/conduit/internal/middleware"
	"github.com/conduitchat/conduit/internal/monitoring"
	"github.com/conduitchat/conduit/internal/tools"
	"github.com/gin-gonic/gin"
)

// agentRunner lets handler tests substitute the model-driven agent loop
type agentRunner interface {
	Run(ctx context.Context, query string) (*agent.Result, error)
}

// handleChat serves POST /api/v1/chat. The selected model routes the
// request: "claude-2" streams a raw completion straight through, anything
// else runs the tool-using agent and re-streams its final answer.
func (s *APIServer) handleChat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.ErrInvalidRequestError.WithDetails(err.Error()))
		return
	}

	if req.UseDirectCompletion() {
		s.chatCompletion(c, &req)
		return
	}
	s.chatAgent(c, &req)
}

// chatCompletion streams the provider's completion chunks to the client as
// they arrive. Provider errors raised before the first chunk pass through
// verbatim: same status code, same body.
func (s *APIServer) chatCompletion(c *gin.Context, req *chat.Request) {
	prompt := chat.BuildPrompt(req.Messages)

	writer := newChunkWriter(c)
	start := time.Now()
	err := s.completion.Stream(c.Request.Context(), prompt, writer.write)
	monitoring.ObserveProviderCall("anthropic", s.config.Completion.Model, start, err)
	logging.LogProviderCall(&logging.ProviderCallEntry{
		RequestID: middleware.GetRequestID(c),
		Provider:  "anthropic",
		Model:     s.config.Completion.Model,
		Path:      "completion",
		Latency:   time.Since(start),
		Status:    callStatus(err),
	})
	if err == nil {
		return
	}

	var pe *completion.ProviderError
	if errors.As(err, &pe) && !writer.started {
		c.Data(pe.StatusCode, "application/json", pe.Body)
		return
	}

	logging.LogError(err, middleware.GetRequestID(c), "server", "completion_stream")
	if !writer.started {
		respondError(c, apierrors.ErrUpstreamUnavailableError)
		return
	}
	// Mid-stream failure: the status line is gone, all we can do is stop.
	c.Abort()
}

// chatAgent decodes attachments, optionally augments the query from the
// knowledge store, resolves the active tool set, runs the agent, and
// re-streams the final answer word by word.
func (s *APIServer) chatAgent(c *gin.Context, req *chat.Request) {
	requestID := middleware.GetRequestID(c)
	query := req.LastMessage()

	attachments, err := chat.DecodeAttachments(req.Files)
	if err != nil {
		respondError(c, apierrors.ErrInvalidBase64Error.WithDetails(err.Error()))
		return
	}

	if len(attachments) > 0 {
		if s.augmenter == nil {
			respondError(c, apierrors.ErrKnowledgeStoreError.WithDetails("knowledge store is not configured"))
			return
		}
		query, err = s.augmenter.Augment(c.Request.Context(), query, attachments)
		if err != nil {
			logging.LogError(err, requestID, "server", "augment")
			respondError(c, apierrors.ErrKnowledgeStoreError)
			return
		}
	}

	toolset, err := s.registry.Resolve(req.Functions)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			respondError(c, apierrors.ErrUnknownToolError.WithDetails(err.Error()))
			return
		}
		logging.LogError(err, requestID, "server", "resolve_tools")
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	start := time.Now()
	result, err := s.newAgent(toolset).Run(c.Request.Context(), query)
	entry := &logging.ProviderCallEntry{
		RequestID: requestID,
		Provider:  "openai",
		Model:     s.config.Agent.ChatModel,
		Path:      "agent",
		Latency:   time.Since(start),
		Status:    callStatus(err),
	}
	if result != nil {
		entry.ToolCalls = result.ToolCalls
	}
	logging.LogProviderCall(entry)
	if err != nil {
		logging.LogError(err, requestID, "server", "agent_run")
		respondError(c, apierrors.ErrUpstreamUnavailableError)
		return
	}

	writer := newChunkWriter(c)
	if err := s.streamer.Words(c.Request.Context(), result.Answer, writer.write); err != nil {
		logging.LogError(err, requestID, "server", "stream_answer")
		c.Abort()
	}
}

func callStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// chunkWriter flushes each chunk to the client immediately so output is
// incremental. Headers are committed lazily on the first chunk, which is
// what lets pre-stream failures still choose their own status code.
type chunkWriter struct {
	c       *gin.Context
	started bool
}

func newChunkWriter(c *gin.Context) *chunkWriter {
	return &chunkWriter{c: c}
}

func (w *chunkWriter) write(chunk string) error {
	if !w.started {
		w.c.Header("Content-Type", "text/plain; charset=utf-8")
		w.c.Header("Cache-Control", "no-cache")
		w.c.Header("X-Accel-Buffering", "no")
		w.c.Status(http.StatusOK)
		w.started = true
	}

	if _, err := w.c.Writer.WriteString(chunk); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}
