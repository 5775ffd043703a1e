package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/graph"
	"github.com/caretaker-ai/caretaker/internal/state"
	"github.com/caretaker-ai/caretaker/internal/stream"
)

// Handler serves the agent endpoints over one orchestration graph.
type Handler struct {
	graph        *graph.Graph
	pollInterval time.Duration
}

// NewHandler creates the handler. pollInterval controls how long the SSE
// loop waits for an envelope before emitting a keepalive.
func NewHandler(g *graph.Graph, pollInterval time.Duration) *Handler {
	if pollInterval == 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Handler{graph: g, pollInterval: pollInterval}
}

// HealthCheck responds to liveness probes.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Agent handles POST /api/agent: run the graph synchronously and return the
// updated profile, memory, updates log, and extra-info answer.
func (h *Handler) Agent(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	st := newAgentState(req)
	defer h.recoverInternal(c)

	h.graph.Run(c.Request.Context(), st, nil)
	c.JSON(http.StatusOK, newAgentResponse(st))
}

// AgentStream handles POST /api/agent/stream: run the graph with a
// per-request envelope queue and drain it as Server-Sent Events, emitting
// keepalives while idle and terminating on the first final_result or error
// envelope.
func (h *Handler) AgentStream(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	st := newAgentState(req)
	em := stream.NewEmitter(64)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("server: graph panicked")
				em.Error(fmt.Errorf("internal error: %v", r))
			}
		}()

		h.graph.Run(c.Request.Context(), st, em)
		em.Final(StreamResult{
			UpdatedPatientProfile: state.ApplyDefaults(state.Nest(st.Profile)),
			UpdatedMemory:         st.Memory,
			Updates:               st.Updates,
			ExtraInfo:             st.FinalAnswer,
			Function:              st.Route.String(),
		})
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return

		case env, open := <-em.C():
			if !open {
				return
			}
			writeEvent(c, env)
			if env.Type == stream.TypeFinalResult || env.Type == stream.TypeError {
				return
			}

		case <-ticker.C:
			writeEvent(c, stream.Envelope{Type: stream.TypeKeepalive})
		}
	}
}

// bindRequest decodes and validates the shared request body. A missing or
// non-object payload and a missing prompt both yield 400.
func (h *Handler) bindRequest(c *gin.Context) (*AgentRequest, bool) {
	var req AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing prompt"})
		return nil, false
	}
	return &req, true
}

// recoverInternal converts an uncaught panic into a 500 with the stringified
// cause.
func (h *Handler) recoverInternal(c *gin.Context) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Msg("server: request panicked")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%v", r)})
	}
}

func writeEvent(c *gin.Context, env stream.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("server: marshal envelope")
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	c.Writer.Flush()
}
