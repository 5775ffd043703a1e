package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretaker-ai/caretaker/internal/config"
	"github.com/caretaker-ai/caretaker/internal/graph"
	"github.com/caretaker-ai/caretaker/internal/memory"
	"github.com/caretaker-ai/caretaker/internal/profile"
	"github.com/caretaker-ai/caretaker/internal/router"
	"github.com/caretaker-ai/caretaker/internal/stream"
	"github.com/caretaker-ai/caretaker/internal/websearch"
)

type fragmentGateway struct {
	answers map[string]string
}

func (g *fragmentGateway) Generate(_ context.Context, system, _ string, _ float64) (string, error) {
	for fragment, reply := range g.answers {
		if strings.Contains(system, fragment) {
			return reply, nil
		}
	}
	return "", errors.New("unmatched system prompt")
}

type stubSearcher struct {
	results []websearch.Result
}

func (s *stubSearcher) Search(context.Context, string) ([]websearch.Result, error) {
	return s.results, nil
}

type stubReasoner struct{}

func (stubReasoner) Reason(context.Context, string) (string, error) {
	return "reasoned answer", nil
}

type noopEmbedder struct{}

func (noopEmbedder) Encode(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}
func (noopEmbedder) ModelName() string { return "noop" }

func newTestRouter(route string) *gin.Engine {
	gw := &fragmentGateway{answers: map[string]string{
		"request classifier":   route,
		"references any field": "no",
		"are relevant":         "no",
		"meaningful to store":  "no",
		"first-person":         "first-person rewrite",
		"third-person":         "third-person rewrite",
	}}

	store := memory.NewStore(noopEmbedder{})
	g := graph.New(graph.Deps{
		Gateway:     gw,
		Tagger:      router.NewTagger(gw),
		ProfileTool: profile.NewTool(gw),
		Store:       store,
		Precheck:    memory.NewPrecheck(gw, store),
		Search:      &stubSearcher{results: []websearch.Result{{Snippet: "Cloudy, 12C"}}},
		Medical:     stubReasoner{},
	})

	handler := NewHandler(g, time.Second)
	return NewRouter(config.ServerConfig{AllowedOrigins: []string{"*"}}, handler)
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	engine := newTestRouter("text")

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAgent_MissingPrompt(t *testing.T) {
	engine := newTestRouter("text")

	w := postJSON(t, engine, "/api/agent", map[string]any{"patientProfile": map[string]any{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing prompt")
}

func TestAgent_InvalidBody(t *testing.T) {
	engine := newTestRouter("text")

	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestAgent_ResponseShape(t *testing.T) {
	engine := newTestRouter("text")

	w := postJSON(t, engine, "/api/agent", map[string]any{
		"prompt":         "hello there",
		"patientProfile": map[string]any{"name": "A"},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// The profile comes back nested and fully defaulted.
	prof, ok := resp["updatedPatientProfile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A", prof["name"])
	treatment, ok := prof["treatment"].(map[string]any)
	require.True(t, ok, "defaults must materialize the treatment mapping")
	for _, key := range []string{"medicationList", "dailyChecklist", "appointment", "recommendations", "sleepHours", "sleepQuality"} {
		assert.Contains(t, treatment, key)
	}

	// The legacy capitalized key is part of the contract.
	assert.Contains(t, resp, "Updates")
	assert.Contains(t, resp, "updatedMemory")
	assert.Equal(t, "", resp["extraInfo"])
}

func TestAgent_MedicalAnswer(t *testing.T) {
	engine := newTestRouter("medical")

	w := postJSON(t, engine, "/api/agent", map[string]any{
		"prompt": "can I take ibuprofen with warfarin?",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp AgentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "reasoned answer", resp.ExtraInfo)
	require.Len(t, resp.UpdatedMemory, 1, "medical utterances are stored")
}

func TestAgentStream_FinalResult(t *testing.T) {
	engine := newTestRouter("web")

	w := postJSON(t, engine, "/api/agent/stream", map[string]any{
		"prompt": "weather in oslo?",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	envelopes := parseSSE(t, w.Body.String())
	require.NotEmpty(t, envelopes)

	last := envelopes[len(envelopes)-1]
	assert.Equal(t, stream.TypeFinalResult, last.Type)
	assert.NotEmpty(t, last.Timestamp)

	payload, err := json.Marshal(last.Data)
	require.NoError(t, err)
	var result StreamResult
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.Equal(t, "web", result.Function)
	assert.Equal(t, "third-person rewrite", result.ExtraInfo)

	// Intermediate envelopes precede the terminal one.
	types := make([]string, 0, len(envelopes))
	for _, env := range envelopes {
		types = append(types, env.Type)
	}
	assert.Contains(t, types, "tagger")
	assert.Contains(t, types, "web_search")
}

func TestAgentStream_MissingPrompt(t *testing.T) {
	engine := newTestRouter("web")

	w := postJSON(t, engine, "/api/agent/stream", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func parseSSE(t *testing.T, body string) []stream.Envelope {
	t.Helper()
	var envelopes []stream.Envelope
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var env stream.Envelope
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &env))
		envelopes = append(envelopes, env)
	}
	return envelopes
}
