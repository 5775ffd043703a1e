// Package graph composes the request classification and the processing
// branches into the orchestration state machine. The tagger runs first; its
// result fans out into a side-effect-only voice branch and a processing
// branch, and the HTTP boundary joins only on the processing branch.
package graph

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/llm"
	"github.com/caretaker-ai/caretaker/internal/logging"
	"github.com/caretaker-ai/caretaker/internal/memory"
	"github.com/caretaker-ai/caretaker/internal/profile"
	"github.com/caretaker-ai/caretaker/internal/router"
	"github.com/caretaker-ai/caretaker/internal/state"
	"github.com/caretaker-ai/caretaker/internal/stream"
	"github.com/caretaker-ai/caretaker/internal/websearch"
)

// voiceBranchBudget bounds the detached first voice invocation. It covers
// the bridge's own response budget plus dial and session setup.
const voiceBranchBudget = 15 * time.Second

// VoiceStreamer is the voice branch dependency.
type VoiceStreamer interface {
	Stream(ctx context.Context, snap state.VoiceSnapshot) error
}

// Searcher is the web search dependency.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// Reasoner is the medical bridge dependency.
type Reasoner interface {
	Reason(ctx context.Context, prompt string) (string, error)
}

// Deps collects the collaborators the graph composes.
type Deps struct {
	Gateway     llm.Gateway
	Tagger      *router.Tagger
	ProfileTool *profile.Tool
	Store       *memory.Store
	Precheck    *memory.Precheck
	Search      Searcher
	Medical     Reasoner
	Voice       VoiceStreamer
}

// Graph is the orchestration state machine over AgentState.
type Graph struct {
	deps Deps
}

// New creates a graph from its dependencies.
func New(deps Deps) *Graph {
	return &Graph{deps: deps}
}

// Run drives one request from tagging to END. Node failures are captured on
// st.Err and never abort the run; the caller always receives a usable state.
// The emitter may be nil for the non-streaming endpoint.
func (g *Graph) Run(ctx context.Context, st *state.AgentState, em *stream.Emitter) *state.AgentState {
	st.Route = g.deps.Tagger.Classify(ctx, st.Input)
	em.Emit("tagger", map[string]string{"route": st.Route.String()})

	// Voice branch: fires alongside the processing branch, reads a
	// snapshot, writes nothing back, and is never awaited by the caller.
	g.startVoiceBranch(ctx, st.Snapshot(), em)

	g.runProcessingBranch(ctx, st, em)

	log.Debug().
		Str("route", st.Route.String()).
		Str("source", string(st.Source)).
		Bool("answered", st.FinalAnswer != "").
		Msg("graph: reached END")

	return st
}

// startVoiceBranch launches the side-effect voice invocation on a detached
// context so it survives the HTTP response returning first.
func (g *Graph) startVoiceBranch(ctx context.Context, snap state.VoiceSnapshot, em *stream.Emitter) {
	if g.deps.Voice == nil {
		return
	}

	detached, cancel := logging.DetachContextWithTimeout(ctx, voiceBranchBudget)
	go func() {
		defer cancel()
		if err := g.deps.Voice.Stream(detached, snap); err != nil {
			log.Warn().Err(err).Msg("graph: voice branch failed")
			return
		}
		em.Emit("voice", map[string]string{"tag": string(voiceTagFor(snap))})
	}()
}

// runProcessingBranch selects the node chain for the route tag.
func (g *Graph) runProcessingBranch(ctx context.Context, st *state.AgentState, em *stream.Emitter) {
	switch st.Route {
	case router.TagPatient:
		g.deps.ProfileTool.Run(ctx, st)
		em.Emit("profile_tool", map[string]any{"updates": len(st.Updates)})

	case router.TagWeb:
		g.runWebBranch(ctx, st, em)

	case router.TagMedical:
		g.runMedicalBranch(ctx, st, em)

	case router.TagUIChange, router.TagAddTreatment:
		g.runUIChange(st, em)

	default: // TagText
		g.deps.Precheck.Run(ctx, st)
		em.Emit("memory_precheck", map[string]any{
			"answered": st.FinalAnswer != "",
			"entries":  len(st.Memory),
		})
		if st.FinalAnswer != "" {
			g.postprocess(ctx, st, em)
		}
	}
}

// runWebBranch: search, postprocess, then the second voice invocation that
// must complete before END so the computed answer is streamed.
func (g *Graph) runWebBranch(ctx context.Context, st *state.AgentState, em *stream.Emitter) {
	st.Query = st.Input
	st.Source = state.SourceWeb

	results, err := g.deps.Search.Search(ctx, st.Query)
	if err != nil {
		st.Err = err
		st.FinalAnswer = ""
		log.Warn().Err(err).Msg("graph: web search failed")
	} else if len(results) > 0 {
		st.FinalAnswer = results[0].Snippet
	} else {
		st.FinalAnswer = ""
	}
	em.Emit("web_search", map[string]any{"results": len(results)})

	g.postprocess(ctx, st, em)
	g.streamComputedAnswer(ctx, st, em)
}

// runMedicalBranch: append the utterance to memory, call the reasoning
// endpoint, then stream the answer. Bridge failures produce a diagnostic
// answer; the node still counts as successful for graph flow.
func (g *Graph) runMedicalBranch(ctx context.Context, st *state.AgentState, em *stream.Emitter) {
	g.deps.Store.Append(st)
	st.Source = state.SourceMedical

	answer, err := g.deps.Medical.Reason(ctx, st.Input)
	if err != nil {
		st.FinalAnswer = "The medical reasoning service is unavailable: " + err.Error()
		log.Warn().Err(err).Msg("graph: medical bridge failed")
	} else {
		st.FinalAnswer = answer
	}
	em.Emit("medical_bridge", map[string]any{"failed": err != nil})

	g.streamComputedAnswer(ctx, st, em)
}

// runUIChange emits a directive for the frontend; no backend state changes.
func (g *Graph) runUIChange(st *state.AgentState, em *stream.Emitter) {
	st.Source = state.SourceUI
	st.FinalAnswer = uiDirective(st.Route, st.Input)
	em.Emit("ui_change", map[string]string{"directive": st.FinalAnswer})
}

// streamComputedAnswer is the second voice invocation on the web and
// medical branches. Unlike the tagger-triggered invocation it is awaited:
// the "extra"-tagged answer must be emitted before END.
func (g *Graph) streamComputedAnswer(ctx context.Context, st *state.AgentState, em *stream.Emitter) {
	if g.deps.Voice == nil {
		return
	}
	if err := g.deps.Voice.Stream(ctx, st.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("graph: computed-answer voice invocation failed")
		return
	}
	em.Emit("voice", map[string]string{"tag": "extra"})
}

func uiDirective(route router.RouteTag, input string) string {
	if route == router.TagAddTreatment {
		return "add_treatment: " + input
	}
	return "change_ui: " + input
}

func voiceTagFor(snap state.VoiceSnapshot) string {
	if snap.Source == state.SourceWeb || snap.Source == state.SourceMedical {
		return "extra"
	}
	return string(snap.Route)
}
