package graph

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/state"
	"github.com/caretaker-ai/caretaker/internal/stream"
)

const postprocessFirstPerson = `Rewrite the answer below in a warm first-person voice, as the user's
personal assistant speaking directly to them. Keep every fact; do not add
any. Return only the rewritten answer.`

const postprocessThirdPerson = `Rewrite the answer below in a concise, factual third-person voice.
Keep every fact; do not add any. Return only the rewritten answer.`

// postprocess rewrites FinalAnswer in place, conditioned on where it came
// from: first person for profile and memory answers, third person for web
// and medical content. On LLM failure the original answer stands.
func (g *Graph) postprocess(ctx context.Context, st *state.AgentState, em *stream.Emitter) {
	if st.FinalAnswer == "" {
		return
	}

	system := postprocessThirdPerson
	if st.Source == state.SourcePatient || st.Source == state.SourceMemory {
		system = postprocessFirstPerson
	}

	rewritten, err := g.deps.Gateway.Generate(ctx, system, st.FinalAnswer, 0.3)
	if err != nil {
		log.Warn().Err(err).Msg("graph: postprocess failed, keeping original answer")
		return
	}

	st.FinalAnswer = rewritten
	em.Emit("postprocess", map[string]string{"source": string(st.Source)})
}
