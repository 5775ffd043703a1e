// Package server exposes the HTTP surface: the synchronous agent endpoint,
// its Server-Sent Events variant, and a healthcheck.
package server

import (
	"github.com/caretaker-ai/caretaker/internal/state"
)

// AgentRequest is the body of POST /api/agent and /api/agent/stream.
type AgentRequest struct {
	Prompt         string              `json:"prompt"`
	Memory         []state.MemoryEntry `json:"memory"`
	Updates        []state.UpdateEntry `json:"updates"`
	Conversation   map[string]any      `json:"conversation"`
	PatientProfile map[string]any      `json:"patientProfile"`
}

// AgentResponse is the synchronous response shape. The profile is always
// re-nested and defaulted regardless of input completeness.
type AgentResponse struct {
	UpdatedPatientProfile map[string]any      `json:"updatedPatientProfile"`
	UpdatedMemory         []state.MemoryEntry `json:"updatedMemory"`
	Updates               []state.UpdateEntry `json:"Updates"`
	ExtraInfo             string              `json:"extraInfo"`
}

// StreamResult is the payload of the terminal final_result envelope.
type StreamResult struct {
	UpdatedPatientProfile map[string]any      `json:"updatedPatientProfile"`
	UpdatedMemory         []state.MemoryEntry `json:"updatedMemory"`
	Updates               []state.UpdateEntry `json:"Updates"`
	ExtraInfo             string              `json:"extraInfo"`
	Function              string              `json:"function"`
}

// newAgentState converts the boundary shapes into the flattened working
// form. Defaults are applied first so the core always sees every key.
func newAgentState(req *AgentRequest) *state.AgentState {
	nested := state.ApplyDefaults(req.PatientProfile)

	memory := req.Memory
	if memory == nil {
		memory = []state.MemoryEntry{}
	}
	updates := req.Updates
	if updates == nil {
		updates = []state.UpdateEntry{}
	}

	return &state.AgentState{
		Input:   req.Prompt,
		Memory:  memory,
		Profile: state.Flatten(nested),
		Updates: updates,
	}
}

// newAgentResponse re-nests and defaults the profile for the caller.
func newAgentResponse(st *state.AgentState) AgentResponse {
	return AgentResponse{
		UpdatedPatientProfile: state.ApplyDefaults(state.Nest(st.Profile)),
		UpdatedMemory:         st.Memory,
		Updates:               st.Updates,
		ExtraInfo:             st.FinalAnswer,
	}
}
