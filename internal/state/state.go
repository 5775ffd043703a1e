// Package state defines the request-scoped working state shared by the
// orchestration graph's nodes: the utterance, the flattened patient profile,
// the conversational memory, and the append-only updates log.
//
// Every value here is created at request entry, mutated only inside graph
// nodes, and discarded at response emission. Nothing is retained across
// requests.
package state

import (
	"github.com/caretaker-ai/caretaker/internal/router"
)

// Source tags the provenance of a final answer.
type Source string

const (
	SourceNone    Source = ""
	SourcePatient Source = "patient"
	SourceWeb     Source = "web"
	SourceMemory  Source = "memory"
	SourceMedical Source = "medical"
	SourceUI      Source = "ui"
)

// MemoryEntry is a single record in the semantic memory sequence.
type MemoryEntry struct {
	Text     string `json:"text"`
	Datetime string `json:"datetime"`
}

// UpdateEntry is a human-readable summary of a profile mutation.
type UpdateEntry struct {
	Datetime string `json:"datetime"`
	Text     string `json:"text"`
}

// AgentState carries a single request through the orchestration graph.
type AgentState struct {
	// Input is the free-form user utterance.
	Input string

	// Memory is the conversational memory, append-only within the request.
	Memory []MemoryEntry

	// Profile is the flattened patient profile (treatment keys hoisted).
	Profile FlattenedProfile

	// Updates is the append-only updates log.
	Updates []UpdateEntry

	// FinalAnswer is the extra-info answer produced by the processing
	// branch, empty when no branch produced content.
	FinalAnswer string

	// Source tags where FinalAnswer came from.
	Source Source

	// Route is the tag assigned by the classifier.
	Route router.RouteTag

	// Err records the first node failure. Failures never abort the graph;
	// the HTTP boundary still returns a well-formed response.
	Err error

	// Transient fields used by intermediate nodes.
	Query    string
	Results  []string
	NextNode string
}

// VoiceSnapshot is the read-only view handed to the voice branch. The voice
// bridge never writes back into AgentState.
type VoiceSnapshot struct {
	Input       string
	Profile     FlattenedProfile
	Route       router.RouteTag
	Source      Source
	FinalAnswer string
}

// Snapshot captures the fields the voice branch reads. The profile map is
// deep-copied so the processing branch can keep mutating its own copy.
func (s *AgentState) Snapshot() VoiceSnapshot {
	return VoiceSnapshot{
		Input:       s.Input,
		Profile:     DeepCopy(s.Profile),
		Route:       s.Route,
		Source:      s.Source,
		FinalAnswer: s.FinalAnswer,
	}
}
