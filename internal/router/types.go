// Package router classifies user utterances into the six processing routes
// of the orchestration graph.
package router

// RouteTag is the six-valued classification of a user utterance.
type RouteTag string

const (
	// TagText is the default route: greetings, casual chat, general
	// knowledge, and recommendation requests.
	TagText RouteTag = "text"
	// TagPatient is for profile reads and updates, excluding
	// recommendations.
	TagPatient RouteTag = "patient"
	// TagWeb is for real-time or volatile facts.
	TagWeb RouteTag = "web"
	// TagMedical is for medical reasoning, verification, and drug
	// interaction questions.
	TagMedical RouteTag = "medical"
	// TagUIChange is for interface, theme, and layout requests.
	TagUIChange RouteTag = "ui_change"
	// TagAddTreatment is for non-medication treatment additions such as
	// physiotherapy or occupational therapy.
	TagAddTreatment RouteTag = "add_treatment"
)

// AllRouteTags returns every valid route tag.
func AllRouteTags() []RouteTag {
	return []RouteTag{
		TagText,
		TagPatient,
		TagWeb,
		TagMedical,
		TagUIChange,
		TagAddTreatment,
	}
}

// String returns the string representation of a RouteTag.
func (t RouteTag) String() string {
	return string(t)
}

// IsValid checks if a RouteTag is a known valid tag.
func (t RouteTag) IsValid() bool {
	for _, valid := range AllRouteTags() {
		if t == valid {
			return true
		}
	}
	return false
}
