package state

// Profile is the nested patient profile as seen at the HTTP boundary:
// top-level identity fields plus a "treatment" sub-mapping.
type Profile = map[string]any

// FlattenedProfile is the internal working form: the treatment mapping's
// key-value pairs hoisted to the top level, the "treatment" key removed.
type FlattenedProfile = map[string]any

// treatmentKeys are the fields that live under "treatment" in the nested
// form. Nest moves exactly these back; Flatten hoists whatever the request
// carried.
var treatmentKeys = []string{
	"medicationList",
	"dailyChecklist",
	"appointment",
	"recommendations",
	"sleepHours",
	"sleepQuality",
}

// Flatten hoists the treatment sub-mapping to the top level and drops the
// "treatment" key. Non-mapping treatment values are discarded.
func Flatten(p Profile) FlattenedProfile {
	flat := make(FlattenedProfile, len(p)+len(treatmentKeys))
	for k, v := range p {
		if k == "treatment" {
			continue
		}
		flat[k] = v
	}
	if treatment, ok := p["treatment"].(map[string]any); ok {
		for k, v := range treatment {
			flat[k] = v
		}
	}
	return flat
}

// Nest rebuilds the boundary shape: treatment fields move back under
// "treatment", everything else stays top-level.
func Nest(flat FlattenedProfile) Profile {
	nested := make(Profile, len(flat))
	treatment := make(map[string]any, len(treatmentKeys))

	isTreatment := make(map[string]bool, len(treatmentKeys))
	for _, k := range treatmentKeys {
		isTreatment[k] = true
	}

	for k, v := range flat {
		if isTreatment[k] {
			treatment[k] = v
		} else {
			nested[k] = v
		}
	}
	nested["treatment"] = treatment
	return nested
}

// ApplyDefaults ensures every required key is present in the nested profile,
// filling documented defaults for missing or partial input. The input map is
// mutated and returned.
func ApplyDefaults(p Profile) Profile {
	if p == nil {
		p = make(Profile)
	}

	defaultString(p, "uid")
	defaultString(p, "name")
	if _, ok := p["age"]; !ok {
		p["age"] = 0
	}
	defaultString(p, "bloodType")
	defaultList(p, "allergies")

	treatment, ok := p["treatment"].(map[string]any)
	if !ok {
		treatment = make(map[string]any)
	}
	defaultList(treatment, "medicationList")
	defaultList(treatment, "dailyChecklist")
	defaultString(treatment, "appointment")
	defaultList(treatment, "recommendations")
	if _, ok := treatment["sleepHours"]; !ok {
		treatment["sleepHours"] = 0
	}
	defaultString(treatment, "sleepQuality")
	p["treatment"] = treatment

	return p
}

func defaultString(m map[string]any, key string) {
	if _, ok := m[key]; !ok {
		m[key] = ""
	}
}

func defaultList(m map[string]any, key string) {
	if _, ok := m[key]; !ok {
		m[key] = []any{}
	}
}

// DeepCopy returns a deep copy of a profile tree. Maps and slices are
// duplicated; scalar leaves are shared (they are immutable).
func DeepCopy[M ~map[string]any](m M) M {
	if m == nil {
		return nil
	}
	out := make(M, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return DeepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
