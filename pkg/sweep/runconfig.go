package sweep

// MetaKey is the reserved document key holding the metadata sub-document.
// It is carried into every [RunConfig] but always excluded from equality
// comparisons and completed-run matching.
const MetaKey = "meta"

// RunConfig is one concrete configuration from the cartesian product: a
// mapping from every document key to a single scalar value (plus the reserved
// metadata entry).
type RunConfig map[string]any

// EqualValues reports whether other holds an equal value for every
// non-metadata key of rc. Keys present only in other are ignored, so a
// completed-run record with extra bookkeeping columns still matches.
func (rc RunConfig) EqualValues(other RunConfig) bool {
	for key, value := range rc {
		if key == MetaKey {
			continue
		}

		otherValue, ok := other[key]
		if !ok || !scalarsEqual(value, otherValue) {
			return false
		}
	}

	return true
}

// MatchesRule reports whether rc satisfies a partial-match exclusion rule:
// every key in the rule must be present in rc with an equal value. Keys in rc
// but absent from the rule are ignored.
func (rc RunConfig) MatchesRule(rule map[string]any) bool {
	if len(rule) == 0 {
		return false
	}

	for key, want := range rule {
		got, ok := rc[key]
		if !ok || !scalarsEqual(got, want) {
			return false
		}
	}

	return true
}

func (rc RunConfig) clone() RunConfig {
	out := make(RunConfig, len(rc))
	for k, v := range rc {
		out[k] = v
	}

	return out
}
