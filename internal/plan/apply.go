package plan

// ApplyTo returns a copy of fields with the mutations applied. The input map
// and any nested maps it holds are left untouched.
func ApplyTo(fields map[string]any, mutations []Mutation) map[string]any {
	out := make(map[string]any, len(fields)+len(mutations))
	for k, v := range fields {
		out[k] = v
	}

	copied := make(map[string]bool)
	nested := func(field string) map[string]any {
		if copied[field] {
			return out[field].(map[string]any)
		}
		m := make(map[string]any)
		if existing, ok := out[field].(map[string]any); ok {
			for k, v := range existing {
				m[k] = v
			}
		}
		out[field] = m
		copied[field] = true
		return m
	}

	for _, m := range mutations {
		switch m.Kind {
		case KindSetValue:
			out[m.Field] = m.Value
			delete(copied, m.Field)
		case KindSetValueInMap:
			nested(m.Field)[m.Key] = m.Value
		case KindSetTrueInMap:
			nested(m.Field)[m.Key] = true
		}
	}

	return out
}
