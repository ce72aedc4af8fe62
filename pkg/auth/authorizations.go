package auth

// Authorizations is the capability token passed to every store call. It
// scopes which visibility labels the caller may read and write: an element
// or property is observable iff its visibility is public or one of these
// strings.
type Authorizations struct {
	visibilities map[string]struct{}
}

// NewAuthorizations creates a token scoped to the given visibility strings
func NewAuthorizations(visibilities ...string) Authorizations {
	set := make(map[string]struct{}, len(visibilities))
	for _, v := range visibilities {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return Authorizations{visibilities: set}
}

// With returns a new token extended with additional visibility strings
func (a Authorizations) With(visibilities ...string) Authorizations {
	merged := make([]string, 0, len(a.visibilities)+len(visibilities))
	for v := range a.visibilities {
		merged = append(merged, v)
	}
	merged = append(merged, visibilities...)
	return NewAuthorizations(merged...)
}

// CanSee reports whether the token grants access to the given visibility
// string. The empty string (public) is always visible.
func (a Authorizations) CanSee(visibility string) bool {
	if visibility == "" {
		return true
	}
	_, ok := a.visibilities[visibility]
	return ok
}

// Visibilities returns the visibility strings this token grants
func (a Authorizations) Visibilities() []string {
	out := make([]string, 0, len(a.visibilities))
	for v := range a.visibilities {
		out = append(out, v)
	}
	return out
}
