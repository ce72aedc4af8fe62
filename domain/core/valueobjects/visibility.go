package valueobjects

import "strings"

const (
	publicLabel     = "public"
	workspacePrefix = "workspace:"
)

// Visibility is the label controlling who can observe an element or
// property: either public (visible to every workspace) or scoped to a
// single workspace ("workspace:<id>").
type Visibility struct {
	value string
}

// PublicVisibility returns the label visible to everyone
func PublicVisibility() Visibility {
	return Visibility{}
}

// WorkspaceVisibility returns the label visible only within a workspace
func WorkspaceVisibility(workspaceID string) Visibility {
	if workspaceID == "" {
		return Visibility{}
	}
	return Visibility{value: workspacePrefix + workspaceID}
}

// ParseVisibility converts a stored label string back to a Visibility
func ParseVisibility(label string) Visibility {
	if label == "" || label == publicLabel {
		return Visibility{}
	}
	if strings.HasPrefix(label, workspacePrefix) {
		return Visibility{value: label}
	}
	// Bare workspace ids appear in records written before labels were
	// prefixed; normalize them.
	return Visibility{value: workspacePrefix + label}
}

// IsPublic reports whether the label is visible to every workspace
func (v Visibility) IsPublic() bool {
	return v.value == ""
}

// WorkspaceID returns the owning workspace id, or "" for public labels
func (v Visibility) WorkspaceID() string {
	return strings.TrimPrefix(v.value, workspacePrefix)
}

// String returns the canonical label string
func (v Visibility) String() string {
	if v.value == "" {
		return publicLabel
	}
	return v.value
}

// Equals checks if two visibility labels are the same
func (v Visibility) Equals(other Visibility) bool {
	return v.value == other.value
}

// MarshalJSON implements json.Marshaler
func (v Visibility) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Visibility) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		*v = ParseVisibility(string(data[1 : len(data)-1]))
	}
	return nil
}
