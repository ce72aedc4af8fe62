package valueobjects

// VisibilityRecord captures the provenance of an element's visibility: the
// user-supplied visibility source plus the workspace ids that hold a
// membership marker on the element. The record travels with the element and
// is what a workspace diff view keys off.
type VisibilityRecord struct {
	Source     string   `json:"source"`
	Workspaces []string `json:"workspaces,omitempty"`
}

// NewVisibilityRecord creates a record with the given source and no
// workspace markers
func NewVisibilityRecord(source string) VisibilityRecord {
	return VisibilityRecord{Source: source}
}

// AddWorkspace returns a copy of the record with the workspace marker added
func (r VisibilityRecord) AddWorkspace(workspaceID string) VisibilityRecord {
	for _, w := range r.Workspaces {
		if w == workspaceID {
			return r
		}
	}
	workspaces := make([]string, 0, len(r.Workspaces)+1)
	workspaces = append(workspaces, r.Workspaces...)
	workspaces = append(workspaces, workspaceID)
	return VisibilityRecord{Source: r.Source, Workspaces: workspaces}
}

// RemoveFromAllWorkspaces returns a copy of the record stripped of every
// workspace marker. Applied before tombstoning a sandboxed vertex so the
// tombstone is not owned by any workspace.
func (r VisibilityRecord) RemoveFromAllWorkspaces() VisibilityRecord {
	return VisibilityRecord{Source: r.Source}
}

// InWorkspace reports whether the record carries a marker for the workspace
func (r VisibilityRecord) InWorkspace(workspaceID string) bool {
	for _, w := range r.Workspaces {
		if w == workspaceID {
			return true
		}
	}
	return false
}
