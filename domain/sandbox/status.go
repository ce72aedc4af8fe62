// Package sandbox holds the visibility scoping rules shared by every
// element store: which records a given set of authorizations can observe,
// and how properties classify against a workspace.
package sandbox

import (
	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/pkg/auth"
)

// PropertyStatuses resolves each property against the workspace, one status
// per input property, order preserved. An empty workspaceID means
// publish-to-everyone context: every property is PUBLIC. Pure function; the
// cascade engine consults it before every mutating call to pick hide vs
// delete semantics.
func PropertyStatuses(properties []entities.Property, workspaceID string) []valueobjects.SandboxStatus {
	statuses := make([]valueobjects.SandboxStatus, len(properties))
	for i, p := range properties {
		statuses[i] = valueobjects.StatusOfVisibility(p.Visibility, workspaceID)
	}
	return statuses
}

// SourceVisible reports whether the caller can observe a record with the
// given visibility source string.
func SourceVisible(source string, auths auth.Authorizations) bool {
	return source == "" || source == "public" || auths.CanSee(source)
}

// HiddenFrom reports whether any hidden marker applies to the caller. A
// public marker means the record was hidden in the public scope and is
// hidden from everyone.
func HiddenFrom(hidden []string, auths auth.Authorizations) bool {
	for _, h := range hidden {
		if h == "public" || auths.CanSee(h) {
			return true
		}
	}
	return false
}

// PropertyVisible reports whether the caller can observe the property given
// the hidden markers recorded against its slot.
func PropertyVisible(p entities.Property, slotHidden []string, auths auth.Authorizations) bool {
	if !p.Visibility.IsPublic() && !auths.CanSee(p.Visibility.String()) {
		return false
	}
	return !HiddenFrom(slotHidden, auths)
}
