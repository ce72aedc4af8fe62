package cascade

import (
	"sandgraph/pkg/auth"
	pkgerrors "sandgraph/pkg/errors"
)

// WorkspaceIDOrPublish resolves the effective workspace scope of a mutation
// request. Publishing requires the PUBLISH privilege and resolves to the
// public scope (empty workspace id). A non-publish mutation must name a
// workspace.
func WorkspaceIDOrPublish(workspaceID string, shouldPublish bool, privileges auth.Privileges) (string, error) {
	if shouldPublish {
		if !privileges.Has(auth.PrivilegePublish) {
			return "", pkgerrors.NewAccessDeniedError("the publish parameter was sent in the request, but the user does not have publish privilege")
		}
		return "", nil
	}
	if workspaceID == "" {
		return "", pkgerrors.NewValidationError("workspaceId parameter required")
	}
	return workspaceID, nil
}
