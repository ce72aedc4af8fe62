package valueobjects

// SandboxStatus classifies a property relative to a workspace: PUBLIC
// properties are part of the shared graph, SANDBOXED properties exist only
// inside the workspace's overlay.
type SandboxStatus string

const (
	SandboxStatusPublic    SandboxStatus = "PUBLIC"
	SandboxStatusSandboxed SandboxStatus = "SANDBOXED"
)

// StatusOfVisibility resolves a single visibility label against a workspace.
// An empty workspaceID means publish-to-everyone context, where every
// property is treated as PUBLIC.
func StatusOfVisibility(visibility Visibility, workspaceID string) SandboxStatus {
	if workspaceID == "" {
		return SandboxStatusPublic
	}
	if visibility.IsPublic() {
		return SandboxStatusPublic
	}
	return SandboxStatusSandboxed
}
