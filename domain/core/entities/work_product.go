package entities

import "time"

// WorkProduct is a saved view over a workspace's graph, such as a map or a
// graph layout. A product belongs to exactly one workspace.
type WorkProduct struct {
	ID          string
	WorkspaceID string
	Title       string
	Kind        string
	Params      map[string]interface{}
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
