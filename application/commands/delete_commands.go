// Package commands defines the mutation commands accepted by the service.
// Commands carry everything a handler needs, including the caller's
// privileges and visibility authorizations, so they can travel through the
// bus without ambient state.
package commands

import "errors"

// DeleteVertexCommand requests deletion of a vertex within a workspace, or
// publication of the deletion when Publish is set
type DeleteVertexCommand struct {
	VertexID       string   `json:"vertex_id" validate:"required"`
	WorkspaceID    string   `json:"workspace_id"`
	Publish        bool     `json:"publish"`
	UserID         string   `json:"user_id" validate:"required"`
	Privileges     []string `json:"privileges"`
	Authorizations []string `json:"authorizations"`
}

// Validate validates the command
func (cmd DeleteVertexCommand) Validate() error {
	if cmd.VertexID == "" {
		return errors.New("vertex ID is required")
	}
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// DeleteEdgeCommand requests deletion of an edge
type DeleteEdgeCommand struct {
	EdgeID         string   `json:"edge_id" validate:"required"`
	WorkspaceID    string   `json:"workspace_id"`
	Publish        bool     `json:"publish"`
	UserID         string   `json:"user_id" validate:"required"`
	Privileges     []string `json:"privileges"`
	Authorizations []string `json:"authorizations"`
}

// Validate validates the command
func (cmd DeleteEdgeCommand) Validate() error {
	if cmd.EdgeID == "" {
		return errors.New("edge ID is required")
	}
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// DeletePropertyCommand requests deletion of the properties occupying the
// (key, name) slot on an element
type DeletePropertyCommand struct {
	ElementID      string   `json:"element_id" validate:"required"`
	PropertyKey    string   `json:"property_key" validate:"required"`
	PropertyName   string   `json:"property_name" validate:"required"`
	WorkspaceID    string   `json:"workspace_id"`
	Publish        bool     `json:"publish"`
	UserID         string   `json:"user_id" validate:"required"`
	Privileges     []string `json:"privileges"`
	Authorizations []string `json:"authorizations"`
}

// Validate validates the command
func (cmd DeletePropertyCommand) Validate() error {
	if cmd.ElementID == "" {
		return errors.New("element ID is required")
	}
	if cmd.PropertyKey == "" {
		return errors.New("property key is required")
	}
	if cmd.PropertyName == "" {
		return errors.New("property name is required")
	}
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}
