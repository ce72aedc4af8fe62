package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/pkg/auth"
)

func TestSourceVisible(t *testing.T) {
	auths := auth.NewAuthorizations("workspace:ws1")

	assert.True(t, SourceVisible("", auths))
	assert.True(t, SourceVisible("public", auths))
	assert.True(t, SourceVisible("workspace:ws1", auths))
	assert.False(t, SourceVisible("workspace:ws2", auths))
}

func TestHiddenFrom(t *testing.T) {
	auths := auth.NewAuthorizations("workspace:ws1")

	assert.False(t, HiddenFrom(nil, auths))
	assert.False(t, HiddenFrom([]string{"workspace:ws2"}, auths))
	assert.True(t, HiddenFrom([]string{"workspace:ws1"}, auths))
	// a public marker hides the record from everyone
	assert.True(t, HiddenFrom([]string{"public"}, auth.NewAuthorizations()))
	assert.True(t, HiddenFrom([]string{"public"}, auths))
}

func TestPropertyVisible(t *testing.T) {
	auths := auth.NewAuthorizations("workspace:ws1")

	public := entities.Property{Key: "k", Name: "n", Visibility: valueobjects.PublicVisibility()}
	sandboxed := entities.Property{Key: "k", Name: "n", Visibility: valueobjects.WorkspaceVisibility("ws1")}
	foreign := entities.Property{Key: "k", Name: "n", Visibility: valueobjects.WorkspaceVisibility("ws2")}

	assert.True(t, PropertyVisible(public, nil, auths))
	assert.True(t, PropertyVisible(sandboxed, nil, auths))
	assert.False(t, PropertyVisible(foreign, nil, auths))

	// hidden markers on the slot override visibility
	assert.False(t, PropertyVisible(public, []string{"workspace:ws1"}, auths))
	assert.True(t, PropertyVisible(public, []string{"workspace:ws2"}, auths))
	assert.False(t, PropertyVisible(public, []string{"public"}, auths))
}

func TestPropertyStatuses(t *testing.T) {
	properties := []entities.Property{
		{Key: "a", Visibility: valueobjects.PublicVisibility()},
		{Key: "b", Visibility: valueobjects.WorkspaceVisibility("ws1")},
	}

	statuses := PropertyStatuses(properties, "ws1")
	assert.Equal(t, []valueobjects.SandboxStatus{
		valueobjects.SandboxStatusPublic,
		valueobjects.SandboxStatusSandboxed,
	}, statuses)

	// publish context: everything public
	statuses = PropertyStatuses(properties, "")
	assert.Equal(t, []valueobjects.SandboxStatus{
		valueobjects.SandboxStatusPublic,
		valueobjects.SandboxStatusPublic,
	}, statuses)
}
