package handlers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sandgraph/application/cascade"
	"sandgraph/application/commands"
	"sandgraph/application/commands/handlers"
	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/infrastructure/ontology"
	"sandgraph/infrastructure/persistence/memory"
	"sandgraph/pkg/auth"
	pkgerrors "sandgraph/pkg/errors"
)

type handlerFixture struct {
	store      *memory.ElementStore
	mentions   *memory.TermMentionRepository
	workspaces *memory.WorkspaceRepository
	queue      *memory.ChangeQueue
	vertex     *handlers.DeleteVertexHandler
	edge       *handlers.DeleteEdgeHandler
	property   *handlers.DeletePropertyHandler
}

func newHandlerFixture() *handlerFixture {
	store := memory.NewElementStore()
	mentions := memory.NewTermMentionRepository()
	workspaces := memory.NewWorkspaceRepository()
	queue := memory.NewChangeQueue()
	logger := zap.NewNop()
	engine := cascade.NewEngine(store, mentions, workspaces, ontology.NewStaticReader(nil), queue, logger)
	return &handlerFixture{
		store:      store,
		mentions:   mentions,
		workspaces: workspaces,
		queue:      queue,
		vertex:     handlers.NewDeleteVertexHandler(store, engine, nil, logger),
		edge:       handlers.NewDeleteEdgeHandler(store, engine, nil, logger),
		property:   handlers.NewDeletePropertyHandler(store, engine, nil, logger),
	}
}

func id(t *testing.T, value string) valueobjects.ElementID {
	t.Helper()
	elementID, err := valueobjects.NewElementIDFromString(value)
	require.NoError(t, err)
	return elementID
}

func TestDeleteVertexHandlerRequiresWorkspaceOrPublish(t *testing.T) {
	f := newHandlerFixture()

	err := f.vertex.Handle(context.Background(), commands.DeleteVertexCommand{
		VertexID: "v1",
		UserID:   "u1",
	})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestDeleteVertexHandlerDeniesPublishWithoutPrivilege(t *testing.T) {
	f := newHandlerFixture()

	err := f.vertex.Handle(context.Background(), commands.DeleteVertexCommand{
		VertexID:    "v1",
		WorkspaceID: "ws1",
		Publish:     true,
		UserID:      "u1",
		Privileges:  []string{"EDIT"},
	})
	assert.True(t, pkgerrors.IsAccessDenied(err))
}

func TestHandlersDenyWorkspaceDeleteWithoutEditPrivilege(t *testing.T) {
	f := newHandlerFixture()
	vertex := entities.NewVertex(id(t, "v1"), valueobjects.NewVisibilityRecord(""))
	vertex.SetProperty(entities.Property{Key: "k1", Name: "title", Value: "Alice", Visibility: valueobjects.PublicVisibility()})
	f.store.Put(vertex)

	err := f.vertex.Handle(context.Background(), commands.DeleteVertexCommand{
		VertexID:       "v1",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Authorizations: []string{"workspace:ws1"},
	})
	assert.True(t, pkgerrors.IsAccessDenied(err))
	assert.False(t, f.store.Tombstoned(vertex.ID))

	err = f.edge.Handle(context.Background(), commands.DeleteEdgeCommand{
		EdgeID:         "e1",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Authorizations: []string{"workspace:ws1"},
	})
	assert.True(t, pkgerrors.IsAccessDenied(err))

	err = f.property.Handle(context.Background(), commands.DeletePropertyCommand{
		ElementID:      "v1",
		PropertyKey:    "k1",
		PropertyName:   "title",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Authorizations: []string{"workspace:ws1"},
	})
	assert.True(t, pkgerrors.IsAccessDenied(err))
	assert.True(t, f.store.HasProperty(vertex.ID, "k1", "title"))
}

func TestDeleteVertexHandlerNotFound(t *testing.T) {
	f := newHandlerFixture()

	err := f.vertex.Handle(context.Background(), commands.DeleteVertexCommand{
		VertexID:       "missing",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Privileges:     []string{"EDIT"},
		Authorizations: []string{"workspace:ws1"},
	})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeleteVertexHandlerTombstonesSandboxedVertex(t *testing.T) {
	f := newHandlerFixture()
	vertex := entities.NewVertex(id(t, "v1"), valueobjects.VisibilityRecord{Source: "workspace:ws1", Workspaces: []string{"ws1"}})
	f.store.Put(vertex)

	err := f.vertex.Handle(context.Background(), commands.DeleteVertexCommand{
		VertexID:       "v1",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Privileges:     []string{"EDIT"},
		Authorizations: []string{"workspace:ws1"},
	})
	require.NoError(t, err)

	assert.True(t, f.store.Tombstoned(vertex.ID))
	assert.True(t, f.workspaces.IsRegistered("ws1", vertex.ID))
}

func TestDeleteVertexHandlerHidesPublicVertex(t *testing.T) {
	f := newHandlerFixture()
	vertex := entities.NewVertex(id(t, "v1"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(vertex)

	err := f.vertex.Handle(context.Background(), commands.DeleteVertexCommand{
		VertexID:       "v1",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Privileges:     []string{"EDIT"},
		Authorizations: []string{"workspace:ws1"},
	})
	require.NoError(t, err)

	assert.False(t, f.store.Tombstoned(vertex.ID))
	assert.Contains(t, f.store.HiddenVisibilities(vertex.ID), "workspace:ws1")
}

func TestDeleteVertexHandlerPublishSoftDeletesPublicVertex(t *testing.T) {
	f := newHandlerFixture()
	vertex := entities.NewVertex(id(t, "v1"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(vertex)

	// publishing resolves to the public scope: the hide marker carries the
	// public label and the deletion applies to everyone
	err := f.vertex.Handle(context.Background(), commands.DeleteVertexCommand{
		VertexID:   "v1",
		Publish:    true,
		UserID:     "u1",
		Privileges: []string{"PUBLISH"},
	})
	require.NoError(t, err)

	assert.False(t, f.store.Tombstoned(vertex.ID))
	assert.Contains(t, f.store.HiddenVisibilities(vertex.ID), "public")

	_, err = f.store.GetElement(context.Background(), vertex.ID, auth.NewAuthorizations())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeleteEdgeHandlerTombstonesSandboxedEdge(t *testing.T) {
	f := newHandlerFixture()
	out := entities.NewVertex(id(t, "a"), valueobjects.NewVisibilityRecord(""))
	in := entities.NewVertex(id(t, "b"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(out)
	f.store.Put(in)
	edge := entities.NewEdge(id(t, "e1"), out.ID, in.ID, "knows", valueobjects.VisibilityRecord{Source: "workspace:ws1", Workspaces: []string{"ws1"}})
	f.store.Put(edge)

	err := f.edge.Handle(context.Background(), commands.DeleteEdgeCommand{
		EdgeID:         "e1",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Privileges:     []string{"EDIT"},
		Authorizations: []string{"workspace:ws1"},
	})
	require.NoError(t, err)

	assert.True(t, f.store.Tombstoned(edge.ID))
	assert.True(t, f.workspaces.IsRegistered("ws1", out.ID))
	assert.True(t, f.workspaces.IsRegistered("ws1", in.ID))
}

func TestDeletePropertyHandlerNotFoundForMissingSlot(t *testing.T) {
	f := newHandlerFixture()
	vertex := entities.NewVertex(id(t, "v1"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(vertex)

	err := f.property.Handle(context.Background(), commands.DeletePropertyCommand{
		ElementID:      "v1",
		PropertyKey:    "k1",
		PropertyName:   "title",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Privileges:     []string{"EDIT"},
		Authorizations: []string{"workspace:ws1"},
	})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeletePropertyHandlerCascadesEveryVisibilityInSlot(t *testing.T) {
	f := newHandlerFixture()
	vertex := entities.NewVertex(id(t, "v1"), valueobjects.NewVisibilityRecord(""))
	vertex.Properties = []entities.Property{
		{Key: "k1", Name: "title", Value: "public value", Visibility: valueobjects.PublicVisibility()},
		{Key: "k1", Name: "title", Value: "draft value", Visibility: valueobjects.WorkspaceVisibility("ws1")},
	}
	f.store.Put(vertex)

	err := f.property.Handle(context.Background(), commands.DeletePropertyCommand{
		ElementID:      "v1",
		PropertyKey:    "k1",
		PropertyName:   "title",
		WorkspaceID:    "ws1",
		UserID:         "u1",
		Privileges:     []string{"EDIT"},
		Authorizations: []string{"workspace:ws1"},
	})
	require.NoError(t, err)

	// public property hidden in the workspace, sandboxed one tombstoned
	hidden := f.store.PropertyHiddenVisibilities(vertex.ID, "k1", "title", valueobjects.PublicVisibility())
	assert.Contains(t, hidden, "workspace:ws1")
	assert.Len(t, f.queue.PropertyChanges(), 2)
}
