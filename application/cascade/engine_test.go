package cascade_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sandgraph/application/cascade"
	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/domain/events"
	"sandgraph/infrastructure/ontology"
	"sandgraph/infrastructure/persistence/memory"
	"sandgraph/pkg/auth"
)

const (
	entityHasImageIRI        = "http://sandgraph.test#entityHasImage"
	artifactContainsImageIRI = "http://sandgraph.test#artifactContainsImageOfEntity"
)

type fixture struct {
	store      *memory.ElementStore
	mentions   *memory.TermMentionRepository
	workspaces *memory.WorkspaceRepository
	queue      *memory.ChangeQueue
	engine     *cascade.Engine
}

func newFixture(intents map[string]string) *fixture {
	f := &fixture{
		store:      memory.NewElementStore(),
		mentions:   memory.NewTermMentionRepository(),
		workspaces: memory.NewWorkspaceRepository(),
		queue:      memory.NewChangeQueue(),
	}
	f.engine = cascade.NewEngine(
		f.store,
		f.mentions,
		f.workspaces,
		ontology.NewStaticReader(intents),
		f.queue,
		zap.NewNop(),
	)
	return f
}

func allIntents() map[string]string {
	return map[string]string{
		"entityHasImage":                entityHasImageIRI,
		"artifactContainsImageOfEntity": artifactContainsImageIRI,
	}
}

func mustID(t *testing.T, value string) valueobjects.ElementID {
	t.Helper()
	id, err := valueobjects.NewElementIDFromString(value)
	require.NoError(t, err)
	return id
}

func workspaceAuths(workspaceID string) auth.Authorizations {
	return auth.NewAuthorizations(valueobjects.WorkspaceVisibility(workspaceID).String())
}

func TestDeletePropertyPublicInWorkspaceHidesProperty(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.NewVisibilityRecord(""))
	prop := entities.Property{Key: "k1", Name: "title", Value: "Alice", Visibility: valueobjects.PublicVisibility()}
	vertex.SetProperty(prop)
	f.store.Put(vertex)

	err := f.engine.DeleteProperty(ctx, vertex, prop, true, "ws1", events.PriorityNormal, auths)
	require.NoError(t, err)

	hidden := f.store.PropertyHiddenVisibilities(vertex.ID, "k1", "title", prop.Visibility)
	assert.Contains(t, hidden, "workspace:ws1")

	// hidden inside the workspace, still visible to everyone else
	fromWorkspace, err := f.store.GetElement(ctx, vertex.ID, auths)
	require.NoError(t, err)
	assert.Nil(t, fromWorkspace.PropertyByKey("k1", "title"))

	public, err := f.store.GetElement(ctx, vertex.ID, auth.NewAuthorizations())
	require.NoError(t, err)
	assert.NotNil(t, public.PropertyByKey("k1", "title"))

	changes := f.queue.PropertyChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, "title", changes[0].PropertyName)
	assert.Equal(t, "ws1", changes[0].WorkspaceID)
	assert.False(t, changes[0].IsElementDeleted)
	assert.Nil(t, changes[0].BeforeDeleteTimestamp)
	assert.Equal(t, events.PriorityNormal, changes[0].Priority)
}

func TestDeletePropertyRegistersElementOnWorkspace(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.NewVisibilityRecord(""))
	prop := entities.Property{Key: "k1", Name: "title", Value: "Alice", Visibility: valueobjects.PublicVisibility()}
	vertex.SetProperty(prop)
	f.store.Put(vertex)

	err := f.engine.DeleteProperty(ctx, vertex, prop, true, "ws1", events.PriorityNormal, auths)
	require.NoError(t, err)

	// the hidden property must show up in the workspace diff
	assert.True(t, f.workspaces.IsRegistered("ws1", vertex.ID))
}

func TestDeletePropertySandboxedSoftDeletes(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.NewVisibilityRecord(""))
	prop := entities.Property{Key: "k1", Name: "title", Value: "draft", Visibility: valueobjects.WorkspaceVisibility("ws1")}
	vertex.SetProperty(prop)
	f.store.Put(vertex)

	err := f.engine.DeleteProperty(ctx, vertex, prop, false, "ws1", events.PriorityNormal, auths)
	require.NoError(t, err)

	assert.False(t, f.store.HasProperty(vertex.ID, "k1", "title"))
	require.Len(t, f.queue.PropertyChanges(), 1)
}

func TestDeletePropertyTwiceIsIdempotent(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.NewVisibilityRecord(""))
	prop := entities.Property{Key: "k1", Name: "title", Value: "draft", Visibility: valueobjects.WorkspaceVisibility("ws1")}
	vertex.SetProperty(prop)
	f.store.Put(vertex)

	require.NoError(t, f.engine.DeleteProperty(ctx, vertex, prop, false, "ws1", events.PriorityNormal, auths))
	// a concurrent cascade may hit the same slot; the second pass must not fail
	require.NoError(t, f.engine.DeleteProperty(ctx, vertex, prop, false, "ws1", events.PriorityNormal, auths))

	assert.False(t, f.store.HasProperty(vertex.ID, "k1", "title"))
}

func TestDeletePropertyUnresolvesDerivedMentions(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	entity := entities.NewVertex(mustID(t, "entity"), valueobjects.NewVisibilityRecord(""))
	prop := entities.Property{Key: "k1", Name: "fullName", Value: "Alice", Visibility: valueobjects.PublicVisibility()}
	entity.SetProperty(prop)
	f.store.Put(entity)

	source := entities.NewVertex(mustID(t, "source"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(source)

	resolveEdge := entities.NewEdge(mustID(t, "resolve-edge"), source.ID, entity.ID, "resolvedTo", valueobjects.NewVisibilityRecord(""))
	f.store.Put(resolveEdge)

	derived := &entities.TermMention{
		ID:              mustID(t, "tm-derived"),
		OutVertexID:     source.ID,
		ResolvedToID:    entity.ID,
		ResolveEdgeID:   resolveEdge.ID,
		RefPropertyKey:  "k1",
		RefPropertyName: "fullName",
		RefPropertyVis:  valueobjects.PublicVisibility(),
	}
	require.NoError(t, f.mentions.Save(ctx, derived))

	other := &entities.TermMention{
		ID:              mustID(t, "tm-other"),
		OutVertexID:     source.ID,
		ResolvedToID:    entity.ID,
		RefPropertyKey:  "k2",
		RefPropertyName: "alias",
		RefPropertyVis:  valueobjects.PublicVisibility(),
	}
	require.NoError(t, f.mentions.Save(ctx, other))

	err := f.engine.DeleteProperty(ctx, entity, prop, false, "ws1", events.PriorityNormal, auths)
	require.NoError(t, err)

	assert.True(t, f.mentions.Mention(derived.ID).Tombstoned)
	assert.False(t, f.mentions.Mention(other.ID).Tombstoned)
	assert.True(t, f.store.Tombstoned(resolveEdge.ID))

	deletions := f.queue.EdgeDeletions()
	require.Len(t, deletions, 1)
	assert.Equal(t, resolveEdge.ID.String(), deletions[0].EdgeID)
	assert.Equal(t, events.PriorityHigh, deletions[0].Priority)

	updates := f.queue.TextUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, source.ID.String(), updates[0].VertexID)
}

func TestUnresolveTermNoOpWhenSourceVertexGone(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	mention := &entities.TermMention{
		ID:           mustID(t, "tm1"),
		OutVertexID:  mustID(t, "missing-vertex"),
		ResolvedToID: mustID(t, "entity"),
	}
	require.NoError(t, f.mentions.Save(ctx, mention))

	err := f.engine.UnresolveTerm(ctx, mention, auths)
	require.NoError(t, err)

	assert.False(t, f.mentions.Mention(mention.ID).Tombstoned)
	assert.Empty(t, f.queue.TextUpdates())
	assert.Empty(t, f.queue.EdgeDeletions())
}

func TestDeleteEdgePublicHidesAndCleansUp(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	out := entities.NewVertex(mustID(t, "entity"), valueobjects.NewVisibilityRecord(""))
	imageProp := entities.Property{Key: "img", Name: entities.PropertyNameEntityImage, Value: "image-vertex", Visibility: valueobjects.PublicVisibility()}
	out.SetProperty(imageProp)
	f.store.Put(out)

	in := entities.NewVertex(mustID(t, "image-vertex"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(in)

	edge := entities.NewEdge(mustID(t, "e1"), out.ID, in.ID, entityHasImageIRI, valueobjects.NewVisibilityRecord(""))
	edge.SetProperty(entities.Property{Key: "k1", Name: "confidence", Value: 0.9, Visibility: valueobjects.PublicVisibility()})
	f.store.Put(edge)

	mention := &entities.TermMention{
		ID:            mustID(t, "tm1"),
		OutVertexID:   out.ID,
		ResolvedToID:  in.ID,
		ResolveEdgeID: edge.ID,
	}
	require.NoError(t, f.mentions.Save(ctx, mention))

	loaded, err := f.store.GetElement(ctx, edge.ID, auths)
	require.NoError(t, err)

	err = f.engine.DeleteEdge(ctx, "ws1", loaded, out, true, events.PriorityNormal, auths)
	require.NoError(t, err)

	// hidden in the workspace, not tombstoned
	assert.False(t, f.store.Tombstoned(edge.ID))
	assert.Contains(t, f.store.HiddenVisibilities(edge.ID), "workspace:ws1")

	// both endpoints registered so the diff panel picks them up
	assert.True(t, f.workspaces.IsRegistered("ws1", out.ID))
	assert.True(t, f.workspaces.IsRegistered("ws1", in.ID))

	// the entity image pointer is hidden, not deleted
	assert.True(t, f.store.HasProperty(out.ID, "img", entities.PropertyNameEntityImage))
	assert.Contains(t, f.store.PropertyHiddenVisibilities(out.ID, "img", entities.PropertyNameEntityImage, imageProp.Visibility), "workspace:ws1")
	require.Len(t, f.queue.ImageChanges(), 1)

	// the mention survives but is hidden from the workspace
	stored := f.mentions.Mention(mention.ID)
	assert.False(t, stored.Tombstoned)
	assert.Contains(t, stored.HiddenVisibility, "workspace:ws1")
	require.Len(t, f.queue.TextUpdates(), 1)

	deletions := f.queue.EdgeDeletions()
	require.Len(t, deletions, 1)
	assert.Equal(t, events.PriorityHigh, deletions[0].Priority)
	assert.Equal(t, entityHasImageIRI, deletions[0].Label)
}

func TestDeleteEdgeSandboxedSoftDeletes(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	out := entities.NewVertex(mustID(t, "entity"), valueobjects.NewVisibilityRecord(""))
	imageProp := entities.Property{Key: "img", Name: entities.PropertyNameEntityImage, Value: "image-vertex", Visibility: valueobjects.WorkspaceVisibility("ws1")}
	out.SetProperty(imageProp)
	f.store.Put(out)

	in := entities.NewVertex(mustID(t, "image-vertex"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(in)

	edge := entities.NewEdge(mustID(t, "e1"), out.ID, in.ID, entityHasImageIRI, valueobjects.VisibilityRecord{Source: "workspace:ws1", Workspaces: []string{"ws1"}})
	f.store.Put(edge)

	mention := &entities.TermMention{
		ID:            mustID(t, "tm1"),
		OutVertexID:   out.ID,
		ResolvedToID:  in.ID,
		ResolveEdgeID: edge.ID,
	}
	require.NoError(t, f.mentions.Save(ctx, mention))

	loaded, err := f.store.GetElement(ctx, edge.ID, auths)
	require.NoError(t, err)

	err = f.engine.DeleteEdge(ctx, "ws1", loaded, out, false, events.PriorityNormal, auths)
	require.NoError(t, err)

	assert.True(t, f.store.Tombstoned(edge.ID))
	assert.False(t, f.store.HasProperty(out.ID, "img", entities.PropertyNameEntityImage))
	assert.True(t, f.mentions.Mention(mention.ID).Tombstoned)
	require.Len(t, f.queue.ImageChanges(), 1)

	deletions := f.queue.EdgeDeletions()
	require.Len(t, deletions, 1)
	assert.Equal(t, events.PriorityHigh, deletions[0].Priority)
}

func TestDeleteEdgePropertiesShareBeforeDeleteTimestamp(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	out := entities.NewVertex(mustID(t, "a"), valueobjects.NewVisibilityRecord(""))
	in := entities.NewVertex(mustID(t, "b"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(out)
	f.store.Put(in)

	edge := entities.NewEdge(mustID(t, "e1"), out.ID, in.ID, "knows", valueobjects.NewVisibilityRecord(""))
	edge.SetProperty(entities.Property{Key: "k1", Name: "since", Value: "2020", Visibility: valueobjects.PublicVisibility()})
	edge.SetProperty(entities.Property{Key: "k2", Name: "weight", Value: 0.5, Visibility: valueobjects.WorkspaceVisibility("ws1")})
	f.store.Put(edge)

	loaded, err := f.store.GetElement(ctx, edge.ID, auths)
	require.NoError(t, err)

	err = f.engine.DeleteEdge(ctx, "ws1", loaded, out, false, events.PriorityNormal, auths)
	require.NoError(t, err)

	changes := f.queue.PropertyChanges()
	require.Len(t, changes, 2)
	deletions := f.queue.EdgeDeletions()
	require.Len(t, deletions, 1)

	for _, change := range changes {
		assert.True(t, change.IsElementDeleted)
		require.NotNil(t, change.BeforeDeleteTimestamp)
		assert.True(t, change.BeforeDeleteTimestamp.Equal(deletions[0].Timestamp))
	}
}

func TestDeleteVertexPublicHidesOnly(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.NewVisibilityRecord(""))
	vertex.SetProperty(entities.Property{Key: "k1", Name: "title", Value: "Alice", Visibility: valueobjects.PublicVisibility()})
	f.store.Put(vertex)

	mention := &entities.TermMention{
		ID:           mustID(t, "tm1"),
		OutVertexID:  mustID(t, "source"),
		ResolvedToID: vertex.ID,
	}
	require.NoError(t, f.mentions.Save(ctx, mention))

	loaded, err := f.store.GetElement(ctx, vertex.ID, auths)
	require.NoError(t, err)

	err = f.engine.DeleteVertex(ctx, loaded, "ws1", true, events.PriorityNormal, auths)
	require.NoError(t, err)

	assert.False(t, f.store.Tombstoned(vertex.ID))
	assert.Contains(t, f.store.HiddenVisibilities(vertex.ID), "workspace:ws1")
	assert.True(t, f.workspaces.IsRegistered("ws1", vertex.ID))

	// the public branch stops after hiding: mentions stay resolved
	assert.False(t, f.mentions.Mention(mention.ID).Tombstoned)

	deletions := f.queue.VertexDeletions()
	require.Len(t, deletions, 1)
	assert.Equal(t, events.PriorityHigh, deletions[0].Priority)
}

func TestDeleteVertexSandboxedFullCascade(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.VisibilityRecord{Source: "workspace:ws1", Workspaces: []string{"ws1"}})
	vertex.SetProperty(entities.Property{Key: "rk", Name: entities.PropertyNameRowKey, Value: "row-1", Visibility: valueobjects.WorkspaceVisibility("ws1")})
	f.store.Put(vertex)

	// an entity whose current image is the vertex being deleted
	entity := entities.NewVertex(mustID(t, "entity"), valueobjects.NewVisibilityRecord(""))
	entity.SetProperty(entities.Property{Key: "img", Name: entities.PropertyNameEntityImage, Value: "v1", Visibility: valueobjects.PublicVisibility()})
	f.store.Put(entity)
	imageEdge := entities.NewEdge(mustID(t, "image-edge"), entity.ID, vertex.ID, entityHasImageIRI, valueobjects.NewVisibilityRecord(""))
	f.store.Put(imageEdge)

	// an artifact carrying a detected-object overlay for the vertex
	artifact := entities.NewVertex(mustID(t, "artifact"), valueobjects.NewVisibilityRecord(""))
	artifact.SetProperty(entities.Property{Key: "row-1", Name: entities.PropertyNameDetectedObject, Value: "{}", Visibility: valueobjects.PublicVisibility()})
	f.store.Put(artifact)
	artifactEdge := entities.NewEdge(mustID(t, "artifact-edge"), artifact.ID, vertex.ID, artifactContainsImageIRI, valueobjects.NewVisibilityRecord(""))
	f.store.Put(artifactEdge)

	// a resolved term mention pointing at the vertex
	source := entities.NewVertex(mustID(t, "source"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(source)
	resolveEdge := entities.NewEdge(mustID(t, "resolve-edge"), source.ID, vertex.ID, "resolvedTo", valueobjects.NewVisibilityRecord(""))
	f.store.Put(resolveEdge)
	mention := &entities.TermMention{
		ID:            mustID(t, "tm1"),
		OutVertexID:   source.ID,
		ResolvedToID:  vertex.ID,
		ResolveEdgeID: resolveEdge.ID,
	}
	require.NoError(t, f.mentions.Save(ctx, mention))

	// workspace membership edge, visible only with the system visibility
	membershipEdge := entities.NewEdge(mustID(t, "membership-edge"), mustID(t, "ws1"), vertex.ID, "workspaceToEntity", valueobjects.NewVisibilityRecord("workspace"))
	f.store.Put(membershipEdge)

	loaded, err := f.store.GetElement(ctx, vertex.ID, auths)
	require.NoError(t, err)

	err = f.engine.DeleteVertex(ctx, loaded, "ws1", false, events.PriorityNormal, auths)
	require.NoError(t, err)

	assert.True(t, f.store.Tombstoned(vertex.ID))
	assert.True(t, f.workspaces.IsRegistered("ws1", vertex.ID))

	// image pointer cleaned on the neighboring entity
	assert.False(t, f.store.HasProperty(entity.ID, "img", entities.PropertyNameEntityImage))
	require.Len(t, f.queue.ImageChanges(), 1)

	// detected-object overlay and its edge cleaned together
	assert.False(t, f.store.HasProperty(artifact.ID, "row-1", entities.PropertyNameDetectedObject))
	assert.True(t, f.store.Tombstoned(artifactEdge.ID))

	// mention unresolved: record tombstoned, resolve edge tombstoned
	assert.True(t, f.mentions.Mention(mention.ID).Tombstoned)
	assert.True(t, f.store.Tombstoned(resolveEdge.ID))
	require.Len(t, f.queue.TextUpdates(), 1)

	// membership edge soft deleted under the system authorization
	assert.True(t, f.store.Tombstoned(membershipEdge.ID))

	deletions := f.queue.VertexDeletions()
	require.Len(t, deletions, 1)
	assert.Equal(t, events.PriorityHigh, deletions[0].Priority)
}

func TestDeleteVertexDetectedObjectEventsShareTimestamp(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.VisibilityRecord{Source: "workspace:ws1", Workspaces: []string{"ws1"}})
	vertex.SetProperty(entities.Property{Key: "rk", Name: entities.PropertyNameRowKey, Value: "row-1", Visibility: valueobjects.WorkspaceVisibility("ws1")})
	f.store.Put(vertex)

	artifact := entities.NewVertex(mustID(t, "artifact"), valueobjects.NewVisibilityRecord(""))
	artifact.SetProperty(entities.Property{Key: "row-1", Name: entities.PropertyNameDetectedObject, Value: "{}", Visibility: valueobjects.PublicVisibility()})
	f.store.Put(artifact)
	artifactEdge := entities.NewEdge(mustID(t, "artifact-edge"), artifact.ID, vertex.ID, artifactContainsImageIRI, valueobjects.NewVisibilityRecord(""))
	f.store.Put(artifactEdge)

	loaded, err := f.store.GetElement(ctx, vertex.ID, auths)
	require.NoError(t, err)

	err = f.engine.DeleteVertex(ctx, loaded, "ws1", false, events.PriorityNormal, auths)
	require.NoError(t, err)

	var overlayChange *events.PropertyChanged
	for _, change := range f.queue.PropertyChanges() {
		if change.PropertyName == entities.PropertyNameDetectedObject {
			c := change
			overlayChange = &c
			break
		}
	}
	require.NotNil(t, overlayChange)

	var edgeDeletion *events.EdgeDeleted
	for _, deletion := range f.queue.EdgeDeletions() {
		if deletion.EdgeID == artifactEdge.ID.String() {
			d := deletion
			edgeDeletion = &d
			break
		}
	}
	require.NotNil(t, edgeDeletion)

	// consumers correlate the overlay removal with the edge deletion
	assert.True(t, overlayChange.Timestamp.Equal(edgeDeletion.Timestamp))
	assert.Equal(t, "row-1", overlayChange.PropertyKey)
	assert.False(t, overlayChange.IsElementDeleted)
}

func TestDeleteVertexSkipsImageCleanupWhenIntentUnmapped(t *testing.T) {
	f := newFixture(map[string]string{})
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.VisibilityRecord{Source: "workspace:ws1", Workspaces: []string{"ws1"}})
	f.store.Put(vertex)

	entity := entities.NewVertex(mustID(t, "entity"), valueobjects.NewVisibilityRecord(""))
	entity.SetProperty(entities.Property{Key: "img", Name: entities.PropertyNameEntityImage, Value: "v1", Visibility: valueobjects.PublicVisibility()})
	f.store.Put(entity)
	imageEdge := entities.NewEdge(mustID(t, "image-edge"), entity.ID, vertex.ID, entityHasImageIRI, valueobjects.NewVisibilityRecord(""))
	f.store.Put(imageEdge)

	loaded, err := f.store.GetElement(ctx, vertex.ID, auths)
	require.NoError(t, err)

	err = f.engine.DeleteVertex(ctx, loaded, "ws1", false, events.PriorityNormal, auths)
	require.NoError(t, err)

	// the deletion itself still lands; only the image step is skipped
	assert.True(t, f.store.Tombstoned(vertex.ID))
	assert.True(t, f.store.HasProperty(entity.ID, "img", entities.PropertyNameEntityImage))
	assert.Empty(t, f.queue.ImageChanges())
}

func TestDeleteVertexConcurrentCascades(t *testing.T) {
	f := newFixture(map[string]string{})
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertices := make([]*entities.Element, 8)
	for i := range vertices {
		vertex := entities.NewVertex(mustID(t, fmt.Sprintf("v%d", i)), valueobjects.VisibilityRecord{Source: "workspace:ws1", Workspaces: []string{"ws1"}})
		f.store.Put(vertex)
		vertices[i] = vertex
	}

	var wg sync.WaitGroup
	errs := make([]error, len(vertices))
	for i, vertex := range vertices {
		wg.Add(1)
		go func(i int, vertex *entities.Element) {
			defer wg.Done()
			errs[i] = f.engine.DeleteVertex(ctx, vertex, "ws1", false, events.PriorityNormal, auths)
		}(i, vertex)
	}
	wg.Wait()

	for i, vertex := range vertices {
		require.NoError(t, errs[i])
		assert.True(t, f.store.Tombstoned(vertex.ID))
	}
}

func TestDeleteVertexToleratesAlreadyCleanedImagePointer(t *testing.T) {
	f := newFixture(allIntents())
	ctx := context.Background()
	auths := workspaceAuths("ws1")

	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.VisibilityRecord{Source: "workspace:ws1", Workspaces: []string{"ws1"}})
	f.store.Put(vertex)

	// the edge exists but another cascade already removed the pointer property
	entity := entities.NewVertex(mustID(t, "entity"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(entity)
	imageEdge := entities.NewEdge(mustID(t, "image-edge"), entity.ID, vertex.ID, entityHasImageIRI, valueobjects.NewVisibilityRecord(""))
	f.store.Put(imageEdge)

	loaded, err := f.store.GetElement(ctx, vertex.ID, auths)
	require.NoError(t, err)

	err = f.engine.DeleteVertex(ctx, loaded, "ws1", false, events.PriorityNormal, auths)
	require.NoError(t, err)

	assert.True(t, f.store.Tombstoned(vertex.ID))
	assert.Empty(t, f.queue.ImageChanges())
}
