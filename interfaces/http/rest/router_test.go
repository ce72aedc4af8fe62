package rest_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sandgraph/application/cascade"
	"sandgraph/application/commands"
	"sandgraph/application/commands/bus"
	"sandgraph/application/commands/handlers"
	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/infrastructure/config"
	"sandgraph/infrastructure/ontology"
	"sandgraph/infrastructure/persistence/memory"
	"sandgraph/interfaces/http/rest"
	"sandgraph/pkg/auth"
)

type routerFixture struct {
	store      *memory.ElementStore
	workspaces *memory.WorkspaceRepository
	queue      *memory.ChangeQueue
	validator  *auth.JWTValidator
	server     http.Handler
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	store := memory.NewElementStore()
	mentions := memory.NewTermMentionRepository()
	workspaces := memory.NewWorkspaceRepository()
	queue := memory.NewChangeQueue()
	logger := zap.NewNop()
	engine := cascade.NewEngine(store, mentions, workspaces, ontology.NewStaticReader(nil), queue, logger)

	commandBus := bus.NewCommandBus()
	require.NoError(t, commandBus.Register(commands.DeleteVertexCommand{},
		handlers.NewDeleteVertexHandler(store, engine, nil, logger)))
	require.NoError(t, commandBus.Register(commands.DeleteEdgeCommand{},
		handlers.NewDeleteEdgeHandler(store, engine, nil, logger)))
	require.NoError(t, commandBus.Register(commands.DeletePropertyCommand{},
		handlers.NewDeletePropertyHandler(store, engine, nil, logger)))

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: "test-secret",
		Issuer:    "sandgraph",
	})
	require.NoError(t, err)

	cfg := &config.Config{EnableCORS: false}
	router := rest.NewRouter(commandBus, workspaces, validator, cfg, logger)
	return &routerFixture{
		store:      store,
		workspaces: workspaces,
		queue:      queue,
		validator:  validator,
		server:     router.Setup(),
	}
}

func (f *routerFixture) token(t *testing.T, privileges auth.Privileges, authorizations []string) string {
	t.Helper()
	token, err := f.validator.IssueToken("u1", "tester", privileges, authorizations, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	return f.doJSON(t, method, target, token, nil)
}

func (f *routerFixture) doJSON(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func mustID(t *testing.T, value string) valueobjects.ElementID {
	t.Helper()
	id, err := valueobjects.NewElementIDFromString(value)
	require.NoError(t, err)
	return id
}

func TestHealthEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/ready", "").Code)
}

func TestDeleteVertexRequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/vertices/v1?workspaceId=ws1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteVertexRejectsBadToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/vertices/v1?workspaceId=ws1", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteVertexTombstonesSandboxedVertex(t *testing.T) {
	f := newRouterFixture(t)
	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.VisibilityRecord{
		Source:     "workspace:ws1",
		Workspaces: []string{"ws1"},
	})
	f.store.Put(vertex)

	token := f.token(t, auth.NewPrivileges(auth.PrivilegeEdit), []string{"workspace:ws1"})
	rec := f.do(t, http.MethodDelete, "/api/v1/vertices/v1?workspaceId=ws1", token)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, f.store.Tombstoned(vertex.ID))
	assert.Len(t, f.queue.VertexDeletions(), 1)
}

func TestDeleteVertexPublishRequiresPrivilege(t *testing.T) {
	f := newRouterFixture(t)
	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(vertex)

	token := f.token(t, auth.NewPrivileges(auth.PrivilegeEdit), nil)
	rec := f.do(t, http.MethodDelete, "/api/v1/vertices/v1?publish=true", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := f.token(t, auth.NewPrivileges(auth.PrivilegeAdmin), nil)
	rec = f.do(t, http.MethodDelete, "/api/v1/vertices/v1?publish=true", admin)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDeleteVertexNotFound(t *testing.T) {
	f := newRouterFixture(t)

	token := f.token(t, auth.NewPrivileges(auth.PrivilegeEdit), []string{"workspace:ws1"})
	rec := f.do(t, http.MethodDelete, "/api/v1/vertices/missing?workspaceId=ws1", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEdgeTombstonesSandboxedEdge(t *testing.T) {
	f := newRouterFixture(t)
	out := entities.NewVertex(mustID(t, "a"), valueobjects.NewVisibilityRecord(""))
	in := entities.NewVertex(mustID(t, "b"), valueobjects.NewVisibilityRecord(""))
	f.store.Put(out)
	f.store.Put(in)
	edge := entities.NewEdge(mustID(t, "e1"), out.ID, in.ID, "knows", valueobjects.VisibilityRecord{
		Source:     "workspace:ws1",
		Workspaces: []string{"ws1"},
	})
	f.store.Put(edge)

	token := f.token(t, auth.NewPrivileges(auth.PrivilegeEdit), []string{"workspace:ws1"})
	rec := f.do(t, http.MethodDelete, "/api/v1/edges/e1?workspaceId=ws1", token)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, f.store.Tombstoned(edge.ID))
}

func TestDeletePropertyValidatesQueryParams(t *testing.T) {
	f := newRouterFixture(t)

	token := f.token(t, auth.NewPrivileges(auth.PrivilegeEdit), []string{"workspace:ws1"})
	// propertyName missing
	rec := f.do(t, http.MethodDelete, "/api/v1/vertices/v1/property?workspaceId=ws1&propertyKey=k1", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProductCreatesAndUpdates(t *testing.T) {
	f := newRouterFixture(t)

	token := f.token(t, auth.NewPrivileges(auth.PrivilegeEdit), []string{"workspace:ws1"})
	rec := f.doJSON(t, http.MethodPut, "/api/v1/workspaces/ws1/product", token, map[string]interface{}{
		"title": "Investigation map",
		"kind":  "map",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"createdAt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Investigation map", created.Title)

	// renaming keeps the kind and the creation time
	rec = f.doJSON(t, http.MethodPut, "/api/v1/workspaces/ws1/product", token, map[string]interface{}{
		"productId": created.ID,
		"title":     "Renamed map",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored := f.workspaces.Product("ws1", created.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "Renamed map", stored.Title)
	assert.Equal(t, "map", stored.Kind)
	assert.True(t, stored.CreatedAt.Equal(created.CreatedAt))
}

func TestUpdateProductRequiresEditPrivilege(t *testing.T) {
	f := newRouterFixture(t)

	token := f.token(t, auth.NewPrivileges(), []string{"workspace:ws1"})
	rec := f.doJSON(t, http.MethodPut, "/api/v1/workspaces/ws1/product", token, map[string]interface{}{
		"title": "Investigation map",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeletePropertyCascades(t *testing.T) {
	f := newRouterFixture(t)
	vertex := entities.NewVertex(mustID(t, "v1"), valueobjects.NewVisibilityRecord(""))
	vertex.Properties = []entities.Property{
		{Key: "k1", Name: "title", Value: "draft", Visibility: valueobjects.WorkspaceVisibility("ws1")},
	}
	f.store.Put(vertex)

	token := f.token(t, auth.NewPrivileges(auth.PrivilegeEdit), []string{"workspace:ws1"})
	rec := f.do(t, http.MethodDelete,
		"/api/v1/vertices/v1/property?workspaceId=ws1&propertyKey=k1&propertyName=title", token)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, f.store.HasProperty(vertex.ID, "k1", "title"))
	assert.Len(t, f.queue.PropertyChanges(), 1)
}
