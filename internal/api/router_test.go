package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/energy-agent/internal/api"
	"github.com/Rrens/energy-agent/internal/config"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/llm"
	"github.com/Rrens/energy-agent/internal/repository/redis"
	"github.com/Rrens/energy-agent/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars!!"

type testServer struct {
	handler     http.Handler
	jwt         *security.JWTManager
	chat        *MockChatService
	sessions    *MockSessionService
	collections *MockCollectionService
	artifacts   *MockArtifactService
	cache       *MockCacheFlusher
	limiter     *MockLimiter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		jwt:         security.NewJWTManager(testSecret, 15*time.Minute, ""),
		chat:        new(MockChatService),
		sessions:    new(MockSessionService),
		collections: new(MockCollectionService),
		artifacts:   new(MockArtifactService),
		cache:       new(MockCacheFlusher),
		limiter:     new(MockLimiter),
	}

	cfg := &config.Config{}
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	s.handler = api.NewRouter(cfg, api.Dependencies{
		JWT:         s.jwt,
		Limiter:     s.limiter,
		Chat:        s.chat,
		Sessions:    s.sessions,
		Collections: s.collections,
		Artifacts:   s.artifacts,
		Cache:       s.cache,
		Providers:   llm.NewRouter("gemini"),
	})
	return s
}

func (s *testServer) allowAll() {
	s.limiter.On("Allow", mock.Anything, mock.Anything).Return(redis.Decision{
		Allowed:   true,
		Limit:     70,
		Remaining: 69,
		ResetAt:   time.Now().Add(time.Minute),
	}, nil)
}

func (s *testServer) do(t *testing.T, method, path string, body any, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		buf = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := s.jwt.GenerateAccessToken(userID, userID+"@example.com")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/health", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestReadyCheckWithoutDependencies(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/metrics", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestChat_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"message": "hi"}, "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.CodeUnauthorized, env.Error.Code)
	s.chat.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

func TestChat_RejectsForgedToken(t *testing.T) {
	s := newTestServer(t)
	other := security.NewJWTManager("another-secret-key-at-least-32-chars", time.Minute, "")
	token, err := other.GenerateAccessToken("user-1", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChat_ReturnsAgentResponse(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.chat.On("Chat", mock.Anything, "user-1", mock.MatchedBy(func(req domain.QueryRequest) bool {
		return req.Message == "porosity of WELL-001" && req.UserID == "user-1" && req.ChatSessionID == "s-1"
	})).Return(&domain.AgentResponse{
		Success:           true,
		Message:           "done",
		Artifacts:         []domain.Artifact{{"messageContentType": "comprehensive_porosity_analysis"}},
		ThoughtSteps:      []domain.ThoughtStep{},
		SourceAttribution: []domain.SourceAttribution{},
		AgentUsed:         "petrophysics",
	}, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"message":       "porosity of WELL-001",
		"chatSessionId": "s-1",
		"userId":        "spoofed",
	}, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.AgentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "petrophysics", resp.AgentUsed)
	assert.Len(t, resp.Artifacts, 1)
	assert.Equal(t, "69", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestChat_AgentTypeIsParsedByService(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.chat.On("Chat", mock.Anything, "user-1", mock.MatchedBy(func(req domain.QueryRequest) bool {
		return req.AgentType == "Petrophysics"
	})).Return(&domain.AgentResponse{Success: true, Message: "ok", AgentUsed: "petrophysics"}, nil)
	s.chat.On("Chat", mock.Anything, "user-1", mock.MatchedBy(func(req domain.QueryRequest) bool {
		return req.AgentType == "weather"
	})).Return(nil, fmt.Errorf("unknown agent type %q: %w", "weather", domain.ErrValidation))

	rec := s.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"message": "porosity", "agentType": "Petrophysics"}, "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"message": "forecast", "agentType": "weather"}, "user-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.CodeValidation, env.Error.Code)
}

func TestChat_AgentFailureStillAnswers200(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.chat.On("Chat", mock.Anything, "user-1", mock.Anything).Return(domain.FailureResponse("handler failed"), nil)

	rec := s.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"message": "status of PUMP-001"}, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"handler failed","artifacts":[],"thoughtSteps":[],"sourceAttribution":[]}`, rec.Body.String())
}

func TestChat_ForeignSessionIsForbidden(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.chat.On("Chat", mock.Anything, "user-1", mock.Anything).Return(nil, domain.ErrForbidden)

	rec := s.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"message": "hi", "chatSessionId": "s-2"}, "user-1")

	require.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.CodeForbidden, env.Error.Code)
}

func TestChat_StorageFailureIsGeneric(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.chat.On("Chat", mock.Anything, "user-1", mock.Anything).Return(nil, errors.New("pq: connection reset by peer"))

	rec := s.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"message": "hi"}, "user-1")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.CodeInternal, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "connection reset")
}

func TestChat_Validation(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()

	rec := s.do(t, http.MethodPost, "/api/v1/chat", map[string]any{"agentType": "petrophysics"}, "user-1")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.CodeValidation, env.Error.Code)
	assert.Equal(t, "field is required", env.Error.Details["message"])

	rec = s.do(t, http.MethodPost, "/api/v1/chat", "{not json", "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/chat", nil, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitExceeded(t *testing.T) {
	s := newTestServer(t)
	s.limiter.On("Allow", mock.Anything, "user-1").Return(redis.Decision{
		Allowed: false,
		Limit:   70,
		ResetAt: time.Now().Add(30 * time.Second),
	}, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/sessions", nil, "user-1")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.CodeRateLimited, env.Error.Code)
}

func TestRateLimiterUnavailableAllowsRequest(t *testing.T) {
	s := newTestServer(t)
	s.limiter.On("Allow", mock.Anything, "user-1").Return(redis.Decision{}, errors.New("dial tcp: connection refused"))
	s.sessions.On("List", mock.Anything, "user-1", 20, 0).Return([]domain.ChatSession{}, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/sessions", nil, "user-1")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessions_ListClampsPaging(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.sessions.On("List", mock.Anything, "user-1", 100, 5).Return([]domain.ChatSession{{ID: "s-1", Owner: "user-1"}}, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/sessions?limit=500&offset=5", nil, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	s.sessions.AssertExpectations(t)
}

func TestSessions_CreateWithoutBody(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.sessions.On("Create", mock.Anything, "user-1", "", (*string)(nil)).
		Return(&domain.ChatSession{ID: "s-1", Owner: "user-1", Name: domain.DefaultSessionName}, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/sessions", nil, "user-1")

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	var session domain.ChatSession
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, domain.DefaultSessionName, session.Name)
}

func TestSessions_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.sessions.On("Get", mock.Anything, "user-1", "s-foreign").Return(nil, domain.ErrForbidden)
	s.sessions.On("Get", mock.Anything, "user-1", "s-missing").Return(nil, domain.ErrNotFound)
	s.sessions.On("Update", mock.Anything, "user-1", "s-busy", mock.Anything).Return(nil, domain.ErrConflict)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/sessions/s-foreign", nil, "user-1").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/sessions/s-missing", nil, "user-1").Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPatch, "/api/v1/sessions/s-busy", map[string]any{"name": "x"}, "user-1").Code)
}

func TestSessions_DeleteMessagesAndSteps(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.sessions.On("Delete", mock.Anything, "user-1", "s-1").Return(nil)
	s.sessions.On("Messages", mock.Anything, "user-1", "s-1", 5).Return([]domain.Message{{ID: "m1"}}, nil)
	s.sessions.On("ThoughtSteps", mock.Anything, "user-1", "s-1").Return([]domain.ThoughtStep{{ID: "t1"}}, nil)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/sessions/s-1", nil, "user-1").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/sessions/s-1/messages?limit=5", nil, "user-1").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/sessions/s-1/thought-steps", nil, "user-1").Code)
	s.sessions.AssertExpectations(t)
}

func TestCollections_CreateValidates(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()

	rec := s.do(t, http.MethodPost, "/api/v1/collections", map[string]any{"name": "Permian"}, "user-1")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "field is required", env.Error.Details["dataItems"])
	s.collections.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCollections_CreateAndGet(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	created := &domain.Collection{ID: "c-1", Owner: "user-1", Name: "Permian", DataItems: []domain.DataItem{{ID: "WELL-001"}}}
	s.collections.On("Create", mock.Anything, "user-1", mock.Anything).Return(created, nil)
	s.collections.On("Get", mock.Anything, "user-1", "c-1").Return(created, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/collections", map[string]any{
		"name":      "Permian",
		"dataItems": []map[string]string{{"id": "WELL-001"}},
	}, "user-1")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/collections/c-1", nil, "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestArtifacts_GetStreamsObject(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.artifacts.On("Get", mock.Anything, "user-1", "renewable/s-1/abc/layout.json").Return(&domain.Object{
		ObjectInfo: domain.ObjectInfo{Key: "renewable/s-1/abc/layout.json", ContentType: "application/geo+json", LastModified: time.Now()},
		Data:       []byte(`{"type":"FeatureCollection"}`),
	}, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/artifacts/renewable/s-1/abc/layout.json", nil, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"type":"FeatureCollection"}`, rec.Body.String())
}

func TestArtifacts_ListAndDelete(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.artifacts.On("List", mock.Anything, "user-1", "wells/", 0).Return([]domain.ObjectInfo{{Key: "wells/WELL-001.las"}}, nil)
	s.artifacts.On("Delete", mock.Anything, "user-1", []string{"renewable/s-1/abc/layout.json"}).Return(int64(1), nil)

	rec := s.do(t, http.MethodGet, "/api/v1/artifacts?prefix=wells/", nil, "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/artifacts", map[string]any{"keys": []string{"renewable/s-1/abc/layout.json"}}, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Data))

	rec = s.do(t, http.MethodDelete, "/api/v1/artifacts", map[string]any{"keys": []string{}}, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifacts_ForeignKeyIsForbidden(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.artifacts.On("Get", mock.Anything, "user-2", "renewable/s-1/abc/layout.json").Return(nil, domain.ErrForbidden)
	s.artifacts.On("Delete", mock.Anything, "user-2", []string{"wells/WELL-001.las"}).Return(int64(0), domain.ErrForbidden)

	rec := s.do(t, http.MethodGet, "/api/v1/artifacts/renewable/s-1/abc/layout.json", nil, "user-2")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/artifacts", map[string]any{"keys": []string{"wells/WELL-001.las"}}, "user-2")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFlushCacheAndProviders(t *testing.T) {
	s := newTestServer(t)
	s.allowAll()
	s.cache.On("FlushCache", mock.Anything).Return(int64(3), nil)

	rec := s.do(t, http.MethodPost, "/api/v1/cache/flush", nil, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, string(env.Data), `"keys_deleted":3`)

	rec = s.do(t, http.MethodGet, "/api/v1/llm-providers", nil, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.JSONEq(t, `{"providers":[],"default_provider":"gemini"}`, string(env.Data))
}
