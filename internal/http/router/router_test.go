package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/app"
	"github.com/ignatzorin/research-review/internal/config"
	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/interface/http/handler"
	"github.com/ignatzorin/research-review/internal/metrics"
	"github.com/ignatzorin/research-review/internal/service"
	"github.com/ignatzorin/research-review/internal/storage"
	"github.com/ignatzorin/research-review/internal/usecase/evaluator"
	"github.com/ignatzorin/research-review/internal/ws"
)

func setup(t *testing.T) (http.Handler, *service.TokenManager) {
	t.Helper()
	cfg := &config.Config{
		Env:             "development",
		StorageDriver:   config.StorageDriverMemory,
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitLimit:  100,
		RateLimitPeriod: time.Minute,
	}
	stores, err := app.OpenStores(t.Context(), cfg, false)
	require.NoError(t, err)

	m := metrics.New()
	uc, err := app.NewProposalUseCases(config.DefaultWorkflowPolicy(), stores, nil, m, nil)
	require.NoError(t, err)
	docs, err := storage.NewDocumentStorage(t.TempDir(), 1)
	require.NoError(t, err)
	tokens := service.NewTokenManager("router-test-secret-0123456789abcdef", time.Hour)
	hub := ws.NewHub()

	engine := SetupRouter(cfg, Handlers{
		Proposals:     handler.NewProposalHandler(uc),
		Evaluators:    handler.NewEvaluatorHandler(evaluator.NewDirectoryUseCase(stores.Evaluators, nil)),
		Maintenance:   handler.NewMaintenanceHandler(uc),
		Documents:     handler.NewDocumentHandler(docs),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(stores.Notifications)),
		WS:            handler.NewWSHandler(hub, tokens, cfg.AllowedOrigins),
		Health:        handler.NewHealthHandler(nil),
		Metrics:       m.Handler(),
	}, tokens)
	return engine, tokens
}

func request(t *testing.T, h http.Handler, tokens *service.TokenManager, role valueobject.Role, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, _, err := tokens.GenerateAccess(entity.Actor{ID: uuid.New(), Role: role})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicEndpoints(t *testing.T) {
	h, tokens := setup(t)

	assert.Equal(t, http.StatusOK, request(t, h, tokens, "", http.MethodGet, "/health").Code)

	w := request(t, h, tokens, "", http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouter_RequiresToken(t *testing.T) {
	h, tokens := setup(t)

	assert.Equal(t, http.StatusUnauthorized, request(t, h, tokens, "", http.MethodGet, "/api/proposals").Code)
	assert.Equal(t, http.StatusOK, request(t, h, tokens, valueobject.RoleRnDStaff, http.MethodGet, "/api/proposals").Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, tokens, "", http.MethodGet, "/api/ws").Code)
}

func TestRouter_ValidatesPathIDs(t *testing.T) {
	h, tokens := setup(t)

	w := request(t, h, tokens, valueobject.RoleRnDStaff, http.MethodGet, "/api/proposals/123/budget")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_MaintenanceIsAdminOnly(t *testing.T) {
	h, tokens := setup(t)

	assert.Equal(t, http.StatusForbidden, request(t, h, tokens, valueobject.RoleRnDStaff, http.MethodPost, "/api/maintenance/assignments/overdue").Code)
	assert.Equal(t, http.StatusOK, request(t, h, tokens, valueobject.RoleAdmin, http.MethodPost, "/api/maintenance/assignments/overdue").Code)
}
