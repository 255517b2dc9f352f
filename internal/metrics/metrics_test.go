package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Transition(valueobject.ProposalStatusSubmitted, valueobject.ProposalStatusRnDReview)
	m.Transition(valueobject.ProposalStatusSubmitted, valueobject.ProposalStatusRnDReview)
	m.Rejection(apperror.ErrCodeStaleState)
	m.EventPublished("audit", "rating_recorded")
	m.EventFailed("nats")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("submitted", "rnd_review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("STALE_STATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("audit", "rating_recorded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("nats")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Rejection(apperror.ErrCodeForbidden)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `research_review_workflow_rejections_total{code="FORBIDDEN"} 1`))
}
