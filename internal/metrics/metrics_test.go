package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

type stubContract struct {
	err error
}

func (s stubContract) View(context.Context, string, any) (json.RawMessage, error) {
	return json.RawMessage(`"HELLO"`), s.err
}

func (s stubContract) Call(context.Context, ports.ChangeCall) (json.RawMessage, error) {
	return json.RawMessage(`true`), s.err
}

func TestInstrumentContractCountsOutcomes(t *testing.T) {
	m := New()
	ctx := context.Background()

	_, err := InstrumentContract(stubContract{}, m).View(ctx, ports.MethodPing, nil)
	require.NoError(t, err)

	failing := InstrumentContract(stubContract{err: fmt.Errorf("relay: %w", domain.ErrCallFailed)}, m)
	_, err = failing.Call(ctx, ports.ChangeCall{Method: ports.MethodVote})
	assert.ErrorIs(t, err, domain.ErrCallFailed)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.contractCalls.WithLabelValues(ports.MethodPing, "view", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contractCalls.WithLabelValues(ports.MethodVote, "change", "failed")))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "timeout", outcome(context.DeadlineExceeded))
	assert.Equal(t, "unavailable", outcome(domain.ErrChangeUnavailable))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.InstrumentHandler)
	r.Get("/polls/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/polls/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/polls/{id}", "418")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.RecordContractCall(ports.MethodShowPoll, "view", nil, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "near_poll_contract_calls_total")
}
