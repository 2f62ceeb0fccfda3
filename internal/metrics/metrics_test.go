package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"memberdesk/internal/domain/submission"
)

func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		status int
		err    error
		want   string
	}{
		{200, nil, "ok"},
		{201, nil, "ok"},
		{200, errors.New("success false"), "refused"},
		{404, errors.New("not found"), "4xx"},
		{502, errors.New("bad gateway"), "5xx"},
		{0, errors.New("dial tcp"), "transport_error"},
	}
	for _, tt := range tests {
		if got := outcomeLabel(tt.status, tt.err); got != tt.want {
			t.Errorf("outcomeLabel(%d, %v) = %q, want %q", tt.status, tt.err, got, tt.want)
		}
	}
}

// counterValue sums the counter samples of name whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, want) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestObserveBackendCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveBackendCall("members", "GET", 200, nil, 30*time.Millisecond)
	m.ObserveBackendCall("members", "GET", 200, nil, 40*time.Millisecond)
	m.ObserveBackendCall("members", "POST", 500, errors.New("boom"), time.Millisecond)

	const name = "memberdesk_backend_requests_total"
	if got := counterValue(t, reg, name, map[string]string{"resource": "members", "method": "GET", "outcome": "ok"}); got != 2 {
		t.Errorf("ok GET = %v, want 2", got)
	}
	if got := counterValue(t, reg, name, map[string]string{"method": "POST", "outcome": "5xx"}); got != 1 {
		t.Errorf("5xx POST = %v, want 1", got)
	}
}

func TestObserveSubmission(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveSubmission(submission.Outcome{
		Mode:     submission.ModeCreate,
		State:    submission.StateComplete,
		Failures: []submission.ItemFailure{{Index: 1, Name: "B"}},
	})
	m.ObserveSubmission(submission.Outcome{Mode: submission.ModeEdit, State: submission.StatePrimaryFailed})

	if got := counterValue(t, reg, "memberdesk_submissions_total", map[string]string{"mode": "create", "state": "complete"}); got != 1 {
		t.Errorf("create/complete = %v", got)
	}
	if got := counterValue(t, reg, "memberdesk_submissions_total", map[string]string{"mode": "edit", "state": "primary_failed"}); got != 1 {
		t.Errorf("edit/primary_failed = %v", got)
	}
	if got := counterValue(t, reg, "memberdesk_submission_dependent_failures_total", map[string]string{"mode": "create"}); got != 1 {
		t.Errorf("dependent failures = %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New(nil)
	m.ObserveBulkEmail("backend", 3, 1, 0)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `memberdesk_bulk_email_recipients_total{dispatch="backend",result="sent"} 3`) {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("runtime collector missing")
	}
}
