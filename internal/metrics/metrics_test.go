package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var errGone = errors.New("gone")

func TestOutcome(t *testing.T) {
	kinds := map[error]string{errGone: "not_found"}
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errGone, "not_found"},
		{errors.Join(errors.New("ctx"), errGone), "not_found"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err, kinds); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(DomainConflicts.WithLabelValues("seat_taken"))
	RecordConflict("seat_taken")
	if got := testutil.ToFloat64(DomainConflicts.WithLabelValues("seat_taken")); got != before+1 {
		t.Errorf("conflicts = %v, want %v", got, before+1)
	}

	RecordOperation("booking.create", "ok")
	if got := testutil.ToFloat64(DomainOperations.WithLabelValues("booking.create", "ok")); got < 1 {
		t.Errorf("operations = %v, want >= 1", got)
	}

	RecordHTTPRequest("GET", "/movies/all", 200, 3*time.Millisecond)
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/movies/all", "200")); got < 1 {
		t.Errorf("http requests = %v, want >= 1", got)
	}

	RecordLockWait("theater", time.Millisecond)
	if n := testutil.CollectAndCount(LockWait); n < 1 {
		t.Errorf("lock wait series = %d, want >= 1", n)
	}
}
