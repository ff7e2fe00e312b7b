package session

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/lurk/internal/domain"
)

func TestTrackerNumbersAttempts(t *testing.T) {
	mock := clock.NewMock()
	tr := NewTracker(mock)

	start := tr.Begin(domain.Version{2, 3000, 1}, false, "")
	if start.Attempt != 1 || start.Alert != "" {
		t.Fatalf("expected first attempt without alert, got %+v", start)
	}

	tr.Opened()
	tr.AddMessages(3, 1)
	tr.AddCredentialSave()
	mock.Add(90 * time.Second)

	end := tr.End(domain.Outcome{Action: domain.ActionRetry, Reason: "connection-lost"}, 408)
	if end == nil || end.Attempt != 1 {
		t.Fatalf("expected attempt 1 to close")
	}
	if !end.Summary.Opened || end.Summary.Messages != 3 || end.Summary.StatusRead != 1 || end.Summary.CredentialSaves != 1 {
		t.Fatalf("unexpected summary %+v", end.Summary)
	}
	if end.Summary.DurationSeconds != 90 {
		t.Fatalf("expected 90s duration, got %d", end.Summary.DurationSeconds)
	}
	if end.Outcome != "retry" || end.Code != 408 {
		t.Fatalf("unexpected outcome %q code %d", end.Outcome, end.Code)
	}

	// second attempt resets counters and flags the reconnect
	start = tr.Begin(domain.Version{2, 3000, 1}, true, "connection-lost")
	if start.Attempt != 2 || start.Alert != "RECONNECTING" || start.PreviousCause != "connection-lost" {
		t.Fatalf("expected reconnect start, got %+v", start)
	}
	if attempt, opened, messages, status := tr.Stats(); attempt != 2 || opened || messages != 0 || status != 0 {
		t.Fatalf("expected fresh counters, got %d %v %d %d", attempt, opened, messages, status)
	}
}

func TestTrackerEndWithoutBegin(t *testing.T) {
	tr := NewTracker(nil)
	if end := tr.End(domain.Outcome{}, 0); end != nil {
		t.Fatalf("expected nil end without an active attempt")
	}

	tr.Begin(domain.Version{}, false, "")
	if tr.End(domain.Outcome{}, 0) == nil {
		t.Fatalf("expected end for active attempt")
	}
	if tr.End(domain.Outcome{}, 0) != nil {
		t.Fatalf("expected attempt to end only once")
	}
}
