package metrics

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMetricsCounters(t *testing.T) {
	s := GetSnapshot()
	initialRuns := s.Runs
	initialSkips := s.WindowSkips
	initialSignals := s.SignalsDetected
	initialSuccess := s.DispatchSuccess
	initialFailure := s.DispatchFailure
	initialMailErrs := s.SourceErrorsMail
	initialChatErrs := s.SourceErrorsChat

	IncRun()
	IncWindowSkip()
	AddSignals(3)
	IncDispatchSuccess()
	IncDispatchFailure()
	IncSourceError("mail")
	IncSourceError("slack")
	SetLastRun(time.Unix(123456789, 0))

	s2 := GetSnapshot()
	if s2.Runs != initialRuns+1 {
		t.Fatalf("expected runs to increment by 1, got %d", s2.Runs)
	}
	if s2.WindowSkips != initialSkips+1 {
		t.Fatalf("expected window_skips to increment by 1, got %d", s2.WindowSkips)
	}
	if s2.SignalsDetected != initialSignals+3 {
		t.Fatalf("expected signals_detected to increase by 3, got %d", s2.SignalsDetected)
	}
	if s2.DispatchSuccess != initialSuccess+1 {
		t.Fatalf("expected dispatch_success to increment by 1, got %d", s2.DispatchSuccess)
	}
	if s2.DispatchFailure != initialFailure+1 {
		t.Fatalf("expected dispatch_failure to increment by 1, got %d", s2.DispatchFailure)
	}
	if s2.SourceErrorsMail != initialMailErrs+1 {
		t.Fatalf("expected source_errors_mail to increment by 1, got %d", s2.SourceErrorsMail)
	}
	if s2.SourceErrorsChat != initialChatErrs+1 {
		t.Fatalf("expected source_errors_slack to increment by 1, got %d", s2.SourceErrorsChat)
	}
	if s2.LastRun != 123456789 {
		t.Fatalf("expected last run timestamp 123456789, got %d", s2.LastRun)
	}
	if s2.LastRunHuman == "" {
		t.Fatal("expected non-empty LastRunHuman")
	}
}

func TestPromHandler(t *testing.T) {
	if PromHandler() == nil {
		t.Fatal("PromHandler returned nil")
	}
}

func TestJSONHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	var snap StatsSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
}
