package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestPrometheusSink_Attempts(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg)

	s.RunStarted(3, 2)
	s.AttemptCompleted(OutcomeSuccess, "", time.Second)
	s.AttemptCompleted(OutcomeFailed, "submission", 2*time.Second)
	s.RunFinished(1, 1)

	pending := gather(t, reg, "airdrop_pending_records")
	if len(pending) != 1 || pending[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected pending gauge 1, got=%v", pending)
	}

	settled := gather(t, reg, "airdrop_settled_records")
	if len(settled) != 1 || settled[0].GetGauge().GetValue() != 2 {
		t.Fatalf("expected settled gauge 2, got=%v", settled)
	}

	byOutcome := map[string]float64{}
	for _, m := range gather(t, reg, "airdrop_transfers_total") {
		byOutcome[labelValue(m, "outcome")] = m.GetCounter().GetValue()
	}
	if byOutcome[OutcomeSuccess] != 1 || byOutcome[OutcomeFailed] != 1 {
		t.Fatalf("unexpected outcomes: %v", byOutcome)
	}

	failures := gather(t, reg, "airdrop_transfer_failures_total")
	if len(failures) != 1 || labelValue(failures[0], "kind") != "submission" {
		t.Fatalf("unexpected failures: %v", failures)
	}

	hist := gather(t, reg, "airdrop_attempt_duration_seconds")
	if len(hist) != 1 || hist[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected 2 duration samples, got=%v", hist)
	}

	runs := gather(t, reg, "airdrop_runs_completed_total")
	if len(runs) != 1 || runs[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected 1 completed run, got=%v", runs)
	}
}

func TestPrometheusSink_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPrometheusSink(reg)
	b := NewPrometheusSink(reg)

	a.AttemptCompleted(OutcomeSuccess, "", time.Millisecond)
	b.AttemptCompleted(OutcomeSuccess, "", time.Millisecond)

	got := gather(t, reg, "airdrop_transfers_total")
	if len(got) != 1 || got[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected shared counter value 2, got=%v", got)
	}
}

func TestNoopSink(t *testing.T) {
	var s Sink = NewNoopSink()
	s.RunStarted(1, 0)
	s.AttemptCompleted(OutcomeFailed, "timeout", time.Second)
	s.RunFinished(0, 1)
}
