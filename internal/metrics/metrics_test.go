package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Sessions.Set(2)
	m.Commands.WithLabelValues(OutcomeFault).Inc()
	m.Faults.Inc()

	if got := testutil.ToFloat64(m.Sessions); got != 2 {
		t.Fatalf("sessions gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.Commands.WithLabelValues(OutcomeFault)); got != 1 {
		t.Fatalf("fault commands = %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected registered families")
	}
}

func TestNopDoesNotRegister(t *testing.T) {
	a := Nop()
	b := Nop()
	a.Reaped.Inc()
	if testutil.ToFloat64(b.Reaped) != 0 {
		t.Fatalf("nop collectors must be independent")
	}
}
