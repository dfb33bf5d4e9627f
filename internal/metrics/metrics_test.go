package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMustRegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("wfx")
	m.MustRegister(reg)

	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Set(3)
	m.LimiterRejections.WithLabelValues("burst").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected at least one metric family")
	}

	var found bool
	for _, f := range families {
		if f.GetName() == "wfx_connections_total" {
			found = true
			if m := f.GetMetric(); len(m) != 1 || m[0].GetCounter().GetValue() != 1 {
				t.Fatalf("unexpected counter value in family %+v", f)
			}
		}
	}
	if !found {
		t.Fatalf("expected wfx_connections_total in gathered families")
	}
}
