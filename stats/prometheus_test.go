package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sinhashubham95/connpool/pool"
)

func TestPrometheusCollector_Collect(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.Collect(pool.Snapshot{
		Timestamp: time.Now(),
		Capacity:  3,
		Blocks: []pool.BlockSnapshot{
			{Dbname: "a", NConns: 2, NPending: 1, NWaiters: 0, NWaitersAvg: 1.5, Quota: 2},
		},
		SuccessfulConnects: 5,
		FailedConnects:     1,
	})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family after Collect")
	}
}
