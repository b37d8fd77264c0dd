package db

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "mta", "meeting_documents")

	ch := make(chan *prometheus.Desc, 10)
	collector.Describe(ch)
	close(ch)

	want := []string{
		"mta_db_pool_total_conns",
		"mta_db_pool_idle_conns",
		"mta_db_pool_acquired_conns",
		"mta_db_pool_max_conns",
	}
	i := 0
	for desc := range ch {
		if i >= len(want) {
			t.Fatalf("unexpected extra descriptor %s", desc)
		}
		if s := desc.String(); !strings.Contains(s, want[i]) || !strings.Contains(s, "meeting_documents") {
			t.Errorf("descriptor %d = %s, want %s with store label", i, s, want[i])
		}
		i++
	}
	if i != len(want) {
		t.Errorf("got %d descriptors, want %d", i, len(want))
	}
}

func TestPoolStatsCollector_NilPoolCollectsNothing(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "mta", "docs")
	if n := testutil.CollectAndCount(collector); n != 0 {
		t.Errorf("CollectAndCount = %d, want 0", n)
	}
}

func TestRegisterPoolStats(t *testing.T) {
	reg := prometheus.NewRegistry()

	if _, err := RegisterPoolStats(reg, nil, "mta", "docs"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := RegisterPoolStats(reg, nil, "mta", "docs"); err != nil {
		t.Errorf("second register should tolerate duplicates: %v", err)
	}
}
