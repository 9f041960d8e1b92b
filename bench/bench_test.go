package bench

import (
	"testing"
	"time"

	"git.wyat.me/object-store/store/loose"
	"git.wyat.me/object-store/store/sqlite"
)

func TestPercentileStats(t *testing.T) {
	latencies := make([]time.Duration, 100)
	for i := range latencies {
		latencies[len(latencies)-1-i] = time.Duration(i+1) * time.Millisecond
	}
	got := percentileStats(100, latencies)
	if got.P50 != 51*time.Millisecond {
		t.Errorf("P50: got %v", got.P50)
	}
	if got.P99 != 100*time.Millisecond {
		t.Errorf("P99: got %v", got.P99)
	}
	if got.OpsPerSec <= 0 {
		t.Errorf("OpsPerSec: got %v", got.OpsPerSec)
	}
}

func TestRun(t *testing.T) {
	ls, err := loose.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ss, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer ss.Close()

	opts := Options{
		Iterations:  10,
		Sizes:       []Size{{"tiny (64B)", 64}},
		TreeEntries: 4,
	}
	for _, r := range []BackendResult{Run("loose", ls, opts), Run("sqlite", ss, opts)} {
		if r.Error != "" {
			t.Fatalf("%s: %s", r.Backend, r.Error)
		}
		if len(r.Results) != 1 {
			t.Fatalf("%s: got %d size results", r.Backend, len(r.Results))
		}
		if r.Results[0].TreeWrite.P50 <= 0 || r.Results[0].Put.P50 <= 0 {
			t.Errorf("%s: empty measurements %+v", r.Backend, r.Results[0])
		}
	}

	// 10 setup blobs + 10 puts + 1 duplicate + 10 concurrent + 10 trees
	n, err := ls.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 41 {
		t.Errorf("expected 41 loose objects, got %d", n)
	}
}
