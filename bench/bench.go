// Package bench measures object store latency and throughput.
package bench

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
)

type Size struct {
	Name  string
	Bytes int
}

var Sizes = []Size{
	{"small (1KB)", 1024},
	{"medium (100KB)", 100 * 1024},
	{"large (1MB)", 1024 * 1024},
}

type OperationResult struct {
	P50       time.Duration
	P99       time.Duration
	OpsPerSec float64
}

type SizeResult struct {
	Size          Size
	Put           OperationResult
	DuplicatePut  OperationResult
	Get           OperationResult
	Exists        OperationResult
	ConcurrentPut OperationResult
	TreeWrite     OperationResult
}

type BackendResult struct {
	Backend string
	Results []SizeResult
	Error   string
}

type RunResult struct {
	Timestamp time.Time
	Backends  []BackendResult
}

// Options control a benchmark run. Zero values take the package defaults.
type Options struct {
	Iterations int
	Sizes      []Size
	// TreeEntries is the number of blob entries in each written tree.
	TreeEntries int
}

const (
	defaultIterations  = 100
	defaultTreeEntries = 64
)

func (o Options) withDefaults() Options {
	if o.Iterations <= 0 {
		o.Iterations = defaultIterations
	}
	if len(o.Sizes) == 0 {
		o.Sizes = Sizes
	}
	if o.TreeEntries <= 0 {
		o.TreeEntries = defaultTreeEntries
	}
	return o
}

func randomData(size int) []byte {
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return data
}

// percentileStats sorts latencies and computes P50, P99, and ops/sec.
func percentileStats(n int, latencies []time.Duration) OperationResult {
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p50 := latencies[len(latencies)*50/100]
	p99 := latencies[len(latencies)*99/100]
	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	ops := 0.0
	if total > 0 {
		ops = float64(n) / total.Seconds()
	}
	return OperationResult{P50: p50, P99: p99, OpsPerSec: ops}
}

func measure(n int, fn func() error) (OperationResult, error) {
	latencies := make([]time.Duration, 0, n)
	for range n {
		start := time.Now()
		if err := fn(); err != nil {
			return OperationResult{}, err
		}
		latencies = append(latencies, time.Since(start))
	}
	return percentileStats(n, latencies), nil
}

func measureConcurrent(n int, fn func() error) (OperationResult, error) {
	workers := runtime.NumCPU()
	latencies := make([]time.Duration, n)
	errCh := make(chan error, n)
	jobs := make(chan int, n)

	for i := range n {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range jobs {
				start := time.Now()
				if err := fn(); err != nil {
					errCh <- err
					return
				}
				latencies[i] = time.Since(start)
			}
		})
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return OperationResult{}, err
	}

	return percentileStats(n, latencies), nil
}

// Run benchmarks s once per size in opts. Failures stop the run and are
// reported in BackendResult.Error.
func Run(name string, s store.ObjectStore, opts Options) BackendResult {
	opts = opts.withDefaults()
	iterations := opts.Iterations
	result := BackendResult{Backend: name}
	algo := s.Format().Hash

	for _, size := range opts.Sizes {
		sr := SizeResult{Size: size}
		data := randomData(size.Bytes)

		// pre-populate SHAs for Get/Exists
		shas := make([]string, iterations)
		for i := range iterations {
			sha, err := store.Write(s, object.TypeBlob, randomData(size.Bytes))
			if err != nil {
				result.Error = fmt.Sprintf("setup Put failed: %v", err)
				return result
			}
			shas[i] = sha
		}

		var err error
		sr.Put, err = measure(iterations, func() error {
			_, err := store.Write(s, object.TypeBlob, randomData(size.Bytes))
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("Put benchmark failed: %v", err)
			return result
		}

		// same payload every time: every call after the first is a no-op
		sr.DuplicatePut, err = measure(iterations, func() error {
			_, err := store.Write(s, object.TypeBlob, data)
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("DuplicatePut benchmark failed: %v", err)
			return result
		}

		// Get: cycle through pre-populated SHAs
		i := 0
		sr.Get, err = measure(iterations, func() error {
			_, err := s.Get(shas[i%len(shas)])
			i++
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("Get benchmark failed: %v", err)
			return result
		}

		// Exists: cycle through pre-populated SHAs
		j := 0
		sr.Exists, err = measure(iterations, func() error {
			_, err := s.Exists(shas[j%len(shas)])
			j++
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("Exists benchmark failed: %v", err)
			return result
		}

		sr.ConcurrentPut, err = measureConcurrent(iterations, func() error {
			_, err := store.Write(s, object.TypeBlob, randomData(size.Bytes))
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("Concurrent Put benchmark failed: %v", err)
			return result
		}

		// TreeWrite: trees over the pre-populated blobs, rotated so each
		// payload differs
		k := 0
		sr.TreeWrite, err = measure(iterations, func() error {
			entries := make([]object.TreeEntry, opts.TreeEntries)
			for e := range entries {
				entries[e] = object.TreeEntry{
					Mode: object.ModeFile,
					Name: "file-" + strconv.Itoa(e),
					SHA:  shas[(k+e)%len(shas)],
				}
			}
			k++
			payload, err := object.MarshalTree(entries, algo)
			if err != nil {
				return err
			}
			_, err = store.Write(s, object.TypeTree, payload)
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("TreeWrite benchmark failed: %v", err)
			return result
		}

		result.Results = append(result.Results, sr)
	}

	return result
}
