package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.wyat.me/object-store/bench"
	"git.wyat.me/object-store/store"
	"git.wyat.me/object-store/store/badger"
	"git.wyat.me/object-store/store/loose"
	ministore "git.wyat.me/object-store/store/minio"
	"git.wyat.me/object-store/store/sqlite"
)

type benchHistory struct {
	mu      sync.Mutex
	results []bench.RunResult
}

// benchOptions is overridden by tests to keep runs short.
var benchOptions = bench.Options{}

func (s *Server) handleBenchRun(w http.ResponseWriter, r *http.Request) {
	run := bench.RunResult{Timestamp: time.Now()}
	opts := []store.Option{store.WithFormat(s.store.Format()), store.WithLogger(s.log)}

	tmp, err := os.MkdirTemp(s.BenchDir, "bench-*")
	if err != nil {
		http.Error(w, "failed to create bench dir", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tmp)

	looseStore, err := loose.New(filepath.Join(tmp, "loose"), opts...)
	if err != nil {
		http.Error(w, "failed to create loose store", http.StatusInternalServerError)
		return
	}
	run.Backends = append(run.Backends, bench.Run("Loose", looseStore, benchOptions))

	sqliteStore, err := sqlite.New(filepath.Join(tmp, "bench.db"), opts...)
	if err != nil {
		http.Error(w, "failed to create sqlite store", http.StatusInternalServerError)
		return
	}
	defer sqliteStore.Close()
	run.Backends = append(run.Backends, bench.Run("SQLite", sqliteStore, benchOptions))

	badgerStore, err := badger.New(filepath.Join(tmp, "badger"), opts...)
	if err != nil {
		http.Error(w, "failed to create badger store", http.StatusInternalServerError)
		return
	}
	defer badgerStore.Close()
	run.Backends = append(run.Backends, bench.Run("BadgerDB", badgerStore, benchOptions))

	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		// Flushed afterwards, so never the repository bucket.
		bucket := os.Getenv("MINIO_BENCH_BUCKET")
		if bucket == "" {
			bucket = "bench-git-objects"
		}
		minioStore, err := ministore.New(ministore.Config{
			Endpoint:  endpoint,
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    bucket,
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		}, opts...)
		if err != nil {
			s.log.WithError(err).Warn("minio unavailable, skipping")
		} else {
			run.Backends = append(run.Backends, bench.Run("MinIO/S3", minioStore, benchOptions))
			if err := minioStore.Flush(); err != nil {
				s.log.WithError(err).Warn("minio flush failed")
			}
		}
	}

	s.history.mu.Lock()
	s.history.results = append(s.history.results, run)
	s.history.mu.Unlock()

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleBenchHistory(w http.ResponseWriter, r *http.Request) {
	s.history.mu.Lock()
	defer s.history.mu.Unlock()
	writeJSON(w, http.StatusOK, s.history.results)
}
