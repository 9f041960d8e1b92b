package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"git.wyat.me/object-store/commit"
	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
	"git.wyat.me/object-store/tree"
)

// maxPayload bounds a single uploaded object.
const maxPayload = 64 << 20

type Server struct {
	store   store.ObjectStore
	log     logrus.FieldLogger
	history *benchHistory
	// BenchDir holds temporary benchmark databases. Empty uses os.TempDir.
	BenchDir string
}

func New(s store.ObjectStore, log logrus.FieldLogger) *Server {
	if log == nil {
		log = store.Apply().Log
	}
	return &Server{store: s, log: log, history: &benchHistory{}}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /objects/{type}", s.handlePutObject)
	mux.HandleFunc("GET /objects/{sha}", s.handleGetObject)
	mux.HandleFunc("HEAD /objects/{sha}", s.handleHeadObject)
	mux.HandleFunc("GET /trees/{sha}", s.handleTree)
	mux.HandleFunc("GET /commits/{sha}/log", s.handleLog)
	mux.HandleFunc("POST /bench/run", s.handleBenchRun)
	mux.HandleFunc("GET /bench/history", s.handleBenchHistory)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("request")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	typ := object.ObjectType(r.PathValue("type"))
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayload))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	sha, err := store.Write(s.store, typ, payload)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sha": sha})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	obj, err := s.store.Get(r.PathValue("sha"))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Object-Type", string(obj.Type))
	w.Header().Set("X-Object-Size", strconv.Itoa(len(obj.Data)))
	w.Write(obj.Data)
}

func (s *Server) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	exists, err := s.store.Exists(r.PathValue("sha"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type treeEntry struct {
	Mode string            `json:"mode"`
	Type object.ObjectType `json:"type"`
	SHA  string            `json:"sha"`
	Name string            `json:"name"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	entries, err := tree.Read(s.store, r.PathValue("sha"))
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]treeEntry, len(entries))
	for i, e := range entries {
		out[i] = treeEntry{Mode: string(e.Mode), Type: e.Mode.Type(), SHA: e.SHA, Name: e.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

type logEntry struct {
	SHA       string `json:"sha"`
	Tree      string `json:"tree"`
	Parent    string `json:"parent,omitempty"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := commit.Log(s.store, r.PathValue("sha"), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]logEntry, len(history))
	for i, h := range history {
		out[i] = logEntry{
			SHA:       h.SHA,
			Tree:      h.Commit.Tree,
			Parent:    h.Commit.Parent,
			Author:    h.Commit.Author.Identity,
			Timestamp: h.Commit.Author.When.Unix(),
			Message:   h.Commit.Message,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// fail maps store errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, object.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, object.ErrInvalidKey), errors.Is(err, object.ErrInvalidKind):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
