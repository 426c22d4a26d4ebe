// Package mockazml is a fake scoring service for tests and local
// development. The execution endpoint echoes its inputs back as outputs;
// the jobs endpoints walk a scriptable status sequence and write output
// blobs through a configurable store.
package mockazml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"go-azml-client/internal/blob"
	"go-azml-client/internal/codec"
	"go-azml-client/internal/model"
	"go-azml-client/pkg/router"
)

var statusCodes = map[model.JobStatus]string{
	model.JobNotStarted: "0",
	model.JobRunning:    "1",
	model.JobFailed:     "2",
	model.JobCancelled:  "3",
	model.JobFinished:   "4",
}

type job struct {
	spec    model.BatchRequest
	started bool
	polls   int
	written bool
}

// Service holds the fake's scripted behavior and call counters.
type Service struct {
	mu           sync.Mutex
	store        blob.Store
	statusScript []model.JobStatus
	failDetails  string
	apiKey       string
	outputs      map[string][]byte
	jobs         map[string]*job

	executeCalls int
	pollCount    int
	deleteCount  int
}

// New builds a fake service writing job outputs through store. The
// default job script is Running then Finished.
func New(store blob.Store) *Service {
	return &Service{
		store:        store,
		statusScript: []model.JobStatus{model.JobRunning, model.JobFinished},
		outputs:      make(map[string][]byte),
		jobs:         make(map[string]*job),
	}
}

// ScriptStatuses sets the status sequence returned by successive polls.
// The last entry repeats once the script is exhausted.
func (s *Service) ScriptStatuses(statuses ...model.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusScript = statuses
}

// FailWith sets the Details field reported alongside a Failed status.
func (s *Service) FailWith(details string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDetails = details
}

// RequireKey makes the fake reject calls not carrying the bearer key.
func (s *Service) RequireKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

// SetOutput fixes the blob written for a named job output. Without it,
// the input staged under the same name is echoed.
func (s *Service) SetOutput(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[name] = data
}

// ExecuteCalls returns how many request-response calls were served.
func (s *Service) ExecuteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeCalls
}

// PollCount returns how many job status checks were served.
func (s *Service) PollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollCount
}

// DeleteCount returns how many job deletions were served.
func (s *Service) DeleteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteCount
}

// RegisterRoutes mounts the fake's endpoints on a router.
func (s *Service) RegisterRoutes(r *router.Router) {
	r.POST("/execute", s.handleExecute)
	r.POST("/jobs", s.handleSubmit)
	r.POST("/jobs/*/start", s.handleStart)
	r.GET("/jobs/*", s.handleStatus)
	r.DELETE("/jobs/*", s.handleDelete)
}

// Handler returns the fake mounted on a fresh router, ready for an
// httptest server.
func (s *Service) Handler() http.Handler {
	r := router.New()
	s.RegisterRoutes(r)
	return r.Handler()
}

func (s *Service) authorized(r *http.Request) bool {
	s.mu.Lock()
	key := s.apiKey
	s.mu.Unlock()
	return key == "" || r.Header.Get("Authorization") == "Bearer "+key
}

func (s *Service) handleExecute(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.executeCalls++
	s.mu.Unlock()
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid API key")
		return
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		writeError(w, http.StatusBadRequest, "BadArgument", "unreadable body")
		return
	}
	inputs, _, err := codec.DecodeRequest(buf.Bytes(), codec.DefaultOptions())
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadArgument", err.Error())
		return
	}

	results := make(map[string]json.RawMessage, len(inputs))
	for name, table := range inputs {
		raw, err := codec.EncodeTable(table, false, codec.DefaultOptions())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
			return
		}
		wrapped, _ := json.Marshal(struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}{Type: "table", Value: raw})
		results[name] = wrapped
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"Results": results})
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid API key")
		return
	}
	var spec model.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "BadArgument", "malformed job spec")
		return
	}
	id := uuid.New().String()
	s.mu.Lock()
	s.jobs[id] = &job{spec: spec}
	s.mu.Unlock()

	// The real service quotes the identifier.
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, "%q", id)
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromPath(r.URL.Path)
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		j.started = true
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "no such job: "+id)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromPath(r.URL.Path)
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "NotFound", "no such job: "+id)
		return
	}
	s.pollCount++
	idx := j.polls
	if idx >= len(s.statusScript) {
		idx = len(s.statusScript) - 1
	}
	j.polls++
	status := s.statusScript[idx]
	details := ""
	if status == model.JobFailed {
		details = s.failDetails
	}
	mustWrite := status == model.JobFinished && !j.written
	if mustWrite {
		j.written = true
	}
	spec := j.spec
	s.mu.Unlock()

	if mustWrite {
		if err := s.writeOutputs(spec); err != nil {
			writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.JobStatusResponse{
		StatusCode: model.StatusCode(statusCodes[status]),
		Details:    details,
		Results:    spec.Outputs,
	})
}

// writeOutputs fills each pre-allocated output ref: either scripted data
// or an echo of the equally named input.
func (s *Service) writeOutputs(spec model.BatchRequest) error {
	for name, ref := range spec.Outputs {
		s.mu.Lock()
		data, ok := s.outputs[name]
		s.mu.Unlock()
		if !ok {
			inRef, found := spec.Inputs[name]
			if !found {
				return fmt.Errorf("no scripted output and no matching input for %s", name)
			}
			rc, err := s.store.Get(inRef.Key())
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			_, err = buf.ReadFrom(rc)
			rc.Close()
			if err != nil {
				return err
			}
			data = buf.Bytes()
		}
		if err := s.store.Put(ref.Key(), bytes.NewReader(data), int64(len(data))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromPath(r.URL.Path)
	s.mu.Lock()
	_, ok := s.jobs[id]
	delete(s.jobs, id)
	s.deleteCount++
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "no such job: "+id)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func jobIDFromPath(path string) string {
	id := strings.TrimPrefix(path, "/jobs/")
	id = strings.TrimSuffix(id, "/start")
	return strings.Trim(id, "/")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorEnvelope{Error: model.ErrorBody{Code: code, Message: message}})
}
