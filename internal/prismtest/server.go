// Package prismtest is an in-memory stand-in for the v3 product API, used by the
// tests of the entity client, resolver, task poller, module driver, inventory
// and CLI. Mutations answer 202 with a task that finishes after TaskPolls reads.
package prismtest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	jsonitor "github.com/json-iterator/go"
	"github.com/prismctl/prismctl/internal/common/uuid"
	"github.com/tidwall/gjson"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// APIPrefix is where the fake API is mounted.
const APIPrefix = "/api/nutanix/v3"

// Request is one request as the server saw it.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Get evaluates a gjson path on the request body.
func (r Request) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

type task struct {
	uuid    string
	kind    string
	entity  string
	polls   int
	runFor  int
	failure string
}

type injected struct {
	method string
	path   string
	err    *Error
}

// Server is the fake API. The zero value is not usable; call NewServer.
type Server struct {
	Router *chi.Mux

	// TaskPolls is how many reads of a new task report RUNNING before it finishes.
	TaskPolls int
	// TaskError makes every new task end FAILED with this error_detail.
	TaskError string

	mu       sync.Mutex
	entities map[string]map[string]map[string]any
	order    map[string][]string
	tasks    map[string]*task
	requests []Request
	failures []injected
	uploads  map[string]int64
}

// NewServer returns an empty fake API.
func NewServer() *Server {
	s := &Server{
		Router:   chi.NewRouter(),
		entities: make(map[string]map[string]map[string]any),
		order:    make(map[string][]string),
		tasks:    make(map[string]*task),
		uploads:  make(map[string]int64),
	}
	s.Router.Use(recoverer, requestLogger, s.record)
	s.Router.Route(APIPrefix, s.mountHandlers)
	return s
}

func (s *Server) mountHandlers(r chi.Router) {
	r.Post("/idempotence_identifiers", wrap(s.allocateIDs))
	r.Post("/idempotence_identifiers/salted", wrap(s.saltedIDs))
	r.Get("/tasks/{uuid}", wrap(s.getTask))
	r.Get("/clusters/name/{name}", wrap(s.clusterByName))
	r.Put("/images/{uuid}/file", wrap(s.uploadImage))
	r.Post("/{kind}/list", wrap(s.list))
	r.Post("/{kind}", wrap(s.create))
	r.Get("/{kind}/{uuid}", wrap(s.get))
	r.Put("/{kind}/{uuid}", wrap(s.update))
	r.Delete("/{kind}/{uuid}", wrap(s.remove))
}

// record keeps a copy of every request and serves injected failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil && !strings.HasSuffix(r.URL.Path, "/file") {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		path := strings.TrimPrefix(r.URL.Path, APIPrefix)

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})
		var fail *Error
		for i, f := range s.failures {
			if f.method == r.Method && f.path == path {
				fail = f.err
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		if fail != nil {
			fail.Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes the next method request to path (relative to APIPrefix) answer
// status with msg.
func (s *Server) Fail(method, path string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, injected{method: method, path: path, err: &Error{StatusCode: status, Message: msg}})
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the requests with method whose path ends with suffix.
func (s *Server) RequestsTo(method, suffix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

// Mutations counts POST, PUT and DELETE requests other than list calls.
func (s *Server) Mutations() int {
	n := 0
	for _, r := range s.Requests() {
		switch {
		case strings.HasSuffix(r.Path, "/list"):
		case r.Method == http.MethodPost, r.Method == http.MethodPut, r.Method == http.MethodDelete:
			n++
		}
	}
	return n
}

// Uploaded returns how many bytes were uploaded for image id.
func (s *Server) Uploaded(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads[id]
}

// Seed stores entities of kind (collection name, e.g. "vms") and returns their
// uuids. Entities without metadata.uuid get one.
func (s *Server) Seed(kind string, ents ...map[string]any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(ents))
	for _, e := range ents {
		md, _ := e["metadata"].(map[string]any)
		if md == nil {
			md = map[string]any{}
			e["metadata"] = md
		}
		id, _ := md["uuid"].(string)
		if id == "" {
			id = uuid.NewString()
			md["uuid"] = id
		}
		if _, ok := md["kind"]; !ok {
			md["kind"] = singular(kind)
		}
		if _, ok := md["spec_version"]; !ok {
			md["spec_version"] = 0
		}
		s.store(kind, id, e)
		ids = append(ids, id)
	}
	return ids
}

// SeedNamed stores n entities named prefix-0 .. prefix-(n-1).
func (s *Server) SeedNamed(kind, prefix string, n int) []string {
	ents := make([]map[string]any, n)
	for i := range ents {
		name := fmt.Sprintf("%s-%d", prefix, i)
		ents[i] = map[string]any{
			"spec":   map[string]any{"name": name, "resources": map[string]any{}},
			"status": map[string]any{"name": name, "state": "COMPLETE", "resources": map[string]any{}},
		}
	}
	return s.Seed(kind, ents...)
}

// Entity returns a stored entity, nil when absent.
func (s *Server) Entity(kind, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entities[kind][id]
}

// AddTask registers a task that reports RUNNING for runFor reads and then
// SUCCEEDED, or FAILED with failure when it is not empty.
func (s *Server) AddTask(runFor int, failure string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &task{uuid: uuid.NewString(), runFor: runFor, failure: failure}
	s.tasks[t.uuid] = t
	return t.uuid
}

func (s *Server) store(kind, id string, e map[string]any) {
	if s.entities[kind] == nil {
		s.entities[kind] = make(map[string]map[string]any)
	}
	if _, ok := s.entities[kind][id]; !ok {
		s.order[kind] = append(s.order[kind], id)
	}
	s.entities[kind][id] = e
}

func (s *Server) newTask(kind, id string) string {
	t := &task{uuid: uuid.NewString(), kind: kind, entity: id, runFor: s.TaskPolls, failure: s.TaskError}
	s.tasks[t.uuid] = t
	return t.uuid
}

func singular(kind string) string {
	switch {
	case strings.HasSuffix(kind, "ies"):
		return strings.TrimSuffix(kind, "ies") + "y"
	case strings.HasSuffix(kind, "s"):
		return strings.TrimSuffix(kind, "s")
	}
	return kind
}

func decodeBody(r *http.Request) (map[string]any, error) {
	in := map[string]any{}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &Error{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, &Error{StatusCode: http.StatusBadRequest, Message: "invalid JSON: " + err.Error()}
	}
	return in, nil
}
