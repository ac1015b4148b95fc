package prismtest

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prismctl/prismctl/internal/common/uuid"
	"github.com/tidwall/gjson"
)

func (s *Server) list(r *http.Request) (*Response, error) {
	kind := chi.URLParam(r, "kind")
	in, err := decodeBody(r)
	if err != nil {
		return nil, err
	}
	offset := int(gjson.Get(toJSON(in), "offset").Int())
	length := int(gjson.Get(toJSON(in), "length").Int())
	if length <= 0 {
		length = 20
	}
	filter, _ := in["filter"].(string)

	s.mu.Lock()
	var matched []map[string]any
	for _, id := range s.order[kind] {
		e, ok := s.entities[kind][id]
		if ok && matchFilter(e, filter) {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := min(offset+length, total)
	page := matched[offset:end]
	if page == nil {
		page = []map[string]any{}
	}
	return &Response{Body: map[string]any{
		"api_version": "3.1",
		"metadata": map[string]any{
			"kind":          singular(kind),
			"total_matches": total,
			"offset":        offset,
			"length":        len(page),
		},
		"entities": page,
	}}, nil
}

// matchFilter evaluates "key==value" terms joined by ";" against name-like paths.
func matchFilter(e map[string]any, filter string) bool {
	if filter == "" {
		return true
	}
	doc := toJSON(e)
	for _, term := range strings.Split(filter, ";") {
		k, v, ok := strings.Cut(term, "==")
		if !ok {
			continue
		}
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		found := false
		for _, prefix := range []string{"", "spec.", "spec.resources.", "status.", "metadata."} {
			if got := gjson.Get(doc, prefix+k); got.Exists() {
				found = got.String() == v
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Server) create(r *http.Request) (*Response, error) {
	kind := chi.URLParam(r, "kind")
	in, err := decodeBody(r)
	if err != nil {
		return nil, err
	}
	md, _ := in["metadata"].(map[string]any)
	if md == nil {
		md = map[string]any{}
	}
	id, _ := md["uuid"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	md["uuid"] = id
	md["spec_version"] = 0
	if _, ok := md["kind"]; !ok {
		md["kind"] = singular(kind)
	}
	spec, _ := in["spec"].(map[string]any)

	s.mu.Lock()
	s.store(kind, id, map[string]any{
		"api_version": "3.1",
		"metadata":    md,
		"spec":        spec,
		"status":      statusOf(spec),
	})
	taskID := s.newTask(kind, id)
	s.mu.Unlock()

	return &Response{StatusCode: http.StatusAccepted, Body: accepted(md, spec, "PENDING", taskID)}, nil
}

func (s *Server) get(r *http.Request) (*Response, error) {
	kind, id := chi.URLParam(r, "kind"), chi.URLParam(r, "uuid")
	s.mu.Lock()
	e, ok := s.entities[kind][id]
	s.mu.Unlock()
	if !ok {
		return nil, notFound(singular(kind), id)
	}
	version := gjson.Get(toJSON(e), "metadata.spec_version").Int()
	return &Response{
		Body:   e,
		Header: http.Header{"Etag": {fmt.Sprintf(`"%s-%d"`, id, version)}},
	}, nil
}

func (s *Server) update(r *http.Request) (*Response, error) {
	kind, id := chi.URLParam(r, "kind"), chi.URLParam(r, "uuid")
	in, err := decodeBody(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[kind][id]
	if !ok {
		return nil, notFound(singular(kind), id)
	}
	md, _ := e["metadata"].(map[string]any)
	if v, ok := in["metadata"].(map[string]any); ok {
		for k, val := range v {
			md[k] = val
		}
	}
	md["uuid"] = id
	md["spec_version"] = gjson.Get(toJSON(md), "spec_version").Int() + 1
	spec, _ := in["spec"].(map[string]any)
	e["metadata"] = md
	e["spec"] = spec
	e["status"] = statusOf(spec)
	taskID := s.newTask(kind, id)

	return &Response{StatusCode: http.StatusAccepted, Body: accepted(md, spec, "PENDING", taskID)}, nil
}

func (s *Server) remove(r *http.Request) (*Response, error) {
	kind, id := chi.URLParam(r, "kind"), chi.URLParam(r, "uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[kind][id]; !ok {
		return nil, notFound(singular(kind), id)
	}
	delete(s.entities[kind], id)
	order := s.order[kind][:0]
	for _, o := range s.order[kind] {
		if o != id {
			order = append(order, o)
		}
	}
	s.order[kind] = order
	taskID := s.newTask(kind, id)

	return &Response{StatusCode: http.StatusAccepted, Body: map[string]any{
		"api_version": "3.1",
		"metadata":    map[string]any{"uuid": id, "kind": singular(kind)},
		"status": map[string]any{
			"state":             "DELETE_PENDING",
			"execution_context": map[string]any{"task_uuid": taskID},
		},
	}}, nil
}

func (s *Server) getTask(r *http.Request) (*Response, error) {
	id := chi.URLParam(r, "uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, notFound("task", id)
	}
	t.polls++

	body := map[string]any{
		"uuid":                id,
		"operation_type":      "kUpdate",
		"percentage_complete": min(100, t.polls*100/(t.runFor+1)),
	}
	if t.entity != "" {
		body["entity_reference_list"] = []map[string]any{{"kind": singular(t.kind), "uuid": t.entity}}
	}
	switch {
	case t.polls <= t.runFor:
		body["status"] = "RUNNING"
		body["progress_message"] = "running"
	case t.failure != "":
		body["status"] = "FAILED"
		body["error_detail"] = t.failure
		body["progress_message"] = "failed"
	default:
		body["status"] = "SUCCEEDED"
		body["percentage_complete"] = 100
		body["progress_message"] = "done"
	}
	return &Response{Body: body}, nil
}

func (s *Server) clusterByName(r *http.Request) (*Response, error) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order["clusters"] {
		e := s.entities["clusters"][id]
		if gjson.Get(toJSON(e), "spec.name").String() == name {
			return &Response{Body: e}, nil
		}
	}
	return nil, notFound("cluster", name)
}

func (s *Server) uploadImage(r *http.Request) (*Response, error) {
	id := chi.URLParam(r, "uuid")
	n, err := io.Copy(io.Discard, r.Body)
	if err != nil {
		return nil, &Error{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities["images"][id]; !ok {
		return nil, notFound("image", id)
	}
	s.uploads[id] += n
	taskID := s.newTask("images", id)
	return &Response{StatusCode: http.StatusAccepted, Body: map[string]any{
		"status": map[string]any{"execution_context": map[string]any{"task_uuid": taskID}},
	}}, nil
}

func (s *Server) allocateIDs(r *http.Request) (*Response, error) {
	in, err := decodeBody(r)
	if err != nil {
		return nil, err
	}
	count := int(gjson.Get(toJSON(in), "count").Int())
	if count <= 0 {
		return nil, &Error{StatusCode: http.StatusUnprocessableEntity, Message: "count must be positive"}
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return &Response{Body: map[string]any{
		"client_identifier": in["client_identifier"],
		"count":             count,
		"uuid_list":         ids,
	}}, nil
}

func (s *Server) saltedIDs(r *http.Request) (*Response, error) {
	in, err := decodeBody(r)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, n := range gjson.Get(toJSON(in), "name_list").Array() {
		names = append(names, n.String())
	}
	return &Response{Body: map[string]any{"uuid_list": uuid.Salted(names)}}, nil
}

func accepted(md, spec map[string]any, state, taskID string) map[string]any {
	return map[string]any{
		"api_version": "3.1",
		"metadata":    md,
		"spec":        spec,
		"status": map[string]any{
			"state":             state,
			"execution_context": map[string]any{"task_uuid": taskID},
		},
	}
}

func statusOf(spec map[string]any) map[string]any {
	status := map[string]any{"state": "COMPLETE"}
	for k, v := range spec {
		status[k] = v
	}
	return status
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
