package tasks

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/prismctl/prismctl/internal/entity"
)

// EntityRef is one entity a task touched.
type EntityRef struct {
	Kind string `json:"kind"`
	UUID string `json:"uuid"`
}

// Task is the part of a task record callers act on.
type Task struct {
	UUID        string      `json:"uuid"`
	State       State       `json:"-"`
	Status      string      `json:"status"`
	Percent     int         `json:"percentage_complete"`
	Message     string      `json:"progress_message,omitempty"`
	ErrorDetail string      `json:"error_detail,omitempty"`
	Entities    []EntityRef `json:"entity_reference_list,omitempty"`
}

func parseV3(resp *entity.Response) Task {
	t := Task{
		UUID:        resp.Get("uuid").String(),
		Status:      resp.Get("status").String(),
		Percent:     int(resp.Get("percentage_complete").Int()),
		Message:     resp.Get("progress_message").String(),
		ErrorDetail: resp.Get("error_detail").String(),
	}
	for _, r := range resp.Get("entity_reference_list").Array() {
		t.Entities = append(t.Entities, EntityRef{Kind: r.Get("kind").String(), UUID: r.Get("uuid").String()})
	}
	t.State = ParseState(t.Status)
	return t
}

func parseV4(resp *entity.Response) Task {
	t := Task{
		UUID:    resp.Get("data.extId").String(),
		Status:  resp.Get("data.status").String(),
		Percent: int(resp.Get("data.progressPercentage").Int()),
		Message: resp.Get("data.operationDescription").String(),
	}
	var msgs []string
	for _, m := range resp.Get("data.errorMessages").Array() {
		msgs = append(msgs, m.Get("message").String())
	}
	t.ErrorDetail = strings.Join(msgs, "; ")
	for _, r := range resp.Get("data.entitiesAffected").Array() {
		t.Entities = append(t.Entities, EntityRef{Kind: r.Get("rel").String(), UUID: r.Get("extId").String()})
	}
	t.State = ParseState(t.Status)
	return t
}

// ExtractTaskUUID returns the task uuid carried by the response of a mutating
// call, or "" when there is none. v4 responses carry it in data.extId.
func ExtractTaskUUID(resp *entity.Response, apiVersion *semver.Version) string {
	if resp == nil {
		return ""
	}
	if apiVersion != nil && apiVersion.Major() >= 4 {
		if id := resp.Get("data.extId").String(); id != "" {
			return id
		}
	}
	for _, p := range []string{"status.execution_context.task_uuid", "task_uuid"} {
		if id := resp.Get(p).String(); id != "" {
			return id
		}
	}
	return ""
}
