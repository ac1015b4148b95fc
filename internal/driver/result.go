package driver

import (
	"errors"

	jsonitor "github.com/json-iterator/go"
	"github.com/prismctl/prismctl/internal/common/apperrors"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// Result is the outcome of one invocation, produced exactly once.
type Result struct {
	Changed    bool
	Failed     bool
	Msg        string
	Error      string
	ErrorKind  string
	Response   jsonitor.RawMessage
	UUID       string
	UUIDKey    string
	TaskUUID   string
	StatusCode int
}

// SetResponse stores v as the response. Values that cannot be encoded are
// dropped.
func (r *Result) SetResponse(v any) {
	if v == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return
	}
	r.Response = data
}

// Fail turns r into a failure record for err. Nothing is reported as changed
// once an invocation fails.
func (r *Result) Fail(err error) *Result {
	r.Failed = true
	r.Changed = false
	r.ErrorKind = apperrors.KindOf(err).String()
	r.Msg = err.Error()
	r.Error = err.Error()

	var ae apperrors.Error
	if errors.As(err, &ae) {
		r.Error = ae.SetExpandError(true).ErrorAll()
		if r.StatusCode == 0 {
			r.StatusCode = ae.StatusCode()
		}
	}
	d := apperrors.DetailsOf(err)
	if code, ok := d[apperrors.DetailStatusCode].(int); ok && r.StatusCode == 0 {
		r.StatusCode = code
	}
	if id, ok := d[apperrors.DetailTaskUUID].(string); ok && r.TaskUUID == "" {
		r.TaskUUID = id
	}
	if resp, ok := d[apperrors.DetailResponse]; ok && len(r.Response) == 0 {
		r.SetResponse(resp)
	}
	return r
}

// Map renders the record returned to the caller. The resource uuid is keyed by
// UUIDKey (for example vm_uuid).
func (r *Result) Map() map[string]any {
	m := map[string]any{"changed": r.Changed}
	if len(r.Response) > 0 {
		m["response"] = r.Response
	}
	if r.UUID != "" {
		key := r.UUIDKey
		if key == "" {
			key = "uuid"
		}
		m[key] = r.UUID
	}
	if r.TaskUUID != "" {
		m["task_uuid"] = r.TaskUUID
	}
	if r.Msg != "" {
		m["msg"] = r.Msg
	}
	if r.Failed {
		m["failed"] = true
		m["error"] = r.Error
		m["error_kind"] = r.ErrorKind
		if r.StatusCode != 0 {
			m["status_code"] = r.StatusCode
		}
	}
	return m
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
