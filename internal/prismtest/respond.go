package prismtest

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// Response is what a fake endpoint answers.
type Response struct {
	StatusCode int
	Body       any
	Header     http.Header
}

// Error is a failure rendered in the product error shape.
type Error struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *Error) Error() string {
	return e.Message
}

// Send writes the error to w.
func (e *Error) Send(w http.ResponseWriter) {
	reason := e.Reason
	if reason == "" {
		reason = http.StatusText(e.StatusCode)
	}
	WriteJSON(w, e.StatusCode, map[string]any{
		"api_version": "3.1",
		"kind":        "error",
		"state":       "ERROR",
		"code":        e.StatusCode,
		"message_list": []map[string]any{
			{"message": e.Message, "reason": reason},
		},
	})
}

// WriteJSON encodes v with status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("unable to encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// WriteError writes msg in the product error shape.
func WriteError(w http.ResponseWriter, status int, msg string) {
	(&Error{StatusCode: status, Message: msg}).Send(w)
}

type handlerFunc func(r *http.Request) (*Response, error)

func wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsp, err := h(r)
		if err != nil {
			if e, ok := err.(*Error); ok {
				e.Send(w)
				return
			}
			log.Error().Err(err).Str("path", r.URL.Path).Msg("fake handler failed")
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if rsp == nil {
			WriteError(w, http.StatusInternalServerError, "no response")
			return
		}
		for k, vs := range rsp.Header {
			w.Header()[k] = vs
		}
		status := rsp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		WriteJSON(w, status, rsp.Body)
	}
}

func notFound(kind, id string) *Error {
	return &Error{
		StatusCode: http.StatusNotFound,
		Message:    "ENTITY_NOT_FOUND",
		Reason:     kind + " " + id + " not found",
	}
}
