// Package debuglog writes the API debug journal: one JSON record per request,
// response, error or informational message, appended to a file and followed by
// a separator line. Sensitive headers, payload fields, query values, form
// fields and key=value pairs in error text are replaced before a record is
// encoded. Journal failures never reach the caller; they are reported on the
// zerolog diagnostic stream.
package debuglog

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	jsonitor "github.com/json-iterator/go"
	"github.com/prismctl/prismctl/internal/common/logtrace"
	"github.com/rs/zerolog/log"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// DefaultPath is used when neither the connection nor the environment names a file.
const DefaultPath = "/tmp/nutanix_api_debug.log"

// Separator is written on its own line after every record.
const Separator = "---"

// Environment variables consulted by FromEnv.
const (
	EnvDebug   = "NUTANIX_DEBUG"
	EnvLogFile = "NUTANIX_LOG_FILE"
)

// Kind is the record type.
type Kind string

const (
	KindRequest  Kind = "REQUEST"
	KindResponse Kind = "RESPONSE"
	KindError    Kind = "ERROR"
	KindInfo     Kind = "INFO"
)

// Entry is one journal record.
type Entry struct {
	RequestID  string            `json:"request_id,omitempty"`
	Timestamp  string            `json:"timestamp"`
	Kind       Kind              `json:"kind"`
	Method     string            `json:"method,omitempty"`
	URL        string            `json:"url,omitempty"`
	StatusCode int               `json:"status_code,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       any               `json:"body,omitempty"`
	TimeoutSec float64           `json:"timeout_seconds,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Message    string            `json:"message,omitempty"`
	Exception  string            `json:"exception,omitempty"`
	Extra      map[string]any    `json:"extra,omitempty"`
}

// Options control where and whether the journal is written.
type Options struct {
	Enabled bool
	Path    string
}

// Logger appends journal records. A nil or disabled Logger discards everything.
type Logger struct {
	enabled bool
	path    string
	now     func() time.Time
}

// file handles are shared per path: the journal is process-global.
var (
	filesMu sync.Mutex
	files   = map[string]*os.File{}
)

// New returns a Logger for opts.
func New(opts Options) *Logger {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	return &Logger{enabled: opts.Enabled, path: path, now: time.Now}
}

// FromEnv merges opts with NUTANIX_DEBUG and NUTANIX_LOG_FILE. Explicit
// options win over the environment.
func FromEnv(opts Options, getenv func(string) string) *Logger {
	if getenv == nil {
		getenv = os.Getenv
	}
	if !opts.Enabled {
		opts.Enabled = Truthy(getenv(EnvDebug))
	}
	if opts.Path == "" {
		opts.Path = getenv(EnvLogFile)
	}
	return New(opts)
}

// Truthy interprets the usual boolean spellings of an environment variable.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "y":
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// Enabled reports whether records are written.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Path returns the journal file path.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// LogRequest records an outgoing request and returns its request id, taken from
// ctx when present.
func (l *Logger) LogRequest(ctx context.Context, method, url string, headers http.Header, body any, timeout time.Duration) string {
	id := logtrace.RequestIdFromContext(ctx)
	if id == "" {
		id = logtrace.NewRequestID()
	}
	if !l.Enabled() {
		return id
	}
	l.write(Entry{
		RequestID:  id,
		Kind:       KindRequest,
		Method:     method,
		URL:        RedactURL(url),
		Headers:    RedactHeaders(headers),
		Body:       RedactBody(body),
		TimeoutSec: timeout.Seconds(),
	})
	return id
}

// LogResponse records the response to request id.
func (l *Logger) LogResponse(requestID string, status int, headers http.Header, body []byte, duration time.Duration) {
	if !l.Enabled() {
		return
	}
	l.write(Entry{
		RequestID:  requestID,
		Kind:       KindResponse,
		StatusCode: status,
		Headers:    RedactHeaders(headers),
		Body:       RedactBody(body),
		DurationMS: duration.Milliseconds(),
	})
}

// LogError records a failure of request id. err may be nil.
func (l *Logger) LogError(requestID, message string, err error) {
	if !l.Enabled() {
		return
	}
	e := Entry{RequestID: requestID, Kind: KindError, Message: RedactText(message)}
	if err != nil {
		e.Exception = RedactText(err.Error())
	}
	l.write(e)
}

// LogInfo records a free-form message. Sensitive keys in extra are redacted.
func (l *Logger) LogInfo(message string, extra map[string]any) {
	if !l.Enabled() {
		return
	}
	e := Entry{Kind: KindInfo, Message: RedactText(message)}
	if extra != nil {
		if m, ok := redactValue(toGeneric(extra)).(map[string]any); ok {
			e.Extra = m
		}
	}
	l.write(e)
}

func toGeneric(v map[string]any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// write encodes and appends e. The record and its separator go out in one
// write call so concurrent writers interleave only at record boundaries.
func (l *Logger) write(e Entry) {
	e.Timestamp = l.now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(e)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("debug log: unable to encode record")
		return
	}
	b = append(b, '\n')
	b = append(b, Separator...)
	b = append(b, '\n')

	filesMu.Lock()
	defer filesMu.Unlock()
	f, ok := files[l.path]
	if !ok {
		f, err = os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			log.Warn().Err(err).Str("path", l.path).Msg("debug log: unable to open file")
			return
		}
		files[l.path] = f
	}
	if _, err := f.Write(b); err != nil {
		log.Warn().Err(err).Str("path", l.path).Msg("debug log: unable to write record")
	}
}

// Close releases the file handle for this logger's path.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	filesMu.Lock()
	defer filesMu.Unlock()
	f, ok := files[l.path]
	if !ok {
		return nil
	}
	delete(files, l.path)
	return f.Close()
}
