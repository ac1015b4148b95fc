// Package apperrors provides the error type used across prismctl. Errors chain
// (errors.Is sees every ancestor and every attached error), carry a taxonomy Kind
// that decides how a failure is reported, and hold a small set of details such as
// the URL, HTTP status and server message needed to reproduce a failing call.
package apperrors

// Error defines the interface for application errors. All methods that modify the
// error return a new Error, so package-level error variables can be used as
// templates safely.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetExpandError(bool) Error             // controls whether ErrorAll expands wrapped errors
	SetStatusCode(int) Error               // sets the HTTP status code
	StatusCode() int                       // returns the HTTP status code, 0 when none
	SetKind(Kind) Error                    // sets the taxonomy kind
	Kind() Kind                            // returns the taxonomy kind
	With(key string, value any) Error      // attaches a detail
	Details() map[string]any               // returns a copy of all details
	Prefix(string) Error                   // adds a prefix to the error message
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}

// Detail keys shared by the transport, entity client and task poller.
const (
	DetailURL        = "url"
	DetailMethod     = "method"
	DetailStatusCode = "status_code"
	DetailMessage    = "message"
	DetailResponse   = "response"
	DetailTaskUUID   = "task_uuid"
)
