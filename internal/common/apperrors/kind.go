package apperrors

import "errors"

// Kind classifies a failure for reporting.
type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindConnection
	KindProtocol
	KindParse
	KindTask
	KindTimeout
	KindPrecondition
)

var kindNames = map[Kind]string{
	KindUnknown:      "UnknownError",
	KindInput:        "InputError",
	KindConnection:   "ConnectionError",
	KindProtocol:     "ProtocolError",
	KindParse:        "ParseError",
	KindTask:         "TaskError",
	KindTimeout:      "TimeoutError",
	KindPrecondition: "PreconditionError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// KindOf returns the kind of the first Error in err's chain that has one.
func KindOf(err error) Kind {
	var ae Error
	if errors.As(err, &ae) {
		return ae.Kind()
	}
	return KindUnknown
}

// DetailsOf returns the details of err if it is an Error, nil otherwise.
func DetailsOf(err error) map[string]any {
	var ae Error
	if errors.As(err, &ae) {
		return ae.Details()
	}
	return nil
}

// Typed roots. Package error variables derive from these so that KindOf and
// errors.Is work across package boundaries.
var (
	ErrInput        = New("invalid input").SetKind(KindInput)
	ErrConnection   = New("connection failed").SetKind(KindConnection)
	ErrProtocol     = New("request failed").SetKind(KindProtocol)
	ErrParse        = New("unable to parse response").SetKind(KindParse)
	ErrTask         = New("task failed").SetKind(KindTask)
	ErrTimeout      = New("timed out").SetKind(KindTimeout)
	ErrPrecondition = New("precondition failed").SetKind(KindPrecondition)
)
