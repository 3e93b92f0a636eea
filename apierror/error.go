package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a storage failure so that API layers can map it onto a
// user-facing response.
type Kind int

const (
	// Unknown is the zero Kind. It is reported for errors that were not
	// classified by the storage layer.
	Unknown Kind = iota
	// NotFound means the well is absent from both cache and disk.
	NotFound
	// CorruptData means the well file exists but cannot be parsed.
	CorruptData
	// IOFailure means a read, write or remove failed at the filesystem.
	IOFailure
	// InvalidInput means the caller supplied an unusable well record.
	InvalidInput
)

var kindNames = map[Kind]string{
	Unknown:      "unknown",
	NotFound:     "not_found",
	CorruptData:  "corrupt_data",
	IOFailure:    "io_failure",
	InvalidInput: "invalid_input",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Status returns the HTTP status code that corresponds to the kind.
func (k Kind) Status() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case CorruptData:
		return http.StatusUnprocessableEntity
	case InvalidInput:
		return http.StatusBadRequest
	case IOFailure, Unknown:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func parseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return Unknown
}

// Error is the type of error returned by the well storage layer. It carries a
// Kind so that callers can tell a missing well from a broken one.
type Error struct {
	err  error
	kind Kind
}

type ErrorMessage struct {
	Message string `json:",omitempty"`
	Kind    string `json:",omitempty"`
	Status  int    `json:",omitempty"`
}

var serverError []byte

func init() {
	// Make sure there is always an error to return in case encoding fails
	e := ErrorMessage{
		Message: http.StatusText(http.StatusInternalServerError),
		Status:  http.StatusInternalServerError,
	}

	eb, err := json.Marshal(&e)
	if err != nil {
		panic(err)
	}
	serverError = eb
}

func New(kind Kind, err error) *Error {
	return &Error{
		err:  err,
		kind: kind,
	}
}

// Newf formats a message and returns it as an Error of the given kind. The %w
// verb wraps as with fmt.Errorf.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Errorf(format, args...))
}

// KindOf returns the Kind of the first Error in err's chain, or Unknown if
// there is none.
func KindOf(err error) Kind {
	var apierr *Error
	if errors.As(err, &apierr) {
		return apierr.kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.kind == Unknown {
		return ""
	}
	return strings.ReplaceAll(e.kind.String(), "_", " ")
}

func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Status() int {
	return e.kind.Status()
}

func (e *Error) Text() string {
	parts := make([]string, 0, 3)
	if e.kind != Unknown {
		parts = append(parts, e.kind.String())
	}
	if e.err != nil {
		if len(parts) != 0 {
			parts = append(parts, ": ")
		}
		parts = append(parts, e.err.Error())
	}

	return strings.Join(parts, "")
}

func (e *Error) Unwrap() error {
	return e.err
}

func EncodeError(err error) []byte {
	if err == nil {
		return nil
	}

	e := ErrorMessage{
		Message: err.Error(),
		Status:  http.StatusInternalServerError,
	}
	var apierr *Error
	if errors.As(err, &apierr) {
		e.Kind = apierr.kind.String()
		e.Status = apierr.Status()
	}

	data, err := json.Marshal(&e)
	if err != nil {
		return serverError
	}
	return data
}

func DecodeError(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var e ErrorMessage
	err := json.Unmarshal(data, &e)
	if err != nil {
		return fmt.Errorf("cannot decode error message: %s", err)
	}

	err = errors.New(e.Message)
	if e.Kind == "" {
		return err
	}
	return New(parseKind(e.Kind), err)
}
