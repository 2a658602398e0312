// Package teterr defines the error taxonomy shared by the compiler and the
// render pipeline. Errors classified with this package unwrap to an *Error,
// so callers can branch on Kind; KindOf reports Internal for an error that
// carries none.
package teterr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind int

const (
	Validation Kind = iota
	AssetNotFound
	TtsAuth
	TtsQuota
	TtsInvalid
	TtsNetwork
	TtsServer
	CacheIO
	EncoderIO
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case AssetNotFound:
		return "asset-not-found"
	case TtsAuth:
		return "tts-auth"
	case TtsQuota:
		return "tts-quota"
	case TtsInvalid:
		return "tts-invalid"
	case TtsNetwork:
		return "tts-network"
	case TtsServer:
		return "tts-server"
	case CacheIO:
		return "cache-io"
	case EncoderIO:
		return "encoder-io"
	default:
		return "internal"
	}
}

// Retryable reports whether an operation failing with this kind may succeed
// on a later attempt.
func (k Kind) Retryable() bool {
	return k == TtsNetwork || k == TtsServer
}

// Error carries a kind, a human message and, where applicable, the location
// in the script or timeline the failure refers to. Scene/Segment/Layer are
// -1 when not applicable.
type Error struct {
	Kind    Kind
	Message string
	Scene   int
	Segment int
	Layer   int
	Err     error
}

// New creates an Error without location information.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Scene: -1, Segment: -1, Layer: -1}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.Err = err
	return e
}

// AtScene returns a copy annotated with a scene index.
func (e *Error) AtScene(i int) *Error {
	c := *e
	c.Scene = i
	return &c
}

// AtSegment returns a copy annotated with scene and segment indexes.
func (e *Error) AtSegment(scene, seg int) *Error {
	c := *e
	c.Scene = scene
	c.Segment = seg
	return &c
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Scene >= 0 {
		fmt.Fprintf(&b, " [scene %d", e.Scene)
		if e.Segment >= 0 {
			fmt.Fprintf(&b, ", segment %d", e.Segment)
		}
		b.WriteString("]")
	} else if e.Layer >= 0 {
		fmt.Fprintf(&b, " [layer %d]", e.Layer)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether err (or anything it wraps) is a retryable Error.
func Retryable(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind.Retryable()
	}
	return false
}

// KindOf extracts the Kind of err, or Internal when err carries none.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return Internal
}

// ValidationErrors aggregates every violation found during script validation
// so a caller sees all of them at once rather than the first.
type ValidationErrors struct {
	Errs []*Error
}

// Add appends a violation.
func (v *ValidationErrors) Add(e *Error) { v.Errs = append(v.Errs, e) }

// Empty reports whether no violations were recorded.
func (v *ValidationErrors) Empty() bool { return len(v.Errs) == 0 }

// OrNil returns the aggregate as an error, or nil when empty.
func (v *ValidationErrors) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	msgs := make([]string, len(v.Errs))
	for i, e := range v.Errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s):\n  %s", len(v.Errs), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the individual violations to errors.As / errors.Is.
func (v *ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v.Errs))
	for i, e := range v.Errs {
		errs[i] = e
	}
	return errs
}
