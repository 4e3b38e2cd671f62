// Package rusticerr defines the error-kind hierarchy surfaced to clients as wire-level Result{Error{...}}
// frames, and the internal sentinels used by the partitioner, storage engine and coordinator.
package rusticerr

import (
	"fmt"

	"github.com/rusticdb/rusticdb/message"
	"github.com/rusticdb/rusticdb/primitive"
)

// Kind identifies one of the error categories in the error handling design.
type Kind int

const (
	KindServerError Kind = iota
	KindSyntaxError
	KindInvalid
	KindConfigError
	KindAlreadyExists
	KindUnauthorized
	KindBadCredentials
	KindUnavailable
	KindWriteTimeout
	KindReadTimeout
	KindOverloaded
	KindIsBootstrapping

	// Partitioner-internal kinds (§4.3): not part of §7's client-visible wire vocabulary, so they
	// map onto the nearest wire kind in ToMessage, but are kept distinct here so callers (and
	// tests) can tell a ring-membership failure from a generic validation failure.
	KindNodeAlreadyExists
	KindNodeNotFound
	KindEmptyPartitioner
)

// Err is a node-local error carrying the wire error code it maps to when reported to a client.
type Err struct {
	Kind    Kind
	Message string
}

func (e *Err) Error() string {
	return e.Message
}

func newErr(kind Kind, format string, args ...interface{}) *Err {
	return &Err{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ServerError(format string, args ...interface{}) *Err {
	return newErr(KindServerError, format, args...)
}

func SyntaxError(format string, args ...interface{}) *Err {
	return newErr(KindSyntaxError, format, args...)
}

func Invalid(format string, args ...interface{}) *Err {
	return newErr(KindInvalid, format, args...)
}

func ConfigError(format string, args ...interface{}) *Err {
	return newErr(KindConfigError, format, args...)
}

func AlreadyExists(format string, args ...interface{}) *Err {
	return newErr(KindAlreadyExists, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Err {
	return newErr(KindUnauthorized, format, args...)
}

func BadCredentials(format string, args ...interface{}) *Err {
	return newErr(KindBadCredentials, format, args...)
}

func Unavailable(format string, args ...interface{}) *Err {
	return newErr(KindUnavailable, format, args...)
}

func WriteTimeout(format string, args ...interface{}) *Err {
	return newErr(KindWriteTimeout, format, args...)
}

func ReadTimeout(format string, args ...interface{}) *Err {
	return newErr(KindReadTimeout, format, args...)
}

func Overloaded(format string, args ...interface{}) *Err {
	return newErr(KindOverloaded, format, args...)
}

func IsBootstrapping(format string, args ...interface{}) *Err {
	return newErr(KindIsBootstrapping, format, args...)
}

// NodeAlreadyExists reports an AddNode token collision (§4.3).
func NodeAlreadyExists(format string, args ...interface{}) *Err {
	return newErr(KindNodeAlreadyExists, format, args...)
}

// NodeNotFound reports a RemoveNode miss (§4.3).
func NodeNotFound(format string, args ...interface{}) *Err {
	return newErr(KindNodeNotFound, format, args...)
}

// EmptyPartitioner reports Owner/Successors called against a ring with no members (§4.3).
func EmptyPartitioner(format string, args ...interface{}) *Err {
	return newErr(KindEmptyPartitioner, format, args...)
}

// ToMessage converts the error to the teacher wire-error message type carrying the matching error code.
func (e *Err) ToMessage() message.Message {
	switch e.Kind {
	case KindSyntaxError:
		return &message.SyntaxError{ErrorMessage: e.Message}
	case KindInvalid:
		return &message.Invalid{ErrorMessage: e.Message}
	case KindConfigError:
		return &message.ConfigError{ErrorMessage: e.Message}
	case KindAlreadyExists:
		return &message.AlreadyExists{ErrorMessage: e.Message}
	case KindUnauthorized:
		return &message.Unauthorized{ErrorMessage: e.Message}
	case KindBadCredentials:
		return &message.AuthenticationError{ErrorMessage: e.Message}
	case KindUnavailable:
		return &message.Unavailable{ErrorMessage: e.Message, Consistency: primitive.ConsistencyLevelQuorum}
	case KindWriteTimeout:
		return &message.WriteTimeout{ErrorMessage: e.Message, Consistency: primitive.ConsistencyLevelQuorum}
	case KindReadTimeout:
		return &message.ReadTimeout{ErrorMessage: e.Message, Consistency: primitive.ConsistencyLevelQuorum}
	case KindOverloaded:
		return &message.Overloaded{ErrorMessage: e.Message}
	case KindIsBootstrapping:
		return &message.IsBootstrapping{ErrorMessage: e.Message}
	case KindNodeAlreadyExists:
		return &message.AlreadyExists{ErrorMessage: e.Message}
	case KindNodeNotFound, KindEmptyPartitioner:
		return &message.Invalid{ErrorMessage: e.Message}
	default:
		return &message.ServerError{ErrorMessage: e.Message}
	}
}

// AsErr unwraps err into a *Err, wrapping it as a ServerError if it is not already one.
func AsErr(err error) *Err {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Err); ok {
		return e
	}
	return ServerError("%v", err)
}
