// Package errors defines the error taxonomy shared by the graph, parameter,
// transform and container packages.
//
// Every error is an *Error carrying an ErrorCode, so callers match on the
// kind of failure with errors.Is against a bare code value or with the IsX
// helpers:
//
//	if errors.Is(err, dierrors.ErrServiceNotFound) { ... }
//	if dierrors.IsNotFound(err) { ... }
//
// Transform-time errors name the offending source definition (Service) and
// argument position (Position) so a failed build is actionable.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies the kind of failure.
type ErrorCode uint16

const (
	CodeUnknown ErrorCode = iota
	CodeServiceNotFound
	CodeParameterNotFound
	CodeAmbiguousAutowire
	CodeUnsupportedArgument
	CodeCyclicAlias
	CodeUnsupportedMutation
	CodeDuplicateDefinitionConflict
	CodeMissingConstructor
	CodeCircularReference
)

var codeNames = map[ErrorCode]string{
	CodeUnknown:                     "UNKNOWN",
	CodeServiceNotFound:             "SERVICE_NOT_FOUND",
	CodeParameterNotFound:           "PARAMETER_NOT_FOUND",
	CodeAmbiguousAutowire:           "AMBIGUOUS_AUTOWIRE",
	CodeUnsupportedArgument:         "UNSUPPORTED_ARGUMENT",
	CodeCyclicAlias:                 "CYCLIC_ALIAS",
	CodeUnsupportedMutation:         "UNSUPPORTED_MUTATION",
	CodeDuplicateDefinitionConflict: "DUPLICATE_DEFINITION_CONFLICT",
	CodeMissingConstructor:          "MISSING_CONSTRUCTOR",
	CodeCircularReference:           "CIRCULAR_REFERENCE",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// ── Error ─────────────────────────────────────────────────────────────────────

// Error is the structured error returned by every package of the module.
type Error struct {
	Code    ErrorCode
	Message string

	// Service is the definition, alias or parameter the error is about.
	Service string

	// Position locates the offending argument inside Service,
	// e.g. "arguments[1][\"handlers\"][0]".
	Position string

	// Candidates lists the competing definitions of an ambiguous autowire.
	Candidates []string

	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Code.String())
	b.WriteString("]")

	if e.Service != "" {
		fmt.Fprintf(&b, " service=%q", e.Service)
	}
	if e.Position != "" {
		fmt.Fprintf(&b, " position=%s", e.Position)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so the sentinels below can be
// used with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithService sets the subject of the error.
func (e *Error) WithService(service string) *Error {
	e.Service = service
	return e
}

// WithPosition sets the argument position, keeping one already recorded
// deeper in the call chain.
func (e *Error) WithPosition(position string) *Error {
	if e.Position == "" {
		e.Position = position
	}
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// ── Sentinels ─────────────────────────────────────────────────────────────────

// Sentinels for errors.Is comparisons. They carry only a code.
var (
	ErrServiceNotFound             = &Error{Code: CodeServiceNotFound, Message: "service not found"}
	ErrParameterNotFound           = &Error{Code: CodeParameterNotFound, Message: "parameter not found"}
	ErrAmbiguousAutowire           = &Error{Code: CodeAmbiguousAutowire, Message: "ambiguous autowire"}
	ErrUnsupportedArgument         = &Error{Code: CodeUnsupportedArgument, Message: "unsupported argument"}
	ErrCyclicAlias                 = &Error{Code: CodeCyclicAlias, Message: "cyclic alias"}
	ErrUnsupportedMutation         = &Error{Code: CodeUnsupportedMutation, Message: "unsupported mutation"}
	ErrDuplicateDefinitionConflict = &Error{Code: CodeDuplicateDefinitionConflict, Message: "duplicate definition conflict"}
	ErrMissingConstructor          = &Error{Code: CodeMissingConstructor, Message: "missing constructor"}
	ErrCircularReference           = &Error{Code: CodeCircularReference, Message: "circular reference"}
)

// ── Constructors ──────────────────────────────────────────────────────────────

func ServiceNotFound(id string) *Error {
	return newError(
		CodeServiceNotFound,
		fmt.Sprintf("service %q was not found", id),
		nil,
	).WithService(id)
}

func ParameterNotFound(name string) *Error {
	return newError(
		CodeParameterNotFound,
		fmt.Sprintf("parameter %q was not found", name),
		nil,
	).WithService(name)
}

// AmbiguousAutowire reports that more than one autowire-eligible definition
// implements typeName. Candidates are kept in the order given.
func AmbiguousAutowire(typeName string, candidates []string) *Error {
	e := newError(
		CodeAmbiguousAutowire,
		fmt.Sprintf("cannot autowire %s: candidates are %s", typeName, strings.Join(candidates, ", ")),
		nil,
	).WithService(typeName)
	e.Candidates = append([]string(nil), candidates...)
	return e
}

func UnsupportedArgument(service, position string, argument any) *Error {
	return newError(
		CodeUnsupportedArgument,
		fmt.Sprintf("unsupported argument of type %T", argument),
		nil,
	).WithService(service).WithPosition(position)
}

func CyclicAlias(chain []string) *Error {
	name := ""
	if len(chain) > 0 {
		name = chain[0]
	}
	return newError(
		CodeCyclicAlias,
		fmt.Sprintf("alias chain does not terminate: %s", strings.Join(chain, " -> ")),
		nil,
	).WithService(name)
}

func UnsupportedMutation(operation string) *Error {
	return newError(
		CodeUnsupportedMutation,
		fmt.Sprintf("%s is not supported on a read-only container", operation),
		nil,
	)
}

func DuplicateDefinitionConflict(name, existingType, incomingType string) *Error {
	return newError(
		CodeDuplicateDefinitionConflict,
		fmt.Sprintf("definition already registered with type %q, cannot reuse it for type %q", existingType, incomingType),
		nil,
	).WithService(name)
}

func MissingConstructor(service, typeName string) *Error {
	return newError(
		CodeMissingConstructor,
		fmt.Sprintf("no constructor registered for type %q", typeName),
		nil,
	).WithService(service)
}

// CircularReference reports a service that depends on itself while being
// built. chain starts and ends with the same service.
func CircularReference(chain []string) *Error {
	name := ""
	if len(chain) > 0 {
		name = chain[0]
	}
	return newError(
		CodeCircularReference,
		fmt.Sprintf("circular reference: %s", strings.Join(chain, " -> ")),
		nil,
	).WithService(name)
}

// Wrap attaches service context to a failure raised while building it.
// An *Error keeps its own code; any other error becomes CodeUnknown.
func Wrap(service string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Service == "" {
			e.Service = service
		}
		return e
	}
	return newError(CodeUnknown, "failed to build service", err).WithService(service)
}

// ── Predicates ────────────────────────────────────────────────────────────────

func hasCode(err error, codes ...ErrorCode) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	for _, c := range codes {
		if e.Code == c {
			return true
		}
	}
	return false
}

// IsNotFound reports a missing service or parameter.
func IsNotFound(err error) bool {
	return hasCode(err, CodeServiceNotFound, CodeParameterNotFound)
}

func IsAmbiguousAutowire(err error) bool {
	return hasCode(err, CodeAmbiguousAutowire)
}

func IsUnsupportedArgument(err error) bool {
	return hasCode(err, CodeUnsupportedArgument)
}

func IsCyclicAlias(err error) bool {
	return hasCode(err, CodeCyclicAlias)
}

func IsUnsupportedMutation(err error) bool {
	return hasCode(err, CodeUnsupportedMutation)
}

func IsDuplicateDefinitionConflict(err error) bool {
	return hasCode(err, CodeDuplicateDefinitionConflict)
}

func IsMissingConstructor(err error) bool {
	return hasCode(err, CodeMissingConstructor)
}

func IsCircularReference(err error) bool {
	return hasCode(err, CodeCircularReference)
}
