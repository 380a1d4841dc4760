package liveedit

import (
	"context"
	"errors"
	"strings"
)

// GenerateErrorKind classifies failures of the generation call.
type GenerateErrorKind string

const (
	GenerateInvalidCredential GenerateErrorKind = "invalid-credential"
	GenerateRateLimited       GenerateErrorKind = "rate-limited"
	GenerateContentFiltered   GenerateErrorKind = "content-filtered"
	GenerateNetwork           GenerateErrorKind = "network-failure"
	GenerateEmptyResult       GenerateErrorKind = "empty-result"
	GenerateInvalidRequest    GenerateErrorKind = "invalid-request"
	GenerateBusy              GenerateErrorKind = "busy"
	GenerateUnknown           GenerateErrorKind = "unknown"
)

// GenerateError is returned by a Generator. Message is suitable for display.
type GenerateError struct {
	Kind    GenerateErrorKind
	Message string
	Err     error
}

func (e *GenerateError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// GenerateErrorKindOf returns the kind of err, or GenerateUnknown.
func GenerateErrorKindOf(err error) GenerateErrorKind {
	var ge *GenerateError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return GenerateUnknown
}

// GenerateRequest asks for a whole-document rewrite of Text following Instruction.
type GenerateRequest struct {
	Text        string
	Instruction string

	// APIKey is the user's own credential. Empty means the default credential.
	APIKey string
}

// Generator proposes a replacement source text. Implementations return *GenerateError.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// ErrEmptyInstruction is returned when the instruction is blank.
var ErrEmptyInstruction = errors.New("please enter an edit instruction")

// ValidateInstruction rejects blank instructions before any call is made. The error is a
// *GenerateError of kind GenerateInvalidRequest wrapping ErrEmptyInstruction.
func ValidateInstruction(instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return &GenerateError{
			Kind:    GenerateInvalidRequest,
			Message: "Please enter an edit instruction.",
			Err:     ErrEmptyInstruction,
		}
	}
	return nil
}
