package buildsync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

var (
	ErrMissingInput    = errors.New("buildsync: missing input")
	ErrInvalidResponse = errors.New("buildsync: invalid upload response")
)

// MissingInputError names a required input that was not provided
type MissingInputError struct {
	Key string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("buildsync: missing input %q", e.Key)
}

func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

// InvalidResponseError is returned when a slot reply has neither
// uploaded=true nor a signed url
type InvalidResponseError struct {
	Path string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("buildsync: upload slot for %q has no signed url", e.Path)
}

func (e *InvalidResponseError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// UserError is a failure worth showing to the person running the tool as is.
type UserError struct {
	Message  string
	Attempts int // >1 when the failure survived retries
	Err      error
}

func (e *UserError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Attempts > 1 {
		fmt.Fprintf(&sb, " after %d attempts", e.Attempts)
	}
	if reason := describe(e.Err); reason != "" {
		sb.WriteString(": ")
		sb.WriteString(reason)
	}
	return sb.String()
}

func (e *UserError) Unwrap() error { return e.Err }

// describe turns an api problem into a short readable reason
func describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *buildsdk.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	parts := []string{fmt.Sprintf("%s (%d)", apiErr.ErrorMessage(), apiErr.StatusCode)}
	for _, d := range apiErr.Details {
		parts = append(parts, fmt.Sprintf("%s %s", d.Field, strings.Join(d.Messages, ", ")))
	}
	return strings.Join(parts, "; ")
}
