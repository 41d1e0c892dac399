package promote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aixigo/oci-semver-tagging/internal/semver"
)

var (
	// ErrRegistryRead marks a failed tag listing or digest resolution. It is
	// always fatal and happens before any tag is written.
	ErrRegistryRead = errors.New("registry read failure")
	// ErrRegistryWrite marks a failed alias write. See PartialFailureError.
	ErrRegistryWrite = errors.New("registry write failure")
)

// WriteFailure records one alias that could not be written.
type WriteFailure struct {
	Level semver.AliasLevel
	Tag   string
	Err   error
}

func (f WriteFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Tag, f.Err)
}

func (f WriteFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Level semver.AliasLevel `json:"level"`
		Tag   string            `json:"tag"`
		Error string            `json:"error"`
	}{f.Level, f.Tag, f.Err.Error()})
}

// PartialFailureError is returned when some aliases were written and others
// were not. It matches ErrRegistryWrite and each underlying write error.
type PartialFailureError struct {
	Failures []WriteFailure
}

func (e *PartialFailureError) Error() string {
	tags := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		tags = append(tags, f.Tag)
	}
	return fmt.Sprintf("%v: %d alias(es) failed: %s", ErrRegistryWrite, len(e.Failures), strings.Join(tags, ", "))
}

func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrRegistryWrite)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
