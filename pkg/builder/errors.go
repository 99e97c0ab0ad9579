package builder

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrTooDeep = errors.New("reached max import depth of 5, import loop ?")

// Stage is one step of the build sequence.
type Stage string

const (
	StageClean   Stage = "clean"
	StagePrepare Stage = "prepare"
	StageInject  Stage = "inject"
	StageBundle  Stage = "bundle"
)

// StageError reports the stage a fatal error aborted.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ScanError is returned when the components root is missing or not a folder.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("cannot scan components root %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

type TemplateMissingError struct {
	Path string
	Err  error
}

func (e *TemplateMissingError) Error() string {
	return fmt.Sprintf("cannot read template %s: %v", e.Path, e.Err)
}

func (e *TemplateMissingError) Unwrap() error { return e.Err }

// CompileError drops a single style or script from the temp store.
type CompileError struct {
	Category Category
	Path     string
	Err      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s compilation failed for %s: %v", e.Category, e.Path, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// MinifyError leaves the unminified compiled file in place.
type MinifyError struct {
	Path string
	Err  error
}

func (e *MinifyError) Error() string {
	return fmt.Sprintf("minification failed for %s: %v", e.Path, e.Err)
}

func (e *MinifyError) Unwrap() error { return e.Err }

// InjectionTargetError means the shared template is malformed.
type InjectionTargetError struct {
	Template string
	Marker   string
	Reason   string
}

func (e *InjectionTargetError) Error() string {
	return fmt.Sprintf("template %s: marker %q %s", e.Template, e.Marker, e.Reason)
}

type BundleError struct {
	Entry string
	Err   error
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("bundling failed for %s: %v", e.Entry, e.Err)
}

func (e *BundleError) Unwrap() error { return e.Err }

// IsFatal tells whether err must abort the whole run. Errors outside the
// taxonomy (I/O on the temp store, cancellation) are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		ce *CompileError
		me *MinifyError
		be *BundleError
	)
	switch {
	case errors.As(err, &ce), errors.As(err, &me), errors.As(err, &be):
		return false
	}
	return true
}
