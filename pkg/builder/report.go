package builder

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Report accumulates the non-fatal errors of a run and its fatal outcome, if any.
type Report struct {
	mu      sync.Mutex
	skipped []error
	failed  *StageError
}

func (r *Report) add(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, err)
}

func (r *Report) fail(err *StageError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed == nil {
		r.failed = err
	}
}

// Skipped returns the non-fatal errors ordered by message, so that concurrent
// stages report identically between runs.
func (r *Report) Skipped() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]error(nil), r.skipped...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Error() < out[j].Error()
	})
	return out
}

// Failed returns the fatal stage error, nil on success.
func (r *Report) Failed() *StageError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

type reportEntry struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

type reportJSON struct {
	Success bool          `json:"success"`
	Stage   Stage         `json:"failed_stage,omitempty"`
	Error   string        `json:"error,omitempty"`
	Skipped []reportEntry `json:"skipped"`
}

func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{Success: true, Skipped: []reportEntry{}}
	if f := r.Failed(); f != nil {
		out.Success = false
		out.Stage = f.Stage
		out.Error = f.Err.Error()
	}
	for _, err := range r.Skipped() {
		out.Skipped = append(out.Skipped, describe(err))
	}
	return json.Marshal(out)
}

func describe(err error) reportEntry {
	var (
		ce *CompileError
		me *MinifyError
		be *BundleError
	)
	switch {
	case errors.As(err, &ce):
		return reportEntry{Kind: string(ce.Category), Path: ce.Path, Error: ce.Err.Error()}
	case errors.As(err, &me):
		return reportEntry{Kind: "minify", Path: me.Path, Error: me.Err.Error()}
	case errors.As(err, &be):
		return reportEntry{Kind: "bundle", Path: be.Entry, Error: be.Err.Error()}
	}
	return reportEntry{Kind: "unknown", Error: err.Error()}
}
