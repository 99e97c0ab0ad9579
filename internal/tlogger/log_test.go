package tlogger

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(io.Discard)
	defer ApplyLogLevel("info")

	ApplyLogLevel("warn")
	Info("msg", "hidden")
	Warn("msg", "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=warn")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(io.Discard)
	defer func() {
		mu.Lock()
		carried = nil
		mu.Unlock()
	}()

	With("run", "42")
	Error("msg", "boom")

	assert.Contains(t, buf.String(), "run=42")
	assert.Contains(t, buf.String(), "level=error")
}
