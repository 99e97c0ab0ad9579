package helpers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJson(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJson(&buf, map[string]string{"error": "expected <div>"}))

	assert.Equal(t, "{\n  \"error\": \"expected <div>\"\n}\n", buf.String())
}
