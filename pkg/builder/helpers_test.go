package builder

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/toastate/toastpack/internal/tlogger"
	"github.com/toastate/toastpack/pkg/config"
)

func TestMain(m *testing.M) {
	tlogger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const testTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
/* inject:styles */
/* endinject */
</style>
</head>
<body>
<div id="component-name">
<!-- inject:global -->
<!-- endinject -->
<!-- inject:html -->
<!-- endinject -->
</div>
<script>
/* inject:js */
/* endinject */
</script>
</body>
</html>
`

func writeTestFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// testContext lays out a project rooted in a fresh temp dir.
func testContext(t *testing.T) config.BuildContext {
	t.Helper()
	root := t.TempDir()
	bc := config.BuildContext{
		SrcDir:           filepath.Join(root, "src"),
		TempDir:          filepath.Join(root, ".tmp"),
		DestDir:          filepath.Join(root, "dist"),
		TemplateFile:     filepath.Join(root, "template", "template.html"),
		TempTemplatesDir: filepath.Join(root, ".tmp", "_templates"),
		PolymerGlob:      filepath.Join(root, "polymer", "*.html"),
		StyleguideGlob:   filepath.Join(root, "styleguide", "*.scss"),
		DemoDir:          filepath.Join(root, "demo"),
	}
	writeTestFile(t, bc.TemplateFile, testTemplate)
	require.NoError(t, os.MkdirAll(bc.SrcDir, 0755))
	return bc
}

// passthrough returns sources unchanged, keeping tests independent from
// the compilers output formatting.
type passthrough struct{}

func (passthrough) Compile(path string, src []byte) ([]byte, error) {
	return src, nil
}

// failOn fails for every file whose base name is listed.
type failOn map[string]bool

func (f failOn) Compile(path string, src []byte) ([]byte, error) {
	if f[filepath.Base(path)] {
		return nil, errors.New("syntax error")
	}
	return src, nil
}

type failingMinifier struct{}

func (failingMinifier) Minify(mediatype string, in []byte) ([]byte, error) {
	return nil, errors.New("unexpected token")
}

// upperMinifier marks its output so tests can tell minified files apart.
type upperMinifier struct{}

func (upperMinifier) Minify(mediatype string, in []byte) ([]byte, error) {
	return []byte(strings.ToUpper(string(in))), nil
}

func newTestBuilder(bc config.BuildContext, opts ...Option) *Builder {
	opts = append([]Option{
		WithStyleCompiler(passthrough{}),
		WithScriptCompiler(passthrough{}),
	}, opts...)
	return NewBuilder(bc, opts...)
}

// addComponent creates a component folder with the given files.
func addComponent(t *testing.T, bc config.BuildContext, name string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(bc.SrcDir, name), 0755))
	for f, content := range files {
		writeTestFile(t, filepath.Join(bc.SrcDir, name, f), content)
	}
}
