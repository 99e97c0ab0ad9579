package builder

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileStylesMirrorsLayout(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", map[string]string{
		"x-card.scss":       ".card{}",
		"_mixins.scss":      "@mixin m{}",
		"theme/dark.css":    ".dark{}",
		"x-card.js":         "let a",
		".hidden/skip.scss": ".skip{}",
	})

	b := newTestBuilder(bc)
	assets, err := b.CompileStyles(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.Equal(t, filepath.Join(bc.TempDir, "x-card", "theme", "dark.css"), assets[0].CompiledPath)
	assert.Equal(t, filepath.Join(bc.TempDir, "x-card", "x-card.css"), assets[1].CompiledPath)
	assert.Equal(t, "x-card", assets[1].Component())
	assert.Equal(t, CategoryStyle, assets[1].Category)
	assert.Equal(t, ".card{}", readTestFile(t, assets[1].CompiledPath))

	assert.NoFileExists(t, filepath.Join(bc.TempDir, "x-card", "_mixins.css"))
	assert.NoFileExists(t, filepath.Join(bc.TempDir, "x-card", ".hidden", "skip.css"))
	assert.Empty(t, b.Report().Skipped())
}

func TestCompileScriptsIsolatesFailures(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", map[string]string{
		"a.js":  "let a",
		"b.jsx": "broken",
	})

	b := newTestBuilder(bc, WithScriptCompiler(failOn{"b.jsx": true}))
	assets, err := b.CompileScripts(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	assert.FileExists(t, filepath.Join(bc.TempDir, "x-card", "a.js"))
	assert.NoFileExists(t, filepath.Join(bc.TempDir, "x-card", "b.js"))

	skipped := b.Report().Skipped()
	require.Len(t, skipped, 1)
	var ce *CompileError
	require.True(t, errors.As(skipped[0], &ce))
	assert.Equal(t, CategoryScript, ce.Category)
	assert.Equal(t, filepath.Join(bc.SrcDir, "x-card", "b.jsx"), ce.Path)
	assert.False(t, IsFatal(skipped[0]))
}

func TestCompileScriptsOutputCollision(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", map[string]string{
		"a.js":  "let js",
		"a.jsx": "let jsx",
	})

	b := newTestBuilder(bc)
	assets, err := b.CompileScripts(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	assert.Equal(t, "let js", readTestFile(t, filepath.Join(bc.TempDir, "x-card", "a.js")))
	require.Len(t, b.Report().Skipped(), 1)
}

func TestCompileMinifyFailureKeepsOutput(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", map[string]string{"a.js": "let a"})

	b := newTestBuilder(bc, WithMinifier(failingMinifier{}))
	assets, err := b.CompileScripts(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	assert.Equal(t, "let a", readTestFile(t, assets[0].CompiledPath))
	skipped := b.Report().Skipped()
	require.Len(t, skipped, 1)
	var me *MinifyError
	assert.True(t, errors.As(skipped[0], &me))
}

func TestCompileMinifies(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", map[string]string{"a.css": ".a{color:red}"})

	b := newTestBuilder(bc, WithMinifier(upperMinifier{}))
	_, err := b.CompileStyles(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ".A{COLOR:RED}", readTestFile(t, filepath.Join(bc.TempDir, "x-card", "a.css")))
}

func TestCompileMissingRoot(t *testing.T) {
	bc := testContext(t)
	bc.SrcDir = filepath.Join(bc.SrcDir, "missing")

	b := newTestBuilder(bc)
	_, err := b.CompileStyles(context.Background())

	var se *ScanError
	assert.True(t, errors.As(err, &se))
	assert.True(t, IsFatal(err))
}

func TestCompileStyleguide(t *testing.T) {
	bc := testContext(t)
	writeTestFile(t, filepath.Join(filepath.Dir(bc.StyleguideGlob), "b.scss"), ".b{}")
	writeTestFile(t, filepath.Join(filepath.Dir(bc.StyleguideGlob), "a.scss"), ".a{}")

	b := newTestBuilder(bc, WithMinifier(upperMinifier{}))
	require.NoError(t, b.CompileStyleguide(context.Background()))

	assert.Equal(t, ".a{}\n.b{}\n", readTestFile(t, filepath.Join(bc.DemoDir, StyleguideFile)))
}

func TestCompileStyleguideWithoutSources(t *testing.T) {
	bc := testContext(t)

	b := newTestBuilder(bc)
	require.NoError(t, b.CompileStyleguide(context.Background()))
	assert.NoFileExists(t, filepath.Join(bc.DemoDir, StyleguideFile))
}

func TestStyleCompilerLowersNesting(t *testing.T) {
	c := &StyleCompiler{Engines: ParseTargets([]string{"chrome58"})}

	out, err := c.Compile("a.css", []byte(".a { .b { color: red } }"))
	require.NoError(t, err)
	assert.Contains(t, string(out), ".a .b")
}

func TestStyleCompilerRejectsSyntaxErrors(t *testing.T) {
	c := &StyleCompiler{Sass: passthrough{}}

	_, err := c.Compile("broken.css", []byte(".a { color: red;"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.css:1:")

	// scss reaching the css parser uncompiled is rejected too
	_, err = c.Compile("raw.scss", []byte("$c: red;\n.b { color: $c; }\n"))
	assert.Error(t, err)
}

// fixedCompiler records the sources it receives and returns out.
type fixedCompiler struct {
	out  string
	seen []string
}

func (f *fixedCompiler) Compile(path string, src []byte) ([]byte, error) {
	f.seen = append(f.seen, filepath.Base(path))
	return []byte(f.out), nil
}

func TestStyleCompilerScss(t *testing.T) {
	_, err := (&StyleCompiler{}).Compile("a.scss", []byte(".a{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scss compiler configured")

	sass := &fixedCompiler{out: ".b { color: red; }"}
	c := &StyleCompiler{Sass: sass}

	out, err := c.Compile("b.scss", []byte("$c: red;\n.b { color: $c; }\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "color: red")

	_, err = c.Compile("c.css", []byte(".c { color: blue; }"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.scss"}, sass.seen)
}

func TestCompileStylesReportsScssWithoutCompiler(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", map[string]string{
		"x-card.scss": "$c: red;\n.card { color: $c; }\n",
		"extra.css":   ".extra { margin: 0; }",
	})

	b := newTestBuilder(bc, WithStyleCompiler(&StyleCompiler{}))
	assets, err := b.CompileStyles(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	assert.NoFileExists(t, filepath.Join(bc.TempDir, "x-card", "x-card.css"))
	skipped := b.Report().Skipped()
	require.Len(t, skipped, 1)
	var ce *CompileError
	require.True(t, errors.As(skipped[0], &ce))
	assert.Equal(t, CategoryStyle, ce.Category)
}

func TestScriptCompiler(t *testing.T) {
	c := &ScriptCompiler{Engines: ParseTargets([]string{"chrome58"})}

	out, err := c.Compile("a.jsx", []byte("const el = <div/>;\nconst v = a ?? b;\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "React.createElement")
	assert.NotContains(t, string(out), "??")

	_, err = c.Compile("bad.js", []byte("let = ;"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.js:1:")
}

func TestParseTargets(t *testing.T) {
	engines := ParseTargets([]string{"chrome58", "Safari11.1", "netscape4", "12"})

	assert.Equal(t, []api.Engine{
		{Name: api.EngineChrome, Version: "58"},
		{Name: api.EngineSafari, Version: "11.1"},
	}, engines)
}

func TestExecCompiler(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	c := &ExecCompiler{Argv: []string{"cat"}}

	out, err := c.Compile(filepath.Join(t.TempDir(), "a.scss"), []byte(".a{}"))
	require.NoError(t, err)
	assert.Equal(t, ".a{}", string(out))

	_, err = (&ExecCompiler{}).Compile("a.scss", nil)
	assert.Error(t, err)
}
