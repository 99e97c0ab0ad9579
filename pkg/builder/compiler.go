package builder

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/errors"

	"github.com/toastate/toastpack/internal/tlogger"
)

// Compiler turns one source file into its compiled form. path is only used
// for diagnostics and relative import resolution.
type Compiler interface {
	Compile(path string, src []byte) ([]byte, error)
}

// DefaultSassCommand compiles scss sources when no sassCommand is configured.
var DefaultSassCommand = []string{"sass", "--stdin", "--load-path=."}

// StyleCompiler lowers modern css syntax (nesting, etc.) and adds the vendor
// prefixes required by Engines. Scss sources go through Sass first; without
// it they are rejected.
type StyleCompiler struct {
	Engines []api.Engine
	Sass    Compiler
}

func (c *StyleCompiler) Compile(path string, src []byte) ([]byte, error) {
	if filepath.Ext(path) == ".scss" {
		if c.Sass == nil {
			return nil, errors.New("no scss compiler configured")
		}
		css, err := c.Sass.Compile(path, src)
		if err != nil {
			return nil, err
		}
		src = css
	}

	res := api.Transform(string(src), api.TransformOptions{
		Loader:     api.LoaderCSS,
		Sourcefile: path,
		Engines:    c.Engines,
		LogLevel:   api.LogLevelSilent,
	})
	// esbuild recovers from css syntax errors and only warns about them
	if msgs := append(res.Errors, res.Warnings...); len(msgs) > 0 {
		return nil, esbuildError(msgs)
	}
	return res.Code, nil
}

// ScriptCompiler transpiles jsx and recent syntax down to es2015.
type ScriptCompiler struct {
	Engines []api.Engine
}

func (c *ScriptCompiler) Compile(path string, src []byte) ([]byte, error) {
	res := api.Transform(string(src), api.TransformOptions{
		Loader:     api.LoaderJSX,
		Sourcefile: path,
		Target:     api.ES2015,
		Engines:    c.Engines,
		LogLevel:   api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return nil, esbuildError(res.Errors)
	}
	return res.Code, nil
}

// ExecCompiler pipes the source through an external command (e.g. sass
// --stdin) run from the source folder and returns its stdout.
type ExecCompiler struct {
	Argv []string
}

func (c *ExecCompiler) Compile(path string, src []byte) ([]byte, error) {
	if len(c.Argv) == 0 {
		return nil, errors.New("empty command")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(c.Argv[0], c.Argv[1:]...)
	cmd.Dir = filepath.Dir(path)
	cmd.Stdin = bytes.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: %s", c.Argv[0], strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func esbuildError(msgs []api.Message) error {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
		} else {
			parts = append(parts, m.Text)
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// ParseTargets converts entries like "chrome58" or "safari11.1" into esbuild
// engines. Unknown engines are logged and ignored.
func ParseTargets(targets []string) []api.Engine {
	var out []api.Engine
	for _, t := range targets {
		i := strings.IndexAny(t, "0123456789")
		if i <= 0 {
			tlogger.Warn("builder", "compiler", "msg", "Invalid target", "target", t)
			continue
		}
		name, ok := engineNames[strings.ToLower(t[:i])]
		if !ok {
			tlogger.Warn("builder", "compiler", "msg", "Unknown target engine", "target", t)
			continue
		}
		out = append(out, api.Engine{Name: name, Version: t[i:]})
	}
	return out
}
