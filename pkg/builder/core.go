package builder

import (
	"runtime"

	"github.com/toastate/toastpack/pkg/config"
)

// Category classifies the source files of a component folder.
type Category string

const (
	CategoryMarkup       Category = "markup"
	CategoryGlobalMarkup Category = "markup-global"
	CategoryStyle        Category = "style"
	CategoryScript       Category = "script"
)

const (
	markupExt       = ".html"
	globalMarkupExt = ".global.html"
	styleOutExt     = ".css"
	scriptOutExt    = ".js"
)

var (
	styleSourceExts  = []string{".scss", ".css"}
	scriptSourceExts = []string{".js", ".jsx"}
)

// ComponentFolder is one immediate subfolder of the components root. Name is
// the component identifier used by every later stage.
type ComponentFolder struct {
	Name  string
	Path  string
	Files map[Category][]string
}

type InstantiatedTemplate struct {
	ID   string
	Path string
}

type CompiledAsset struct {
	Source       string
	Category     Category
	CompiledPath string
	Content      []byte
}

// Component returns the identifier of the folder owning the asset.
func (a CompiledAsset) Component() string {
	return componentOf(a.CompiledPath)
}

type FinalDocument struct {
	ID   string
	Path string
	Body []byte
}

type Builder struct {
	ctx config.BuildContext

	styles   Compiler
	scripts  Compiler
	minifier Minifier
	bundler  *Bundler

	workers int
	report  *Report
}

type Option func(*Builder)

// WithStyleCompiler replaces the default esbuild stylesheet compiler.
func WithStyleCompiler(c Compiler) Option {
	return func(b *Builder) { b.styles = c }
}

// WithScriptCompiler replaces the default esbuild script transpiler.
func WithScriptCompiler(c Compiler) Option {
	return func(b *Builder) { b.scripts = c }
}

// WithMinifier replaces the minifier picked from the build mode.
func WithMinifier(m Minifier) Option {
	return func(b *Builder) { b.minifier = m }
}

// WithWorkers bounds the number of concurrent file transforms per stage.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

func NewBuilder(bc config.BuildContext, opts ...Option) *Builder {
	engines := ParseTargets(bc.Targets)

	sass := bc.SassCommand
	if len(sass) == 0 {
		sass = DefaultSassCommand
	}

	b := &Builder{
		ctx:     bc,
		styles:  &StyleCompiler{Engines: engines, Sass: &ExecCompiler{Argv: sass}},
		scripts: &ScriptCompiler{Engines: engines},
		workers: runtime.GOMAXPROCS(0),
		report:  &Report{},
	}
	if bc.Production {
		b.minifier = NewTDMinifier()
	} else {
		b.minifier = &NOOPMinifier{}
	}

	for _, opt := range opts {
		opt(b)
	}

	b.bundler = NewBundler(b.minifier)

	return b
}

func (b *Builder) Context() config.BuildContext {
	return b.ctx
}

// Report returns the non-fatal errors collected so far.
func (b *Builder) Report() *Report {
	return b.report
}
