package builder

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/toastate/toastpack/internal/tlogger"
)

// assetPipeline describes one compilation sub-pipeline of the components tree.
type assetPipeline struct {
	name      string
	category  Category
	exts      []string
	outExt    string
	mediatype string
	compiler  Compiler
}

// compileTree compiles every matching source under the components root into
// the temp store, mirroring the source layout. Per file failures are recorded
// in the report and the file is left out.
func (b *Builder) compileTree(ctx context.Context, p assetPipeline) ([]CompiledAsset, error) {
	root := b.ctx.SrcDir
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Path: root, Err: os.ErrInvalid}
	}

	sources, err := discoverSources(root, p.exts)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}

	tlogger.Info("builder", p.name, "msg", "Compilation started", "files", len(sources))

	seen := make(map[string]string, len(sources))
	out := make([]*CompiledAsset, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, rel := range sources {
		dst := filepath.Join(b.ctx.TempDir, filepath.FromSlash(swapExt(rel, p.outExt)))
		if prev, ok := seen[dst]; ok {
			err := &CompileError{Category: p.category, Path: filepath.Join(root, rel), Err: errors.Errorf("output %s already produced by %s", dst, prev)}
			tlogger.Error("builder", p.name, "msg", "output collision", "file", rel, "err", err.Err)
			b.report.add(err)
			continue
		}
		seen[dst] = rel

		i, rel := i, rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			asset, err := b.compileOne(p, filepath.Join(root, filepath.FromSlash(rel)), dst)
			if err != nil {
				return err
			}
			out[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	assets := make([]CompiledAsset, 0, len(out))
	for _, a := range out {
		if a != nil {
			assets = append(assets, *a)
		}
	}

	tlogger.Info("builder", p.name, "msg", "Compilation finished", "compiled", len(assets), "skipped", len(sources)-len(assets))
	return assets, nil
}

// compileOne returns a nil asset for non fatal failures. Only write errors on
// the temp store are returned.
func (b *Builder) compileOne(p assetPipeline, src, dst string) (*CompiledAsset, error) {
	tlogger.Debug("builder", p.name, "msg", "processing", "file", src)

	data, err := readSource(src)
	if err != nil {
		tlogger.Error("builder", p.name, "msg", "file error", "file", src, "err", err)
		b.report.add(&CompileError{Category: p.category, Path: src, Err: err})
		return nil, nil
	}

	compiled, err := p.compiler.Compile(src, data)
	if err != nil {
		tlogger.Error("builder", p.name, "msg", "compilation error", "file", src, "err", err)
		b.report.add(&CompileError{Category: p.category, Path: src, Err: err})
		return nil, nil
	}

	minified, err := b.minifier.Minify(p.mediatype, compiled)
	if err != nil {
		tlogger.Error("builder", p.name, "msg", "minification error", "file", src, "err", err)
		b.report.add(&MinifyError{Path: src, Err: err})
	} else {
		compiled = minified
	}

	err = writeFile(dst, compiled)
	if err != nil {
		tlogger.Error("builder", p.name, "msg", "output file creation", "file", dst, "err", err)
		return nil, err
	}

	return &CompiledAsset{
		Source:       src,
		Category:     p.category,
		CompiledPath: dst,
		Content:      compiled,
	}, nil
}

// discoverSources returns the slash separated paths, relative to root, of
// every file with one of exts, sorted.
func discoverSources(root string, exts []string) ([]string, error) {
	trimmed := make([]string, len(exts))
	for i, e := range exts {
		trimmed[i] = strings.TrimPrefix(e, ".")
	}
	pattern := "**/*.{" + strings.Join(trimmed, ",") + "}"

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	out := matches[:0]
	for _, m := range matches {
		if shouldHandle(m) {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}
