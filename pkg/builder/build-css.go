package builder

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/toastate/toastpack/internal/tlogger"
)

// StyleguideFile is the name of the compiled style guide in the demo folder.
const StyleguideFile = "styleguide.css"

// CompileStyles compiles every stylesheet of the components tree into the
// temp store. Minification only happens in production builds.
func (b *Builder) CompileStyles(ctx context.Context) ([]CompiledAsset, error) {
	return b.compileTree(ctx, assetPipeline{
		name:      "css",
		category:  CategoryStyle,
		exts:      styleSourceExts,
		outExt:    styleOutExt,
		mediatype: mediaCSS,
		compiler:  b.styles,
	})
}

// CompileStyleguide compiles the style guide sources, in path order, into a
// single unminified stylesheet of the demo folder.
func (b *Builder) CompileStyleguide(ctx context.Context) error {
	if b.ctx.StyleguideGlob == "" {
		return nil
	}

	matches, err := doublestar.FilepathGlob(b.ctx.StyleguideGlob, doublestar.WithFilesOnly())
	if err != nil {
		return err
	}
	sort.Strings(matches)

	if len(matches) == 0 {
		tlogger.Warn("builder", "styleguide", "msg", "No styleguide source found", "glob", b.ctx.StyleguideGlob)
		return nil
	}

	var out bytes.Buffer
	for _, src := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := readSource(src)
		if err == nil {
			data, err = b.styles.Compile(src, data)
		}
		if err != nil {
			tlogger.Error("builder", "styleguide", "msg", "compilation error", "file", src, "err", err)
			b.report.add(&CompileError{Category: CategoryStyle, Path: src, Err: err})
			continue
		}
		out.Write(ensureNewline(data))
	}

	dst := filepath.Join(b.ctx.DemoDir, StyleguideFile)
	err = writeFile(dst, out.Bytes())
	if err != nil {
		return err
	}

	tlogger.Info("builder", "styleguide", "msg", "Styleguide compiled", "file", dst)
	return nil
}
