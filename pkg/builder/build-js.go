package builder

import (
	"context"
)

// CompileScripts transpiles every script of the components tree into the temp
// store. Minification only happens in production builds; a minification
// failure keeps the transpiled output.
func (b *Builder) CompileScripts(ctx context.Context) ([]CompiledAsset, error) {
	return b.compileTree(ctx, assetPipeline{
		name:      "js",
		category:  CategoryScript,
		exts:      scriptSourceExts,
		outExt:    scriptOutExt,
		mediatype: mediaJS,
		compiler:  b.scripts,
	})
}
