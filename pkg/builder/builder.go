package builder

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/toastate/toastpack/internal/tlogger"
)

// RunStage runs fn as stage, tagging a fatal error with the stage and
// recording it in the report. Non-fatal errors never reach here, the stages
// collect them.
func (b *Builder) RunStage(stage Stage, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if se, ok := err.(*StageError); ok {
		return se
	}
	se := &StageError{Stage: stage, Err: err}
	b.report.fail(se)
	tlogger.Error("stage", stage, "msg", "Stage failed", "err", err)
	return se
}

// Clean purges the temp and dest folders and recreates them empty. It is
// idempotent.
func (b *Builder) Clean() error {
	return b.RunStage(StageClean, b.clean)
}

func (b *Builder) clean() error {
	for _, dir := range []string{b.ctx.TempTemplatesDir, b.ctx.TempDir, b.ctx.DestDir} {
		if dir == "" {
			continue
		}
		err := removeAll(dir)
		if err != nil {
			tlogger.Error("stage", StageClean, "msg", "Failed to remove folder", "path", dir, "err", err)
			return err
		}
	}
	for _, dir := range []string{b.ctx.TempDir, b.ctx.DestDir} {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			tlogger.Error("stage", StageClean, "msg", "Failed to create folder", "path", dir, "err", err)
			return err
		}
	}
	tlogger.Debug("stage", StageClean, "msg", "Folders cleaned", "temp", b.ctx.TempDir, "dest", b.ctx.DestDir)
	return nil
}

// Prepare instantiates the templates and compiles styles and scripts
// concurrently, returning once all three are done.
func (b *Builder) Prepare(ctx context.Context) error {
	return b.RunStage(StagePrepare, func() error {
		folders, err := b.Scan()
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := b.renderTemplates(ctx, folders)
			return err
		})
		g.Go(func() error {
			_, err := b.CompileStyles(ctx)
			return err
		})
		g.Go(func() error {
			_, err := b.CompileScripts(ctx)
			return err
		})
		return g.Wait()
	})
}

// PrepareAndInject runs Prepare then Inject.
func (b *Builder) PrepareAndInject(ctx context.Context) ([]FinalDocument, error) {
	err := b.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	var docs []FinalDocument
	err = b.RunStage(StageInject, func() error {
		var ierr error
		docs, ierr = b.Inject(ctx)
		return ierr
	})
	return docs, err
}

// Build runs the whole sequence: Clean, then the component branch
// (Prepare, Inject, Bundle) and the polymer branch (Bundle) concurrently.
func (b *Builder) Build(ctx context.Context) error {
	tlogger.Info("msg", "Building started", "path", b.ctx.SrcDir)

	err := b.Clean()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := b.PrepareAndInject(ctx)
		if err != nil {
			return err
		}
		return b.RunStage(StageBundle, func() error {
			return b.BundleDocuments(ctx, docs)
		})
	})
	g.Go(func() error {
		return b.RunStage(StageBundle, func() error {
			return b.BundlePolymer(ctx)
		})
	})

	err = g.Wait()
	if err != nil {
		return err
	}

	tlogger.Info("msg", "Building finished", "path", b.ctx.SrcDir, "skipped", len(b.report.Skipped()))
	return nil
}
