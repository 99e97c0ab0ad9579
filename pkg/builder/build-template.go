package builder

import (
	"bytes"
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/toastate/toastpack/internal/tlogger"
)

// ComponentPlaceholder is rewritten to the component identifier in every
// instantiated template. All occurrences are rewritten.
const ComponentPlaceholder = `id="component-name"`

// RenderTemplates writes one copy of the shared template per component folder
// into the temp templates folder.
func (b *Builder) RenderTemplates(ctx context.Context) ([]InstantiatedTemplate, error) {
	folders, err := b.Scan()
	if err != nil {
		return nil, err
	}
	return b.renderTemplates(ctx, folders)
}

func (b *Builder) renderTemplates(ctx context.Context, folders []ComponentFolder) ([]InstantiatedTemplate, error) {
	tpl, err := readSource(b.ctx.TemplateFile)
	if err != nil {
		tlogger.Error("builder", "template", "msg", "Can't read template", "file", b.ctx.TemplateFile, "err", err)
		return nil, &TemplateMissingError{Path: b.ctx.TemplateFile, Err: err}
	}

	out := make([]InstantiatedTemplate, len(folders))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, folder := range folders {
		i, folder := i, folder
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := b.renderTemplate(tpl, folder.Name)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tlogger.Info("builder", "template", "msg", "Templates created", "count", len(out))
	return out, nil
}

func (b *Builder) renderTemplate(tpl []byte, id string) (InstantiatedTemplate, error) {
	body := RewritePlaceholder(tpl, id)
	path := filepath.Join(b.ctx.TempTemplatesDir, id+markupExt)

	err := writeFile(path, body)
	if err != nil {
		tlogger.Error("builder", "template", "msg", "output file creation", "file", path, "err", err)
		return InstantiatedTemplate{}, err
	}

	tlogger.Debug("builder", "template", "msg", "Template created", "file", path)
	return InstantiatedTemplate{ID: id, Path: path}, nil
}

// RewritePlaceholder replaces every ComponentPlaceholder of tpl with the id
// attribute of the given component. It is a plain text substitution.
func RewritePlaceholder(tpl []byte, id string) []byte {
	return bytes.ReplaceAll(tpl, []byte(ComponentPlaceholder), []byte(`id="`+id+`"`))
}
