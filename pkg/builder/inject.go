package builder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/toastate/toastpack/internal/tlogger"
)

// RegionKind names the content spliced into an injection region.
type RegionKind string

const (
	RegionGlobalMarkup RegionKind = "global"
	RegionMarkup       RegionKind = "html"
	RegionStyle        RegionKind = "styles"
	RegionScript       RegionKind = "js"
)

// Region is a start/end marker pair of the shared template. The whole span,
// markers included, is replaced by the injected content.
type Region struct {
	Kind  RegionKind
	Start string
	End   string
}

// Regions lists the injection regions in precedence order.
var Regions = []Region{
	{Kind: RegionGlobalMarkup, Start: "<!-- inject:global -->", End: "<!-- endinject -->"},
	{Kind: RegionMarkup, Start: "<!-- inject:html -->", End: "<!-- endinject -->"},
	{Kind: RegionStyle, Start: "/* inject:styles */", End: "/* endinject */"},
	{Kind: RegionScript, Start: "/* inject:js */", End: "/* endinject */"},
}

type span struct {
	region     Region
	start, end int
}

// locateRegions finds every region of body. Each start marker must appear
// exactly once, be followed by its end marker, and not overlap another region.
func locateRegions(name string, body []byte) ([]span, error) {
	spans := make([]span, 0, len(Regions))
	for _, r := range Regions {
		switch n := bytes.Count(body, []byte(r.Start)); {
		case n == 0:
			return nil, &InjectionTargetError{Template: name, Marker: r.Start, Reason: "is missing"}
		case n > 1:
			return nil, &InjectionTargetError{Template: name, Marker: r.Start, Reason: "appears more than once"}
		}

		start := bytes.Index(body, []byte(r.Start))
		rest := start + len(r.Start)
		end := bytes.Index(body[rest:], []byte(r.End))
		if end < 0 {
			return nil, &InjectionTargetError{Template: name, Marker: r.End, Reason: "does not close " + r.Start}
		}
		spans = append(spans, span{region: r, start: start, end: rest + end + len(r.End)})
	}

	ordered := append([]span(nil), spans...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start < ordered[j].start })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].start < ordered[i-1].end {
			return nil, &InjectionTargetError{Template: name, Marker: ordered[i].region.Start, Reason: "is nested in " + ordered[i-1].region.Start}
		}
	}

	return spans, nil
}

// InjectRegions replaces every region of body with its content. Regions are
// resolved in precedence order; injected content is never rescanned for
// markers.
func InjectRegions(name string, body []byte, content map[RegionKind][]byte) ([]byte, error) {
	spans, err := locateRegions(name, body)
	if err != nil {
		return nil, err
	}

	replaced := make(map[int][]byte, len(spans))
	for _, s := range spans {
		replaced[s.start] = content[s.region.Kind]
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var out bytes.Buffer
	out.Grow(len(body))
	last := 0
	for _, s := range spans {
		out.Write(body[last:s.start])
		out.Write(replaced[s.start])
		last = s.end
	}
	out.Write(body[last:])

	return out.Bytes(), nil
}

// regionSources lists, for component id, the files feeding each region in
// directory listing order.
func (b *Builder) regionSources(id string) (map[RegionKind][]string, error) {
	component := filepath.Join(b.ctx.SrcDir, id)
	compiled := filepath.Join(b.ctx.TempDir, id)

	isGlobal := func(name string) bool { return strings.HasSuffix(name, globalMarkupExt) }

	lookups := []struct {
		kind RegionKind
		dir  string
		keep func(string) bool
	}{
		{RegionGlobalMarkup, component, isGlobal},
		{RegionMarkup, component, func(name string) bool {
			return filepath.Ext(name) == markupExt && !isGlobal(name)
		}},
		{RegionStyle, compiled, func(name string) bool { return filepath.Ext(name) == styleOutExt }},
		{RegionScript, compiled, func(name string) bool { return filepath.Ext(name) == scriptOutExt }},
	}

	out := make(map[RegionKind][]string, len(lookups))
	for _, l := range lookups {
		files, err := listFiles(l.dir, l.keep)
		if err != nil {
			return nil, err
		}
		out[l.kind] = files
	}
	return out, nil
}

func concatFiles(files []string) ([]byte, error) {
	var buf bytes.Buffer
	for _, f := range files {
		data, err := readSource(f)
		if err != nil {
			return nil, err
		}
		buf.Write(ensureNewline(data))
	}
	return buf.Bytes(), nil
}

// Inject produces one final document per instantiated template of the temp
// store. A malformed template aborts the whole stage.
func (b *Builder) Inject(ctx context.Context) ([]FinalDocument, error) {
	templates, err := listFiles(b.ctx.TempTemplatesDir, func(name string) bool {
		return filepath.Ext(name) == markupExt
	})
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(b.ctx.DestDir, 0755)
	if err != nil {
		tlogger.Error("builder", "inject", "msg", "Failed to create dest folder", "path", b.ctx.DestDir, "err", err)
		return nil, err
	}

	docs := make([]FinalDocument, len(templates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, tpl := range templates {
		i, tpl := i, tpl
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := b.injectOne(tpl)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tlogger.Info("builder", "inject", "msg", "Documents created", "count", len(docs))
	return docs, nil
}

func (b *Builder) injectOne(tpl string) (FinalDocument, error) {
	id := strings.TrimSuffix(filepath.Base(tpl), markupExt)

	body, err := readSource(tpl)
	if err != nil {
		tlogger.Error("builder", "inject", "msg", "file error", "file", tpl, "err", err)
		return FinalDocument{}, err
	}

	sources, err := b.regionSources(id)
	if err != nil {
		tlogger.Error("builder", "inject", "msg", "source listing error", "component", id, "err", err)
		return FinalDocument{}, err
	}

	content := make(map[RegionKind][]byte, len(Regions))
	for _, r := range Regions {
		c, err := concatFiles(sources[r.Kind])
		if err != nil {
			tlogger.Error("builder", "inject", "msg", "file error", "component", id, "region", r.Kind, "err", err)
			return FinalDocument{}, err
		}
		content[r.Kind] = c
	}

	out, err := InjectRegions(tpl, body, content)
	if err != nil {
		tlogger.Error("builder", "inject", "msg", "malformed template", "file", tpl, "err", err)
		return FinalDocument{}, err
	}

	dst := filepath.Join(b.ctx.DestDir, id+markupExt)
	err = writeFile(dst, out)
	if err != nil {
		tlogger.Error("builder", "inject", "msg", "output file creation", "file", dst, "err", err)
		return FinalDocument{}, err
	}

	tlogger.Debug("builder", "inject", "msg", "Document created", "file", dst)
	return FinalDocument{ID: id, Path: dst, Body: out}, nil
}
