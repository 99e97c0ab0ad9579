package builder

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
	"golang.org/x/sync/errgroup"

	"github.com/toastate/toastpack/internal/tlogger"
)

// Bundler inlines the local sub-resources of a document (html imports,
// stylesheets, scripts) then minifies the result.
type Bundler struct {
	minifier Minifier
}

func NewBundler(m Minifier) *Bundler {
	if m == nil {
		m = &NOOPMinifier{}
	}
	return &Bundler{minifier: m}
}

// Bundle inlines src, whose relative references are resolved from dir and
// root-relative ones ("/x.html") from root.
func (bd *Bundler) Bundle(src []byte, dir, root string) ([]byte, error) {
	in := &inliner{root: root, seen: map[string]struct{}{}}
	out, err := in.inlineBytes(src, dir, 0)
	if err != nil {
		return nil, err
	}
	return bd.minifier.Minify(mediaHTML, out)
}

// BundleFile bundles the document at path.
func (bd *Bundler) BundleFile(path, root string) ([]byte, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return bd.Bundle(src, filepath.Dir(path), root)
}

type attr struct {
	name string
	raw  []byte // value as written, quotes included
}

func (a attr) value() string {
	return strings.Trim(string(a.raw), `"'`)
}

type pendingTag struct {
	name  []byte
	attrs []attr
	close []byte
}

func (t *pendingTag) lowerName() string {
	return strings.ToLower(string(t.name))
}

func (t *pendingTag) attr(name string) (string, bool) {
	for _, a := range t.attrs {
		if a.name == name {
			return a.value(), true
		}
	}
	return "", false
}

// render writes the tag back, dropping the attributes listed in skip.
func (t *pendingTag) render(skip ...string) []byte {
	var buf bytes.Buffer
	buf.WriteByte('<')
	buf.Write(t.name)
attrs:
	for _, a := range t.attrs {
		for _, s := range skip {
			if a.name == s {
				continue attrs
			}
		}
		buf.WriteByte(' ')
		buf.WriteString(a.name)
		if len(a.raw) > 0 {
			buf.WriteByte('=')
			buf.Write(a.raw)
		}
	}
	buf.Write(t.close)
	return buf.Bytes()
}

type inliner struct {
	root string
	seen map[string]struct{} // html imports are inlined once
}

func (in *inliner) inlineFile(path string, depth int) ([]byte, error) {
	if depth > 5 {
		tlogger.Debug("builder", "bundle", "msg", "file error", "file", path, "err", ErrTooDeep)
		return nil, ErrTooDeep
	}
	src, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return in.inlineBytes(src, filepath.Dir(path), depth)
}

func (in *inliner) inlineBytes(src []byte, dir string, depth int) ([]byte, error) {
	l := html.NewLexer(parse.NewInputBytes(src))

	var (
		out        bytes.Buffer
		tag        *pendingTag
		skipScript bool
	)

	for {
		tt, data := l.Next()
		switch tt {
		case html.ErrorToken:
			if l.Err() != io.EOF {
				return nil, l.Err()
			}
			if tag != nil {
				out.Write(tag.render())
			}
			return out.Bytes(), nil
		case html.StartTagToken:
			tag = &pendingTag{name: append([]byte(nil), l.Text()...)}
		case html.AttributeToken:
			if tag != nil {
				tag.attrs = append(tag.attrs, attr{
					name: strings.ToLower(string(l.Text())),
					raw:  append([]byte(nil), l.AttrVal()...),
				})
			}
		case html.StartTagCloseToken, html.StartTagVoidToken:
			if tag == nil {
				out.Write(data)
				continue
			}
			tag.close = append([]byte(nil), data...)
			repl, inlinedScript, err := in.resolve(tag, dir, depth)
			if err != nil {
				return nil, err
			}
			out.Write(repl)
			skipScript = inlinedScript
			tag = nil
		case html.TextToken:
			if skipScript {
				continue
			}
			out.Write(data)
		case html.EndTagToken:
			if skipScript && strings.EqualFold(string(l.Text()), "script") {
				skipScript = false
			}
			out.Write(data)
		default:
			out.Write(data)
		}
	}
}

// resolve returns the replacement of tag. inlinedScript is set when the body
// of a script element must be dropped in favor of its inlined source.
func (in *inliner) resolve(tag *pendingTag, dir string, depth int) ([]byte, bool, error) {
	switch tag.lowerName() {
	case "link":
		rel, _ := tag.attr("rel")
		href, ok := tag.attr("href")
		if !ok || !isLocal(href) {
			break
		}
		switch strings.ToLower(rel) {
		case "import":
			p := in.localPath(dir, href)
			if _, ok := in.seen[p]; ok {
				return nil, false, nil
			}
			in.seen[p] = struct{}{}
			c, err := in.inlineFile(p, depth+1)
			if err != nil {
				return nil, false, errors.Wrapf(err, "import %s", href)
			}
			return c, false, nil
		case "stylesheet":
			c, err := readSource(in.localPath(dir, href))
			if err != nil {
				return nil, false, errors.Wrapf(err, "stylesheet %s", href)
			}
			return append(append([]byte("<style>"), c...), "</style>"...), false, nil
		}
	case "script":
		src, ok := tag.attr("src")
		if !ok || !isLocal(src) {
			break
		}
		c, err := readSource(in.localPath(dir, src))
		if err != nil {
			return nil, false, errors.Wrapf(err, "script %s", src)
		}
		c = bytes.ReplaceAll(c, []byte("</script"), []byte(`<\/script`))
		return append(tag.render("src"), c...), true, nil
	}
	return tag.render(), false, nil
}

func (in *inliner) localPath(dir, ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if strings.HasPrefix(ref, "/") {
		return filepath.Join(in.root, filepath.FromSlash(ref))
	}
	return filepath.Join(dir, filepath.FromSlash(ref))
}

// isLocal tells whether ref points into the local filesystem.
func isLocal(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	if i := strings.Index(ref, ":"); i > 0 && !strings.ContainsAny(ref[:i], "/.") {
		return false // scheme, e.g. https: or data:
	}
	return true
}

// BundleDocuments bundles the final documents in place. Their references are
// resolved from the shared template folder, where they were authored.
// Minification only happens in production builds.
func (b *Builder) BundleDocuments(ctx context.Context, docs []FinalDocument) error {
	root := filepath.Dir(b.ctx.TemplateFile)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := b.bundler.Bundle(doc.Body, root, root)
			if err != nil {
				tlogger.Error("builder", "bundle", "msg", "bundling error", "file", doc.Path, "err", err)
				b.report.add(&BundleError{Entry: doc.Path, Err: err})
				return nil
			}
			return writeFile(doc.Path, out)
		})
	}
	return g.Wait()
}

// BundlePolymer bundles every entry of the polymer glob into the dest folder,
// keeping their path relative to the glob base. Entries are always minified.
func (b *Builder) BundlePolymer(ctx context.Context) error {
	if b.ctx.PolymerGlob == "" {
		return nil
	}

	base, pattern := doublestar.SplitPattern(filepath.ToSlash(b.ctx.PolymerGlob))
	base = filepath.FromSlash(base)

	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return errors.Wrapf(err, "invalid polymer glob %s", b.ctx.PolymerGlob)
	}
	sort.Strings(matches)

	if len(matches) == 0 {
		tlogger.Info("builder", "polymer", "msg", "No polymer entry found", "glob", b.ctx.PolymerGlob)
		return nil
	}

	bundler := NewBundler(NewTDMinifier())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, m := range matches {
		entry := filepath.Join(base, filepath.FromSlash(m))
		dst := filepath.Join(b.ctx.DestDir, filepath.FromSlash(m))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := bundler.BundleFile(entry, base)
			if err != nil {
				tlogger.Error("builder", "polymer", "msg", "bundling error", "file", entry, "err", err)
				b.report.add(&BundleError{Entry: entry, Err: err})
				return nil
			}
			tlogger.Debug("builder", "polymer", "msg", "Entry bundled", "file", dst)
			return writeFile(dst, out)
		})
	}
	return g.Wait()
}
