package builder

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

const (
	mediaCSS  = "text/css"
	mediaJS   = "application/javascript"
	mediaHTML = "text/html"
)

type Minifier interface {
	Minify(mediatype string, in []byte) ([]byte, error)
}

type TDMinifier struct {
	Minifier *minify.M
}

func (m *TDMinifier) Minify(mediatype string, in []byte) ([]byte, error) {
	return m.Minifier.Bytes(mediatype, in)
}

type NOOPMinifier struct {
}

func (m *NOOPMinifier) Minify(mediatype string, in []byte) ([]byte, error) {
	return in, nil
}

// NewTDMinifier strips comments and collapses whitespace in html documents,
// and minifies css and javascript, standalone or embedded.
func NewTDMinifier() *TDMinifier {
	minifier := minify.New()
	minifier.AddFunc(mediaCSS, css.Minify)
	minifier.Add(mediaHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	minifier.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return &TDMinifier{
		Minifier: minifier,
	}
}
