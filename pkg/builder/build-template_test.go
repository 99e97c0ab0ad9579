package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewritePlaceholder(t *testing.T) {
	tpl := []byte(`<div id="component-name"></div><a href="#x" id="component-name"></a>`)

	out := RewritePlaceholder(tpl, "x-card")

	assert.Equal(t, `<div id="x-card"></div><a href="#x" id="x-card"></a>`, string(out))
}

func TestRewritePlaceholderWithoutPlaceholder(t *testing.T) {
	tpl := []byte(`<div id="other"></div>`)
	assert.Equal(t, string(tpl), string(RewritePlaceholder(tpl, "x-card")))
}

func TestRenderTemplates(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", nil)
	addComponent(t, bc, "x-menu", nil)

	b := newTestBuilder(bc)
	tpls, err := b.RenderTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, tpls, 2)

	assert.Equal(t, "x-card", tpls[0].ID)
	assert.Equal(t, filepath.Join(bc.TempTemplatesDir, "x-card.html"), tpls[0].Path)
	assert.Equal(t, "x-menu", tpls[1].ID)

	body := readTestFile(t, tpls[1].Path)
	assert.Contains(t, body, `<div id="x-menu">`)
	assert.NotContains(t, body, ComponentPlaceholder)
	assert.Contains(t, body, "<!-- inject:html -->")
}

func TestRenderTemplatesNormalizesLineEndings(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", nil)
	writeTestFile(t, bc.TemplateFile, strings.ReplaceAll(testTemplate, "\n", "\r\n"))

	b := newTestBuilder(bc)
	tpls, err := b.RenderTemplates(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, readTestFile(t, tpls[0].Path), "\r")
}

func TestRenderTemplatesMissingTemplate(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "x-card", nil)
	require.NoError(t, os.Remove(bc.TemplateFile))

	b := newTestBuilder(bc)
	_, err := b.RenderTemplates(context.Background())

	var te *TemplateMissingError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, bc.TemplateFile, te.Path)
	assert.NoFileExists(t, filepath.Join(bc.TempTemplatesDir, "x-card.html"))
}
