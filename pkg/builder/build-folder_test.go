package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFolders(t *testing.T) {
	bc := testContext(t)
	addComponent(t, bc, "b-card", map[string]string{
		"b-card.html":        "<p>card</p>",
		"b-card.global.html": "<template></template>",
		"b-card.scss":        ".a{}",
		"b-card.jsx":         "let a",
		"README.md":          "docs",
	})
	addComponent(t, bc, "a-button", nil)
	addComponent(t, bc, ".cache", map[string]string{"x.html": ""})
	addComponent(t, bc, "_partials", map[string]string{"_vars.scss": "$c: red;"})
	writeTestFile(t, filepath.Join(bc.SrcDir, "loose.html"), "")

	folders, err := ScanFolders(bc.SrcDir)
	require.NoError(t, err)
	require.Len(t, folders, 2, "hidden and underscore folders are not components")

	assert.Equal(t, "a-button", folders[0].Name)
	assert.Equal(t, "b-card", folders[1].Name)
	assert.True(t, filepath.IsAbs(folders[1].Path))
	assert.Empty(t, folders[0].Files)

	files := folders[1].Files
	assert.Equal(t, []string{filepath.Join(folders[1].Path, "b-card.html")}, files[CategoryMarkup])
	assert.Equal(t, []string{filepath.Join(folders[1].Path, "b-card.global.html")}, files[CategoryGlobalMarkup])
	assert.Equal(t, []string{filepath.Join(folders[1].Path, "b-card.scss")}, files[CategoryStyle])
	assert.Equal(t, []string{filepath.Join(folders[1].Path, "b-card.jsx")}, files[CategoryScript])
}

func TestScanFoldersEmptyRoot(t *testing.T) {
	bc := testContext(t)

	folders, err := ScanFolders(bc.SrcDir)
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestScanFoldersMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nope")

	_, err := ScanFolders(root)

	var se *ScanError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, root, se.Path)
	assert.True(t, os.IsNotExist(se.Err))
}

func TestScanFoldersRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	writeTestFile(t, root, "")

	_, err := ScanFolders(root)

	var se *ScanError
	assert.True(t, errors.As(err, &se))
}
