package builder

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/toastate/toastpack/internal/tlogger"
)

// Scan lists the component folders of the source root, one per immediate
// subfolder, in directory listing order. Dot and underscore prefixed folders
// are skipped.
func (b *Builder) Scan() ([]ComponentFolder, error) {
	return ScanFolders(b.ctx.SrcDir)
}

func ScanFolders(root string) ([]ComponentFolder, error) {
	info, err := os.Stat(root)
	if err != nil {
		tlogger.Error("builder", "folder", "msg", "Src folder not found", "path", root, "err", err)
		return nil, &ScanError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Path: root, Err: os.ErrInvalid}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}

	var folders []ComponentFolder
	for _, e := range entries {
		// same rule as source discovery
		if !e.IsDir() || !shouldHandle(e.Name()) {
			continue
		}

		path, err := filepath.Abs(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, &ScanError{Path: root, Err: err}
		}

		files, err := classifyFiles(path)
		if err != nil {
			return nil, &ScanError{Path: path, Err: err}
		}

		folders = append(folders, ComponentFolder{
			Name:  e.Name(),
			Path:  path,
			Files: files,
		})
		tlogger.Debug("builder", "folder", "component", e.Name(), "msg", "Component found")
	}

	return folders, nil
}

func classifyFiles(dir string) (map[Category][]string, error) {
	names, err := listFiles(dir, func(string) bool { return true })
	if err != nil {
		return nil, err
	}

	files := map[Category][]string{}
	for _, p := range names {
		name := filepath.Base(p)
		switch {
		case strings.HasSuffix(name, globalMarkupExt):
			files[CategoryGlobalMarkup] = append(files[CategoryGlobalMarkup], p)
		case filepath.Ext(name) == markupExt:
			files[CategoryMarkup] = append(files[CategoryMarkup], p)
		case hasExt(name, styleSourceExts):
			files[CategoryStyle] = append(files[CategoryStyle], p)
		case hasExt(name, scriptSourceExts):
			files[CategoryScript] = append(files[CategoryScript], p)
		}
	}
	return files, nil
}
