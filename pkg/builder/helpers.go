package builder

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var windowCRregexp = regexp.MustCompile(`\r?\n`)

func replaceWindowsCarriageReturn(b []byte) []byte {
	return windowCRregexp.ReplaceAll(b, []byte("\n"))
}

// readSource reads a source file with normalized line endings.
func readSource(path string) ([]byte, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return replaceWindowsCarriageReturn(f), nil
}

func writeFile(path string, content []byte) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return errors.Wrapf(err, "create folder for %s", path)
	}
	err = os.WriteFile(path, content, 0644)
	if err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// removeAll retries a few times, files can be briefly held open on some
// platforms right after a previous build.
func removeAll(path string) error {
	err := os.RemoveAll(path)
	for i := 0; err != nil && i < 2; i++ {
		<-time.After(time.Millisecond * 20)
		err = os.RemoveAll(path)
	}
	return err
}

// shouldHandle skips dot and underscore prefixed segments (hidden folders,
// scss partials) of a slash separated relative path.
func shouldHandle(rel string) bool {
	for _, v := range strings.Split(rel, "/") {
		if len(v) > 0 && (v[0] == '.' || v[0] == '_') {
			return false
		}
	}
	return true
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// componentOf returns the name of the folder directly holding path.
func componentOf(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// listFiles returns the regular files of dir, non recursively, in directory
// listing order, keeping those accepted by keep. A missing dir yields nothing.
func listFiles(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !keep(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

func ensureNewline(c []byte) []byte {
	if len(c) > 0 && c[len(c)-1] != '\n' {
		c = append(c, '\n')
	}
	return c
}
