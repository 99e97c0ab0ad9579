package server

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/toastate/toastpack/internal/tlogger"
	"github.com/toastate/toastpack/internal/watcher"
	"github.com/toastate/toastpack/pkg/builder"
	"github.com/toastate/toastpack/pkg/config"
)

//go:embed livereload.html
var liveReloadScript []byte

const (
	livereloadPath = "/__internal/livereload"
	demoPrefix     = "/demo/"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
		w.WriteHeader(500)
	},
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Server struct {
	bc           config.BuildContext
	port         string
	override404  string
	reloadBroker *Broker
}

func (s *Server) TriggerReload() {
	s.reloadBroker.Publish(struct{}{})
}

func NewServer(bc config.BuildContext, port string, override404 string) *Server {
	if override404 != "" && !strings.HasPrefix(override404, "/") {
		override404 = "/" + override404
	}
	return &Server{
		bc:           bc,
		port:         port,
		override404:  override404,
		reloadBroker: newBroker(),
	}
}

// Build runs a full build with a fresh builder, so that reports do not
// accumulate across rebuilds.
func Build(bc config.BuildContext) error {
	b := builder.NewBuilder(bc)
	err := b.Build(context.Background())
	for _, skipped := range b.Report().Skipped() {
		tlogger.Warn("msg", "Asset skipped", "err", skipped)
	}
	return err
}

// Watch rebuilds the project after every burst of source changes and calls
// rebuilt after each successful rebuild. It blocks until the watcher stops.
func Watch(bc config.BuildContext, rebuilt func()) error {
	w, err := watcher.StartWatcher(watchRoots(bc)...)
	if err != nil {
		return err
	}
	defer w.Close()

	for range watcher.Debounce(w.Changes(), time.Millisecond*500) {
		if err := Build(bc); err != nil {
			tlogger.Error("msg", "Rebuild failed", "err", err)
			continue
		}
		if rebuilt != nil {
			rebuilt()
		}
	}
	return nil
}

// Start serves the dest folder (and the demo folder under /demo/). With
// withBuilder, the project is built first and rebuilt on every change.
func (s *Server) Start(withBuilder bool) error {
	go s.reloadBroker.Start()

	if withBuilder {
		err := Build(s.bc)
		if err != nil {
			return err
		}

		go func() {
			err := Watch(s.bc, s.TriggerReload)
			if err != nil {
				tlogger.Error("msg", "Watcher stopped", "err", err)
			}
		}()
	}

	// We use println here so the address can be copied or opened directly from the terminal
	fmt.Println("Listening on http://localhost:" + s.port)

	return http.ListenAndServe(":"+s.port, s.Handler())
}

// watchRoots lists the source folders to watch. The working directory itself
// is never watched since it holds the build output.
func watchRoots(bc config.BuildContext) []string {
	roots := []string{bc.SrcDir}
	for _, p := range []string{bc.TemplateFile, bc.StyleguideGlob} {
		if p == "" {
			continue
		}
		if dir := filepath.Dir(p); dir != "." {
			roots = append(roots, dir)
		}
	}
	return roots
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(livereloadPath, s.livereloadHandler)
	r.PathPrefix("/").HandlerFunc(s.fileServer)
	return r
}

// resolve maps a request path to a file: exact match, then .html suffix, then
// folder index.
func resolve(dir, upath string) (string, bool) {
	const indexPage = "index.html"

	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+upath)))
	for _, candidate := range []string{fullName, fullName + ".html", filepath.Join(fullName, indexPage)} {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (s *Server) lookup(upath string) (string, bool) {
	if s.bc.DemoDir != "" && strings.HasPrefix(upath, demoPrefix) {
		return resolve(s.bc.DemoDir, strings.TrimPrefix(upath, demoPrefix))
	}
	return resolve(s.bc.DestDir, upath)
}

func (s *Server) fileServer(w http.ResponseWriter, r *http.Request) {
	fullName, ok := s.lookup(r.URL.Path)
	if !ok && s.override404 != "" && r.URL.Path != s.override404 {
		fullName, ok = s.lookup(s.override404)
	}
	if !ok {
		w.WriteHeader(404)
		w.Write([]byte("404 page not found"))
		return
	}

	content, err := os.Open(fullName)
	if err != nil {
		w.WriteHeader(500)
		w.Write([]byte("Internal error: can't open file"))
		return
	}
	defer content.Close()

	ctype := mime.TypeByExtension(filepath.Ext(fullName))
	if ctype == "" {
		// read a chunk to decide between utf-8 text and binary
		var buf [512]byte
		n, _ := io.ReadFull(content, buf[:])
		ctype = http.DetectContentType(buf[:n])
		_, err := content.Seek(0, io.SeekStart) // rewind to output whole file
		if err != nil {
			w.WriteHeader(500)
			w.Write([]byte("Internal error: can't seek file: " + err.Error()))
			return
		}
	}
	w.Header().Set("Content-Type", ctype)
	io.Copy(w, content)
	if strings.HasPrefix(ctype, "text/html") {
		_, err = w.Write(liveReloadScript)
		if err != nil {
			tlogger.Error("msg", "could not live reload", "error", err)
		}
	}
}

func (s *Server) livereloadHandler(w http.ResponseWriter, r *http.Request) {
	tlogger.Debug("msg", "WS Established")

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()
	waitCh := s.reloadBroker.Subscribe()
	defer s.reloadBroker.Unsubscribe(waitCh)

	// the client never sends anything, a read only fails once it is gone
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-waitCh:
		err = c.WriteMessage(websocket.TextMessage, []byte("reload"))
		if err != nil {
			tlogger.Warn("msg", "Reload socket error", "error", err)
		}
	case <-gone:
		tlogger.Debug("msg", "WS Closed by client")
	}
}
