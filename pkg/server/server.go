package server

import (
	"github.com/toastate/toastpack/internal/server"
	"github.com/toastate/toastpack/pkg/config"
)

type Server interface {
	Start(withBuilder bool) error
}

func NewServer(bc config.BuildContext, port string, override404 string) Server {
	return server.NewServer(bc, port, override404)
}

// Watch rebuilds bc on every source change until the watcher stops.
func Watch(bc config.BuildContext, rebuilt func()) error {
	return server.Watch(bc, rebuilt)
}
