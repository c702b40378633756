package daemon

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

type SocketListener struct {
	path     string
	listener net.Listener
}

func NewSocketListener(socketPath string) *SocketListener {
	return &SocketListener{
		path: socketPath,
	}
}

// Start listens on the socket path, replacing a stale socket file but
// refusing to take over one that still answers.
func (sl *SocketListener) Start() error {
	dir := filepath.Dir(sl.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	if isSocketResponsive(sl.path) {
		return fmt.Errorf("socket %s is already served by another process", sl.path)
	}

	if err := os.Remove(sl.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	listener, err := net.Listen("unix", sl.path)
	if err != nil {
		return err
	}

	sl.listener = listener
	return os.Chmod(sl.path, 0700)
}

func (sl *SocketListener) Accept() (net.Conn, error) {
	if sl.listener == nil {
		return nil, fmt.Errorf("listener not started")
	}
	return sl.listener.Accept()
}

func (sl *SocketListener) Close() error {
	if sl.listener == nil {
		return nil
	}
	err := sl.listener.Close()
	os.Remove(sl.path)
	return err
}

func (sl *SocketListener) Path() string {
	return sl.path
}

func isSocketResponsive(path string) bool {
	conn, err := net.DialTimeout("unix", path, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

type SocketConnector struct {
	path string
}

func NewSocketConnector(socketPath string) *SocketConnector {
	return &SocketConnector{
		path: socketPath,
	}
}

func (sc *SocketConnector) Connect() (net.Conn, error) {
	return net.Dial("unix", sc.path)
}
