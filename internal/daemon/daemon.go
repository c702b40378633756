package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/alucardeht/memory-bank-mcp/internal/logger"
	"github.com/alucardeht/memory-bank-mcp/internal/mcp"
)

var log = logger.ForComponent("daemon")

// Daemon serves the MCP protocol on a unix socket. Each connection is its
// own session; requests on one connection are handled in order.
type Daemon struct {
	listener     *SocketListener
	dispatcher   *mcp.Dispatcher
	connections  map[net.Conn]bool
	connMu       sync.Mutex
	wg           sync.WaitGroup
	shutdown     chan struct{}
	shutdownOnce sync.Once
	startTime    time.Time
}

func NewDaemon(socketPath string, dispatcher *mcp.Dispatcher) *Daemon {
	return &Daemon{
		listener:    NewSocketListener(socketPath),
		dispatcher:  dispatcher,
		connections: make(map[net.Conn]bool),
		shutdown:    make(chan struct{}),
		startTime:   time.Now(),
	}
}

func (d *Daemon) Start() error {
	if err := d.listener.Start(); err != nil {
		return err
	}
	log.Info("daemon listening", "socket", d.listener.Path())
	return nil
}

// Serve accepts connections until ctx is cancelled or Shutdown is called.
// Start must have succeeded first.
func (d *Daemon) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			d.Shutdown()
		case <-d.shutdown:
		}
	}()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				d.wg.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("accept failed", "error", err)
			continue
		}

		d.connMu.Lock()
		d.connections[conn] = true
		d.connMu.Unlock()

		d.wg.Add(1)
		go d.handleConnection(ctx, conn)
	}
}

func (d *Daemon) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		d.connMu.Lock()
		delete(d.connections, conn)
		d.connMu.Unlock()
		d.wg.Done()
	}()

	log.Debug("connection opened")

	server := mcp.NewServer(d.dispatcher)
	if err := server.ProcessStream(ctx, conn, conn); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
		log.Warn("connection closed with error", "error", err)
		return
	}

	log.Debug("connection closed")
}

func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)

		d.listener.Close()

		d.connMu.Lock()
		for conn := range d.connections {
			conn.Close()
		}
		d.connMu.Unlock()
	})
}

func (d *Daemon) SocketPath() string {
	return d.listener.Path()
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}

func (d *Daemon) ConnectionCount() int {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return len(d.connections)
}
