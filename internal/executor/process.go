package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

var ErrExecutorNotInstalled = errors.New("executor command not installed")

type ProcessConfig struct {
	Command     string
	Args        []string
	Dir         string
	Env         []string
	StopTimeout time.Duration
}

type ProcessStats struct {
	Command      string    `json:"command"`
	Running      bool      `json:"running"`
	Starts       int       `json:"starts"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	LastErrorMsg string    `json:"last_error,omitempty"`
}

// ProcessExecutor runs the external executor as a child process and talks
// JSON-RPC to it over the child's stdin and stdout. The child is started on
// the first call and started again on the call after it exits.
type ProcessExecutor struct {
	config ProcessConfig

	mu        sync.Mutex
	cmd       *exec.Cmd
	client    *RPCClient
	exited    chan struct{}
	starts    int
	startedAt time.Time
	lastError error
	closed    bool
}

func NewProcessExecutor(config ProcessConfig) *ProcessExecutor {
	if config.StopTimeout <= 0 {
		config.StopTimeout = 3 * time.Second
	}
	return &ProcessExecutor{config: config}
}

func (p *ProcessExecutor) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	client, err := p.ensureStarted()
	if err != nil {
		return nil, err
	}

	result, err := client.Execute(ctx, command, params)
	if errors.Is(err, ErrClosed) {
		p.mu.Lock()
		p.lastError = err
		p.mu.Unlock()
		return nil, fmt.Errorf("executor process %s exited", p.config.Command)
	}
	return result, err
}

func (p *ProcessExecutor) ensureStarted() (*RPCClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	if p.client != nil {
		select {
		case <-p.exited:
		default:
			return p.client, nil
		}
	}

	if err := p.start(); err != nil {
		p.lastError = err
		return nil, err
	}
	return p.client, nil
}

func (p *ProcessExecutor) start() error {
	path, err := exec.LookPath(p.config.Command)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrExecutorNotInstalled, p.config.Command)
	}

	cmd := exec.Command(path, p.config.Args...)
	cmd.Dir = p.config.Dir
	if len(p.config.Env) > 0 {
		cmd.Env = append(os.Environ(), p.config.Env...)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("failed to start %s: %w", p.config.Command, err)
	}

	client := NewRPCClient(context.Background(), NewPipeConn(stdout, stdin))
	exited := make(chan struct{})

	p.cmd = cmd
	p.client = client
	p.exited = exited
	p.starts++
	p.startedAt = time.Now()

	log.Info("executor process started",
		"command", p.config.Command,
		"pid", cmd.Process.Pid,
		"starts", p.starts)

	go p.monitor(cmd, client, exited)
	return nil
}

// monitor reaps the child once its stdout is gone, so that Wait never races
// the reader.
func (p *ProcessExecutor) monitor(cmd *exec.Cmd, client *RPCClient, exited chan struct{}) {
	<-client.Done()
	err := cmd.Wait()
	close(exited)

	p.mu.Lock()
	if p.client == client {
		p.client = nil
		p.cmd = nil
	}
	if err != nil {
		p.lastError = err
	}
	p.mu.Unlock()

	log.Info("executor process exited", "command", p.config.Command, "error", err)
}

// Close stops the child, killing it if it does not exit within the stop
// timeout.
func (p *ProcessExecutor) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	cmd, client, exited := p.cmd, p.client, p.exited
	p.mu.Unlock()

	if client == nil {
		return nil
	}

	err := client.Close()

	select {
	case <-exited:
	case <-time.After(p.config.StopTimeout):
		if cmd != nil && cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-exited
	}

	return err
}

func (p *ProcessExecutor) Stats() ProcessStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := ProcessStats{
		Command:   p.config.Command,
		Running:   p.client != nil,
		Starts:    p.starts,
		StartedAt: p.startedAt,
	}
	if p.lastError != nil {
		stats.LastErrorMsg = p.lastError.Error()
	}
	return stats
}
