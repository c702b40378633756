package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sourcegraph/jsonrpc2"
)

// ExecuteMethod is the JSON-RPC method an external executor answers.
const ExecuteMethod = "execute"

type ExecuteParams struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params"`
}

// RemoteError is a failure reported by the external executor itself.
type RemoteError struct {
	Code    int64
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func IsRemote(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote)
}

// RPCClient calls an external executor over a JSON-RPC 2.0 stream carrying
// one JSON object per line.
type RPCClient struct {
	conn *jsonrpc2.Conn
}

func NewRPCClient(ctx context.Context, rwc io.ReadWriteCloser) *RPCClient {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.PlainObjectCodec{})
	return &RPCClient{
		conn: jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(rejectRequests)),
	}
}

// rejectRequests answers any request the executor sends back to us.
func rejectRequests(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	return nil, &jsonrpc2.Error{
		Code:    jsonrpc2.CodeMethodNotFound,
		Message: fmt.Sprintf("method not supported: %s", req.Method),
	}
}

func (c *RPCClient) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	var raw json.RawMessage
	err := c.conn.Call(ctx, ExecuteMethod, ExecuteParams{Command: command, Params: params}, &raw)
	if err != nil {
		var rpcErr *jsonrpc2.Error
		if errors.As(err, &rpcErr) {
			return nil, &RemoteError{Code: rpcErr.Code, Message: rpcErr.Message}
		}
		if errors.Is(err, jsonrpc2.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("execute request failed: %w", err)
	}

	return decodeResult(raw)
}

// decodeResult unwraps string results. Other values stay raw so objects keep
// the key order the executor sent.
func decodeResult(raw json.RawMessage) (interface{}, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to parse executor result: %w", err)
		}
		return s, nil
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("failed to parse executor result: invalid JSON")
	}
	return raw, nil
}

// Done is closed once the underlying stream is gone.
func (c *RPCClient) Done() <-chan struct{} {
	return c.conn.DisconnectNotify()
}

func (c *RPCClient) Close() error {
	err := c.conn.Close()
	if errors.Is(err, jsonrpc2.ErrClosed) {
		return nil
	}
	return err
}

// Serve exposes e as an external executor on rwc until the stream closes or
// ctx is cancelled.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, e Executor) error {
	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if req.Method != ExecuteMethod {
			return nil, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeMethodNotFound,
				Message: fmt.Sprintf("method not found: %s", req.Method),
			}
		}

		var params ExecuteParams
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, &jsonrpc2.Error{
					Code:    jsonrpc2.CodeInvalidParams,
					Message: fmt.Sprintf("invalid params: %v", err),
				}
			}
		}

		result, err := Safe(ctx, e, params.Command, params.Params)
		if err != nil {
			return nil, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeInternalError,
				Message: err.Error(),
			}
		}
		return result, nil
	})

	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.PlainObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, handler)

	select {
	case <-conn.DisconnectNotify():
		return nil
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}

// pipeConn joins a child's stdout and stdin into one stream.
type pipeConn struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (p *pipeConn) Read(b []byte) (int, error) {
	return p.reader.Read(b)
}

func (p *pipeConn) Write(b []byte) (int, error) {
	return p.writer.Write(b)
}

func (p *pipeConn) Close() error {
	werr := p.writer.Close()
	rerr := p.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// NewPipeConn joins a reader and a writer into an io.ReadWriteCloser.
func NewPipeConn(r io.ReadCloser, w io.WriteCloser) io.ReadWriteCloser {
	return &pipeConn{reader: r, writer: w}
}
