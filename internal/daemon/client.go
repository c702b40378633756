package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/alucardeht/memory-bank-mcp/pkg/protocol"
)

// Client speaks newline-delimited JSON-RPC to a running daemon.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	nextID  int64
	timeout time.Duration
}

func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: 30 * time.Second,
	}
}

func Dial(socketPath string) (*Client, error) {
	conn, err := NewSocketConnector(socketPath).Connect()
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

func (c *Client) write(req *protocol.JSONRPCRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	data = append(data, '\n')

	_, err = c.conn.Write(data)
	return err
}

// Notify sends a request that expects no response.
func (c *Client) Notify(req *protocol.JSONRPCRequest) error {
	if !req.IsNotification() {
		return fmt.Errorf("request %v has an id; use SendRequest", req.ID)
	}
	return c.write(req)
}

// SetTimeout bounds how long SendRequest waits for a response. Zero waits
// forever.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *Client) SendRequest(req *protocol.JSONRPCRequest) (*protocol.JSONRPCResponse, error) {
	if err := c.write(req); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	// Decode the result as raw JSON so object keys keep the server's order.
	result := new(json.RawMessage)
	resp := protocol.JSONRPCResponse{Result: result}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, err
	}
	if len(*result) == 0 {
		resp.Result = nil
	}

	return &resp, nil
}

// Call sends method with params and returns the raw result.
func (c *Client) Call(method string, params interface{}) (json.RawMessage, error) {
	req := &protocol.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddInt64(&c.nextID, 1),
		Method:  method,
	}

	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = raw
	}

	resp, err := c.SendRequest(req)
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("RPC error: %s", resp.Error.Message)
	}

	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
