package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/alucardeht/memory-bank-mcp/pkg/protocol"
)

const maxLineSize = 16 * 1024 * 1024

// Server runs one client session over a newline-delimited JSON-RPC stream.
type Server struct {
	dispatcher *Dispatcher
	handler    *Handler
}

func NewServer(dispatcher *Dispatcher) *Server {
	return &Server{
		dispatcher: dispatcher,
		handler:    NewHandler(dispatcher),
	}
}

func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	return s.handler.Handle(ctx, req)
}

// ProcessStream reads requests from reader and writes responses to writer,
// one at a time, until reader is exhausted or ctx is cancelled.
func (s *Server) ProcessStream(ctx context.Context, reader io.Reader, writer io.Writer) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	encoder := json.NewEncoder(writer)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp := &Response{
				JSONRPC: "2.0",
				ID:      nil,
				Error: &protocol.JSONRPCError{
					Code:    protocol.CodeParseError,
					Message: "Parse error",
				},
			}
			if err := encoder.Encode(resp); err != nil {
				return err
			}
			continue
		}

		resp := s.HandleRequest(ctx, &req)
		if resp == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *Server) Handler() *Handler {
	return s.handler
}
