package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/alucardeht/memory-bank-mcp/internal/logger"
	"github.com/alucardeht/memory-bank-mcp/internal/version"
	"github.com/alucardeht/memory-bank-mcp/pkg/protocol"
)

const ServerName = "memory-bank"

var log = logger.ForComponent("mcp")

type Request = protocol.JSONRPCRequest
type Response = protocol.JSONRPCResponse

type ClientInfo struct {
	Name    string
	Version string
}

// Handler answers the requests of one client session.
type Handler struct {
	dispatcher  *Dispatcher
	initialized bool
	clientInfo  ClientInfo
}

func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// Handle returns the response for req, or nil when req is a notification.
func (h *Handler) Handle(ctx context.Context, req *Request) (resp *Response) {
	if req.IsNotification() {
		h.handleNotification(req)
		return nil
	}

	resp = &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("request panic recovered",
				"method", req.Method,
				"panic", r,
				"stack", string(debug.Stack()))
			resp.Result = nil
			resp.Error = &protocol.JSONRPCError{
				Code:    protocol.CodeInternalError,
				Message: fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	if req.JSONRPC != "2.0" {
		resp.Error = &protocol.JSONRPCError{
			Code:    protocol.CodeInvalidRequest,
			Message: fmt.Sprintf("Invalid JSON-RPC version: %q", req.JSONRPC),
		}
		return resp
	}

	switch req.Method {
	case "initialize":
		result, err := h.handleInitialize(req)
		if err != nil {
			resp.Error = &protocol.JSONRPCError{
				Code:    protocol.CodeInvalidParams,
				Message: err.Error(),
			}
		} else {
			resp.Result = result
		}
	case "ping":
		resp.Result = map[string]interface{}{}
	case "tools/list":
		resp.Result = h.dispatcher.ListTools()
	case "tools/call":
		result, err := h.handleCallTool(ctx, req)
		if err != nil {
			resp.Error = &protocol.JSONRPCError{
				Code:    protocol.CodeInvalidParams,
				Message: err.Error(),
			}
		} else {
			resp.Result = result
		}
	default:
		resp.Error = &protocol.JSONRPCError{
			Code:    protocol.CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return resp
}

func (h *Handler) handleInitialize(req *Request) (interface{}, error) {
	initReq := struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}{}

	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &initReq); err != nil {
			return nil, fmt.Errorf("failed to parse initialize request: %w", err)
		}
	}

	h.clientInfo.Name = initReq.ClientInfo.Name
	h.clientInfo.Version = initReq.ClientInfo.Version

	log.Info("client connected",
		"client", h.clientInfo.Name,
		"client_version", h.clientInfo.Version,
		"protocol", initReq.ProtocolVersion)

	return map[string]interface{}{
		"protocolVersion": negotiateProtocolVersion(initReq.ProtocolVersion),
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": version.Version,
		},
	}, nil
}

func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range version.SupportedProtocolVersions {
		if clientVersion == v {
			return v
		}
	}

	return version.ProtocolVersion
}

func (h *Handler) handleNotification(req *Request) {
	switch req.Method {
	case "notifications/initialized":
		h.initialized = true
	default:
		if !strings.HasPrefix(req.Method, "notifications/") {
			log.Debug("ignoring request without id", "method", req.Method)
		}
	}
}

func (h *Handler) handleCallTool(ctx context.Context, req *Request) (interface{}, error) {
	var params protocol.CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, fmt.Errorf("failed to parse tool call request: %w", err)
		}
	}

	return h.dispatcher.CallTool(ctx, params.Name, params.Arguments), nil
}

func (h *Handler) Initialized() bool {
	return h.initialized
}

func (h *Handler) ClientInfo() ClientInfo {
	return h.clientInfo
}
