package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	"github.com/zhouzirui/job-voice/backend/internal/telemetry"
	"github.com/zhouzirui/job-voice/backend/internal/tools"
)

var tracer = telemetry.GetTracer("job-voice/mcp")

// Dispatcher resolves JSON-RPC requests against a tool registry.
type Dispatcher struct {
	registry *tools.Registry
	logger   *zap.Logger
}

func NewDispatcher(registry *tools.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{registry: registry, logger: logger.Named("mcp")}
}

// Handle decodes one raw message and dispatches it. It returns nil for
// notifications, which get no response.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) *Response {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return errorResponse(nil, CodeInvalidRequest, "Invalid Request: batch requests are not supported")
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return errorResponse(nil, CodeParseError, "Parse error")
	}
	return d.Dispatch(ctx, req)
}

// Dispatch runs a decoded request.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Response {
	if req.JSONRPC != JSONRPCVersion || strings.TrimSpace(req.Method) == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid Request")
	}

	ctx, span := tracer.Start(ctx, "rpc."+req.Method)
	defer span.End()
	span.SetAttributes(telemetry.String("method", req.Method))

	if req.IsNotification() {
		if !strings.HasPrefix(req.Method, "notifications/") {
			d.logger.Debug("dropping request without id", zap.String("method", req.Method))
		}
		return nil
	}

	switch req.Method {
	case MethodInitialize:
		return resultResponse(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    Capabilities{Tools: ToolsCapability{ListChanged: false}},
			ServerInfo:      ServerInfo{Name: ServerName, Version: ServerVersion},
		})
	case MethodInitialized, MethodPing:
		return resultResponse(req.ID, map[string]any{})
	case MethodToolsList:
		return resultResponse(req.ID, map[string]any{"tools": d.registry.Definitions()})
	case MethodToolsCall:
		return d.toolsCall(ctx, req)
	}

	if !d.registry.Has(req.Method) {
		d.logger.Info("method not found", zap.String("method", req.Method))
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found: "+req.Method)
	}

	var args tools.Args
	if !decodeParams(req.Params, &args) {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params: expected an object")
	}
	res, err := d.registry.Call(ctx, req.Method, args)
	if err != nil {
		return d.callError(req, req.Method, err)
	}
	return resultResponse(req.ID, res)
}

func (d *Dispatcher) toolsCall(ctx context.Context, req Request) *Response {
	var params callParams
	if !decodeParams(req.Params, &params) || strings.TrimSpace(params.Name) == "" {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params: tools/call requires a tool name")
	}

	res, err := d.registry.Call(ctx, params.Name, tools.Args(params.Arguments))
	if err != nil {
		return d.callError(req, params.Name, err)
	}

	text, err := json.Marshal(res)
	if err != nil {
		d.logger.Error("encode tool result", zap.String("tool", params.Name), zap.Error(err))
		return errorResponse(req.ID, CodeInternalError, "Internal error")
	}
	return resultResponse(req.ID, CallResult{
		Content: []Content{{Type: "text", Text: string(text)}},
		IsError: !res.Success(),
	})
}

func (d *Dispatcher) callError(req Request, name string, err error) *Response {
	if apperr.Is(err, apperr.ErrTypeUnsupportedMethod) {
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found: "+name)
	}
	d.logger.Error("tool dispatch failed", zap.String("method", req.Method), zap.String("tool", name), zap.Error(err))
	return errorResponse(req.ID, CodeInternalError, "Internal error")
}

// decodeParams accepts absent or null params as an empty object.
func decodeParams(raw json.RawMessage, dst any) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if trimmed[0] != '{' {
		return false
	}
	return json.Unmarshal(trimmed, dst) == nil
}
