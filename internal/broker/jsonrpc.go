// Package broker implements the MCP JSON-RPC protocol handler and its
// HTTP transport, wiring together every other package: auth, audit,
// browserpool, session, discovery, executor, catalog.
package broker

import "encoding/json"

// JSON-RPC 2.0 envelope and the error codes dispatch failures map onto.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one JSON-RPC call or notification. A notification omits ID.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether r carries no id (per JSON-RPC 2.0, a
// notification gets no response at all, not even an empty one).
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response is one JSON-RPC result or error envelope. HTTPStatus carries the
// status line the HTTP transport should use; it is never serialized —
// the JSON-RPC body itself is always well-formed regardless of the HTTP
// status wrapping it.
type Response struct {
	JSONRPC    string      `json:"jsonrpc"`
	ID         interface{} `json:"id,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Error      *RPCError   `json:"error,omitempty"`
	HTTPStatus int         `json:"-"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func errorResponse(id interface{}, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// forbiddenResponse builds the JSON-RPC error for an authz failure,
// tagging the response so the HTTP transport answers with 403 instead of
// the default 200.
func forbiddenResponse(id interface{}) Response {
	r := errorResponse(id, CodeInvalidRequest, "forbidden")
	r.HTTPStatus = 403
	return r
}

func resultResponse(id interface{}, result interface{}) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}
