package jsonrpc

import (
	"errors"
	"strconv"
)

// ErrBadResponse is wrapped by every failure to make sense of a reply.
var ErrBadResponse = errors.New("bad json-rpc response")

// Error is the error member of a JSON-RPC 1.1 reply.
type Error struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"error,omitempty"` // server side trace, if any
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.Name
	if name == "" {
		name = "JSONRPCError"
	}
	return name + " " + strconv.Itoa(e.Code) + ": " + e.Message
}
