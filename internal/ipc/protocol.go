// Package ipc implements the sandbox's host-side RPC channel: a length-
// prefixed, MessagePack-encoded request/response protocol served over a
// Unix domain socket so a sandboxed child can call back into the host
// process for a small set of registered commands.
package ipc

import (
	"encoding/binary"
	"fmt"
)

// MaxFrameSize is the largest frame body this implementation will read or
// write, not counting the 4-byte length prefix. A sandboxed process that
// sends a larger frame is misbehaving, not merely slow.
const MaxFrameSize = 16 * 1024 * 1024

// MaxMethodLen is the largest method name, in UTF-8 bytes, a Request carries.
const MaxMethodLen = 255

// Request is a single IPC call: a method name plus MessagePack-encoded
// parameters understood by that method's registered command.
type Request struct {
	Method string
	Params []byte
}

// EncodeRequest renders r as the wire form: len(u32be) ‖ methodLen(u8) ‖
// method ‖ params. len excludes itself.
func EncodeRequest(r Request) ([]byte, error) {
	if len(r.Method) > MaxMethodLen {
		return nil, fmt.Errorf("ipc: method name %q exceeds %d bytes", r.Method, MaxMethodLen)
	}
	body := make([]byte, 1+len(r.Method)+len(r.Params))
	body[0] = byte(len(r.Method))
	copy(body[1:], r.Method)
	copy(body[1+len(r.Method):], r.Params)

	if len(body) > MaxFrameSize {
		return nil, fmt.Errorf("ipc: request frame of %d bytes exceeds max %d", len(body), MaxFrameSize)
	}

	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body))) //nolint:gosec // bounded above
	copy(out[4:], body)
	return out, nil
}

// DecodeRequest parses a request body (without the length prefix, which the
// caller has already stripped and validated).
func DecodeRequest(body []byte) (Request, error) {
	if len(body) < 1 {
		return Request{}, fmt.Errorf("ipc: request frame too short")
	}
	methodLen := int(body[0])
	if len(body) < 1+methodLen {
		return Request{}, fmt.Errorf("ipc: request frame truncated (method)")
	}
	return Request{
		Method: string(body[1 : 1+methodLen]),
		Params: body[1+methodLen:],
	}, nil
}

// Response is the reply to a Request: a success flag plus a MessagePack-
// encoded payload (the command's response on success, an error string on
// failure).
type Response struct {
	OK      bool
	Payload []byte
}

// Success builds a Response carrying an already-encoded payload.
func Success(payload []byte) Response {
	return Response{OK: true, Payload: payload}
}

// Failure builds a Response carrying a MessagePack-encoded error string.
// If the string itself fails to encode (it shouldn't), the payload is left
// empty rather than the call failing outright.
func Failure(message string) Response {
	payload, err := Marshal(message)
	if err != nil {
		payload = nil
	}
	return Response{OK: false, Payload: payload}
}

// EncodeResponse renders r as the wire form: len(u32be) ‖ ok(u8) ‖ payload.
func EncodeResponse(r Response) ([]byte, error) {
	if len(r.Payload) > MaxFrameSize-1 {
		return nil, fmt.Errorf("ipc: response frame exceeds max %d", MaxFrameSize)
	}
	body := make([]byte, 1+len(r.Payload))
	if r.OK {
		body[0] = 1
	}
	copy(body[1:], r.Payload)

	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body))) //nolint:gosec // bounded above
	copy(out[4:], body)
	return out, nil
}

// DecodeResponse parses a response body (length prefix already stripped).
func DecodeResponse(body []byte) (Response, error) {
	if len(body) < 1 {
		return Response{}, fmt.Errorf("ipc: response frame too short")
	}
	return Response{
		OK:      body[0] != 0,
		Payload: body[1:],
	}, nil
}
