package ipc

import (
	"bytes"
	"strings"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		method string
		params []byte
	}{
		{"no params", "ping", nil},
		{"with params", "double", []byte{0x2a}},
		{"max method len", strings.Repeat("a", MaxMethodLen), []byte("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := EncodeRequest(Request{Method: tt.method, Params: tt.params})
			if err != nil {
				t.Fatalf("EncodeRequest() error = %v", err)
			}
			// strip the 4-byte length prefix the server would already have consumed
			body := wire[4:]
			got, err := DecodeRequest(body)
			if err != nil {
				t.Fatalf("DecodeRequest() error = %v", err)
			}
			if got.Method != tt.method {
				t.Errorf("Method = %q, want %q", got.Method, tt.method)
			}
			if !bytes.Equal(got.Params, tt.params) && !(len(got.Params) == 0 && len(tt.params) == 0) {
				t.Errorf("Params = %v, want %v", got.Params, tt.params)
			}
		})
	}
}

func TestRequestMethodTooLong(t *testing.T) {
	_, err := EncodeRequest(Request{Method: strings.Repeat("a", MaxMethodLen+1)})
	if err == nil {
		t.Fatal("expected error for oversized method name")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		payload []byte
	}{
		{"success", true, []byte{0x01, 0x02}},
		{"failure", false, []byte("boom")},
		{"empty payload", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := EncodeResponse(Response{OK: tt.ok, Payload: tt.payload})
			if err != nil {
				t.Fatalf("EncodeResponse() error = %v", err)
			}
			got, err := DecodeResponse(wire[4:])
			if err != nil {
				t.Fatalf("DecodeResponse() error = %v", err)
			}
			if got.OK != tt.ok {
				t.Errorf("OK = %v, want %v", got.OK, tt.ok)
			}
			if !bytes.Equal(got.Payload, tt.payload) && !(len(got.Payload) == 0 && len(tt.payload) == 0) {
				t.Errorf("Payload = %v, want %v", got.Payload, tt.payload)
			}
		})
	}
}

func TestFailureEncodesMessage(t *testing.T) {
	resp := Failure("boom")
	if resp.OK {
		t.Fatal("Failure() should produce OK = false")
	}
	var msg string
	if err := Unmarshal(resp.Payload, &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg != "boom" {
		t.Errorf("message = %q, want %q", msg, "boom")
	}
}
