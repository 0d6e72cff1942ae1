package ipc

import (
	"context"
	"testing"
)

type doubleCommand struct {
	Base
	Value int `msgpack:"value"`
}

func (c *doubleCommand) Name() string   { return "double" }
func (c *doubleCommand) Clone() Command { return &doubleCommand{} }
func (c *doubleCommand) PrimaryArg() string { return "value" }
func (c *doubleCommand) SetParams(raw []byte) error {
	return Unmarshal(raw, c)
}
func (c *doubleCommand) Handle(_ context.Context) (interface{}, error) {
	return map[string]interface{}{"doubled": c.Value * 2, "method": c.MethodName()}, nil
}

func TestRouterDispatch(t *testing.T) {
	router := NewRouter().Register(&doubleCommand{})

	params, err := Marshal(map[string]int{"value": 21})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	resp := router.Handle(context.Background(), Request{Method: "double", Params: params})
	if !resp.OK {
		t.Fatalf("Handle() returned ok=false: %s", resp.Payload)
	}

	var out struct {
		Doubled int    `msgpack:"doubled"`
		Method  string `msgpack:"method"`
	}
	if err := Unmarshal(resp.Payload, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Doubled != 42 {
		t.Errorf("doubled = %d, want 42", out.Doubled)
	}
	if out.Method != "double" {
		t.Errorf("method = %q, want %q (SetMethodName should run before Handle)", out.Method, "double")
	}
}

func TestRouterUnknownMethod(t *testing.T) {
	router := NewRouter()
	resp := router.Handle(context.Background(), Request{Method: "missing"})
	if resp.OK {
		t.Fatal("expected ok=false for unknown method")
	}
}

func TestRouterMethods(t *testing.T) {
	router := NewRouter().Register(&doubleCommand{})

	methods := router.Methods()
	info, ok := methods["double"]
	if !ok {
		t.Fatal("Methods() missing \"double\"")
	}
	if info.PrimaryArg != "value" {
		t.Errorf("PrimaryArg = %q, want %q", info.PrimaryArg, "value")
	}
	if info.StdinArg != "" {
		t.Errorf("StdinArg = %q, want empty", info.StdinArg)
	}
}
