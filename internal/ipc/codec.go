package ipc

import "github.com/vmihailenco/msgpack/v5"

// Marshal encodes v as MessagePack, matching the Rust original's use of
// rmp_serde for command params and responses.
func Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes MessagePack bytes into v.
func Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
