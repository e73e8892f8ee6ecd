package service

import "encoding/json"

// jsonCodec lets Connect carry plain Go structs as JSON. It is registered
// under the name "json" and replaces Connect's protobuf-JSON codec, so both
// the Connect protocol and curl with Content-Type application/json work.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
