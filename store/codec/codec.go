// Package codec serializes checkpoint properties for the persistent
// stores. JSON is the default; MessagePack is more compact and keeps
// integer types intact.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes and decodes a property map.
type Codec interface {
	// Name identifies the codec in stored records.
	Name() string
	Marshal(props map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

// Built-in codecs.
var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

// Default is the codec stores use when none is configured.
var Default = JSON

// ByName returns the built-in codec called name.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON, nil
	case "msgpack", "messagepack":
		return MsgPack, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

// jsonCodec decodes numbers as float64, as encoding/json does for any.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(props map[string]any) ([]byte, error) {
	if props == nil {
		props = map[string]any{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("codec: json marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte) (map[string]any, error) {
	props := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("codec: json unmarshal: %w", err)
	}
	return props, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Marshal(props map[string]any) ([]byte, error) {
	if props == nil {
		props = map[string]any{}
	}
	data, err := msgpack.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("codec: msgpack marshal: %w", err)
	}
	return data, nil
}

func (msgpackCodec) Unmarshal(data []byte) (map[string]any, error) {
	props := map[string]any{}
	if len(data) == 0 {
		return props, nil
	}
	if err := msgpack.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("codec: msgpack unmarshal: %w", err)
	}
	if props == nil {
		props = map[string]any{}
	}
	return props, nil
}
