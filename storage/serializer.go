package storage

import (
	"encoding/json"
	"fmt"

	"github.com/layercache/layercache/types"
)

// Serializer defines the byte encoding for stored values. It matches the
// cache package's Marshaller interface, so either package's implementations
// can be plugged in here.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer implements Serializer using the standard JSON library. A
// nil value round-trips through "null", staying distinguishable from an
// absent key.
type JSONSerializer struct{}

// Marshal serializes a value to JSON.
func (js JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a value from JSON.
func (js JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() JSONSerializer {
	return JSONSerializer{}
}

// GetSerializer returns the serializer registered for format. Only "json"
// ships with the module; callers with other formats plug a Serializer into
// Options directly.
func GetSerializer(format string) (Serializer, error) {
	switch format {
	case "json":
		return NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported serialization format %q", types.ErrConfiguration, format)
	}
}
