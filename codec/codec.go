// Package codec centralizes encoding of the JSON documents a session
// persists (the step marker and the selection log).
//
// Both built-in codecs produce plain JSON, so a session written with one can
// be reopened with the other.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Indenter is implemented by codecs that can pretty-print.
type Indenter interface {
	MarshalIndent(v any, prefix, indent string) ([]byte, error)
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json", "":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// MarshalPretty indents the output when c supports it.
func MarshalPretty(c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	if ind, ok := c.(Indenter); ok {
		return ind.MarshalIndent(v, "", "  ")
	}
	return c.Marshal(v)
}

// MustMarshal is a helper for tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
