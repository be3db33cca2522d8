package internal

import (
	"encoding/json"
)

// Marshal encodes payload for storage in a byte-oriented backend. Raw bytes
// and strings pass through untouched; everything else is JSON.
func Marshal(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(payload)
	}
}

// Unmarshal decodes data produced by Marshal into holder, which must be a
// pointer.
func Unmarshal(data []byte, holder any) error {
	switch v := holder.(type) {
	case *[]byte:
		*v = append((*v)[:0], data...)
	case *json.RawMessage:
		*v = append((*v)[:0], data...)
	case *string:
		*v = string(data)
	default:
		return json.Unmarshal(data, holder)
	}
	return nil
}
