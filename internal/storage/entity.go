package storage

import "maps"

type DataType byte

const (
	TypeBytes DataType = iota + 1
	TypeString
	TypeHash
)

// String returns the name reported by the TYPE-style replies
func (t DataType) String() string {
	switch t {
	case TypeBytes, TypeString:
		return "string"
	case TypeHash:
		return "hash"
	default:
		return "none"
	}
}

// Value is a tagged container: exactly one of the payload fields is meaningful, selected by Type
type Value struct {
	Type DataType
	raw  []byte
	text string
	hash map[string]string
}

// Bytes wraps an opaque byte sequence. The slice is stored as is, without copying
func Bytes(b []byte) Value {
	return Value{Type: TypeBytes, raw: b}
}

// String wraps a text value
func String(s string) Value {
	return Value{Type: TypeString, text: s}
}

// Hash wraps a field-to-value mapping. The map is copied
func Hash(fields map[string]string) Value {
	h := make(map[string]string, len(fields))
	maps.Copy(h, fields)
	return Value{Type: TypeHash, hash: h}
}

// IsZero reports whether v holds nothing (the result of a miss)
func (v Value) IsZero() bool {
	return v.Type == 0
}

// Bytes returns the byte representation of a bytes or string value. Hashes have none and return nil
func (v Value) Bytes() []byte {
	switch v.Type {
	case TypeBytes:
		return v.raw
	case TypeString:
		return []byte(v.text)
	default:
		return nil
	}
}

// String returns the text form of a bytes or string value
func (v Value) String() string {
	switch v.Type {
	case TypeBytes:
		return string(v.raw)
	case TypeString:
		return v.text
	default:
		return ""
	}
}

// Fields returns a copy of the hash payload, or nil for non-hash values
func (v Value) Fields() map[string]string {
	if v.Type != TypeHash {
		return nil
	}
	h := make(map[string]string, len(v.hash))
	maps.Copy(h, v.hash)
	return h
}

// Entry is a stored value with its optional absolute expiry
type Entry struct {
	Value     Value
	ExpireAt  int64 // Unix milliseconds, meaningful only when HasExpiry
	HasExpiry bool
}

// isLive reports whether e is still visible at now (Unix milliseconds).
// An entry stops being live at the very millisecond it expires
func isLive(e *Entry, now int64) bool {
	return !e.HasExpiry || now < e.ExpireAt
}
