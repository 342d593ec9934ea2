package resp

import "fmt"

// MakeSimpleString construct SimpleString Value from string
func MakeSimpleString(s string) Value {
	return Value{
		Type:   TypeSimpleString,
		String: []byte(s),
	}
}

// MakeOK construct the +OK reply
func MakeOK() Value {
	return MakeSimpleString("OK")
}

// MakeError construct Error Value from string
func MakeError(s string) Value {
	return Value{
		Type:   TypeError,
		String: []byte(s),
	}
}

// MakeErrorWrongNumberOfArguments construct Error Value that command had wrong number of arguments for command
func MakeErrorWrongNumberOfArguments(cmd string) Value {
	return MakeError(fmt.Sprintf("ERR wrong number of arguments for '%s' command", cmd))
}

// MakeErrorWrongType construct the WRONGTYPE Error Value
func MakeErrorWrongType() Value {
	return MakeError("WRONGTYPE Operation against a key holding the wrong kind of value")
}

// MakeBulkString construct BulkString Value from string
func MakeBulkString(s string) Value {
	return Value{
		Type:   TypeBulkString,
		String: []byte(s),
	}
}

// MakeBulkBytes construct BulkString Value from raw bytes without copying
func MakeBulkBytes(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{
		Type:   TypeBulkString,
		String: b,
	}
}

// MakeNilBulkString construct nil BulkSting Value
func MakeNilBulkString() Value {
	return Value{
		Type:   TypeBulkString,
		IsNull: true,
	}
}

// MakeInteger construct Integer Value from int64
func MakeInteger(n int64) Value {
	return Value{
		Type:    TypeInteger,
		Integer: n,
	}
}

// MakeArray creates a standard RESP array containing the provided elements
func MakeArray(values []Value) Value {
	return Value{
		Type:  TypeArray,
		Array: values,
	}
}

// MakeBulkStringArray creates an array of bulk strings
func MakeBulkStringArray(items []string) Value {
	values := make([]Value, len(items))
	for i, item := range items {
		values[i] = MakeBulkString(item)
	}
	return MakeArray(values)
}
