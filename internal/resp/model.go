package resp

const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

// Value is a single decoded or to-be-encoded RESP2 frame
type Value struct {
	String  []byte  // SimpleString, Error, BulkString
	Array   []Value // Array elements
	Integer int64   // Integer
	Type    byte
	IsNull  bool // For nil BulkString and nil Array
}

// Text returns the payload of a string-like Value as a Go string
func (v Value) Text() string {
	return string(v.String)
}
