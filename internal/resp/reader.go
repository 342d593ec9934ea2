package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	maxBulkLength  = 512 * 1024 * 1024
	maxArrayLength = 1024 * 1024
	preallocLimit  = 64 * 1024
)

var (
	ErrInvalidEnding = errors.New("invalid line ending")
	ErrUnknownType   = errors.New("unknown RESP type")
	ErrInvalidLength = errors.New("invalid length")
)

// Decoder reads RESP2 values from a buffered stream
type Decoder struct {
	rd *bufio.Reader
}

// NewDecoder wraps rd in a buffered Decoder
func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: bufio.NewReader(rd)}
}

// Buffered returns the number of bytes already read from the stream but not yet decoded
func (d *Decoder) Buffered() int {
	return d.rd.Buffered()
}

// Read decodes the next value. Lines that do not start with a RESP type byte are
// treated as inline commands and returned as an array of bulk strings
func (d *Decoder) Read() (Value, error) {
	prefix, err := d.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch prefix {
	case TypeSimpleString, TypeError:
		line, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: prefix, String: line}, nil

	case TypeInteger:
		n, err := d.readInteger()
		if err != nil {
			return Value{}, err
		}
		return MakeInteger(n), nil

	case TypeBulkString:
		return d.readBulkString()

	case TypeArray:
		return d.readArray()

	default:
		if err := d.rd.UnreadByte(); err != nil {
			return Value{}, err
		}
		return d.readInline()
	}
}

// readLine reads up to CRLF and returns the line without it
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.rd.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, ErrInvalidEnding
	}

	return line[:len(line)-2], nil
}

func (d *Decoder) readInteger() (int64, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}

	// Command with integer cant be empty
	if len(line) == 0 {
		return 0, ErrInvalidLength
	}

	return strconv.ParseInt(string(line), 10, 64)
}

func (d *Decoder) readBulkString() (Value, error) {
	n, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if n == -1 {
		return MakeNilBulkString(), nil
	}
	if n < 0 || n > maxBulkLength {
		return Value{}, fmt.Errorf("%w: bulk string of %d bytes", ErrInvalidLength, n)
	}

	// grow with the data actually received instead of trusting the declared length
	var buf bytes.Buffer
	buf.Grow(int(min(n+2, preallocLimit)))
	if _, err := io.CopyN(&buf, d.rd, n+2); err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	b := buf.Bytes()
	if b[n] != '\r' || b[n+1] != '\n' {
		return Value{}, ErrInvalidEnding
	}

	return MakeBulkBytes(b[:n]), nil
}

func (d *Decoder) readArray() (Value, error) {
	n, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if n == -1 {
		return Value{Type: TypeArray, IsNull: true}, nil
	}
	if n < 0 || n > maxArrayLength {
		return Value{}, fmt.Errorf("%w: array of %d elements", ErrInvalidLength, n)
	}

	values := make([]Value, 0, min(n, preallocLimit))
	for i := int64(0); i < n; i++ {
		v, err := d.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Value{}, io.ErrUnexpectedEOF
			}
			return Value{}, err
		}
		values = append(values, v)
	}

	return MakeArray(values), nil
}

// readInline parses a space separated command line such as "PING\r\n"
func (d *Decoder) readInline() (Value, error) {
	line, err := d.rd.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return Value{}, fmt.Errorf("%w: inline command too long", ErrInvalidLength)
		}
		return Value{}, err
	}

	fields := bytes.Fields(line)
	values := make([]Value, len(fields))
	for i, f := range fields {
		values[i] = MakeBulkBytes(bytes.Clone(f))
	}

	return MakeArray(values), nil
}
