package server

import (
	"errors"
	"path"
	"strconv"
	"strings"

	"github.com/eternalApril/moonmock/internal/resp"
	"github.com/eternalApril/moonmock/internal/storage"
)

const (
	errSyntax     = "ERR syntax error"
	errNotInteger = "ERR value is not an integer or out of range"
)

// storageError maps a storage error onto a RESP error reply
func storageError(err error) resp.Value {
	if errors.Is(err, storage.ErrWrongType) {
		return resp.MakeErrorWrongType()
	}
	return resp.MakeError("ERR " + err.Error())
}

func ping(ctx *context) resp.Value {
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.MakeBulkBytes(ctx.args[0].String)
	default:
		return resp.MakeErrorWrongNumberOfArguments("ping")
	}
}

func get(ctx *context) resp.Value {
	v, ok := ctx.storage.Get(ctx.arg(0))
	if !ok {
		return resp.MakeNilBulkString()
	}
	if v.Type == storage.TypeHash {
		return resp.MakeErrorWrongType()
	}
	return resp.MakeBulkBytes(v.Bytes())
}

// set handles SET key value [EX seconds | PX milliseconds].
// Expiry has second granularity, so PX is rounded up to the next whole second
func set(ctx *context) resp.Value {
	key := ctx.arg(0)
	value := storage.Bytes(ctx.args[1].String)

	var (
		seconds int64
		hasTTL  bool
	)

	for i := 2; i < len(ctx.args); i++ {
		opt := strings.ToUpper(ctx.arg(i))
		switch opt {
		case "EX", "PX":
			if hasTTL || i+1 >= len(ctx.args) {
				return resp.MakeError(errSyntax)
			}
			n, err := strconv.ParseInt(ctx.arg(i+1), 10, 64)
			if err != nil {
				return resp.MakeError(errNotInteger)
			}
			if opt == "PX" {
				n = millisToSeconds(n)
			}
			seconds, hasTTL = n, true
			i++
		default:
			return resp.MakeError(errSyntax)
		}
	}

	if hasTTL {
		ctx.storage.SetWithExpiry(key, value, seconds)
	} else {
		ctx.storage.Set(key, value)
	}
	return resp.MakeOK()
}

func millisToSeconds(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	seconds := ms / 1000
	if ms%1000 != 0 {
		seconds++
	}
	return seconds
}

func setex(ctx *context) resp.Value {
	seconds, err := strconv.ParseInt(ctx.arg(1), 10, 64)
	if err != nil {
		return resp.MakeError(errNotInteger)
	}

	ctx.storage.SetWithExpiry(ctx.arg(0), storage.Bytes(ctx.args[2].String), seconds)
	return resp.MakeOK()
}

func del(ctx *context) resp.Value {
	var deleted int64
	for i := range ctx.args {
		if ctx.storage.Delete(ctx.arg(i)) {
			deleted++
		}
	}
	return resp.MakeInteger(deleted)
}

func exists(ctx *context) resp.Value {
	var count int64
	for i := range ctx.args {
		if ctx.storage.Exists(ctx.arg(i)) {
			count++
		}
	}
	return resp.MakeInteger(count)
}

func ttl(ctx *context) resp.Value {
	return resp.MakeInteger(ctx.storage.TTL(ctx.arg(0)))
}

func pttl(ctx *context) resp.Value {
	return resp.MakeInteger(ctx.storage.PTTL(ctx.arg(0)))
}

// flushall accepts and ignores the SYNC / ASYNC modifiers, the flush is always immediate
func flushall(ctx *context) resp.Value {
	if len(ctx.args) > 1 {
		return resp.MakeError(errSyntax)
	}
	if len(ctx.args) == 1 {
		switch strings.ToUpper(ctx.arg(0)) {
		case "SYNC", "ASYNC":
		default:
			return resp.MakeError(errSyntax)
		}
	}

	ctx.storage.FlushAll()
	return resp.MakeOK()
}

// keys lists every key held by the store that matches a glob pattern
func keys(ctx *context) resp.Value {
	pattern := ctx.arg(0)
	if _, err := path.Match(pattern, ""); err != nil {
		return resp.MakeError("ERR invalid pattern")
	}

	all := ctx.storage.Keys()
	matched := make([]string, 0, len(all))
	for _, key := range all {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return resp.MakeError("ERR invalid pattern")
		}
		if ok {
			matched = append(matched, key)
		}
	}
	return resp.MakeBulkStringArray(matched)
}

func hset(ctx *context) resp.Value {
	if len(ctx.args)%2 != 1 {
		return resp.MakeErrorWrongNumberOfArguments("hset")
	}

	fieldValues := make([]string, 0, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		fieldValues = append(fieldValues, ctx.arg(i))
	}

	added, err := ctx.storage.HSet(ctx.arg(0), fieldValues...)
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(added)
}

func hgetall(ctx *context) resp.Value {
	fields, _, err := ctx.storage.HGetAll(ctx.arg(0))
	if err != nil {
		return storageError(err)
	}

	flat := make([]resp.Value, 0, len(fields)*2)
	for field, value := range fields {
		flat = append(flat, resp.MakeBulkString(field), resp.MakeBulkString(value))
	}
	return resp.MakeArray(flat)
}

func cmd(ctx *context) resp.Value {
	if len(ctx.args) == 0 {
		return getAllCommands()
	}

	switch strings.ToUpper(ctx.arg(0)) {
	case "DOCS":
		return getCommandsDocs(ctx.args[1:])
	case "COUNT":
		return resp.MakeInteger(int64(len(commandRegistry)))
	default:
		return resp.MakeError("ERR unknown subcommand '" + ctx.arg(0) + "'")
	}
}
