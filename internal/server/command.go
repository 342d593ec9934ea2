package server

import (
	"github.com/eternalApril/moonmock/internal/resp"
	"github.com/eternalApril/moonmock/internal/storage"
)

// context carries the arguments of a single command invocation
type context struct {
	args    []resp.Value
	storage storage.Storage
}

// arg returns the i-th argument as a string
func (c *context) arg(i int) string {
	return string(c.args[i].String)
}

type command interface {
	execute(ctx *context) resp.Value
}

type commandFunc func(ctx *context) resp.Value

func (c commandFunc) execute(ctx *context) resp.Value {
	return c(ctx)
}
