package server

import (
	"fmt"
	"strings"

	"github.com/eternalApril/moonmock/internal/resp"
	"github.com/eternalApril/moonmock/internal/storage"
	"go.uber.org/zap"
)

// Engine coordinates the execution of commands against the store
type Engine struct {
	commands map[string]command // Registry of available commands (the key is the command name in uppercase)
	storage  storage.Storage    // Underlying KV storage
	logger   *zap.Logger
}

// NewEngine initializes the engine and registers the supported commands
func NewEngine(s storage.Storage, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		commands: make(map[string]command),
		storage:  s,
		logger:   logger,
	}
	engine.registerBasicCommand()

	return engine
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommand fills the registry with standard commands
func (e *Engine) registerBasicCommand() {
	e.register("PING", commandFunc(ping))
	e.register("GET", commandFunc(get))
	e.register("SET", commandFunc(set))
	e.register("SETEX", commandFunc(setex))
	e.register("DEL", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("FLUSHALL", commandFunc(flushall))
	e.register("KEYS", commandFunc(keys))
	e.register("HSET", commandFunc(hset))
	e.register("HGETALL", commandFunc(hgetall))
	e.register("COMMAND", commandFunc(cmd))
}

// Execute finds the command by name and executes it with the passed arguments.
// If the command is not found, returns an error in the RESP format
func (e *Engine) Execute(name string, args []resp.Value) resp.Value {
	name = strings.ToUpper(name)

	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		return resp.MakeError(fmt.Sprintf("ERR unknown command '%s'", strings.ToLower(name)))
	}

	if !checkArity(name, len(args)) {
		return resp.MakeErrorWrongNumberOfArguments(strings.ToLower(name))
	}

	ctx := &context{
		args:    args,
		storage: e.storage,
	}

	return cmd.execute(ctx)
}
