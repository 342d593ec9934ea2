package server

import (
	"sort"
	"strings"

	"github.com/eternalApril/moonmock/internal/resp"
)

type commandMetadata struct {
	arity    int      // Arity includes the command name itself
	flags    []string // read, write, fast, denyoom, etc
	firstKey int      // 1-based index of the first key
	lastKey  int      // 1-based index of the last key
	step     int      // Step count for finding keys
}

var (
	commandRegistry = map[string]commandMetadata{
		"PING":     {-1, []string{"fast", "stale"}, 0, 0, 0},
		"GET":      {2, []string{"readonly", "fast"}, 1, 1, 1},
		"SET":      {-3, []string{"write", "denyoom"}, 1, 1, 1},
		"SETEX":    {4, []string{"write", "denyoom"}, 1, 1, 1},
		"DEL":      {-2, []string{"write"}, 1, -1, 1},
		"EXISTS":   {-2, []string{"readonly", "fast"}, 1, -1, 1},
		"TTL":      {2, []string{"readonly", "fast"}, 1, 1, 1},
		"PTTL":     {2, []string{"readonly", "fast"}, 1, 1, 1},
		"FLUSHALL": {-1, []string{"write"}, 0, 0, 0},
		"KEYS":     {2, []string{"readonly", "sort_for_script"}, 0, 0, 0},
		"HSET":     {-4, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"HGETALL":  {2, []string{"readonly", "random"}, 1, 1, 1},
		"COMMAND":  {-1, []string{"random", "loading", "stale"}, 0, 0, 0},
	}
)

// commandDoc stores a description for the command
type commandDoc struct {
	summary    string
	complexity string
	group      string
	since      string
}

// commandDocsRegistry documentation registry
var commandDocsRegistry = map[string]commandDoc{
	"PING": {
		summary:    "Ping the server.",
		complexity: "O(1)",
		group:      "connection",
		since:      "1.0.0",
	},
	"GET": {
		summary:    "Get the value of a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"SET": {
		summary:    "Set the string value of a key, optionally with a TTL.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"SETEX": {
		summary:    "Set the value and expiration of a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "2.0.0",
	},
	"DEL": {
		summary:    "Delete a key.",
		complexity: "O(N) where N is the number of keys that will be removed.",
		group:      "generic",
		since:      "1.0.0",
	},
	"EXISTS": {
		summary:    "Determine if a key exists.",
		complexity: "O(N) where N is the number of keys to check.",
		group:      "generic",
		since:      "1.0.0",
	},
	"TTL": {
		summary:    "Get the time to live for a key in seconds.",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"PTTL": {
		summary:    "Get the time to live for a key in milliseconds.",
		complexity: "O(1)",
		group:      "generic",
		since:      "2.6.0",
	},
	"FLUSHALL": {
		summary:    "Remove all keys.",
		complexity: "O(1)",
		group:      "server",
		since:      "1.0.0",
	},
	"KEYS": {
		summary:    "Find all keys matching the given pattern.",
		complexity: "O(N) with N being the number of keys in the database.",
		group:      "generic",
		since:      "1.0.0",
	},
	"HSET": {
		summary:    "Set the string value of a hash field.",
		complexity: "O(N) where N is the number of field/value pairs being set.",
		group:      "hash",
		since:      "2.0.0",
	},
	"HGETALL": {
		summary:    "Get all the fields and values in a hash.",
		complexity: "O(N) where N is the size of the hash.",
		group:      "hash",
		since:      "2.0.0",
	},
	"COMMAND": {
		summary:    "Get array of command details.",
		complexity: "O(N) where N is the number of commands to look up.",
		group:      "server",
		since:      "2.8.13",
	},
}

// checkArity reports whether argc arguments (command name excluded) satisfy the registered arity
func checkArity(name string, argc int) bool {
	meta, ok := commandRegistry[name]
	if !ok {
		return true
	}

	total := argc + 1
	if meta.arity >= 0 {
		return total == meta.arity
	}
	return total >= -meta.arity
}

func makeFlagsArray(flags []string) resp.Value {
	vals := make([]resp.Value, len(flags))
	for i, f := range flags {
		vals[i] = resp.MakeSimpleString(f)
	}
	return resp.MakeArray(vals)
}

func makeInfoCmdArray(name string) []resp.Value {
	meta := commandRegistry[name]
	return []resp.Value{
		resp.MakeBulkString(strings.ToLower(name)),
		resp.MakeInteger(int64(meta.arity)),
		makeFlagsArray(meta.flags),
		resp.MakeInteger(int64(meta.firstKey)),
		resp.MakeInteger(int64(meta.lastKey)),
		resp.MakeInteger(int64(meta.step)),
	}
}

// sortedCommandNames returns the registered command names in a stable order
func sortedCommandNames() []string {
	names := make([]string, 0, len(commandRegistry))
	for name := range commandRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getAllCommands() resp.Value {
	names := sortedCommandNames()
	cmdArray := make([]resp.Value, 0, len(names))
	for _, name := range names {
		cmdArray = append(cmdArray, resp.MakeArray(makeInfoCmdArray(name)))
	}
	return resp.MakeArray(cmdArray)
}

// getCommandsDocs returns documentation for specified commands or all commands
// Format: [Name, [Summary, val, Since, val...], Name, [...]]
func getCommandsDocs(args []resp.Value) resp.Value {
	var targets []string

	if len(args) == 0 {
		targets = sortedCommandNames()
	} else {
		targets = make([]string, 0, len(args))
		for _, arg := range args {
			targets = append(targets, strings.ToUpper(string(arg.String)))
		}
	}

	result := make([]resp.Value, 0, len(targets)*2)

	for _, name := range targets {
		doc, ok := commandDocsRegistry[name]
		if !ok {
			continue
		}

		result = append(result, resp.MakeBulkString(strings.ToLower(name)))

		props := []resp.Value{
			resp.MakeBulkString("summary"),
			resp.MakeBulkString(doc.summary),
			resp.MakeBulkString("since"),
			resp.MakeBulkString(doc.since),
			resp.MakeBulkString("group"),
			resp.MakeBulkString(doc.group),
			resp.MakeBulkString("complexity"),
			resp.MakeBulkString(doc.complexity),
		}

		result = append(result, resp.MakeArray(props))
	}

	return resp.MakeArray(result)
}
