package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Status(ctx context.Context) error
	Pending(ctx context.Context) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Get(ctx context.Context, args []string) error
	Write(ctx context.Context, method string, args []string) error
	CachePut(ctx context.Context, args []string) error
	CacheGet(ctx context.Context, args []string) error
	CacheClear(ctx context.Context, args []string) error
	ClearAll(ctx context.Context) error
	Sync(ctx context.Context) error
	SetOnline(online bool)
}

const helpText = `Available commands:
  status                                  show connectivity and sync status
  pending                                 list queued actions
  login [token]                           store a bearer token
  logout                                  forget the bearer token
  get <endpoint> [cacheKey] [ttlMinutes]  read, falling back to the cache when offline
  post|put|patch|delete <endpoint> [json] write, queued when offline
  cache-put <key> [ttlMinutes] <json>     store a value in the cache
  cache-get <key>                         read a cached value
  cache-clear [key]                       drop one or all cached values
  clear-all                               drop all queued actions and cached values
  sync                                    replay queued actions now
  online | offline                        override connectivity until the next probe
  exit | quit                             leave the program`

// runREPL starts a simple read-eval-print loop for the offlinekit CLI.
//
// It prompts with the current status (from statusFn), reads a line from
// reader, parses the first token as the command, and dispatches to methods
// on 'a'. Unknown commands are reported back to the user. The loop exits on
// end of input, when ctx is done, or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		line, err := GetSimpleText(reader, fmt.Sprintf("ok [%s]", statusFn()), w)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "status":
			err = a.Status(ctx)

		case "pending":
			err = a.Pending(ctx)

		case "login":
			err = a.Login(ctx, args)

		case "logout":
			err = a.Logout(ctx)

		case "get":
			err = a.Get(ctx, args)

		case "post", "put", "patch", "delete":
			err = a.Write(ctx, methodOf(cmd), args)

		case "cache-put":
			err = a.CachePut(ctx, args)

		case "cache-get":
			err = a.CacheGet(ctx, args)

		case "cache-clear":
			err = a.CacheClear(ctx, args)

		case "clear-all":
			err = a.ClearAll(ctx)

		case "sync":
			err = a.Sync(ctx)

		case "online":
			a.SetOnline(true)

		case "offline":
			a.SetOnline(false)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func methodOf(cmd string) string {
	switch cmd {
	case "post":
		return http.MethodPost
	case "put":
		return http.MethodPut
	case "patch":
		return http.MethodPatch
	default:
		return http.MethodDelete
	}
}
