package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/records"
	"github.com/dmitrijs2005/offlinekit/internal/client/services"
	"github.com/dmitrijs2005/offlinekit/internal/client/syncer"
	"github.com/dmitrijs2005/offlinekit/internal/common"
)

var errUsage = errors.New("wrong number of arguments, see help")

// Status prints connectivity, queue and token state.
func (a *App) Status(ctx context.Context) error {
	s := a.offlineService.Status()

	fmt.Fprintf(a.out, "online:    %t\n", a.monitor.CurrentStatus())
	fmt.Fprintf(a.out, "syncing:   %t\n", s.IsSyncing)
	fmt.Fprintf(a.out, "pending:   %d\n", s.PendingCount)
	if s.LastSyncTime != nil {
		fmt.Fprintf(a.out, "last sync: %s\n", s.LastSyncTime.Format(time.RFC3339))
	} else {
		fmt.Fprintln(a.out, "last sync: never")
	}
	saved, err := a.store.UpdatedAt(ctx, records.NamespacePendingActions)
	if err != nil {
		return err
	}
	if saved.IsZero() {
		fmt.Fprintln(a.out, "queue saved: never")
	} else {
		fmt.Fprintf(a.out, "queue saved: %s\n", saved.Format(time.RFC3339))
	}
	for _, e := range s.SyncErrors {
		fmt.Fprintf(a.out, "error:     %s\n", e)
	}

	exp, err := a.authService.TokenExpiry(ctx)
	switch {
	case errors.Is(err, common.ErrNoToken):
		fmt.Fprintln(a.out, "token:     none")
	case err != nil:
		return err
	case exp != nil:
		fmt.Fprintf(a.out, "token:     expires %s\n", exp.Format(time.RFC3339))
	default:
		fmt.Fprintln(a.out, "token:     set")
	}
	return nil
}

// Pending lists queued actions in replay order.
func (a *App) Pending(ctx context.Context) error {
	actions, err := a.offlineService.PendingActions(ctx)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		fmt.Fprintln(a.out, "No pending actions")
		return nil
	}
	for _, p := range actions {
		fmt.Fprintf(a.out, "%s  %-6s %-6s %s  retries %d/%d  queued %s\n",
			p.ID, p.Kind, p.Method, p.Endpoint, p.RetryCount, p.MaxRetries,
			time.UnixMilli(p.CreatedAt).Format(time.RFC3339))
	}
	return nil
}

// Login stores a bearer token, taken from args or read from the terminal.
func (a *App) Login(ctx context.Context, args []string) error {
	var token []byte
	switch len(args) {
	case 0:
		secret, err := GetSecret(a.out, "Enter token")
		if err != nil {
			return err
		}
		token = secret
	case 1:
		token = []byte(args[0])
	default:
		return errUsage
	}
	defer wipe(token)

	if err := a.authService.SaveToken(ctx, string(token)); err != nil {
		return err
	}
	a.log.Info(ctx, "token saved")
	fmt.Fprintln(a.out, "Success!")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Get reads an endpoint through the request facade. The cache key defaults
// to the endpoint; a ttl makes the live response cacheable.
func (a *App) Get(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return errUsage
	}
	req := services.ReadRequest{Endpoint: args[0], CacheKey: args[0]}
	if len(args) > 1 {
		req.CacheKey = args[1]
	}
	if len(args) > 2 {
		ttl, err := parseTTL(args[2])
		if err != nil {
			return err
		}
		req.TTLMinutes = &ttl
	}

	res, err := a.requestService.Get(ctx, req)
	if err != nil {
		return err
	}
	source := "live"
	if res.FromCache {
		source = "cache"
	}
	fmt.Fprintf(a.out, "%d (%s)\n", res.StatusCode, source)
	a.printJSON(res.Data)
	return nil
}

// Write sends a mutating request. The remaining args after the endpoint
// form the JSON body. While offline the call is queued.
func (a *App) Write(ctx context.Context, method string, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	req := services.WriteRequest{
		Endpoint:      args[0],
		Method:        method,
		OfflineAction: &models.ActionDescriptor{Kind: kindOf(method)},
	}
	if len(args) > 1 {
		body, err := parseJSON(strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		req.Payload = body
	}

	res, err := a.requestService.Write(ctx, req)
	if err != nil {
		return err
	}
	if res.Queued {
		fmt.Fprintf(a.out, "%d queued as %s\n", res.StatusCode, res.ActionID)
		return nil
	}
	fmt.Fprintf(a.out, "%d\n", res.StatusCode)
	a.printJSON(res.Data)
	return nil
}

// CachePut stores a JSON value: cache-put <key> [ttlMinutes] <json>.
func (a *App) CachePut(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	key, rest := args[0], args[1:]

	var ttl *int
	if len(rest) > 1 {
		if n, err := strconv.Atoi(rest[0]); err == nil {
			if n < 0 {
				return fmt.Errorf("ttl must be >= 0, got %d", n)
			}
			ttl, rest = &n, rest[1:]
		}
	}

	value, err := parseJSON(strings.Join(rest, " "))
	if err != nil {
		return err
	}
	if err := a.offlineService.CacheData(ctx, key, value, ttl); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Cached", key)
	return nil
}

func (a *App) CacheGet(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	data, ok, err := a.offlineService.GetCachedData(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Not cached")
		return nil
	}
	a.printJSON(data)
	return nil
}

// CacheClear drops one key, or the whole cache when no key is given.
func (a *App) CacheClear(ctx context.Context, args []string) error {
	var key *string
	switch len(args) {
	case 0:
	case 1:
		key = &args[0]
	default:
		return errUsage
	}
	if err := a.offlineService.ClearCache(ctx, key); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Cache cleared")
	return nil
}

// ClearAll asks for confirmation, then drops every queued action and cached entry.
func (a *App) ClearAll(ctx context.Context) error {
	answer, err := GetSimpleText(a.reader, "Drop all pending actions and cached data? Type yes to confirm", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := a.offlineService.ClearAllOfflineData(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All offline data cleared")
	return nil
}

// Sync runs a drain pass and waits for it.
func (a *App) Sync(ctx context.Context) error {
	ran, err := a.offlineService.ForceSyncAll(ctx)
	if errors.Is(err, syncer.ErrOffline) {
		fmt.Fprintln(a.out, "Offline, nothing replayed")
		return nil
	}
	if err != nil {
		return err
	}
	if !ran {
		fmt.Fprintln(a.out, "Sync already running")
		return nil
	}

	s := a.offlineService.Status()
	fmt.Fprintf(a.out, "Sync finished, %d pending\n", s.PendingCount)
	for _, e := range s.SyncErrors {
		fmt.Fprintln(a.out, "  ", e)
	}
	return nil
}

// SetOnline overrides the monitor until the next probe.
func (a *App) SetOnline(online bool) {
	a.monitor.Set(online)
}

func (a *App) printJSON(data json.RawMessage) {
	if len(data) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Fprintln(a.out, string(data))
		return
	}
	fmt.Fprintln(a.out, buf.String())
}

func parseJSON(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("invalid JSON: %s", s)
	}
	return json.RawMessage(s), nil
}

func parseTTL(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("ttl must be a non-negative number of minutes, got %q", s)
	}
	return n, nil
}

func kindOf(method string) models.ActionKind {
	switch method {
	case http.MethodPost:
		return models.ActionCreate
	case http.MethodDelete:
		return models.ActionDelete
	default:
		return models.ActionUpdate
	}
}
