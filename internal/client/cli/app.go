package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/offlinekit/internal/client/cache"
	"github.com/dmitrijs2005/offlinekit/internal/client/client"
	"github.com/dmitrijs2005/offlinekit/internal/client/config"
	"github.com/dmitrijs2005/offlinekit/internal/client/metrics"
	"github.com/dmitrijs2005/offlinekit/internal/client/models"
	"github.com/dmitrijs2005/offlinekit/internal/client/network"
	"github.com/dmitrijs2005/offlinekit/internal/client/queue"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/records"
	"github.com/dmitrijs2005/offlinekit/internal/client/scheduler"
	"github.com/dmitrijs2005/offlinekit/internal/client/services"
	"github.com/dmitrijs2005/offlinekit/internal/client/syncer"
	"github.com/dmitrijs2005/offlinekit/internal/filex"
	"github.com/dmitrijs2005/offlinekit/internal/logging"
)

const metadataSuffix = ".meta.db"

// App is the composition root of the client. It owns every long-lived
// component and the resources they sit on.
type App struct {
	config *config.Config
	log    logging.Logger

	db      *sql.DB
	store   records.Store
	prober  client.Prober
	closers []io.Closer

	monitor   *network.Monitor
	engine    *syncer.Engine
	scheduler *scheduler.Scheduler
	registry  *prometheus.Registry

	authService    services.AuthService
	requestService services.RequestService
	offlineService services.OfflineService

	out    io.Writer
	reader *bufio.Reader
}

// NewApp builds the client from c, opening local storage and migrating it.
// The returned App reads commands from stdin and writes to stdout.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdin, os.Stdout, os.Stderr)
}

func newApp(ctx context.Context, c *config.Config, in io.Reader, out, logOut io.Writer) (*App, error) {
	log := logging.New(logOut, c.LogBackend, c.LogLevel)
	a := &App{config: c, log: log, out: out, reader: bufio.NewReader(in)}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	prober, err := a.newProber()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.prober = prober

	meta := metadata.NewSQLiteRepository(a.db)
	a.authService = services.NewAuthService(meta)

	api, err := client.NewHTTPClient(c.ServerBaseURL, c.RequestTimeout, a.authService.TokenSource())
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	m := metrics.NewMetrics(a.registry)

	a.monitor = network.NewMonitor(false, log.With("component", "network"))
	q := queue.New(a.store, log.With("component", "queue"), queue.WithDefaultMaxRetries(c.DefaultMaxRetries))
	cm := cache.NewManager(a.store, log.With("component", "cache"))

	a.engine = syncer.NewEngine(q, api, a.monitor, log.With("component", "syncer"),
		syncer.WithMetrics(m),
		syncer.WithReplayLimit(c.ReplayRPS, c.ReplayBurst),
		syncer.WithReplayTimeout(c.RequestTimeout),
		syncer.WithSyncTimeStore(meta),
	)

	a.scheduler = scheduler.New(log.With("component", "scheduler"))
	a.scheduler.Every("retry-pending", c.RetryInterval, a.engine.RetryPending)
	a.scheduler.Every("cache-sweep", c.CacheSweepInterval, func(ctx context.Context) {
		if n, err := cm.Sweep(ctx); err != nil {
			log.Warn(ctx, "cache sweep failed", "error", err)
		} else if n > 0 {
			log.Debug(ctx, "cache sweep removed expired entries", "removed", n)
		}
	})

	a.requestService = services.NewRequestService(api, a.monitor, cm, a.engine, log.With("component", "requests"))
	a.offlineService = services.NewOfflineService(q, cm, a.engine, a.monitor)

	return a, nil
}

// openStorage opens the SQLite database that always holds metadata and,
// depending on the driver, the record namespaces too.
func (a *App) openStorage(ctx context.Context) error {
	c := a.config

	storagePath, err := filex.EnsureParentDir(c.StoragePath)
	if err != nil {
		return err
	}

	dbPath := storagePath
	if c.StorageDriver == config.StorageDriverLevelDB {
		dbPath = storagePath + metadataSuffix
	}

	db, err := client.InitDatabase(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)

	switch c.StorageDriver {
	case config.StorageDriverLevelDB:
		ldb, err := records.OpenLevelDB(storagePath)
		if err != nil {
			return err
		}
		a.store = ldb
		a.closers = append(a.closers, ldb)
	default:
		a.store = records.NewSQLiteStore(db)
	}
	return nil
}

func (a *App) newProber() (client.Prober, error) {
	c := a.config
	if c.ProbeMode == config.ProbeModeGRPC {
		p, err := client.NewGRPCHealthProber(c.GRPCHealthAddr, "")
		if err != nil {
			return nil, fmt.Errorf("grpc health prober: %w", err)
		}
		a.closers = append(a.closers, p)
		return p, nil
	}
	return client.NewHTTPProber(c.ServerBaseURL, c.HealthPath), nil
}

// Run starts the background machinery and the REPL. It returns when the
// user exits, when ctx is cancelled or when the metrics server fails.
// Resources are released before Run returns.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.engine.Start(ctx); err != nil {
		return err
	}
	defer a.engine.Close()

	var syncing atomic.Bool
	unsubscribe := a.offlineService.SubscribeStatus(func(s models.SyncStatus) {
		if syncing.Swap(s.IsSyncing) && !s.IsSyncing {
			a.log.Info(ctx, "sync pass finished", "pending", s.PendingCount, "errors", len(s.SyncErrors))
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.monitor.Run(gctx, a.prober, a.config.OnlineCheckInterval)
		return nil
	})

	a.scheduler.Start(gctx)
	defer a.scheduler.Stop()

	if a.config.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              a.config.MetricsAddr,
			Handler:           metrics.Handler(a.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.log.Info(gctx, "metrics server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	// the REPL blocks on input, so it is not part of the group
	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		runREPL(gctx, a, a.statusLine, a.reader, a.out)
	}()

	g.Go(func() error {
		select {
		case <-replDone:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	return g.Wait()
}

// Close releases storage and the prober connection. It is safe to call
// more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) statusLine() string {
	s := a.offlineService.Status()
	mode := "offline"
	if a.monitor.CurrentStatus() {
		mode = "online"
	}
	if s.IsSyncing {
		mode += ", syncing"
	}
	return fmt.Sprintf("%s, %d pending", mode, s.PendingCount)
}
