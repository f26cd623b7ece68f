package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/gjchain/app/services/node/handlers"
	"github.com/ardanlabs/gjchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gjchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/postgres"
	"github.com/ardanlabs/gjchain/foundation/blockchain/worker"
	"github.com/ardanlabs/gjchain/foundation/events"
	"github.com/ardanlabs/gjchain/foundation/logger"
	"github.com/ardanlabs/gjchain/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:120s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		State struct {
			Storage     string   `conf:"default:disk"`
			DBPath      string   `conf:"default:zblock/data/"`
			GenesisPath string   `conf:"default:zblock/genesis.json"`
			Seeds       []string `conf:"default:0.0.0.0:9080;0.0.0.0:9180"`
		}
		DB struct {
			User         string `conf:"default:postgres"`
			Password     string `conf:"default:postgres,mask"`
			Host         string `conf:"default:localhost:5432"`
			Name         string `conf:"default:gjchain"`
			MaxIdleConns int    `conf:"default:2"`
			MaxOpenConns int    `conf:"default:10"`
			DisableTLS   bool   `conf:"default:true"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/wallets/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "gjchain proof of work ledger node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(`   ____     _  ____ _   _    _    ___ _   _ `)
	fmt.Println(`  / ___|   | |/ ___| | | |  / \  |_ _| \ | |`)
	fmt.Println(` | |  _ _  | | |   | |_| | / _ \  | ||  \| |`)
	fmt.Println(` | |_| | |_| | |___|  _  |/ ___ \ | || |\  |`)
	fmt.Println(`  \____|\___/ \____|_| |_/_/   \_\___|_| \_|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for wallet addresses.
	// The names come from the key file names in the zblock/wallets folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load wallet name service: %w", err)
	}

	// Logging the wallets for documentation in the logs.
	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// =========================================================================
	// Blockchain Support

	// The genesis file carries the difficulty, the mining reward and the
	// balances credited when the chain is first created.
	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}
	log.Infow("startup", "status", "genesis", "difficulty", gen.Difficulty, "reward", gen.MiningReward)

	strg, err := openStorage(context.Background(), log, cfg.State.Storage, cfg.State.DBPath, postgres.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		DisableTLS:   cfg.DB.DisableTLS,
	})
	if err != nil {
		return err
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. The viewer events are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the blockchain node and manages the blockchain
	// storage and provides an API for application support.
	st, err := state.New(context.Background(), state.Config{
		Host:      cfg.Web.PrivateHost,
		Storage:   strg,
		Genesis:   gen,
		Peers:     peer.NewPeerSet(),
		EvHandler: ev,
	})
	if err != nil {
		strg.Close()
		return err
	}
	defer st.Shutdown()

	// The worker package implements the mining and peer workflows. The worker
	// will register itself with the state.
	worker.Run(st, cfg.State.Seeds, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:        cfg.Web.PrivateHost,
		Handler:     privateMux,
		ReadTimeout: cfg.Web.ReadTimeout,
		IdleTimeout: cfg.Web.IdleTimeout,
		ErrorLog:    zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Stop mining and drop the peer connections so the private
		// handlers holding them return.
		log.Infow("shutdown", "status", "shutdown blockchain node")
		st.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// openStorage constructs the storage selected by the configuration.
func openStorage(ctx context.Context, log *zap.SugaredLogger, kind string, dbPath string, dbCfg postgres.Config) (storage.Storage, error) {
	switch kind {
	case "memory":
		log.Infow("startup", "status", "storage", "kind", kind)
		return memory.New(), nil

	case "disk":
		log.Infow("startup", "status", "storage", "kind", kind, "path", dbPath)
		strg, err := disk.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening disk storage: %w", err)
		}
		return strg, nil

	case "postgres":
		log.Infow("startup", "status", "storage", "kind", kind, "host", dbCfg.Host)
		db, err := postgres.Open(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to db: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating db: %w", err)
		}
		return postgres.New(db), nil
	}

	return nil, fmt.Errorf("unknown storage %q", kind)
}
