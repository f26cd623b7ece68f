// This program performs administrative tasks against the storage of a node.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/gjchain/app/tooling/admin/commands"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage/postgres"
	"github.com/ardanlabs/gjchain/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrHelp) {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args   conf.Args
		DBPath string `conf:"default:zblock/data/"`
		DB     struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,mask"`
			Host       string `conf:"default:localhost:5432"`
			Name       string `conf:"default:gjchain"`
			DisableTLS bool   `conf:"default:true"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "gjchain storage administration",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	dbConfig := postgres.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		DisableTLS:   cfg.DB.DisableTLS,
	}

	return processCommands(cfg.Args, cfg.DBPath, dbConfig)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, dbPath string, dbConfig postgres.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if args.Num(0) == "migrate" {
		if err := commands.Migrate(ctx, dbConfig); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		return nil
	}

	strg, err := disk.New(dbPath)
	if err != nil {
		return err
	}
	defer strg.Close()

	switch args.Num(0) {
	case "chain":
		if err := commands.Chain(ctx, os.Stdout, strg); err != nil {
			return fmt.Errorf("printing chain: %w", err)
		}

	case "wallets":
		if err := commands.Wallets(ctx, os.Stdout, strg); err != nil {
			return fmt.Errorf("printing wallets: %w", err)
		}

	case "verify":
		if err := commands.Verify(ctx, os.Stdout, strg); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}

	default:
		fmt.Println("chain:    print every block and its transactions")
		fmt.Println("wallets:  print every wallet and its balance")
		fmt.Println("verify:   check the hash links of the stored chain")
		fmt.Println("migrate:  create the postgres schema")
		fmt.Println("provide a command to get more help.")
		return commands.ErrHelp
	}

	return nil
}
