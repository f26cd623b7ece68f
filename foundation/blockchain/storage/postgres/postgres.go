// Package postgres implements the ability to read and write blocks and
// wallets to a Postgres database.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Queries used against the database.
const (
	qWriteBlock = `INSERT INTO blocks (idx, hash, data) VALUES ($1, $2, $3)
ON CONFLICT (idx) DO UPDATE SET hash = EXCLUDED.hash, data = EXCLUDED.data`

	qGetBlock = `SELECT data FROM blocks WHERE idx = $1`

	qBlocks = `SELECT data FROM blocks ORDER BY idx ASC`

	qWallet = `SELECT address, public_key, private_key, balance FROM wallets WHERE address = $1`

	qWriteWallet = `INSERT INTO wallets (address, public_key, private_key, balance) VALUES ($1, $2, $3, $4)
ON CONFLICT (address) DO UPDATE SET public_key = EXCLUDED.public_key, private_key = EXCLUDED.private_key, balance = EXCLUDED.balance`

	qIncrementBalance = `INSERT INTO wallets (address, balance) VALUES ($1, $2)
ON CONFLICT (address) DO UPDATE SET balance = wallets.balance + EXCLUDED.balance`

	qWallets = `SELECT address, public_key, private_key, balance FROM wallets ORDER BY address ASC`
)

// Config is the required properties to use the database.
type Config struct {
	User         string
	Password     string
	Host         string
	Name         string
	MaxIdleConns int
	MaxOpenConns int
	DisableTLS   bool
}

// Open knows how to open a database connection based on the configuration.
func Open(cfg Config) (*sql.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	return db, nil
}

// Migrate brings the schema up to the latest version.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}

	return nil
}

// =============================================================================

// Postgres represents the storage implementation for reading and storing
// blocks and wallets in Postgres. This implements the storage.Storage
// interface.
type Postgres struct {
	db *sql.DB
}

// New constructs a Postgres value for use over an open database.
func New(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close closes the database connections.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// WriteBlock stores the block keyed by its index.
func (p *Postgres) WriteBlock(ctx context.Context, blk block.Block) error {
	data, err := json.Marshal(blk)
	if err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, qWriteBlock, int64(blk.Index), blk.Hash, data); err != nil {
		return fmt.Errorf("writing block %d: %w", blk.Index, err)
	}

	return nil
}

// GetBlock returns the block stored at the specified index.
func (p *Postgres) GetBlock(ctx context.Context, index uint64) (block.Block, error) {
	var data []byte
	if err := p.db.QueryRowContext(ctx, qGetBlock, int64(index)).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return block.Block{}, fmt.Errorf("block %d: %w", index, storage.ErrNotFound)
		}
		return block.Block{}, fmt.Errorf("reading block %d: %w", index, err)
	}

	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return block.Block{}, fmt.Errorf("decoding block %d: %w", index, err)
	}

	return blk, nil
}

// Blocks returns every stored block ordered by index.
func (p *Postgres) Blocks(ctx context.Context) ([]block.Block, error) {
	rows, err := p.db.QueryContext(ctx, qBlocks)
	if err != nil {
		return nil, fmt.Errorf("reading blocks: %w", err)
	}
	defer rows.Close()

	var blocks []block.Block
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var blk block.Block
		if err := json.Unmarshal(data, &blk); err != nil {
			return nil, fmt.Errorf("decoding block: %w", err)
		}
		blocks = append(blocks, blk)
	}

	return blocks, rows.Err()
}

// Wallet returns the wallet stored for the specified address.
func (p *Postgres) Wallet(ctx context.Context, address string) (storage.Wallet, error) {
	var w storage.Wallet
	row := p.db.QueryRowContext(ctx, qWallet, address)
	if err := row.Scan(&w.Address, &w.PublicKey, &w.PrivateKey, &w.Balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Wallet{}, fmt.Errorf("wallet %s: %w", address, storage.ErrNotFound)
		}
		return storage.Wallet{}, fmt.Errorf("reading wallet %s: %w", address, err)
	}

	return w, nil
}

// WriteWallet stores the wallet keyed by its address.
func (p *Postgres) WriteWallet(ctx context.Context, w storage.Wallet) error {
	if err := storage.CheckAddress(w.Address); err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, qWriteWallet, w.Address, w.PublicKey, w.PrivateKey, w.Balance); err != nil {
		return fmt.Errorf("writing wallet %s: %w", w.Address, err)
	}

	return nil
}

// IncrementBalance adds delta to the balance of the wallet in a single
// statement so concurrent increments are never lost.
func (p *Postgres) IncrementBalance(ctx context.Context, address string, delta int64) error {
	if err := storage.CheckAddress(address); err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, qIncrementBalance, address, delta); err != nil {
		return fmt.Errorf("incrementing wallet %s: %w", address, err)
	}

	return nil
}

// Wallets returns every stored wallet ordered by address.
func (p *Postgres) Wallets(ctx context.Context) ([]storage.Wallet, error) {
	rows, err := p.db.QueryContext(ctx, qWallets)
	if err != nil {
		return nil, fmt.Errorf("reading wallets: %w", err)
	}
	defer rows.Close()

	var wallets []storage.Wallet
	for rows.Next() {
		var w storage.Wallet
		if err := rows.Scan(&w.Address, &w.PublicKey, &w.PrivateKey, &w.Balance); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}

	return wallets, rows.Err()
}
