package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bananalabs-oss/troupe/internal/config"
	"github.com/bananalabs-oss/troupe/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	pingTimeout = 5 * time.Second

	// MySQL error number for "Duplicate key name" on CREATE INDEX.
	mysqlDupKeyName = 1061
)

// Connect opens the backend selected by cfg.Type.
func Connect(cfg config.Database, log *zap.Logger) (*bun.DB, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	var db *bun.DB
	switch backend {
	case config.BackendMySQL:
		db, err = connectMySQL(cfg.MySQL, log)
	default:
		db, err = connectSQLite(cfg.SQLitePath, log)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func connectSQLite(path string, log *zap.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// One connection: SQLite has a single writer anyway, pragmas are
	// per-connection, and ":memory:" databases are per-connection too.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := sqldb.Exec(p); err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	log.Info("Connected to SQLite", zap.String("path", path))
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func connectMySQL(cfg config.MySQL, log *zap.Logger) (*bun.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Timeout = pingTimeout

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to configure mysql: %w", err)
	}
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(10)
	sqldb.SetConnMaxLifetime(5 * time.Minute)

	log.Info("Connected to MySQL",
		zap.String("addr", mc.Addr),
		zap.String("database", cfg.Name),
	)
	return bun.NewDB(sqldb, mysqldialect.New()), nil
}

// Migrate creates the party tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *bun.DB, log *zap.Logger) error {
	log.Info("Running database migrations...")

	_, err := db.NewCreateTable().
		Model((*models.Party)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create table party: %w", err)
	}

	_, err = db.NewCreateTable().
		Model((*models.PartyMember)(nil)).
		IfNotExists().
		ForeignKey("(party_id) REFERENCES party (party_id) ON DELETE CASCADE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create table party_member: %w", err)
	}

	indexes := []struct {
		name   string
		model  any
		column string
		unique bool
	}{
		// One party per player across the whole store.
		{"idx_party_member_member", (*models.PartyMember)(nil), "party_member_id", true},
		{"idx_party_member_party", (*models.PartyMember)(nil), "party_id", false},
		{"idx_party_owner", (*models.Party)(nil), "party_owner_id", false},
	}

	sqlite := db.Dialect().Name() == dialect.SQLite
	for _, idx := range indexes {
		q := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column)
		if idx.unique {
			q = q.Unique()
		}
		if sqlite {
			q = q.IfNotExists()
		}
		if _, err := q.Exec(ctx); err != nil {
			if isDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	log.Info("Migrations complete")
	return nil
}

func isDuplicateIndex(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupKeyName
}
