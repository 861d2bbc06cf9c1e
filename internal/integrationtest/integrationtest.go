// Package integrationtest provides server and db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/notifier"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

// SetupServer returns test server backed by a fresh ledger file in a temp dir.
func SetupServer(t *testing.T) *httpserver.Server {
	t.Helper()

	config := configpkg.Config{
		LedgerBackend: configpkg.BackendFile,
		LedgerFile:    filepath.Join(t.TempDir(), "accounts.txt"),
		BankName:      "Test Bank",
	}

	gin.SetMode(gin.ReleaseMode)

	repo := accountrepo.NewRepoFile(config.LedgerFile)

	server, err := httpserver.NewWithRepo(context.Background(), repo, notifier.Log{}, zerolog.Nop(), config)
	if err != nil {
		t.Fatalf(`httpserver.NewWithRepo(%q) returned error: %v`, config.LedgerFile, err)
	}

	return server
}

// SetupPGSServer returns test server backed by the database from configs/app.env
// that cleans up database after each integration test.
func SetupPGSServer(t *testing.T, configPath string) *httpserver.Server {
	t.Helper()

	config, err := configpkg.Load(configPath)
	if err != nil {
		t.Fatalf(`configpkg.Load(%q) returned error: %v`, configPath, err)
	}

	config.LedgerBackend = configpkg.BackendPostgres

	db := SetupDB(t, config.DBDriver, config.DBSource)

	repo := accountrepo.NewRepoPGS(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("repo.EnsureSchema() returned error: %v", err)
	}

	Flush(t, db)

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.NewWithRepo(context.Background(), repo, notifier.Log{}, zerolog.Nop(), config)
	if err != nil {
		t.Fatalf(`httpserver.NewWithRepo(db) returned error: %v`, err)
	}

	server.DB = db

	return server
}

// Flush flushes all db tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables sql.NullString

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables 
	WHERE table_schema='public';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if !tables.Valid {
		return
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables.String + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with database for testing and then cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}
