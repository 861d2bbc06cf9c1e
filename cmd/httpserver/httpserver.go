// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountdelivery"
	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/accountservice"
	"github.com/go-petr/pet-ledger/internal/accountstore"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/notifier"
	"github.com/go-petr/pet-ledger/internal/transferdelivery"
	"github.com/go-petr/pet-ledger/internal/transferservice"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

// Server holds the ledger store, handlers router and configuration.
type Server struct {
	DB     *sql.DB // nil for the file backend
	Store  *accountstore.Store
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close releases the database connection, if any.
func (s *Server) Close() error {
	if s.DB == nil {
		return nil
	}

	return s.DB.Close()
}

// OpenRepo returns the persistence backend selected by config. The returned
// *sql.DB is nil for the file backend.
func OpenRepo(ctx context.Context, config configpkg.Config) (accountstore.Repo, *sql.DB, error) {
	switch config.LedgerBackend {
	case configpkg.BackendPostgres:
		db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot connect to database: %w", err)
		}

		repo := accountrepo.NewRepoPGS(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("cannot create ledger schema: %w", err)
		}

		return repo, db, nil
	case configpkg.BackendFile:
		return accountrepo.NewRepoFile(config.LedgerFile), nil, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown LEDGER_BACKEND %q", configpkg.ErrInvalidConfig, config.LedgerBackend)
}

// NewNotifier returns the SMTP notifier when credentials are configured and
// the logging notifier otherwise.
func NewNotifier(config configpkg.Config) notifier.Notifier {
	smtp := notifier.NewSMTP(notifier.SMTPConfig{
		Host:     config.SMTPHost,
		Port:     config.SMTPPort,
		Username: config.SMTPUsername,
		Password: config.SMTPPassword,
		BankName: config.BankName,
		Timeout:  config.SMTPTimeout,
	})
	if smtp.Configured() {
		return smtp
	}

	return notifier.Log{}
}

// New opens the configured backend, loads the ledger and creates Server type
// with instantiated domains and routes.
func New(ctx context.Context, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	repo, db, err := OpenRepo(ctx, config)
	if err != nil {
		return nil, err
	}

	server, err := NewWithRepo(ctx, repo, NewNotifier(config), logger, config)
	if err != nil {
		if db != nil {
			db.Close()
		}

		return nil, err
	}

	server.DB = db

	return server, nil
}

// NewWithRepo loads the ledger from repo and wires the HTTP routes on top of it.
func NewWithRepo(ctx context.Context, repo accountstore.Repo, n notifier.Notifier,
	logger zerolog.Logger, config configpkg.Config,
) (*Server, error) {
	store := accountstore.New(repo)

	res, err := store.Load(logger.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("cannot load ledger: %w", err)
	}

	logger.Info().
		Int("accounts", len(res.Accounts)).
		Int("skipped", len(res.Skipped)).
		Msg("ledger loaded")

	accountService := accountservice.New(store, n)
	transferService := transferservice.New(store)

	accountHandler := accountdelivery.NewHandler(accountService)
	transferHandler := transferdelivery.NewHandler(transferService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/accounts", accountHandler.Create)
	engine.GET("/accounts/:id", accountHandler.Get)
	engine.POST("/accounts/:id/deposit", accountHandler.Deposit)
	engine.POST("/accounts/:id/withdraw", accountHandler.Withdraw)
	engine.GET("/accounts/:id/history", accountHandler.History)

	engine.POST("/transfers", transferHandler.Create)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("pin", accountdelivery.ValidPIN)
		if err != nil {
			return nil, errors.New("cannot register pin validator")
		}
	}

	server := &Server{
		Store:  store,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
