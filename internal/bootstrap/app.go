package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/locvowork/sheet_aggregator/internal/config"
	"github.com/locvowork/sheet_aggregator/internal/database"
	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/handler"
	"github.com/locvowork/sheet_aggregator/internal/logger"
	"github.com/locvowork/sheet_aggregator/internal/repository"
	"github.com/locvowork/sheet_aggregator/internal/service"
	"github.com/locvowork/sheet_aggregator/internal/source"
)

type App struct {
	Echo            *echo.Echo
	DB              *sql.DB
	DataStoreClient *datastore.Client
	Fetcher         domain.Fetcher
}

func NewApp() *App {
	e := echo.New()
	e.HideBanner = true
	return &App{Echo: e}
}

// Initialize loads the configuration and connects the optional backends.
// Postgres, Datastore and Elasticsearch are only dialed when configured.
func (a *App) Initialize(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	// Initialize logging
	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	a.Fetcher = NewFetcher(cfg.STORAGE_BASE_URL, cfg.SOURCE_ROOT, cfg.FETCH_TIMEOUT, cfg.MAX_UPLOAD_BYTES)

	var runs domain.RunRecorder = repository.NewMemoryRunRepository(0)
	if cfg.DB_HOST != "" {
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            cfg.DB_HOST,
			Port:            cfg.DB_PORT,
			User:            cfg.DB_USER,
			Password:        cfg.DB_PASSWORD,
			DBName:          cfg.DB_NAME,
			SSLMode:         cfg.DB_SSL_MODE,
			MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db
		runRepo := repository.NewRunRepository(db)
		if err := runRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		runs = runRepo
		logger.InfoLog(ctx, "Database connection established successfully")
	}

	var dsFields domain.FieldDataProvider
	if cfg.DATASTORE_PROJECT_ID != "" {
		client, err := datastore.NewClient(ctx, cfg.DATASTORE_PROJECT_ID)
		if err != nil {
			return fmt.Errorf("failed to create datastore client: %w", err)
		}
		a.DataStoreClient = client
		dsFields = source.DatastoreFieldProvider{Store: database.WrapDatastoreClient(client, cfg.DATASTORE_KIND)}
	}

	var search domain.RunSearcher
	if cfg.ELASTIC_URL != "" {
		idx, err := database.NewElasticRunIndex(cfg.ELASTIC_URL, cfg.ELASTIC_INDEX)
		if err != nil {
			// search is optional, aggregation still works without it
			logger.ErrorLog(ctx, err, "run search disabled")
		} else {
			search = idx
		}
	}

	svc := service.NewWorkbookService(a.Fetcher, dsFields, runs, search, service.Options{
		Workers:         cfg.FETCH_WORKERS,
		Retries:         cfg.FETCH_RETRIES,
		Marker:          cfg.FIELD_SHEET_MARKER,
		RecalcOnPreview: cfg.RECALC_ON_PREVIEW,
	})
	wbHandler := handler.NewWorkbookHandler(svc, cfg.MAX_UPLOAD_BYTES)

	// Register Middlewares
	a.RegisterMiddlewares()

	// Register Routes
	a.RegisterRoutes(wbHandler)

	return nil
}

// NewFetcher routes http(s) locations to the network. Bare paths go to
// the storage base URL when one is set. Files are read only from root,
// and an empty root turns file sources off.
func NewFetcher(baseURL, root string, timeout time.Duration, maxBytes int64) domain.Fetcher {
	httpFetcher := source.NewHTTPFetcher(baseURL, timeout, maxBytes)
	fileFetcher := source.FileFetcher{Root: root, Confined: true, MaxBytes: maxBytes}

	var fallback domain.Fetcher
	switch {
	case baseURL != "":
		fallback = httpFetcher
	case root != "":
		fallback = fileFetcher
	}
	m := source.NewMultiFetcher(fallback).
		Register("http", httpFetcher).
		Register("https", httpFetcher)
	if root != "" {
		m.Register("file", fileFetcher)
	}
	return m
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(handler.RequestLogger())
	a.Echo.Use(middleware.CORS())
}

func (a *App) RegisterRoutes(wbHandler *handler.WorkbookHandler) {
	a.Echo.GET("/healthz", wbHandler.Health)

	wb := a.Echo.Group("/api/workbooks")
	wb.POST("/aggregate", wbHandler.Aggregate)
	wb.POST("/preview", wbHandler.Preview)
	wb.POST("/preview/upload", wbHandler.PreviewUpload)
	wb.GET("/sheets", wbHandler.SheetNames)
	wb.GET("/runs", wbHandler.Runs)
	wb.GET("/runs/search", wbHandler.SearchRuns)
}

// Run serves until Shutdown is called.
func (a *App) Run() error {
	err := a.Echo.Start(":" + strconv.Itoa(config.DefaultEnvConfig.APP_PORT))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server and closes the backends.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.DB != nil {
		a.DB.Close()
	}
	if a.DataStoreClient != nil {
		a.DataStoreClient.Close()
	}
	return err
}
