package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/auth"
	"github.com/dl-alexandre/gdrv-ingest/internal/config"
	"github.com/dl-alexandre/gdrv-ingest/internal/connector"
	"github.com/dl-alexandre/gdrv-ingest/internal/ingest"
	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/registry"
	"github.com/dl-alexandre/gdrv-ingest/internal/resolver"
	"github.com/dl-alexandre/gdrv-ingest/internal/store"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

// appEnv is what a command needs after configuration is loaded
type appEnv struct {
	cfg *config.Config
	db  *store.DB
}

func loadEnv() (*appEnv, error) {
	cfg, err := config.Load(globalFlags.Config)
	if err != nil {
		return nil, err
	}
	if err := applyLogConfig(cfg); err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	return &appEnv{cfg: cfg, db: db}, nil
}

// applyLogConfig lets the config file set the level and log file when the
// command line did not
func applyLogConfig(cfg *config.Config) error {
	if !globalFlags.Verbose && !globalFlags.Debug {
		logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
	}
	if globalFlags.LogFile != "" || cfg.LogFile == "" {
		return nil
	}
	fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
		FilePath:    cfg.LogFile,
		Level:       logging.ParseLevel(cfg.LogLevel),
		MaxFileSize: logging.DefaultLogConfig().MaxFileSize,
	})
	if err != nil {
		return err
	}
	logger = logging.NewMultiLogger(logger, fileLogger)
	return nil
}

func (e *appEnv) Close() {
	_ = e.db.Close()
}

// keyData returns the configured service account key
func (e *appEnv) keyData() ([]byte, *auth.ServiceAccountKey, error) {
	if e.cfg.ServiceAccountKeyring {
		configDir, err := config.GetConfigDir()
		if err != nil {
			return nil, nil, err
		}
		data, err := auth.NewManager(configDir).LoadKey("")
		if err != nil {
			return nil, nil, err
		}
		key, err := auth.ParseServiceAccountKey(data)
		if err != nil {
			return nil, nil, err
		}
		return data, key, nil
	}
	return auth.ReadKeyFile(e.cfg.ServiceAccountKeyFile)
}

func (e *appEnv) driveClient(ctx context.Context) (*api.Client, error) {
	data, _, err := e.keyData()
	if err != nil {
		return nil, err
	}

	var transport http.RoundTripper
	if debugTransport != nil {
		transport = debugTransport
	}
	service, err := auth.NewDriveService(ctx, auth.ServiceOptions{
		KeyData:         data,
		Scopes:          e.cfg.Scopes,
		ImpersonateUser: e.cfg.ImpersonateUser,
		Timeout:         e.cfg.GetRequestTimeout(),
		Transport:       transport,
	})
	if err != nil {
		return nil, err
	}

	limiter := api.NewRateLimiter(e.cfg.RequestsPerSecond, e.cfg.Burst)
	return api.NewClient(service, limiter, logger), nil
}

func (e *appEnv) ingestService(client *api.Client) *ingest.Service {
	drives := func(c *types.DriveConnector) ingest.DriveSource {
		return connector.New(client, connector.ScopeFor(c))
	}
	return ingest.NewService(e.db, e.db, drives, ingest.Options{
		PageSize: e.cfg.PageSize,
		MaxPages: e.cfg.MaxBackfillPages,
		Retry: api.RetryPolicy{
			MaxRetries: e.cfg.MaxRetries,
			BaseDelay:  e.cfg.GetRetryBaseDelay(),
			MaxDelay:   time.Duration(utils.MaxRetryDelayMs) * time.Millisecond,
		},
	}, logger)
}

func (e *appEnv) registry() (*registry.Registry, error) {
	_, key, err := e.keyData()
	if err != nil {
		return nil, err
	}
	return registry.New(e.db, registry.Identity{
		FolderID:       e.cfg.FolderID,
		SharedDriveID:  e.cfg.SharedDriveID,
		ServiceAccount: key.ClientEmail,
	}, logger), nil
}

// resolverFor binds a resolver to the connector that owns row
func (e *appEnv) resolverFor(ctx context.Context, client *api.Client, row *types.ChangeQueueRow) (*resolver.Resolver, error) {
	conn, err := e.db.GetConnector(ctx, row.ConnectorID)
	if err != nil {
		return nil, err
	}
	return resolver.New(connector.New(client, connector.ScopeFor(conn)), logger), nil
}
