package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"Widgets/internal/config"
	"Widgets/internal/widget"
	"Widgets/pkg/kit"
)

type serveFlags struct {
	configPath string
	addr       string
}

func newServeCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the widgets HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if f.addr != "" {
				cfg.HTTP.Addr = f.addr
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address, overrides config")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := kit.NewLogger(cfg.Service, kit.LogOptions{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Error("open store failed", zap.Error(err), zap.String("driver", cfg.Store.Driver))
		return err
	}
	defer closeStore()
	log.Info("store ready", zap.String("driver", cfg.Store.Driver))

	h := buildHandler(cfg, store, log)

	err = kit.RunHTTPServer(ctx, kit.ServerOptions{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}, h, log)
	if err != nil {
		log.Error("http server stopped", zap.Error(err))
		return err
	}
	log.Info("http server stopped")
	return nil
}

func buildHandler(cfg *config.Config, store widget.Store, log *zap.Logger) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &widget.Server{
		Service:      widget.NewService(store),
		Log:          log,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}

	return widget.NewHandler(s, widget.HTTPDeps{
		Log:            log,
		Service:        cfg.Service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
	})
}

func openStore(ctx context.Context, cfg config.StoreConfig) (widget.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := widget.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return widget.NewPostgresStore(db), closeDB(db), nil
	default:
		return widget.NewMemStore(), func() {}, nil
	}
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
