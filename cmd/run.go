package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/autolabel/internal/adapters/repository"
	"github.com/okian/autolabel/internal/adapters/repository/remote"
	"github.com/okian/autolabel/internal/adapters/repository/sqlite"
	"github.com/okian/autolabel/internal/adapters/vision"
	"github.com/okian/autolabel/internal/adapters/vision/anthropic"
	visionremote "github.com/okian/autolabel/internal/adapters/vision/remote"
	app "github.com/okian/autolabel/internal/app"
	"github.com/okian/autolabel/internal/config"
	"github.com/okian/autolabel/internal/domain/dedupe"
	"github.com/okian/autolabel/internal/domain/filter"
	"github.com/okian/autolabel/pkg/logger"
	"github.com/okian/autolabel/pkg/metrics"
)

func runCmd(configPath func(*cobra.Command) string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Label every image of the configured dataset that is not labeled yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Root context with cancel on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Load configuration (defaults -> file -> .env/env)
			cfg, err := config.Load(ctx, configPath(cmd))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			stats, err := runLabeling(ctx, cfg)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "labeled %d of %d images (%d skipped, %d boxes)\n",
				stats.Labeled, stats.Fetched, stats.Skipped, stats.BoxesCommitted)
			return err
		},
	}
}

// runLabeling wires the store and vision backends selected by cfg and runs
// one pass over the dataset. Metrics are written out even when the run fails.
func runLabeling(ctx context.Context, cfg *config.Config) (app.Stats, error) {
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	hc := &http.Client{Timeout: cfg.RequestTimeout()}

	store, err := openStore(cfg, hc)
	if err != nil {
		return app.Stats{}, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			loggerInstance.Warn(ctx, "closing store failed", logger.Error(err))
		}
	}()

	detector, classifier, err := openVision(cfg, hc)
	if err != nil {
		return app.Stats{}, err
	}
	defer hc.CloseIdleConnections()

	policy, err := app.ParseDecodePolicy(cfg.DecodePolicy())
	if err != nil {
		return app.Stats{}, err
	}

	svc := app.New(store, detector, classifier,
		app.WithLogger(loggerInstance.Named("pipeline")),
		app.WithFilter(filter.New(
			filter.WithThreshold(cfg.ScoreThreshold),
			filter.WithAllowedLabels(cfg.ValidLabels...),
		)),
		app.WithPrompt(app.BuildPrompt(cfg.Vocabulary)),
		app.WithTag(cfg.AutoLabelTag),
		app.WithPageSize(cfg.PageSize),
		app.WithDecodePolicy(policy),
		app.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.VisitGuardMax))),
	)

	stats, runErr := svc.Run(ctx, cfg.DatasetID)

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		loggerInstance.Warn(ctx, "writing metrics failed", logger.String("path", cfg.MetricsTextfile), logger.Error(err))
	}

	return stats, runErr
}

func openStore(cfg *config.Config, hc *http.Client) (repository.Store, error) {
	var (
		next repository.Store
		err  error
	)

	switch cfg.StoreBackend {
	case config.StoreSQLite:
		next, err = sqlite.New(cfg.SQLitePath)
	default:
		next, err = remote.New(cfg.StoreURL,
			remote.Credentials{APIKey: cfg.AppAPIKey, APIKeyID: cfg.AppAPIKeyID},
			remote.WithHTTPClient(hc),
			remote.WithDefaultLocation(cfg.OrganizationID, cfg.LocationID),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}

	return repository.NewInstrumentedStore(next), nil
}

func openVision(cfg *config.Config, hc *http.Client) (vision.Detector, vision.Classifier, error) {
	det, err := visionremote.New(cfg.VisionURL, cfg.DetectorName,
		visionremote.WithHTTPClient(hc),
		visionremote.WithAPIKey(cfg.AppAPIKeyID, cfg.AppAPIKey),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open detector: %w", err)
	}

	var cls vision.Classifier
	switch cfg.ClassifierBackend {
	case config.ClassifierAnthropic:
		cls, err = anthropic.New(cfg.AnthropicAPIKey,
			anthropic.WithModel(cfg.AnthropicModel),
			anthropic.WithVocabulary(cfg.Vocabulary...),
			anthropic.WithHTTPClient(hc),
		)
	default:
		cls, err = visionremote.New(cfg.VisionURL, cfg.ClassifierName,
			visionremote.WithHTTPClient(hc),
			visionremote.WithAPIKey(cfg.AppAPIKeyID, cfg.AppAPIKey),
		)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open classifier: %w", err)
	}

	return vision.NewInstrumentedDetector(det), vision.NewInstrumentedClassifier(cls), nil
}
