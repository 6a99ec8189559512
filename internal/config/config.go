// Package config defines the labeling job configuration and its loader.
//
// Conventions:
// - Keys are flat and snake_case; the same names work in files and, upper
//   cased with the AUTOLABEL_ prefix, in the environment.
// - New(ctx) returns the defaults; Load layers sources on top of them.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/autolabel/internal/domain/model"
)

// Store backends.
const (
	StoreRemote = "remote"
	StoreSQLite = "sqlite"
)

// Classifier backends.
const (
	ClassifierRemote    = "remote"
	ClassifierAnthropic = "anthropic"
)

// Decode error policies.
const (
	DecodeSkip  = "skip"
	DecodeAbort = "abort"
)

// Config contains process configuration.
type Config struct {
	// DatasetID selects the dataset to label.
	DatasetID string `koanf:"dataset_id"`

	// AppAPIKey and AppAPIKeyID authenticate against the data and vision APIs.
	AppAPIKey   string `koanf:"app_api_key"`
	AppAPIKeyID string `koanf:"app_api_key_id"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// StoreBackend is "remote" or "sqlite".
	StoreBackend   string `koanf:"store_backend"`
	StoreURL       string `koanf:"store_url"`
	SQLitePath     string `koanf:"sqlite_path"`
	OrganizationID string `koanf:"organization_id"`
	LocationID     string `koanf:"location_id"`

	// VisionURL is the base URL of the machine exposing the vision services.
	VisionURL      string `koanf:"vision_url"`
	DetectorName   string `koanf:"detector_name"`
	ClassifierName string `koanf:"classifier_name"`

	// ClassifierBackend is "remote" or "anthropic".
	ClassifierBackend string `koanf:"classifier_backend"`
	AnthropicAPIKey   string `koanf:"anthropic_api_key"`
	AnthropicModel    string `koanf:"anthropic_model"`

	// ScoreThreshold is exclusive: detections must score above it.
	ScoreThreshold float64  `koanf:"score_threshold"`
	ValidLabels    []string `koanf:"valid_labels"`
	Vocabulary     []string `koanf:"vocabulary"`
	AutoLabelTag   string   `koanf:"auto_label_tag"`
	PageSize       int      `koanf:"page_size"`

	// OnDecodeError is "skip" or "abort", in any case.
	OnDecodeError string `koanf:"on_decode_error"`

	// VisitGuardMax bounds how many asset keys a run remembers; 0 is unbounded.
	VisitGuardMax int `koanf:"visit_guard_max"`

	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MetricsTextfile, when set, receives the run metrics in text format.
	MetricsTextfile string `koanf:"metrics_textfile"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention; it is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		StoreBackend:      StoreRemote,
		StoreURL:          "https://app.viam.com/api/v1",
		SQLitePath:        "autolabel.db",
		DetectorName:      "myFlorenceVision",
		ClassifierName:    "myChatGPTVision",
		ClassifierBackend: ClassifierRemote,
		AnthropicModel:    "claude-sonnet-4-20250514",
		ScoreThreshold:    0.3,
		ValidLabels:       []string{"food"},
		Vocabulary:        slices.Clone(model.DefaultVocabulary),
		AutoLabelTag:      "auto-labeled",
		PageSize:          1,
		OnDecodeError:     DecodeSkip,
		RequestTimeoutMS:  30_000,
	}
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// DecodePolicy returns OnDecodeError trimmed and lower cased. Empty means skip.
func (c *Config) DecodePolicy() string {
	p := strings.ToLower(strings.TrimSpace(c.OnDecodeError))
	if p == "" {
		return DecodeSkip
	}
	return p
}

// Validate reports the first setting that prevents a run.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case c.DatasetID == "":
		return invalid("dataset_id must not be empty")
	case c.ScoreThreshold < 0 || c.ScoreThreshold > 1:
		return invalid("score_threshold %v outside [0,1]", c.ScoreThreshold)
	case len(c.ValidLabels) == 0:
		return invalid("valid_labels must not be empty")
	case c.PageSize < 1:
		return invalid("page_size must be at least 1, got %d", c.PageSize)
	case c.RequestTimeoutMS < 0:
		return invalid("request_timeout_ms must not be negative")
	case c.AutoLabelTag == "":
		return invalid("auto_label_tag must not be empty")
	case c.VisitGuardMax < 0:
		return invalid("visit_guard_max must not be negative, got %d", c.VisitGuardMax)
	}

	switch c.DecodePolicy() {
	case DecodeSkip, DecodeAbort:
	default:
		return invalid("unknown on_decode_error %q", c.OnDecodeError)
	}

	switch c.StoreBackend {
	case StoreRemote:
		if c.StoreURL == "" {
			return invalid("store_url must not be empty")
		}
		if c.AppAPIKey == "" || c.AppAPIKeyID == "" {
			return invalid("app_api_key and app_api_key_id are required by the remote store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite_path must not be empty")
		}
	default:
		return invalid("unknown store_backend %q", c.StoreBackend)
	}

	// The detector always lives behind the vision API.
	if c.VisionURL == "" {
		return invalid("vision_url must not be empty")
	}
	if c.DetectorName == "" {
		return invalid("detector_name must not be empty")
	}

	switch c.ClassifierBackend {
	case ClassifierRemote:
		if c.ClassifierName == "" {
			return invalid("classifier_name must not be empty")
		}
	case ClassifierAnthropic:
		if c.AnthropicAPIKey == "" {
			return invalid("anthropic_api_key is required by the anthropic classifier")
		}
	default:
		return invalid("unknown classifier_backend %q", c.ClassifierBackend)
	}

	return nil
}
