package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/autolabel/internal/adapters/repository/sqlite"
	"github.com/okian/autolabel/internal/config"
	"github.com/okian/autolabel/internal/domain/model"
	"github.com/okian/autolabel/pkg/logger"
)

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func importCmd(configPath func(*cobra.Command) string) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Copy the images of a directory into the local SQLite dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(ctx, configPath(cmd))
			if err != nil {
				return err
			}
			if cfg.DatasetID == "" {
				return fmt.Errorf("%w: dataset_id must not be empty", config.ErrInvalidConfig)
			}
			if cfg.SQLitePath == "" {
				return fmt.Errorf("%w: sqlite_path must not be empty", config.ErrInvalidConfig)
			}

			n, err := importDir(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d images into dataset %s\n", n, cfg.DatasetID)
			return err
		},
	}
}

// importDir stores every image under dir, keyed by its slash separated
// path relative to dir. Re-importing a file replaces its bytes only.
func importDir(ctx context.Context, cfg *config.Config, dir string) (int, error) {
	log := logger.Get().Named("import")

	store, err := sqlite.New(cfg.SQLitePath)
	if err != nil {
		return 0, fmt.Errorf("open sqlite store: %w", err)
	}
	defer store.Close()

	count := 0
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		mimeType, ok := imageExtensions[ext]
		if !ok {
			log.Debug(ctx, "skipping non-image file", logger.String("path", path))
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		asset := model.Asset{
			ID: model.BinaryID{
				OrganizationID: cfg.OrganizationID,
				LocationID:     cfg.LocationID,
				FileID:         filepath.ToSlash(rel),
			},
			DatasetID: cfg.DatasetID,
			MimeType:  mimeType,
			Binary:    data,
		}
		if err := store.Put(ctx, asset); err != nil {
			return fmt.Errorf("store %s: %w", rel, err)
		}

		count++
		log.Debug(ctx, "imported image", logger.String("file_id", asset.ID.FileID))
		return nil
	})
	if err != nil {
		return count, err
	}

	log.Info(ctx, "import complete", logger.Int("images", count), logger.String("dataset_id", cfg.DatasetID))
	return count, nil
}
