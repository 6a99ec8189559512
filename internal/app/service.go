// Package service provides the labeling pipeline: it walks a dataset, runs
// detection and classification on each unlabeled image and writes the
// resulting boxes and tag back to the store.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/autolabel/internal/adapters/imaging"
	"github.com/okian/autolabel/internal/adapters/repository"
	"github.com/okian/autolabel/internal/adapters/vision"
	"github.com/okian/autolabel/internal/domain/dedupe"
	"github.com/okian/autolabel/internal/domain/filter"
	"github.com/okian/autolabel/internal/domain/model"
	"github.com/okian/autolabel/pkg/logger"
	"github.com/okian/autolabel/pkg/metrics"
)

// Defaults.
const (
	DefaultTag      = "auto-labeled"
	DefaultPageSize = 1
)

// Reasons an asset is skipped, as reported in metrics and logs.
const (
	SkipVisited       = "visited"
	SkipAlreadyTagged = "already_labeled"
	SkipDecodeError   = "decode_error"
	SkipNoLabels      = "no_labels"
)

// Stats summarizes one run.
type Stats struct {
	RunID             string
	Fetched           int
	Skipped           int
	Labeled           int
	BoxesCommitted    int
	BoxesReused       int
	DetectionsDropped int
}

// Service runs the labeling pipeline against a store and two vision services.
type Service struct {
	store      repository.Store
	detector   vision.Detector
	classifier vision.Classifier

	// Configuration
	filter       *filter.Filter
	prompt       string
	tag          string
	pageSize     int
	decodePolicy DecodePolicy

	deduper dedupe.Deduper
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(store repository.Store, detector vision.Detector, classifier vision.Classifier, opts ...Option) *Service {
	s := &Service{
		store:        store,
		detector:     detector,
		classifier:   classifier,
		filter:       filter.New(),
		prompt:       BuildPrompt(model.DefaultVocabulary),
		tag:          DefaultTag,
		pageSize:     DefaultPageSize,
		decodePolicy: DecodeSkip,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}

	return s
}

// Run labels every not yet labeled asset of datasetID. Inference and store
// failures abort the run; the stats gathered so far are returned with the error.
func (s *Service) Run(ctx context.Context, datasetID string) (Stats, error) {
	if datasetID == "" {
		return Stats{}, ErrEmptyDataset
	}

	stats := Stats{RunID: uuid.NewString()}
	log := s.logger.With(
		logger.String("run_id", stats.RunID),
		logger.String("dataset_id", datasetID),
	)

	start := time.Now()
	defer func() {
		metrics.RecordRunDuration(time.Since(start).Seconds(), time.Now().Unix())
	}()

	s.deduper.Reset(ctx)
	log.Info(ctx, "labeling run started",
		logger.Float64("threshold", s.filter.Threshold()),
		logger.Int("pageSize", s.pageSize),
	)

	query := repository.Filter{DatasetID: datasetID, ExcludeTags: []string{s.tag}}
	for asset, err := range repository.Assets(ctx, s.store, query, s.pageSize) {
		if err != nil {
			log.Error(ctx, "fetching assets failed", logger.Error(err))
			return stats, fmt.Errorf("fetch assets: %w", err)
		}

		stats.Fetched++
		metrics.RecordAssetFetched()

		if err := s.label(ctx, log, asset, &stats); err != nil {
			log.Error(ctx, "labeling run aborted",
				logger.String("file_id", asset.ID.FileID),
				logger.Error(err),
			)
			return stats, err
		}
	}

	log.Info(ctx, "labeling run complete",
		logger.Int("fetched", stats.Fetched),
		logger.Int("labeled", stats.Labeled),
		logger.Int("skipped", stats.Skipped),
		logger.Int("boxes", stats.BoxesCommitted),
		logger.Int("dropped", stats.DetectionsDropped),
	)
	return stats, nil
}

// label processes one asset end to end.
func (s *Service) label(ctx context.Context, log logger.Logger, asset model.Asset, stats *Stats) error {
	log = log.With(logger.String("file_id", asset.ID.FileID))

	if s.deduper.SeenAndRecord(ctx, asset.ID.Key()) {
		s.skip(ctx, log, stats, SkipVisited)
		return nil
	}
	if asset.HasTag(s.tag) {
		s.skip(ctx, log, stats, SkipAlreadyTagged)
		return nil
	}

	img, err := imaging.Decode(asset.Binary)
	if err != nil {
		metrics.RecordErrorByComponent("pipeline", SkipDecodeError)
		if s.decodePolicy == DecodeAbort {
			return fmt.Errorf("decode %s: %w", asset.ID.FileID, err)
		}
		log.Warn(ctx, "skipping undecodable image",
			logger.String("mimeType", asset.MimeType),
			logger.Error(err),
		)
		s.skip(ctx, log, stats, SkipDecodeError)
		return nil
	}
	width, height := imaging.Dimensions(img)

	dets, err := s.detector.Detections(ctx, img)
	if err != nil {
		return fmt.Errorf("detect %s: %w", asset.ID.FileID, err)
	}

	kept, drops := s.filter.Apply(dets)
	metrics.RecordDetections(metrics.OutcomeLowConfidence, drops.LowConfidence)
	metrics.RecordDetections(metrics.OutcomeLabelRejected, drops.LabelRejected)
	stats.DetectionsDropped += drops.Total()
	log.Debug(ctx, "detections filtered",
		logger.Int("detections", len(dets)),
		logger.Int("kept", len(kept)),
		logger.Int("lowConfidence", drops.LowConfidence),
		logger.Int("labelRejected", drops.LabelRejected),
	)

	writes := make([]model.LabelWrite, 0, len(kept))
	for _, d := range kept {
		box := d.Box.Clamp(width, height)
		if box.Empty() {
			metrics.RecordDetections(metrics.OutcomeEmptyBox, 1)
			stats.DetectionsDropped++
			log.Warn(ctx, "dropping detection outside the image", logger.Any("box", d.Box))
			continue
		}

		crop, err := imaging.Crop(img, box.Rect())
		if err != nil {
			return fmt.Errorf("crop %s: %w", asset.ID.FileID, err)
		}

		classes, err := s.classifier.Classifications(ctx, crop, s.prompt, 1)
		if err != nil {
			return fmt.Errorf("classify %s: %w", asset.ID.FileID, err)
		}
		if len(classes) == 0 || classes[0].ClassName == "" {
			metrics.RecordDetections(metrics.OutcomeUnclassified, 1)
			stats.DetectionsDropped++
			log.Warn(ctx, "classifier returned no label", logger.Any("box", box))
			continue
		}

		norm, err := box.Normalize(width, height)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", asset.ID.FileID, err)
		}

		metrics.RecordDetections(metrics.OutcomeKept, 1)
		writes = append(writes, model.LabelWrite{Box: box, Normalized: norm, Label: classes[0].ClassName})
	}

	if len(writes) == 0 {
		s.skip(ctx, log, stats, SkipNoLabels)
		return nil
	}

	return s.commit(ctx, log, asset, writes, stats)
}

// commit attaches every box, then the tag. Boxes already on the asset are
// not added again, so a retry after a partial commit converges.
func (s *Service) commit(ctx context.Context, log logger.Logger, asset model.Asset, writes []model.LabelWrite, stats *Stats) error {
	for _, w := range writes {
		if asset.HasAnnotation(w.Label, w.Normalized) {
			stats.BoxesReused++
			log.Debug(ctx, "bounding box already present", logger.String("label", w.Label))
			continue
		}

		if _, err := s.store.AddBoundingBox(ctx, asset.ID, w.Label, w.Normalized); err != nil {
			return fmt.Errorf("commit box on %s: %w", asset.ID.FileID, err)
		}
		stats.BoxesCommitted++
	}

	if err := s.store.AddTags(ctx, []model.BinaryID{asset.ID}, []string{s.tag}); err != nil {
		return fmt.Errorf("commit tag on %s: %w", asset.ID.FileID, err)
	}

	stats.Labeled++
	metrics.RecordAssetLabeled()
	log.Info(ctx, "image labeled", logger.Int("boxes", len(writes)))
	return nil
}

func (s *Service) skip(ctx context.Context, log logger.Logger, stats *Stats, reason string) {
	stats.Skipped++
	metrics.RecordAssetSkipped(reason)
	log.Debug(ctx, "image skipped", logger.String("reason", reason))
}
