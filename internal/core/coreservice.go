package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/imageroulette/internal/backend/cache"
	"github.com/jo-hoe/imageroulette/internal/backend/commands"
	"github.com/jo-hoe/imageroulette/internal/backend/database"
	"github.com/jo-hoe/imageroulette/internal/backend/degradation"
	"github.com/jo-hoe/imageroulette/internal/backend/metadata"
	"github.com/jo-hoe/imageroulette/internal/backend/ranking"
	"golang.org/x/sync/errgroup"
)

type CoreService struct {
	config       *ServiceConfig
	store        database.RecordStore
	views        cache.ViewCounter
	loginLimiter cache.RateLimiter
	pipeline     *degradation.Pipeline
	metrics      *Metrics
	closers      []func() error
	now          func() time.Time
}

// Dependencies are the collaborators a CoreService works with
type Dependencies struct {
	Store        database.RecordStore
	Views        cache.ViewCounter
	LoginLimiter cache.RateLimiter
	Pipeline     *degradation.Pipeline
	Metrics      *Metrics
	// Closers are called by Close after the store was closed
	Closers []func() error
}

// NewCoreService wires a service from explicit dependencies. A missing view
// counter falls back to the views column of the store, a missing pipeline to
// a randomly seeded default one.
func NewCoreService(config *ServiceConfig, deps Dependencies) *CoreService {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	views := deps.Views
	if views == nil {
		views = cache.NewStoreViewCounter(deps.Store)
	}
	limiter := deps.LoginLimiter
	if limiter == nil {
		limiter = cache.NewMemoryRateLimiter(config.Admin.MaxLoginAttempts, config.Admin.LoginWindow, cache.DefaultMemoryCapacity)
	}
	pipeline := deps.Pipeline
	if pipeline == nil {
		pipeline = degradation.NewPipeline(nil, nil, metrics)
	}

	return &CoreService{
		config:       config,
		store:        deps.Store,
		views:        views,
		loginLimiter: limiter,
		pipeline:     pipeline,
		metrics:      metrics,
		closers:      deps.Closers,
		now:          time.Now,
	}
}

// LoginLimiter returns the limiter guarding admin logins
func (service *CoreService) LoginLimiter() cache.RateLimiter {
	return service.loginLimiter
}

// AddImage runs an upload through the degradation pipeline and stores the result
func (service *CoreService) AddImage(ctx context.Context, image []byte, contentType string, hidden bool) (*UploadResult, error) {
	outcome := service.pipeline.ProcessUpload(image, contentType)
	meta := metadata.EncodeOutcome(outcome, hidden, service.now())

	id, err := service.store.Insert(ctx, outcome.Data, meta)
	if err != nil {
		return nil, storeError("insert image", err)
	}

	slog.Info("image stored",
		"image_id", id,
		"tier", outcome.Tier,
		"roll", outcome.Roll,
		"hidden", hidden,
		"size_bytes", len(outcome.Data))

	width, height, err := commands.DecodeDimensions(outcome.Data)
	if err != nil {
		slog.Debug("could not read dimensions of stored image", "image_id", id, "error", err)
	}

	return &UploadResult{
		ID:          id,
		Tier:        outcome.Tier,
		Roll:        outcome.Roll,
		ContentType: outcome.ContentType,
		Hidden:      hidden,
		SizeBytes:   len(outcome.Data),
		Width:       width,
		Height:      height,
	}, nil
}

func (service *CoreService) getRecord(ctx context.Context, id string) (*database.Record, error) {
	record, err := service.store.GetRecordByID(ctx, id)
	if err != nil {
		return nil, storeError("load image", err)
	}
	if record == nil {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	return record, nil
}

// GetImage returns the decoded details of one image without counting a view
func (service *CoreService) GetImage(ctx context.Context, id string) (*ImageDetails, error) {
	record, err := service.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	counts, err := service.views.Counts(ctx, []string{id})
	if err != nil {
		return nil, storeError("load views", err)
	}
	return newImageDetails(record, counts[id]), nil
}

// ViewImage returns the details of one image and counts the view
func (service *CoreService) ViewImage(ctx context.Context, id string) (*ImageDetails, error) {
	record, err := service.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	views, err := service.views.Increment(ctx, id)
	if err != nil {
		return nil, storeError("count view", err)
	}
	service.metrics.observeView()
	return newImageDetails(record, views), nil
}

// RawImage returns the stored bytes and their content type
func (service *CoreService) RawImage(ctx context.Context, id string) ([]byte, string, error) {
	record, err := service.getRecord(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return record.Data, metadata.BaseContentType(record.Meta), nil
}

// Stats summarizes all records, hidden ones included
func (service *CoreService) Stats(ctx context.Context) (ranking.Stats, error) {
	_, stats, err := service.loadOverview(ctx)
	return stats, err
}

// loadOverview decodes every record and computes the stats over them. The
// metadata and the size sample are read concurrently.
func (service *CoreService) loadOverview(ctx context.Context) ([]ranking.Entry, ranking.Stats, error) {
	var entries []ranking.Entry
	var sample []int

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		entries, err = service.loadEntries(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		sample, err = service.sampleSizes(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, ranking.Stats{}, err
	}

	metas := make([]metadata.Meta, len(entries))
	for i, e := range entries {
		metas[i] = e.Meta
	}
	return entries, ranking.ComputeStats(metas, sample), nil
}

// Gallery lists the visible images newest first, one page at a time
func (service *CoreService) Gallery(ctx context.Context, page int) (*GalleryPage, error) {
	entries, stats, err := service.loadOverview(ctx)
	if err != nil {
		return nil, err
	}

	visible := ranking.FilterVisible(entries)
	ranking.SortNewestFirst(visible)
	paged := ranking.Paginate(visible, page, service.config.Gallery.PerPage)

	ids := make([]string, len(paged.Items))
	for i, e := range paged.Items {
		ids[i] = e.ID
	}
	counts, err := service.views.Counts(ctx, ids)
	if err != nil {
		return nil, storeError("load views", err)
	}

	summaries := make([]ImageSummary, len(paged.Items))
	for i, e := range paged.Items {
		summaries[i] = newImageSummary(e, counts[e.ID], 0)
	}

	return &GalleryPage{
		Page:  pageOf(paged, summaries),
		Stats: stats,
	}, nil
}

// Leaderboard ranks the visible images by views
func (service *CoreService) Leaderboard(ctx context.Context) (*LeaderboardPage, error) {
	entries, stats, err := service.loadOverview(ctx)
	if err != nil {
		return nil, err
	}

	visible := ranking.FilterVisible(entries)
	ids := make([]string, len(visible))
	for i, e := range visible {
		ids[i] = e.ID
	}
	counts, err := service.views.Counts(ctx, ids)
	if err != nil {
		return nil, storeError("load views", err)
	}

	ranked := ranking.RankVisible(visible, counts)
	if len(ranked) > service.config.Leaderboard.Limit {
		ranked = ranked[:service.config.Leaderboard.Limit]
	}

	items := make([]ImageSummary, len(ranked))
	for i, r := range ranked {
		items[i] = newImageSummary(r.Entry, r.Views, i+1)
	}
	return &LeaderboardPage{Items: items, Stats: stats}, nil
}

// AdminImages lists every image, hidden ones included, newest first
func (service *CoreService) AdminImages(ctx context.Context, page int) (*AdminPage, error) {
	perPage := service.config.Admin.PerPage
	var total int
	var records []*database.Record
	var stats ranking.Stats

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		if total, err = service.store.Count(groupCtx); err != nil {
			return storeError("count images", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		records, err = service.store.ListRange(groupCtx, ranking.Offset(page, perPage), perPage, database.OrderByIDDesc)
		if err != nil {
			return storeError("list images", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		stats, err = service.Stats(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	counts, err := service.views.Counts(ctx, ids)
	if err != nil {
		return nil, storeError("load views", err)
	}

	items := make([]ImageSummary, len(records))
	for i, r := range records {
		entry := ranking.Entry{ID: r.ID, Meta: metadata.Decode(r.Meta)}
		items[i] = newImageSummary(entry, counts[r.ID], 0)
		items[i].SizeBytes = len(r.Data)
	}

	return &AdminPage{
		Page: ranking.Page[ImageSummary]{
			Items:      items,
			Page:       max(page, 1),
			PerPage:    perPage,
			TotalItems: total,
			TotalPages: ranking.TotalPages(total, perPage),
		},
		Stats: stats,
	}, nil
}

// ToggleVisibility flips the hidden flag of an image and returns the new state
func (service *CoreService) ToggleVisibility(ctx context.Context, id string) (bool, error) {
	record, err := service.getRecord(ctx, id)
	if err != nil {
		return false, err
	}

	meta, hidden := metadata.ToggleHidden(record.Meta)
	if err := service.store.UpdateMeta(ctx, id, meta); err != nil {
		return false, storeError("update visibility", err)
	}
	service.metrics.observeToggle()

	slog.Info("image visibility toggled", "image_id", id, "hidden", hidden)
	return hidden, nil
}

// DeleteImage removes an image and its view count
func (service *CoreService) DeleteImage(ctx context.Context, id string) error {
	if err := service.store.Delete(ctx, id); err != nil {
		return storeError("delete image", err)
	}
	if err := service.views.Forget(ctx, id); err != nil {
		// the record is gone already, a stale counter is harmless
		slog.Warn("failed to remove view count of deleted image", "image_id", id, "error", err)
	}

	slog.Info("image deleted", "image_id", id)
	return nil
}

// Close releases the store and any other held resources
func (service *CoreService) Close() error {
	var errs []error
	if service.store != nil {
		errs = append(errs, service.store.Close())
	}
	for _, closeFn := range service.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// loadEntries decodes the metadata of every record without loading payloads
func (service *CoreService) loadEntries(ctx context.Context) ([]ranking.Entry, error) {
	records, err := service.store.GetRecords(ctx, database.FieldID, database.FieldMeta)
	if err != nil {
		return nil, storeError("load metadata", err)
	}

	entries := make([]ranking.Entry, len(records))
	for i, r := range records {
		entries[i] = ranking.Entry{ID: r.ID, Meta: metadata.Decode(r.Meta)}
	}
	return entries, nil
}

// sampleSizes returns the payload sizes of the most recent records
func (service *CoreService) sampleSizes(ctx context.Context) ([]int, error) {
	records, err := service.store.ListRange(ctx, 0, service.config.Stats.SampleSize, database.OrderByIDDesc)
	if err != nil {
		return nil, storeError("load size sample", err)
	}

	sizes := make([]int, len(records))
	for i, r := range records {
		sizes[i] = len(r.Data)
	}
	return sizes, nil
}
