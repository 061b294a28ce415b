// Package pipeline orchestrates the full review run: extract per app and
// platform, normalize, merge, validate, enrich, publish outputs, back up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"reviewetl/internal/config"
	"reviewetl/internal/enricher"
	"reviewetl/internal/extractor"
	"reviewetl/internal/logger"
	"reviewetl/internal/merger"
	"reviewetl/internal/models"
	"reviewetl/internal/normalizer"
	"reviewetl/internal/report"
	"reviewetl/internal/storage"
	"reviewetl/internal/validator"
)

// ErrNoData indicates a run in which every source failed or returned
// nothing, so there is no table to publish.
var ErrNoData = errors.New("no review data extracted")

const (
	rawDirName       = "raw_data"
	processedDirName = "processed_data"
	aggregateDirName = "aggregate"
	combinedBaseName = "combined_reviews"
	manifestFileName = "manifest.json"
)

// Result is what a completed run produced.
type Result struct {
	Records     []*models.ReviewRecord
	Report      *validator.Report
	EnrichStats *enricher.Stats
	CombinedCSV string
}

// Pipeline wires the extractors, normalizer and downstream stages
// according to one Config.
type Pipeline struct {
	cfg       *config.Config
	log       *logger.Logger
	out       io.Writer
	appStore  *extractor.AppStore
	playStore *extractor.PlayStore
	reddit    *extractor.Reddit
	norm      *normalizer.Normalizer
}

// New builds a Pipeline from cfg. The summary report is printed to out.
func New(cfg *config.Config, log *logger.Logger, out io.Writer) *Pipeline {
	fetcher := extractor.NewFetcher(cfg.Pipeline.Retry, cfg.Pipeline.RequestsPerSecond)
	brands := normalizer.NewBrandResolver(cfg.Apps)

	p := &Pipeline{
		cfg:       cfg,
		log:       log,
		out:       out,
		appStore:  extractor.NewAppStore(fetcher, "", log),
		playStore: extractor.NewPlayStore(fetcher, "", log),
		norm:      normalizer.New(brands, log),
	}

	if cfg.Reddit.ClientID != "" {
		p.reddit = extractor.NewReddit(fetcher, cfg.Reddit, "", "", log)
	} else {
		log.Warn("no reddit credentials configured, reddit sources will be skipped")
	}

	return p
}

// Run executes the full pipeline for every enabled app. A failing source is
// logged and skipped; the run fails only when nothing at all was extracted.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	var tables []*models.Table

	expected := 0

	for _, app := range p.cfg.EnabledApps() {
		for _, platform := range models.MergeOrder {
			res, err := p.ExtractPlatform(ctx, app, platform)
			if err != nil {
				p.log.Error("extraction failed, skipping source",
					"app", app.Name, "platform", string(platform), "error", err)

				continue
			}

			if res == nil {
				continue
			}

			expected += res.RawCount
			tables = append(tables, res.Table)
		}
	}

	if len(tables) == 0 {
		return nil, ErrNoData
	}

	return p.Combine(ctx, tables, expected)
}

// ExtractPlatform runs one (app, platform) extraction: fetch, dump the raw
// rows, normalize, and write the processed CSV. Returns nil without error
// when the app is not configured for the platform.
func (p *Pipeline) ExtractPlatform(ctx context.Context, app config.AppConfig, platform models.Platform) (*normalizer.Result, error) {
	cutoff := p.cfg.LookbackCutoff(time.Now())

	var res *normalizer.Result

	switch platform {
	case models.PlatformAppStore:
		if app.AppStoreID == "" {
			return nil, nil
		}

		entries, err := p.appStore.Fetch(ctx, app.AppStoreID, cutoff)
		if err != nil {
			return nil, err
		}

		if err := p.writeRawAppStore(app, entries); err != nil {
			return nil, err
		}

		res, err = p.norm.NormalizeAppStore(entries, app.Name)
		if err != nil {
			return nil, err
		}
	case models.PlatformPlayStore:
		if app.PlayStoreID == "" {
			return nil, nil
		}

		reviews, err := p.playStore.Fetch(ctx, app.PlayStoreID, cutoff)
		if err != nil {
			return nil, err
		}

		if err := p.writeRawPlayStore(app, reviews); err != nil {
			return nil, err
		}

		res, err = p.norm.NormalizePlayStore(reviews, app.Name)
		if err != nil {
			return nil, err
		}
	case models.PlatformReddit:
		if app.Subreddit == "" || p.reddit == nil {
			return nil, nil
		}

		items, err := p.reddit.Fetch(ctx, app.Subreddit, cutoff)
		if err != nil {
			return nil, err
		}

		if err := p.writeRawReddit(app, items); err != nil {
			return nil, err
		}

		res, err = p.norm.NormalizeReddit(items, app.Name)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}

	processedPath := p.processedPath(app, platform)
	if err := storage.WriteReviews(processedPath, res.Table.Records); err != nil {
		return nil, err
	}

	p.log.Info("wrote processed reviews",
		"app", app.Name, "platform", string(platform),
		"rows", len(res.Table.Records), "dropped", res.Dropped, "file", processedPath)

	return res, nil
}

// Combine merges the per-source tables, validates, enriches when enabled,
// publishes the aggregate outputs and prints the summary. expected is the
// raw row count used for drop-ratio accounting; 0 defaults to the merged
// row count.
func (p *Pipeline) Combine(ctx context.Context, tables []*models.Table, expected int) (*Result, error) {
	merged, err := merger.Merge(tables)
	if err != nil {
		return nil, err
	}

	v := validator.New(p.cfg.Pipeline.DropRatioThreshold, p.log)
	clean, vreport := v.Validate(merged, expected)

	enriched := false

	var stats *enricher.Stats

	if p.cfg.Enrichment.Enabled {
		stats = p.enrich(ctx, clean)
		enriched = stats != nil
	}

	aggDir := filepath.Join(p.cfg.Pipeline.DataDir, aggregateDirName)
	csvPath := filepath.Join(aggDir, combinedBaseName+".csv")

	if err := storage.WriteReviews(csvPath, clean); err != nil {
		return nil, err
	}

	if err := storage.MirrorSQLite(filepath.Join(aggDir, combinedBaseName+".db"), clean); err != nil {
		return nil, err
	}

	if err := storage.MirrorXLSX(filepath.Join(aggDir, combinedBaseName+".xlsx"), clean); err != nil {
		return nil, err
	}

	manifest, err := storage.NewManifest(csvPath, vreport, enriched)
	if err != nil {
		return nil, err
	}

	if err := manifest.Write(filepath.Join(aggDir, manifestFileName)); err != nil {
		return nil, err
	}

	report.Print(p.out, report.Build(clean))

	if p.cfg.AWS.BackupEnabled {
		if err := p.backup(ctx); err != nil {
			// Backup is best effort; the published table is already
			// on disk.
			p.log.Error("backup failed", "error", err)
		}
	}

	p.log.Info("run complete",
		"rows_in", vreport.RowsIn, "rows_out", vreport.RowsOut,
		"dropped", vreport.DroppedTotal(), "drop_ratio", fmt.Sprintf("%.3f", vreport.DropRatio))

	return &Result{
		Records:     clean,
		Report:      vreport,
		EnrichStats: stats,
		CombinedCSV: csvPath,
	}, nil
}

// LoadTables rebuilds per-source tables from the processed CSVs of a
// previous extraction, for combine-only runs.
func (p *Pipeline) LoadTables() ([]*models.Table, int, error) {
	var tables []*models.Table

	total := 0

	for _, app := range p.cfg.EnabledApps() {
		for _, platform := range models.MergeOrder {
			path := p.processedPath(app, platform)

			if _, err := os.Stat(path); err != nil {
				continue
			}

			records, err := storage.ReadReviews(path)
			if err != nil {
				return nil, 0, err
			}

			total += len(records)
			tables = append(tables, &models.Table{Platform: platform, Records: records})
		}
	}

	if len(tables) == 0 {
		return nil, 0, ErrNoData
	}

	return tables, total, nil
}

// Backup mirrors the data directory to the configured S3 bucket.
func (p *Pipeline) Backup(ctx context.Context) (int, error) {
	backup, err := storage.NewS3Backup(ctx, p.cfg.AWS.Region, p.cfg.AWS.Bucket, p.cfg.AWS.Prefix, p.log)
	if err != nil {
		return 0, err
	}

	return backup.BackupDir(ctx, p.cfg.Pipeline.DataDir)
}

func (p *Pipeline) backup(ctx context.Context) error {
	_, err := p.Backup(ctx)

	return err
}

// enrich attaches sentiment, emotion and topic labels. Classifier setup
// failure downgrades the run to unenriched rather than failing it.
func (p *Pipeline) enrich(ctx context.Context, records []*models.ReviewRecord) *enricher.Stats {
	sentiment, emotion, topic, err := enricher.NewBedrockClassifiers(ctx, p.cfg.Enrichment)
	if err != nil {
		p.log.Warn("enrichment unavailable, continuing without labels", "error", err)

		return nil
	}

	return enricher.New(sentiment, emotion, topic, p.log).Enrich(ctx, records)
}

func (p *Pipeline) processedPath(app config.AppConfig, platform models.Platform) string {
	return filepath.Join(p.cfg.Pipeline.DataDir, app.Path, processedDirName, string(platform)+".csv")
}

func (p *Pipeline) rawPath(app config.AppConfig, platform models.Platform) string {
	return filepath.Join(p.cfg.Pipeline.DataDir, app.Path, rawDirName, string(platform)+".csv")
}

func (p *Pipeline) writeRawAppStore(app config.AppConfig, entries []models.AppStoreEntry) error {
	header := []string{"id", "title", "content", "rating", "author", "updated"}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.ID, e.Title, e.Content, e.Rating, e.Author, e.Updated})
	}

	return storage.WriteRows(p.rawPath(app, models.PlatformAppStore), header, rows)
}

func (p *Pipeline) writeRawPlayStore(app config.AppConfig, reviews []models.PlayStoreReview) error {
	header := []string{"review_id", "content", "score", "thumbs_up_count", "at"}

	rows := make([][]string, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, []string{
			r.ReviewID, r.Content, strconv.Itoa(r.Score), strconv.Itoa(r.ThumbsUpCount), r.At,
		})
	}

	return storage.WriteRows(p.rawPath(app, models.PlatformPlayStore), header, rows)
}

func (p *Pipeline) writeRawReddit(app config.AppConfig, items []models.RedditItem) error {
	header := []string{"id", "kind", "body", "author", "created_utc", "score", "permalink"}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.ID, it.Kind, it.Body, it.Author,
			strconv.FormatFloat(it.CreatedUTC, 'f', 0, 64), strconv.Itoa(it.Score), it.Permalink,
		})
	}

	return storage.WriteRows(p.rawPath(app, models.PlatformReddit), header, rows)
}
