// Package crawler keeps the lookup store current by scraping the published
// inspection tables.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"inspectbot/internal/config"
	"inspectbot/internal/metrics"
	"inspectbot/internal/models"
)

// ErrAlreadyRunning is returned when a pass is requested while one is in flight.
var ErrAlreadyRunning = errors.New("crawl already running")

// Writer is the write side of the lookup store.
type Writer interface {
	InsertItem(ctx context.Context, category models.Domain, foodType, items string) error
	InsertCycle(ctx context.Context, category models.Domain, businessType models.BusinessType, foodGroup, foodType, cycle string) error
	InsertInfo(ctx context.Context, category, topic, details, sourceURL string) error
	RecordCrawl(ctx context.Context, crawlType, status, message string) error
}

// Notifier is told about passes that wrote nothing.
type Notifier interface {
	NotifyCrawlFailed(ctx context.Context, summary *models.CrawlSummary) error
}

// BusinessTypeNode locates the cycle table of one business type.
type BusinessTypeNode struct {
	BusinessType models.BusinessType
	NodeID       string
}

// Source is where one category's tables are published.
type Source struct {
	Category      models.Domain
	ItemURL       string
	ItemNodeID    string
	CycleURL      string
	BusinessTypes []BusinessTypeNode
}

// SourcesFromConfig validates the configured sources.
func SourcesFromConfig(cfg *config.YAMLConfig) ([]Source, error) {
	var out []Source
	for _, sc := range cfg.Sources {
		category, ok := models.ParseDomain(sc.Category)
		if !ok {
			return nil, fmt.Errorf("unknown source category %q", sc.Category)
		}
		src := Source{
			Category:   category,
			ItemURL:    sc.ItemURL,
			ItemNodeID: sc.ItemPopupID,
			CycleURL:   sc.CycleURL,
		}
		for _, bt := range sc.BusinessTypes {
			businessType, ok := models.ParseBusinessType(bt.Name)
			if !ok || !businessType.BelongsTo(category) {
				return nil, fmt.Errorf("business type %q does not belong to %s", bt.Name, category)
			}
			src.BusinessTypes = append(src.BusinessTypes, BusinessTypeNode{BusinessType: businessType, NodeID: bt.NodeID})
		}
		out = append(out, src)
	}
	return out, nil
}

// Options configures a Pipeline. Store, Fetcher and Renderer are required.
type Options struct {
	Store    Writer
	Sources  []Source
	// InfoPages are rendered after the cycle pages. Optional.
	InfoPages []InfoPage
	Fetcher   Fetcher
	Renderer Renderer
	// Archive and Notifier are optional.
	Archive  Archive
	Notifier Notifier
	Logger   *zap.Logger
	// Workers bounds concurrent static fetches. Defaults to 4.
	Workers int
}

// Pipeline runs acquisition passes. At most one pass runs at a time.
type Pipeline struct {
	store     Writer
	sources   []Source
	infoPages []InfoPage
	fetcher   Fetcher
	renderer Renderer
	archive  Archive
	notifier Notifier
	logger   *zap.Logger
	workers  int

	running atomic.Bool
	now     func() time.Time
}

// NewPipeline creates a pipeline.
func NewPipeline(opts Options) *Pipeline {
	p := &Pipeline{
		store:     opts.Store,
		sources:   opts.Sources,
		infoPages: opts.InfoPages,
		fetcher:   opts.Fetcher,
		renderer: opts.Renderer,
		archive:  opts.Archive,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		workers:  opts.Workers,
		now:      time.Now,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.workers <= 0 {
		p.workers = 4
	}
	return p
}

// Running reports whether a pass is in flight.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// pass accumulates the outcome of one Run.
type pass struct {
	summary models.CrawlSummary
}

func (ps *pass) fail(unit string, err error) {
	ps.summary.Failures = append(ps.summary.Failures, fmt.Sprintf("%s: %v", unit, err))
}

// Run performs one full pass: item tables first, then cycle tables, then info
// popups. Failing units are logged and skipped. Exactly one crawl log entry is
// written, marked failed only when nothing was stored.
func (p *Pipeline) Run(ctx context.Context) (*models.CrawlSummary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	ps := &pass{summary: models.CrawlSummary{RunID: uuid.NewString(), StartedAt: p.now()}}
	log := p.logger.With(zap.String("run_id", ps.summary.RunID))
	log.Info("crawl started", zap.Int("sources", len(p.sources)), zap.Int("info_pages", len(p.infoPages)))

	p.crawlItems(ctx, log, ps)
	p.crawlRendered(ctx, log, ps)

	s := &ps.summary
	s.Duration = p.now().Sub(s.StartedAt)
	if total := s.Total(); total > 0 {
		s.Status = models.CrawlStatusSuccess
		s.Message = fmt.Sprintf("총 %d개 데이터 저장", total)
	} else {
		s.Status = models.CrawlStatusFailed
		s.Message = "데이터 저장 실패"
	}
	metrics.ObserveCrawl(s.Status, s.Items, s.Cycles, s.Info, s.Duration)

	// Record the pass even if ctx was cancelled.
	logCtx := context.WithoutCancel(ctx)
	var err error
	if recErr := p.store.RecordCrawl(logCtx, models.CrawlTypeAll, s.Status, s.Message); recErr != nil {
		err = fmt.Errorf("failed to record crawl: %w", recErr)
		log.Error("failed to record crawl", zap.Error(recErr))
	}

	fields := []zap.Field{
		zap.String("status", s.Status),
		zap.Int("items", s.Items),
		zap.Int("cycles", s.Cycles),
		zap.Int("info", s.Info),
		zap.Int("failures", len(s.Failures)),
		zap.Duration("duration", s.Duration),
	}
	if s.Status == models.CrawlStatusFailed {
		log.Error("crawl wrote no records", fields...)
		if p.notifier != nil {
			if nErr := p.notifier.NotifyCrawlFailed(logCtx, s); nErr != nil {
				log.Warn("failed to send crawl alert", zap.Error(nErr))
			}
		}
	} else {
		log.Info("crawl finished", fields...)
	}

	return s, err
}

// crawlItems fetches the static item pages concurrently and stores their rows
// in source order.
func (p *Pipeline) crawlItems(ctx context.Context, log *zap.Logger, ps *pass) {
	rows := make([][]ItemRow, len(p.sources))
	errs := make([]error, len(p.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, src := range p.sources {
		if src.ItemURL == "" {
			continue
		}
		g.Go(func() error {
			page, err := p.fetcher.Fetch(gctx, src.ItemURL)
			if err != nil {
				errs[i] = err
				return nil
			}
			p.snapshot(gctx, log, ps.summary.RunID, "items", string(src.Category), page)
			rows[i], errs[i] = ParseItems(strings.NewReader(page), src.ItemNodeID)
			return nil
		})
	}
	_ = g.Wait()

	for i, src := range p.sources {
		unit := fmt.Sprintf("items/%s", src.Category)
		if errs[i] != nil {
			log.Warn("skipping item source", zap.String("category", string(src.Category)), zap.Error(errs[i]))
			ps.fail(unit, errs[i])
			continue
		}
		written := 0
		for _, r := range rows[i] {
			if err := p.store.InsertItem(ctx, src.Category, r.FoodType, r.Items); err != nil {
				log.Error("failed to store item", zap.String("food_type", r.FoodType), zap.Error(err))
				continue
			}
			written++
		}
		ps.summary.Items += written
		if src.ItemURL != "" {
			log.Info("items stored", zap.String("category", string(src.Category)), zap.Int("count", written))
		}
	}
}

// crawlRendered runs the phases that need the renderer and releases it when
// they end.
func (p *Pipeline) crawlRendered(ctx context.Context, log *zap.Logger, ps *pass) {
	defer func() {
		if err := p.renderer.Close(); err != nil {
			log.Warn("failed to close renderer", zap.Error(err))
		}
	}()

	p.crawlCycles(ctx, log, ps)
	p.crawlInfo(ctx, log, ps)
}

// crawlCycles renders each cycle page once and parses every business type
// node on it.
func (p *Pipeline) crawlCycles(ctx context.Context, log *zap.Logger, ps *pass) {
	for _, src := range p.sources {
		if src.CycleURL == "" || len(src.BusinessTypes) == 0 {
			continue
		}
		page, err := p.renderer.Render(ctx, src.CycleURL)
		if err != nil {
			log.Warn("skipping cycle source", zap.String("category", string(src.Category)), zap.Error(err))
			ps.fail(fmt.Sprintf("cycles/%s", src.Category), err)
			continue
		}
		p.snapshot(ctx, log, ps.summary.RunID, "cycles", string(src.Category), page)

		doc, err := html.Parse(strings.NewReader(page))
		if err != nil {
			ps.fail(fmt.Sprintf("cycles/%s", src.Category), err)
			continue
		}
		for _, node := range src.BusinessTypes {
			rows, err := parseCycleNode(doc, node.NodeID)
			if err != nil {
				log.Warn("skipping business type", zap.String("business_type", string(node.BusinessType)), zap.Error(err))
				ps.fail(fmt.Sprintf("cycles/%s/%s", src.Category, node.BusinessType), err)
				continue
			}
			written := 0
			for _, r := range rows {
				if err := p.store.InsertCycle(ctx, src.Category, node.BusinessType, r.FoodGroup, r.FoodType, r.Cycle); err != nil {
					log.Error("failed to store cycle", zap.String("food_type", r.FoodType), zap.Error(err))
					continue
				}
				written++
			}
			ps.summary.Cycles += written
			log.Info("cycles stored", zap.String("business_type", string(node.BusinessType)), zap.Int("count", written))
		}
	}
}

// crawlInfo renders each info page once and stores every popup found on it.
func (p *Pipeline) crawlInfo(ctx context.Context, log *zap.Logger, ps *pass) {
	for _, page := range p.infoPages {
		unit := fmt.Sprintf("info/%s", page.Category)
		body, err := p.renderer.Render(ctx, page.URL)
		if err != nil {
			log.Warn("skipping info page", zap.String("category", page.Category), zap.Error(err))
			ps.fail(unit, err)
			continue
		}
		p.snapshot(ctx, log, ps.summary.RunID, "info", page.Category, body)

		doc, err := html.Parse(strings.NewReader(body))
		if err != nil {
			ps.fail(unit, err)
			continue
		}
		base, _ := url.Parse(page.URL)

		written := 0
		for _, popup := range page.Popups {
			entry, err := parseInfoPopup(doc, base, popup)
			if err != nil {
				log.Warn("skipping info popup", zap.String("category", page.Category), zap.String("popup", popup.ID), zap.Error(err))
				ps.fail(fmt.Sprintf("%s/%s", unit, popup.ID), err)
				continue
			}
			if err := p.store.InsertInfo(ctx, page.Category, entry.Topic, entry.Details, page.URL); err != nil {
				log.Error("failed to store info", zap.String("topic", entry.Topic), zap.Error(err))
				continue
			}
			written++
		}
		ps.summary.Info += written
		log.Info("info stored", zap.String("category", page.Category), zap.Int("count", written))
	}
}

func (p *Pipeline) snapshot(ctx context.Context, log *zap.Logger, runID, kind, category, page string) {
	if p.archive == nil {
		return
	}
	if err := p.archive.Put(ctx, snapshotKey(runID, kind, category), page); err != nil {
		log.Warn("failed to archive page", zap.String("kind", kind), zap.Error(err))
	}
}
