// Package ocr extracts a food type from a photographed document, guarded by a
// usage quota.
package ocr

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"inspectbot/internal/models"
)

// Messages surfaced to the user when extraction does not succeed.
const (
	MsgQuotaMonth  = "이번 달 이미지 인식 횟수를 초과했습니다."
	MsgQuotaDay    = "오늘 이미지 인식 횟수를 초과했습니다."
	MsgUnavailable = "이미지 인식 기능이 아직 준비 중입니다."
	MsgFailed      = "이미지 처리 중 오류가 발생했습니다."
	MsgNotFound    = "이미지에서 식품유형을 찾지 못했습니다."
)

var (
	ErrQuotaExceeded = errors.New("image extraction quota exceeded")
	ErrUnavailable   = errors.New("image extraction unavailable")
	ErrNoFoodType    = errors.New("no food type found in image")
)

// Extractor reads a food type out of the image at imageURL.
type Extractor interface {
	Extract(ctx context.Context, imageURL string) (string, error)
}

// UsageStore persists per-day call counters.
type UsageStore interface {
	IncrementUsage(ctx context.Context, apiType string) error
	UsageCount(ctx context.Context, apiType string, since time.Time) (int, error)
}

// Window is the period a quota limit applies to.
type Window string

const (
	WindowMonth Window = "month"
	WindowDay   Window = "day"
)

// Config bounds how the extractor may be used.
type Config struct {
	Limit   int
	Window  Window
	Timeout time.Duration
}

// Result mirrors what the dialogue needs to know about one extraction.
type Result struct {
	Success        bool
	FoodType       string
	Message        string
	RemainingQuota int
}

// Service guards an Extractor with a quota and a timeout.
type Service struct {
	extractor Extractor
	usage     UsageStore
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time

	// reserveMu serializes the quota check with the counter increment.
	reserveMu sync.Mutex
}

// NewService creates the image extraction service. A nil extractor yields a
// service that is never available.
func NewService(extractor Extractor, usage UsageStore, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window != WindowDay {
		cfg.Window = WindowMonth
	}
	return &Service{
		extractor: extractor,
		usage:     usage,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) windowStart() time.Time {
	now := s.now()
	y, m, d := now.Date()
	if s.cfg.Window == WindowDay {
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	}
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

func (s *Service) quotaMessage() string {
	if s.cfg.Window == WindowDay {
		return MsgQuotaDay
	}
	return MsgQuotaMonth
}

// Remaining returns how many extractions are left in the current window.
// It is 0 when no extractor is configured or the counter cannot be read.
func (s *Service) Remaining(ctx context.Context) int {
	if s.extractor == nil || s.usage == nil {
		return 0
	}
	used, err := s.usage.UsageCount(ctx, models.APITypeVision, s.windowStart())
	if err != nil {
		s.logger.Warn("failed to read image quota", zap.Error(err))
		return 0
	}
	return max(s.cfg.Limit-used, 0)
}

// Available reports whether an image upload is worth offering.
func (s *Service) Available(ctx context.Context) bool {
	return s.Remaining(ctx) > 0
}

// reserve counts one extraction against the quota if any is left and returns
// what remains after it.
func (s *Service) reserve(ctx context.Context) (int, bool) {
	s.reserveMu.Lock()
	defer s.reserveMu.Unlock()

	remaining := s.Remaining(ctx)
	if remaining <= 0 {
		return 0, false
	}
	if err := s.usage.IncrementUsage(ctx, models.APITypeVision); err != nil {
		s.logger.Warn("failed to count image extraction", zap.Error(err))
	}
	return remaining - 1, true
}

// ExtractFoodType runs the extractor once, counting the attempt against the quota.
func (s *Service) ExtractFoodType(ctx context.Context, imageURL string) Result {
	if s.extractor == nil {
		return Result{Message: MsgUnavailable}
	}

	remaining, ok := s.reserve(ctx)
	if !ok {
		return Result{Message: s.quotaMessage()}
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	foodType, err := s.extractor.Extract(ctx, imageURL)
	switch {
	case errors.Is(err, ErrNoFoodType):
		return Result{Message: MsgNotFound, RemainingQuota: remaining}
	case errors.Is(err, ErrUnavailable):
		return Result{Message: MsgUnavailable, RemainingQuota: remaining}
	case err != nil:
		s.logger.Error("image extraction failed", zap.String("image_url", imageURL), zap.Error(err))
		return Result{Message: MsgFailed, RemainingQuota: remaining}
	}

	s.logger.Info("image extraction succeeded", zap.String("food_type", foodType), zap.Int("remaining", remaining))
	return Result{Success: true, FoodType: foodType, RemainingQuota: remaining}
}
