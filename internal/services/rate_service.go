package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
)

// rateCacheKey is the cache key for the single configured rate.
const rateCacheKey = "cotizacion_usd"

// SettingsRepo is the storage surface for the configured exchange rate.
type SettingsRepo interface {
	ApplyTx(ctx context.Context, tx core.Transaction) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// RateService serves the manually configured ARS-per-USD rate. It
// implements core.RateProvider. Reads go through a TTL cache so the
// hot path of snapshot building does not hit storage every time.
type RateService struct {
	repo   SettingsRepo
	feed   FeedPublisher
	cache  cache.Cache[decimal.Decimal]
	logger *log.Logger
}

func NewRateService(repo SettingsRepo, feed FeedPublisher, c cache.Cache[decimal.Decimal], logger *log.Logger) *RateService {
	return &RateService{
		repo:   repo,
		feed:   feed,
		cache:  c,
		logger: logger.WithComponent(log.ComponentRates),
	}
}

// Rate returns the configured rate. There is no automatic source; when
// nothing has been configured yet the caller gets a validation error
// and must record a rate first.
func (s *RateService) Rate(ctx context.Context) (decimal.Decimal, error) {
	if rate, ok := s.cache.Get(rateCacheKey); ok {
		return rate, nil
	}

	raw, found, err := s.repo.GetSetting(ctx, core.SettingCotizacionUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading rate setting: %w", err)
	}
	if !found {
		return decimal.Zero, fmt.Errorf("no exchange rate configured: %w", core.ErrInvalidRate)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("stored rate %q: %w", raw, core.ErrInvalidRate)
	}

	s.cache.Set(rateCacheKey, rate)
	return rate, nil
}

// SetRate records a new rate and invalidates the cached value. The
// change is published on the feed so mirrors pick it up.
func (s *RateService) SetRate(ctx context.Context, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return core.ErrInvalidRate
	}

	var tx core.Transaction
	tx.Put(core.CollectionSettings, core.SettingCotizacionUSD, rate.String())
	if err := s.repo.ApplyTx(ctx, tx); err != nil {
		return fmt.Errorf("storing rate: %w", err)
	}
	s.cache.Delete(rateCacheKey)

	if s.feed != nil {
		event, err := amqp.NewRecordEvent(core.CollectionSettings, amqp.EventChanged, core.SettingCotizacionUSD, rate.String())
		if err == nil {
			err = s.feed.PublishRecordEvent(ctx, event)
		}
		if err != nil {
			s.logger.Error("publishing rate change",
				log.FieldError, err,
				log.FieldRate, rate.String())
		}
	}

	s.logger.Info("exchange rate updated",
		log.FieldOperation, log.OpSetRate,
		log.FieldRate, rate.String())
	return nil
}

var _ core.RateProvider = (*RateService)(nil)
