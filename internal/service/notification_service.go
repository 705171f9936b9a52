package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goldtrade/internal/domain"
	"goldtrade/internal/metrics"
)

// NotificationService fans committed ledger events out to the realtime
// channel and every notification channel. Delivery is best effort.
type NotificationService struct {
	publisher domain.EventPublisher
	channels  []domain.NotificationChannel
	metrics   *metrics.LedgerMetrics
	log       *zap.Logger
	timeout   time.Duration
}

// NewNotificationService creates a new NotificationService. A nil publisher
// disables realtime events.
func NewNotificationService(publisher domain.EventPublisher, channels []domain.NotificationChannel, m *metrics.LedgerMetrics, log *zap.Logger, timeout time.Duration) *NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		publisher: publisher,
		channels:  channels,
		metrics:   m,
		log:       log.Named("notify"),
		timeout:   timeout,
	}
}

// Emit dispatches in the background, bounded by the configured timeout
func (s *NotificationService) Emit(evt domain.LedgerEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_ = s.Dispatch(ctx, evt)
	}()
}

// Dispatch delivers evt everywhere concurrently and waits. Every failure is
// logged; the first one is returned.
func (s *NotificationService) Dispatch(ctx context.Context, evt domain.LedgerEvent) error {
	var g errgroup.Group

	if s.publisher != nil {
		g.Go(func() error {
			err := s.publisher.Publish(ctx, evt.Realtime())
			s.observe("realtime", evt, err)
			return err
		})
	}
	for _, ch := range s.channels {
		ch := ch
		g.Go(func() error {
			err := ch.Notify(ctx, evt)
			s.observe(ch.Name(), evt, err)
			return err
		})
	}
	return g.Wait()
}

func (s *NotificationService) observe(channel string, evt domain.LedgerEvent, err error) {
	s.metrics.ObserveNotification(channel, err)
	if err != nil {
		s.log.Warn("notification failed",
			zap.String("channel", channel),
			zap.String("event", evt.Name),
			zap.String("type", evt.Type),
			zap.Error(err),
		)
	}
}
