package chat

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fazpramim/portal/internal/goroutine"
	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
)

const (
	DefaultInterval   = 3 * time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// Fetcher возвращает текущий список сообщений чата.
type Fetcher func(ctx context.Context) ([]models.ChatMessage, error)

// Options параметры опроса.
type Options struct {
	Interval   time.Duration
	MaxBackoff time.Duration
	// Fields добавляются в логи подписки (session_id, request_id).
	Fields logrus.Fields
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxBackoff < o.Interval {
		o.MaxBackoff = DefaultMaxBackoff
		if o.MaxBackoff < o.Interval {
			o.MaxBackoff = o.Interval
		}
	}
	return o
}

// Subscription отменяемая подписка на новые сообщения чата.
// Канал Messages закрывается, когда подписка остановлена.
type Subscription struct {
	out    chan []models.ChatMessage
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Subscribe запускает опрос: первый запрос сразу, затем каждые Interval.
// При подряд идущих ошибках задержка удваивается до MaxBackoff, успешный
// ответ возвращает ее к Interval. Ошибки доступа и отсутствия заявки
// останавливают подписку.
func Subscribe(ctx context.Context, fetch Fetcher, opts Options) *Subscription {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	s := &Subscription{
		out:    make(chan []models.ChatMessage, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		defer close(s.done)
		defer close(s.out)
		defer cancel()
		s.loop(ctx, fetch, opts)
	})
	return s
}

// Messages новые сообщения, каждое отдается один раз.
func (s *Subscription) Messages() <-chan []models.ChatMessage {
	return s.out
}

// Done закрывается после остановки опроса.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err причина остановки, nil если подписку остановили Stop или отменой контекста.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop останавливает опрос и ждет завершения горутины.
func (s *Subscription) Stop() {
	s.cancel()
	<-s.done
}

func (s *Subscription) loop(ctx context.Context, fetch Fetcher, opts Options) {
	log := logger.WithComponent("chat").WithFields(opts.Fields)
	seen := make(map[int64]struct{})
	failures := 0

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		msgs, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if stops(err) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				log.WithError(err).Info("опрос чата остановлен")
				return
			}
			failures++
			delay := NextDelay(opts.Interval, opts.MaxBackoff, failures)
			log.WithError(err).WithFields(logrus.Fields{
				"failures": failures,
				"delay":    delay.String(),
			}).Warn("не удалось получить сообщения чата")
			timer.Reset(delay)
			continue
		}

		failures = 0
		if fresh := unseen(seen, msgs); len(fresh) > 0 {
			select {
			case s.out <- fresh:
			case <-ctx.Done():
				return
			}
		}
		timer.Reset(opts.Interval)
	}
}

// NextDelay задержка после failures подряд неудачных запросов.
func NextDelay(interval, maxBackoff time.Duration, failures int) time.Duration {
	delay := interval
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// stops ошибки, после которых повторять запрос бессмысленно.
func stops(err error) bool {
	return apperror.IsUnauthorized(err) || apperror.IsForbidden(err) || apperror.IsNotFound(err)
}

func unseen(seen map[int64]struct{}, msgs []models.ChatMessage) []models.ChatMessage {
	var fresh []models.ChatMessage
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	return fresh
}
