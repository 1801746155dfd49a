package notify

import (
	"context"
	"fmt"
	"time"

	"med-reminder/internal/domain/status"
	"med-reminder/internal/platform/breaker"
	"med-reminder/internal/platform/logger"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Notifier empuja tuplas (name, dosage, time) de los próximos
// medicamentos al webhook del scheduler de notificaciones. El scheduler
// no sabe nada de persistencia: solo recibe las tuplas.
//
// Un intento por tick, sin reintentos: si el webhook viene fallando,
// el breaker corta los envíos por un rato en vez de insistir.
type Notifier struct {
	client   *resty.Client
	engine   *status.Engine
	log      logger.Logger
	br       *breaker.Breaker
	interval time.Duration
	hours    int
}

type Options struct {
	WebhookURL string
	Interval   time.Duration // default 1m
	Hours      int           // ventana de próximos (default 4)
	Logger     logger.Logger
}

func New(engine *status.Engine, opts Options) *Notifier {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Hours <= 0 {
		opts.Hours = 4
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	client := resty.New().
		SetBaseURL(opts.WebhookURL).
		SetTimeout(10 * time.Second)

	return &Notifier{
		client:   client,
		engine:   engine,
		log:      opts.Logger,
		br:       breaker.New(breaker.Options{Threshold: 5, Cooldown: 5 * time.Minute}),
		interval: opts.Interval,
		hours:    opts.Hours,
	}
}

type reminderPayload struct {
	DeliveryID string                 `json:"deliveryId"`
	SentAt     time.Time              `json:"sentAt"`
	Reminders  []status.ReminderTuple `json:"reminders"`
}

// Run manda recordatorios cada interval hasta que el contexto muera.
func (n *Notifier) Run(ctx context.Context) {
	t := time.NewTicker(n.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			n.log.Info("notifier stopped", nil)
			return
		case <-t.C:
			if err := n.pushOnce(ctx); err != nil {
				n.log.Warn("reminder push failed", map[string]any{"err": err.Error()})
			}
		}
	}
}

func (n *Notifier) pushOnce(ctx context.Context) error {
	tuples, err := n.engine.ReminderTuples(ctx, n.hours)
	if err != nil {
		return err
	}
	if len(tuples) == 0 {
		return nil
	}

	return n.br.Do(func() error {
		payload := reminderPayload{
			DeliveryID: uuid.NewString(),
			SentAt:     time.Now().UTC(),
			Reminders:  tuples,
		}

		resp, err := n.client.R().
			SetContext(ctx).
			SetBody(payload).
			Post("")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return &httpError{status: resp.StatusCode()}
		}

		n.log.Debug("reminders delivered", map[string]any{
			"delivery": payload.DeliveryID,
			"count":    len(tuples),
		})
		return nil
	})
}

type httpError struct {
	status int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.status)
}
