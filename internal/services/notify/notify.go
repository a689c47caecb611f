package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
)

const (
	EventTicketResolved = "ticket_resolved"

	resolvedTitle = "Item found!"
	resolvedBody  = "One of our specialists sourced an item for you."
)

var ErrTransport = errors.New("notification transport failed")

type Payload struct {
	Type     string `json:"type"`
	TicketID int64  `json:"ticket_id"`
	UserID   string `json:"user_id"`
}

// Message is what a push transport delivers to a single user.
type Message struct {
	UserID string  `json:"user_id"`
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	Data   Payload `json:"data"`
}

type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
)

// Result reports what happened to one dispatch. Err is set only for OutcomeFailed.
type Result struct {
	TicketID int64
	Outcome  Outcome
	Err      error
}

//go:generate mockery --name=Transport --dir=. --output=./mocks --filename=transport_mock.go --outpkg=mocks
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Marker claims the single dispatch attempt a resolution is allowed.
type Marker interface {
	Mark(ctx context.Context, ticketID int64) (bool, error)
}

type Dispatcher struct {
	log         *slog.Logger
	transport   Transport
	marks       Marker
	sendTimeout time.Duration
	outcomes    *prometheus.CounterVec
}

func New(log *slog.Logger, transport Transport, marks Marker, sendTimeout time.Duration, reg prometheus.Registerer) *Dispatcher {
	if marks == nil {
		marks = NewLocalMarks()
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}

	return &Dispatcher{
		log:         log,
		transport:   transport,
		marks:       marks,
		sendTimeout: sendTimeout,
		outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "opsconsole",
			Name:      "notifications_total",
			Help:      "Ticket resolution notifications by outcome.",
		}, []string{"result"}),
	}
}

func ResolvedMessage(t models.Ticket) Message {
	return Message{
		UserID: t.UserID,
		Title:  resolvedTitle,
		Body:   resolvedBody,
		Data: Payload{
			Type:     EventTicketResolved,
			TicketID: t.ID,
			UserID:   t.UserID,
		},
	}
}

// NotifyResolved starts the one delivery attempt for a resolved ticket and
// returns immediately. The channel yields exactly one Result and is then closed.
func (d *Dispatcher) NotifyResolved(ctx context.Context, t models.Ticket) <-chan Result {
	out := make(chan Result, 1)

	go func() {
		defer close(out)

		res := d.dispatch(ctx, t)
		d.outcomes.WithLabelValues(string(res.Outcome)).Inc()
		out <- res
	}()

	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, t models.Ticket) Result {
	const op = "services.notify.dispatch"

	log := d.log.With(
		slog.String("op", op),
		slog.Int64("ticket_id", t.ID),
		slog.String("user_id", t.UserID),
	)

	claimed, err := d.marks.Mark(ctx, t.ID)
	switch {
	case err != nil:
		// mark store down: deliver without the at-most-once guard
		log.Warn("failed to record dispatch mark, sending anyway", sl.Err(err))
	case !claimed:
		log.Info("notification already dispatched, skipping")
		return Result{TicketID: t.ID, Outcome: OutcomeDuplicate}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.transport.Send(sendCtx, ResolvedMessage(t)); err != nil {
		log.Error("failed to send notification", sl.Err(err))
		return Result{
			TicketID: t.ID,
			Outcome:  OutcomeFailed,
			Err:      fmt.Errorf("%s: %w: %w", op, ErrTransport, err),
		}
	}

	log.Info("notification sent")

	return Result{TicketID: t.ID, Outcome: OutcomeSent}
}

// LocalMarks keeps dispatch marks in process memory, for setups without Redis.
type LocalMarks struct {
	mu   sync.Mutex
	seen map[int64]struct{}
}

func NewLocalMarks() *LocalMarks {
	return &LocalMarks{seen: make(map[int64]struct{})}
}

func (m *LocalMarks) Mark(_ context.Context, ticketID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[ticketID]; ok {
		return false, nil
	}
	m.seen[ticketID] = struct{}{}

	return true, nil
}
