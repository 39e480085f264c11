package events

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// GraduatedEvent is emitted after a graduation commit lands.
type GraduatedEvent struct {
	CustomerID  int64
	AccountID   int64
	OldSetLimit int64
	NewSetLimit int64
}

// Publisher is the outbound event contract. Events fire only after a
// successful commit; delivery is the collaborator's concern, so failures
// here never roll back ledger state.
type Publisher interface {
	Graduated(ctx context.Context, event GraduatedEvent)
	DowngradeAlertInvalidate(ctx context.Context, customerID int64)
}

type logPublisher struct {
	log *zap.Logger
}

// NewLogPublisher emits events as structured log entries. The messaging
// and analytics collaborators consume these downstream.
func NewLogPublisher(log *zap.Logger) Publisher {
	return &logPublisher{log: log.Named("events")}
}

func (p *logPublisher) Graduated(_ context.Context, event GraduatedEvent) {
	p.log.Info("account graduated",
		zap.Int64("customer_id", event.CustomerID),
		zap.Int64("account_id", event.AccountID),
		zap.Int64("old_set_limit", event.OldSetLimit),
		zap.Int64("new_set_limit", event.NewSetLimit),
	)
}

func (p *logPublisher) DowngradeAlertInvalidate(_ context.Context, customerID int64) {
	p.log.Info("downgrade alert invalidated",
		zap.Int64("customer_id", customerID),
	)
}

// Module provides the default publisher.
var Module = fx.Module("events",
	fx.Provide(NewLogPublisher),
)
