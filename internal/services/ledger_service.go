package services

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/loader"
	"finanzas/internal/log"
)

// LedgerService forwards writes and authentication to the ledger. After a
// successful write it drops cached data and announces the change.
type LedgerService struct {
	ledger    ledger.Ledger
	loader    *loader.Loader
	reports   *cache.Reports
	publisher amqp.Publisher
}

func NewLedgerService(l ledger.Ledger, ld *loader.Loader, reports *cache.Reports, publisher amqp.Publisher) *LedgerService {
	return &LedgerService{
		ledger:    l,
		loader:    ld,
		reports:   reports,
		publisher: publisher,
	}
}

// Create decodes raw as a record of r, resolves computed payment amounts and
// creates it.
func (s *LedgerService) Create(ctx context.Context, r ledger.Resource, raw []byte) (core.Record, error) {
	rec, err := s.decode(ctx, r, raw)
	if err != nil {
		return nil, err
	}
	created, err := s.ledger.Create(ctx, r, rec)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r, err)
	}
	id := ""
	if created != nil {
		id = created.RecordID()
	}
	s.changed(ctx, r, amqp.OpCreate, id)
	return created, nil
}

// Update replaces record id of r.
func (s *LedgerService) Update(ctx context.Context, r ledger.Resource, id string, raw []byte) (core.Record, error) {
	if !r.Updatable() {
		return nil, ledger.ErrUnsupported
	}
	rec, err := s.decode(ctx, r, raw)
	if err != nil {
		return nil, err
	}
	updated, err := s.ledger.Update(ctx, r, id, rec)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r, id, err)
	}
	s.changed(ctx, r, amqp.OpUpdate, id)
	return updated, nil
}

// Delete removes record id of r.
func (s *LedgerService) Delete(ctx context.Context, r ledger.Resource, id string) error {
	if err := s.ledger.Delete(ctx, r, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", r, id, err)
	}
	s.changed(ctx, r, amqp.OpDelete, id)
	return nil
}

func (s *LedgerService) decode(ctx context.Context, r ledger.Resource, raw []byte) (core.Record, error) {
	rec, err := ledger.DecodeRecord(r, raw)
	if err != nil {
		return nil, err
	}
	if p, ok := rec.(core.Payment); ok {
		return ledger.ResolvePayment(ctx, s.ledger, p)
	}
	return rec, nil
}

// changed invalidates the cached snapshot and reports and publishes the
// event. Publishing failures never fail the write.
func (s *LedgerService) changed(ctx context.Context, r ledger.Resource, op amqp.Operation, id string) {
	s.invalidate()

	log.NewStructuredLogger(log.FromContext(ctx)).LogLedgerWrite(ctx, string(op), string(r), id)

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping ledger change message")
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(string(r), op, id)); err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to publish ledger change message", err,
			log.ComponentAMQP, string(op), log.NewFields().WithRecord(string(r), id))
	}
}

func (s *LedgerService) invalidate() {
	if s.loader != nil {
		s.loader.Invalidate()
	}
	if s.reports != nil {
		s.reports.Invalidate()
	}
}

// Login authenticates against the ledger. A remote ledger keeps the token
// for later calls.
func (s *LedgerService) Login(ctx context.Context, c ledger.Credentials) (ledger.Session, error) {
	session, err := s.ledger.Login(ctx, c)
	if err != nil {
		return ledger.Session{}, err
	}
	// Data visible to the previous session is stale now.
	s.invalidate()
	slog.InfoContext(ctx, "Ledger session started", "subject", session.Subject)
	return session, nil
}

func (s *LedgerService) Register(ctx context.Context, c ledger.Credentials) (string, error) {
	return s.ledger.Register(ctx, c)
}

// Ready reports whether the ledger answers.
func (s *LedgerService) Ready(ctx context.Context) error {
	return s.ledger.Ping(ctx)
}
