package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"cardledger/internal/amqp"
	"cardledger/internal/core"
	"cardledger/internal/debt"
)

// CreateCard validates in and adds an active card. A blank limit falls back
// to the configured default.
func (s *LedgerService) CreateCard(ctx context.Context, in core.CardInput) (core.Card, error) {
	if strings.TrimSpace(in.Limit) == "" && !s.opts.DefaultCardLimit.IsZero() {
		in.Limit = s.opts.DefaultCardLimit.String()
	}
	c, err := core.NewCard(in)
	if err != nil {
		return core.Card{}, fmt.Errorf("new card: %w", err)
	}
	err = s.mutate(ctx, "create_card", func(doc *core.Document) error {
		doc.Cards = append(doc.Cards, c)
		return nil
	})
	if err == nil {
		slog.InfoContext(ctx, "Card created", "id", c.ID, "name", c.Name)
	}
	return c, err
}

// UpdateCard overwrites the editable fields of an existing card.
func (s *LedgerService) UpdateCard(ctx context.Context, id string, in core.CardInput) (core.Card, error) {
	var out core.Card
	err := s.mutate(ctx, "update_card", func(doc *core.Document) error {
		c, ok := doc.Card(id)
		if !ok {
			return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
		}
		if strings.TrimSpace(in.Limit) == "" {
			in.Limit = c.Limit.String()
		}
		if err := in.ApplyTo(c); err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		out = *c
		return nil
	})
	return out, err
}

// ToggleCardStatus switches a card between active and sleeping.
func (s *LedgerService) ToggleCardStatus(ctx context.Context, id string) (core.CardStatus, error) {
	var status core.CardStatus
	err := s.mutate(ctx, "toggle_card", func(doc *core.Document) error {
		c, ok := doc.Card(id)
		if !ok {
			return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
		}
		switch c.Status {
		case core.CardActive:
			c.Status = core.CardSleeping
		case core.CardSleeping:
			c.Status = core.CardActive
		default:
			return fmt.Errorf("card %s: %w", id, ErrCardCancelled)
		}
		status = c.Status
		return nil
	})
	return status, err
}

// CancelCard cancels a card, optionally accelerating its open installments
// into a single cash charge dated today.
func (s *LedgerService) CancelCard(ctx context.Context, id string, accelerate bool) (debt.Acceleration, error) {
	var acc debt.Acceleration
	err := s.mutate(ctx, "cancel_card", func(doc *core.Document) error {
		var err error
		acc, err = debt.CancelCard(doc, id, accelerate, s.opts.Now())
		return err
	})
	if err != nil && !isNotDurable(err) {
		return debt.Acceleration{}, err
	}
	durable := err == nil
	slog.Log(ctx, outcomeLevel(durable), "Card cancelled",
		"id", id,
		"accelerate", accelerate,
		"closed", len(acc.Closed),
		"charged", acc.Total.String(),
		"durable", durable)
	s.publish(ctx, amqp.EventCardCancelled, map[string]string{
		"card_id":    id,
		"accelerate": strconv.FormatBool(accelerate),
		"closed":     strconv.Itoa(len(acc.Closed)),
		"charged":    acc.Total.StringFixed(2),
		"durable":    strconv.FormatBool(durable),
	})
	return acc, err
}

// MigrateDebt rebinds every expense of source to target.
func (s *LedgerService) MigrateDebt(ctx context.Context, source, target string, archive bool) (int, error) {
	var moved int
	err := s.mutate(ctx, "migrate_debt", func(doc *core.Document) error {
		var err error
		moved, err = debt.Migrate(doc, source, target, archive)
		return err
	})
	if err != nil && !isNotDurable(err) {
		return 0, err
	}
	durable := err == nil
	slog.Log(ctx, outcomeLevel(durable), "Debt migrated",
		"source", source,
		"target", target,
		"archive", archive,
		"moved", moved,
		"durable", durable)
	s.publish(ctx, amqp.EventDebtMigrated, map[string]string{
		"source":  source,
		"target":  target,
		"archive": strconv.FormatBool(archive),
		"moved":   strconv.Itoa(moved),
		"durable": strconv.FormatBool(durable),
	})
	return moved, err
}

// outcomeLevel logs changes that live only in memory as warnings.
func outcomeLevel(durable bool) slog.Level {
	if durable {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}
