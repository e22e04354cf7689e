package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"receitas/internal/amqp"
	"receitas/internal/core"
	"receitas/internal/log"
	"receitas/internal/storage"
)

// EventPublisher receives an event after every successful write.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, event *amqp.EntryEvent) error
}

// EntryService owns the duplicate-month rule. Every write goes through it.
type EntryService struct {
	store     storage.Store
	publisher EventPublisher
	mode      core.MonthMode
	rule      core.DuplicateRule
}

// NewEntryService wires the service. publisher may be nil, in which case
// no events are emitted.
func NewEntryService(store storage.Store, publisher EventPublisher, mode core.MonthMode) *EntryService {
	return &EntryService{
		store:     store,
		publisher: publisher,
		mode:      mode,
		rule:      mode.Rule(),
	}
}

// Mode reports the active duplicate rule.
func (s *EntryService) Mode() core.MonthMode {
	return s.mode
}

// FindByID returns the entry with the given id.
func (s *EntryService) FindByID(ctx context.Context, id string) (core.Entry, error) {
	n, err := parseID("find entry", id)
	if err != nil {
		return core.Entry{}, err
	}
	return s.store.Get(ctx, n)
}

// FindByMonth returns the entries dated in the given month of the given year.
// A month outside 1..12 simply matches nothing.
func (s *EntryService) FindByMonth(ctx context.Context, month, year string) ([]core.Entry, error) {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return nil, core.Invalid("find by month", fmt.Sprintf("month %q is not a number", month))
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return nil, core.Invalid("find by month", fmt.Sprintf("year %q is not a number", year))
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	matches := make([]core.Entry, 0)
	for _, e := range all {
		if e.Date.Month() == m && e.Date.Year() == y {
			matches = append(matches, e)
		}
	}
	log.FromContext(ctx).WithComponent(log.ComponentEntry).DebugContext(ctx, "Month filtered",
		log.NewFields().WithPeriod(y, m).With("count", len(matches)).ToSlice()...)
	return matches, nil
}

func (s *EntryService) FindAll(ctx context.Context) ([]core.Entry, error) {
	return s.store.List(ctx)
}

// FindAllByDescription matches the description exactly, ignoring case.
func (s *EntryService) FindAllByDescription(ctx context.Context, description string) ([]core.Entry, error) {
	return s.store.ListByDescription(ctx, description)
}

// Save validates e, rejects it when an entry with the same description
// already exists in the same month, and stores it.
func (s *EntryService) Save(ctx context.Context, e core.Entry) (core.Entry, error) {
	event := amqp.EventEntryCreated
	if !e.IsNew() {
		event = amqp.EventEntryUpdated
	}
	return s.save(ctx, e, event)
}

func (s *EntryService) save(ctx context.Context, e core.Entry, event amqp.EventType) (core.Entry, error) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentEntry)

	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	existing, err := s.FindAllByDescription(ctx, e.Description)
	if err != nil {
		return core.Entry{}, fmt.Errorf("load entries for %q: %w", e.Description, err)
	}

	// The legacy rule counts the entry's own stored row, so a re-save that
	// changes only the description's case collides with itself. Calendar
	// mode carries the corrected behavior and skips the own row.
	if !e.IsNew() && s.mode == core.CalendarMonth {
		others := existing[:0:0]
		for _, x := range existing {
			if x.ID != e.ID {
				others = append(others, x)
			}
		}
		existing = others
	}

	if s.rule(e, existing) {
		logger.WarnContext(ctx, "Duplicate entry rejected",
			log.NewFields().WithEntry(e).WithOperation(log.OpValidate).With(log.FieldRule, s.mode.String()).ToSlice()...)
		return core.Entry{}, core.AlreadyExists("save entry",
			fmt.Sprintf("an entry described %q already exists in month %d", e.Description, e.Date.Month()))
	}

	saved, err := s.store.Upsert(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("store entry: %w", err)
	}

	logger.InfoContext(ctx, "Entry saved",
		log.NewFields().WithEntry(saved).WithOperation(string(event)).ToSlice()...)
	s.publish(ctx, event, saved)
	return saved, nil
}

// Update replaces the entry stored under id. The stored id always wins over
// e.ID. The duplicate rule only runs when the description or the month changes.
func (s *EntryService) Update(ctx context.Context, e core.Entry, id string) (core.Entry, error) {
	stored, err := s.FindByID(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	e.ID = stored.ID

	if !s.mode.SameMonth(stored.Date, e.Date) || stored.Description != e.Description {
		return s.save(ctx, e, amqp.EventEntryUpdated)
	}

	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	saved, err := s.store.Upsert(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("store entry: %w", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentEntry).InfoContext(ctx, "Entry updated in place",
		log.NewFields().WithEntry(saved).WithOperation(log.OpUpdate).ToSlice()...)
	s.publish(ctx, amqp.EventEntryUpdated, saved)
	return saved, nil
}

// Delete removes the entry stored under id.
func (s *EntryService) Delete(ctx context.Context, id string) error {
	stored, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, stored); err != nil {
		return fmt.Errorf("delete entry %d: %w", stored.ID, err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentEntry).InfoContext(ctx, "Entry deleted",
		log.NewFields().WithEntry(stored).WithOperation(log.OpDelete).ToSlice()...)
	s.publish(ctx, amqp.EventEntryDeleted, stored)
	return nil
}

// publish never fails the caller: the write is already committed.
func (s *EntryService) publish(ctx context.Context, t amqp.EventType, e core.Entry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntryEvent(ctx, amqp.NewEntryEvent(t, e)); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentAMQP).ErrorContext(ctx, "Failed to publish entry event",
			log.NewFields().WithEntry(e).WithError(err).With(log.FieldEvent, string(t)).ToSlice()...)
	}
}

func parseID(op, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, core.Invalid(op, fmt.Sprintf("invalid entry id %q", s))
	}
	return id, nil
}
