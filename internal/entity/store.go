package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/vtdash/internal/logging"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every provider call made through a Store
const DefaultTimeout = 3 * time.Second

// Provider is the remote state service the Store reads from and writes to
type Provider interface {
	// ListEntities fetches every entity the remote side knows about
	ListEntities(ctx context.Context) ([]*Entity, error)

	// SwitchState fetches the authoritative state of a single switch
	SwitchState(ctx context.Context, id string) (SwitchState, error)

	// SetSwitch requests a switch be turned on or off
	SetSwitch(ctx context.Context, id string, on bool) error
}

// Store is the single authoritative set of entities, keyed by id.
// The set of ids is fixed by Load; Refresh only updates existing entities.
type Store struct {
	provider Provider
	timeout  time.Duration

	byID  map[string]*Entity
	order []string
}

// NewStore creates an empty store backed by provider.
// A zero timeout uses DefaultTimeout.
func NewStore(provider Provider, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		provider: provider,
		timeout:  timeout,
		byID:     make(map[string]*Entity),
	}
}

// Load fetches the initial entity set. On failure the store stays empty and
// the error is returned for logging.
func (s *Store) Load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entities, err := s.provider.ListEntities(ctx)
	if err != nil {
		return fmt.Errorf("failed to load entities: %w", err)
	}

	s.byID = make(map[string]*Entity, len(entities))
	s.order = s.order[:0]
	for _, e := range entities {
		if e == nil || e.ID == "" {
			continue
		}
		if _, exists := s.byID[e.ID]; exists {
			continue
		}
		s.byID[e.ID] = e
		s.order = append(s.order, e.ID)
	}

	logging.Debug("Loaded entities", zap.Int("count", len(s.order)))
	return nil
}

// Refresh fetches the current state and merges it into the existing
// entities in place. Entity identity is preserved; new ids are ignored.
func (s *Store) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fresh, err := s.provider.ListEntities(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh entities: %w", err)
	}

	merged := 0
	for _, e := range fresh {
		if e == nil {
			continue
		}
		if existing, ok := s.byID[e.ID]; ok && existing.merge(e) {
			merged++
		}
	}

	logging.Debug("Refreshed entities",
		zap.Int("fetched", len(fresh)),
		zap.Int("merged", merged),
	)
	return nil
}

// Get looks up an entity by id
func (s *Store) Get(id string) (*Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Len returns the number of entities in the store
func (s *Store) Len() int {
	return len(s.order)
}

// IDs returns entity ids in the order the provider listed them
func (s *Store) IDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// SetSwitch requests a new state and then re-reads the authoritative one.
// The written value is never trusted: if the re-read fails the state
// becomes SwitchUnknown.
func (s *Store) SetSwitch(ctx context.Context, id string, on bool) error {
	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("unknown entity %q", id)
	}
	if e.Kind != KindSwitch {
		return fmt.Errorf("entity %q is a %s, not a switch", id, e.Kind)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var writeErr error
	if err := s.provider.SetSwitch(ctx, id, on); err != nil {
		logging.Warn("Failed to update switch",
			zap.String("entity_id", id),
			zap.Bool("on", on),
			zap.Error(err),
		)
		writeErr = fmt.Errorf("failed to update %s: %w", id, err)
	}

	state, err := s.provider.SwitchState(ctx, id)
	if err != nil {
		logging.Warn("Failed to re-read switch state",
			zap.String("entity_id", id),
			zap.Error(err),
		)
		e.Switch = SwitchUnknown
		if writeErr == nil {
			writeErr = fmt.Errorf("failed to read %s: %w", id, err)
		}
		return writeErr
	}

	e.Switch = state
	return writeErr
}

// Toggle flips a switch. An unknown state is treated as off.
func (s *Store) Toggle(ctx context.Context, id string) error {
	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("unknown entity %q", id)
	}
	return s.SetSwitch(ctx, id, e.Switch != SwitchOn)
}
