package suppliers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/inventaris/inventaris/internal/masterdata/shared"
	internalShared "github.com/inventaris/inventaris/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// EnforceUniqueContactOnUpdate applies the create-time contact info
	// uniqueness rule to updates as well. Off by default.
	EnforceUniqueContactOnUpdate bool
}

// Service coordinates supplier operations.
type Service struct {
	repo      Repository
	audit     AuditPort
	cache     ListCache
	events    EventPublisher
	logger    *slog.Logger
	cfg       ServiceConfig
	validator *validator.Validate
	clock     func() time.Time
}

// NewService builds Service. audit, cache and events are optional.
func NewService(repo Repository, audit AuditPort, cache ListCache, events EventPublisher, logger *slog.Logger, cfg ServiceConfig) *Service {
	return &Service{
		repo:      repo,
		audit:     audit,
		cache:     cache,
		events:    events,
		logger:    logger,
		cfg:       cfg,
		validator: newValidator(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// List returns every supplier, newest id first.
func (s *Service) List(ctx context.Context) ([]Supplier, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}
	return s.cache.Fetch(ctx, s.repo.List)
}

// Get returns the supplier with id or shared.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new supplier. Field problems, including a contact
// info already used by another supplier (compared case-insensitively), are
// returned together as a *ValidationError and nothing is stored.
func (s *Service) Create(ctx context.Context, input CreateInput) (Supplier, error) {
	input = normalizeCreate(input)
	verr := &ValidationError{}
	if err := s.validate(input, verr); err != nil {
		return Supplier{}, err
	}

	var created Supplier
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.ContactInfo != "" {
			if err := tx.LockContact(ctx, input.ContactInfo); err != nil {
				return err
			}
			taken, err := tx.ContactInfoTaken(ctx, input.ContactInfo, 0)
			if err != nil {
				return err
			}
			if taken {
				verr.Add(FieldContactInfo, msgDuplicateContact)
			}
		}
		if !verr.empty() {
			return verr
		}
		now := s.now()
		var err error
		created, err = tx.Create(ctx, Supplier{
			SupplierName: input.SupplierName,
			ContactInfo:  input.ContactInfo,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})
	if err != nil {
		return Supplier{}, err
	}

	s.afterChange(ctx, ChangeCreated, created.ID, input.ActorID, map[string]any{
		"supplier_name": created.SupplierName,
		"contact_info":  created.ContactInfo,
	})
	return created, nil
}

// Update overwrites name and contact info of supplier id. input.ID must
// match id. A concurrent write detected at persist time yields
// shared.ErrConflict, or shared.ErrNotFound when the row has meanwhile been
// deleted. Conflicts are not retried.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Supplier, error) {
	if id <= 0 || input.ID == 0 || input.ID != id {
		return Supplier{}, shared.ErrNotFound
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}

	input = normalizeUpdate(input)
	verr := &ValidationError{}
	if err := s.validate(input, verr); err != nil {
		return Supplier{}, err
	}
	if s.cfg.EnforceUniqueContactOnUpdate && input.ContactInfo != "" {
		taken, err := s.repo.ContactInfoTaken(ctx, input.ContactInfo, id)
		if err != nil {
			return Supplier{}, err
		}
		if taken {
			verr.Add(FieldContactInfo, msgDuplicateContact)
		}
	}
	if !verr.empty() {
		return Supplier{}, verr
	}

	before := existing
	updated := existing
	updated.SupplierName = input.SupplierName
	updated.ContactInfo = input.ContactInfo
	updated.UpdatedAt = s.nextUpdatedAt(existing.UpdatedAt)

	if err := s.repo.Update(ctx, updated, existing.UpdatedAt); err != nil {
		if !errors.Is(err, shared.ErrConflict) {
			return Supplier{}, err
		}
		exists, existsErr := s.repo.Exists(ctx, id)
		if existsErr != nil {
			return Supplier{}, fmt.Errorf("suppliers: recheck %d after conflict: %w", id, existsErr)
		}
		if !exists {
			return Supplier{}, shared.ErrNotFound
		}
		return Supplier{}, fmt.Errorf("suppliers: update %d: %w", id, shared.ErrConflict)
	}

	s.afterChange(ctx, ChangeUpdated, id, input.ActorID, map[string]any{
		"before": map[string]any{"supplier_name": before.SupplierName, "contact_info": before.ContactInfo},
		"after":  map[string]any{"supplier_name": updated.SupplierName, "contact_info": updated.ContactInfo},
	})
	return updated, nil
}

// Delete removes supplier id. Deleting a missing supplier succeeds.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return nil
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if removed {
		s.afterChange(ctx, ChangeDeleted, id, actorID, nil)
	}
	return nil
}

// WarmCache repopulates the list cache from the store.
func (s *Service) WarmCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Refresh(ctx, s.repo.List)
}

func (s *Service) afterChange(ctx context.Context, kind ChangeKind, id, actorID int64, meta map[string]any) {
	logger := s.log().With(slog.Int64("supplier_id", id), slog.String("change", string(kind)))
	if s.audit != nil {
		err := s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  actorID,
			Action:   "supplier." + string(kind),
			Entity:   "supplier",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     meta,
			At:       s.now(),
		})
		if err != nil {
			logger.Warn("record supplier audit", slog.Any("error", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn("invalidate supplier cache", slog.Any("error", err))
		}
	}
	if s.events != nil {
		err := s.events.PublishSupplierChanged(ctx, ChangedEvent{
			SupplierID: id,
			Kind:       kind,
			ActorID:    actorID,
			OccurredAt: s.now(),
		})
		if err != nil {
			logger.Warn("publish supplier event", slog.Any("error", err))
		}
	}
}

// nextUpdatedAt returns the current time, or prev plus one microsecond when
// the clock has not advanced past prev.
func (s *Service) nextUpdatedAt(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

// now is truncated to the precision PostgreSQL stores for timestamptz.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func (s *Service) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
