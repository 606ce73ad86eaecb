package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/cineverse/cineverse/backend/go-services/internal/models"
	"github.com/cineverse/cineverse/backend/go-services/internal/users"
	"github.com/cineverse/cineverse/backend/go-services/pkg/logger"
)

// MetadataWriter pushes the locally generated record id back to the
// identity provider after a successful create.
type MetadataWriter interface {
	WriteInternalID(ctx context.Context, subjectID, internalID string) error
}

// AvatarMirror copies the provider-hosted profile photo into local object
// storage. Best-effort, same failure policy as the metadata writeback.
type AvatarMirror interface {
	Mirror(ctx context.Context, subjectID, photoURL string) error
}

// Synchronizer applies decoded lifecycle events to the user store. It is the
// only writer of user records. Store failures are contained here: full detail
// goes to the log, callers get the bare error to map to an HTTP status.
type Synchronizer struct {
	repo    users.Repository
	meta    MetadataWriter
	avatars AvatarMirror
}

// NewSynchronizer wires the store and the optional provider-side
// collaborators. meta and avatars may be nil (e.g. in tests or when object
// storage is not configured).
func NewSynchronizer(repo users.Repository, meta MetadataWriter, avatars AvatarMirror) *Synchronizer {
	return &Synchronizer{repo: repo, meta: meta, avatars: avatars}
}

// Apply routes a decoded event to the matching store mutation. For
// unrecognized kinds it returns (nil, nil): acknowledged, nothing applied.
func (s *Synchronizer) Apply(ctx context.Context, ev *Event) (*models.User, error) {
	if !ev.Recognized {
		logger.Infof("webhook: acknowledging unrecognized event type %q (subject=%s)", ev.Kind, ev.SubjectID)
		return nil, nil
	}
	switch ev.Kind {
	case KindUserCreated:
		return s.applyCreated(ctx, ev)
	case KindUserUpdated:
		return s.applyUpdated(ctx, ev)
	case KindUserDeleted:
		return s.applyDeleted(ctx, ev)
	}
	return nil, fmt.Errorf("unhandled event kind %q", ev.Kind)
}

// applyCreated inserts the record. The provider may redeliver a created
// event; the unique index makes the replay surface as ErrDuplicateSubject,
// which degrades to a read of the existing record so redelivery never
// corrupts state. The metadata writeback (and avatar mirror) run only for a
// genuinely new record and never roll it back on failure.
func (s *Synchronizer) applyCreated(ctx context.Context, ev *Event) (*models.User, error) {
	u := &models.User{
		SubjectID: ev.SubjectID,
		Email:     ev.Email,
		Username:  ev.Username,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
		PhotoURL:  ev.PhotoURL,
	}
	created, err := s.repo.Create(ctx, u)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateSubject) {
			logger.Warnf("webhook: replayed created event for subject %s, returning existing record", ev.SubjectID)
			return s.repo.FindBySubject(ctx, ev.SubjectID)
		}
		logger.Errorf("webhook: create failed for subject %s: %v", ev.SubjectID, err)
		return nil, err
	}

	if s.meta != nil {
		if err := s.meta.WriteInternalID(ctx, created.SubjectID, created.ID); err != nil {
			// non-fatal: the record is the source of truth, the provider-side
			// metadata can be reconciled manually from this log line
			logger.Errorf("webhook: metadata writeback failed (subject=%s internalId=%s): %v", created.SubjectID, created.ID, err)
		}
	}
	if s.avatars != nil && created.PhotoURL != "" {
		if err := s.avatars.Mirror(ctx, created.SubjectID, created.PhotoURL); err != nil {
			logger.Warnf("webhook: avatar mirror failed (subject=%s): %v", created.SubjectID, err)
		}
	}
	return created, nil
}

// applyUpdated replaces the mutable field set. A missing record signals an
// out-of-order or missed created event upstream and is surfaced, not healed.
func (s *Synchronizer) applyUpdated(ctx context.Context, ev *Event) (*models.User, error) {
	patch := &models.Patch{
		Email:     ev.Email,
		Username:  ev.Username,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
		PhotoURL:  ev.PhotoURL,
	}
	updated, err := s.repo.UpdateBySubject(ctx, ev.SubjectID, patch)
	if err != nil {
		logger.Errorf("webhook: update failed for subject %s: %v", ev.SubjectID, err)
		return nil, err
	}
	return updated, nil
}

// applyDeleted removes the record. Deletes of unknown subjects are surfaced
// as failures rather than silently acknowledged, so a redelivered delete is
// loud. See DESIGN.md for why this stays asymmetric with create.
func (s *Synchronizer) applyDeleted(ctx context.Context, ev *Event) (*models.User, error) {
	if _, err := s.repo.FindBySubject(ctx, ev.SubjectID); err != nil {
		logger.Errorf("webhook: delete lookup failed for subject %s: %v", ev.SubjectID, err)
		return nil, err
	}
	deleted, err := s.repo.DeleteBySubject(ctx, ev.SubjectID)
	if err != nil {
		logger.Errorf("webhook: delete failed for subject %s: %v", ev.SubjectID, err)
		return nil, err
	}
	return deleted, nil
}
