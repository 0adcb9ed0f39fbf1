package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	auditDatamodel "github.com/frahmantamala/staff-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/staff-management/internal/core/events"
)

type RepositoryAPI interface {
	Create(ctx context.Context, row *auditDatamodel.AuditLog) error
	List(ctx context.Context, filter Filter) ([]*auditDatamodel.AuditLog, error)
}

// ErrDuplicate is returned by repositories when the event id was already stored.
var ErrDuplicate = errors.New("audit entry already recorded")

// Recorder persists auditable events delivered by the event bus.
type Recorder struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewRecorder(repo RepositoryAPI, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Subscribe registers the recorder for every staff lifecycle event.
func (r *Recorder) Subscribe(bus *events.EventBus) {
	bus.SubscribeMany(events.StaffEventTypes, r.Handle)
}

func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	auditable, ok := event.(events.Auditable)
	if !ok {
		r.logger.Debug("skipping non-auditable event", "event_type", event.EventType())
		return nil
	}

	details, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("encode audit details of %s: %w", event.EventID(), err)
	}

	targetType, targetID := auditable.Target()
	row := &auditDatamodel.AuditLog{
		EventID:    event.EventID(),
		Action:     event.EventType(),
		TargetType: targetType,
		TargetID:   targetID,
		Details:    string(details),
		CreatedAt:  event.OccurredAt(),
	}
	if actor := auditable.Actor(); actor != 0 {
		row.ActorID = &actor
	}

	if err := r.repo.Create(ctx, row); err != nil {
		// redelivery of the same event is harmless
		if errors.Is(err, ErrDuplicate) {
			return nil
		}
		return err
	}
	return nil
}
