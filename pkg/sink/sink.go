// Package sink fans executed node outputs out to their configured
// destinations. Every sink call is fire-and-forget: failures are logged and
// counted, never propagated to the run.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cascadehq/cascade/pkg/events"
	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/cascadehq/cascade/pkg/protocol"
)

// CacheWriter appends entries to a named shared cache.
type CacheWriter interface {
	Append(ctx context.Context, tenantID, cache, entry string) error
}

// Counts tallies successful deliveries per destination.
type Counts map[models.SyncDestination]int

// Merge adds another tally into this one.
func (c Counts) Merge(other Counts) {
	for dest, n := range other {
		c[dest] += n
	}
}

// Router delivers node outputs to the destinations their node selects.
type Router struct {
	publisher message.Publisher
	schemas   protocol.SchemaStore
	caches    CacheWriter
	pending   persistence.PendingChangeRepository
	logger    *slog.Logger
}

func NewRouter(
	logger *slog.Logger,
	publisher message.Publisher,
	schemas protocol.SchemaStore,
	caches CacheWriter,
	pending persistence.PendingChangeRepository,
) *Router {
	return &Router{
		publisher: publisher,
		schemas:   schemas,
		caches:    caches,
		pending:   pending,
		logger:    logger.With("module", "sink"),
	}
}

// Dispatch delivers one node output to every resolved destination and
// returns the per-destination success tally.
func (r *Router) Dispatch(ctx context.Context, event events.NodeOutputEvent, settings models.SyncSettings) Counts {
	counts := make(Counts)

	for _, dest := range settings.Resolved() {
		var err error

		switch dest {
		case models.SyncPlatformA:
			err = r.publish(events.TopicPlatformASync, event)
		case models.SyncPlatformB:
			err = r.publish(events.TopicPlatformBSync, event)
		case models.SyncMasterData:
			err = r.writeMasterData(ctx, event, settings)
		case models.SyncSharedCache:
			err = r.writeCache(ctx, event, settings)
		case models.SyncPendingChange:
			err = r.queuePendingChange(ctx, event, settings)
		default:
			r.logger.WarnContext(ctx, "unknown sync destination", "destination", dest)

			continue
		}

		if err != nil {
			r.logger.ErrorContext(ctx, "sink delivery failed",
				"destination", dest,
				"workflow_id", event.WorkflowID,
				"node_id", event.NodeID,
				"error", err)

			continue
		}

		counts[dest]++
	}

	return counts
}

func (r *Router) publish(topic string, event events.NodeOutputEvent) error {
	msg, err := event.Message()
	if err != nil {
		return err
	}

	return r.publisher.Publish(topic, msg)
}

func (r *Router) writeMasterData(ctx context.Context, event events.NodeOutputEvent, settings models.SyncSettings) error {
	return r.schemas.UpsertFieldValue(ctx, models.FieldValue{
		TenantID: event.TenantID,
		Domain:   settings.Domain,
		Level:    settings.Level,
		Path:     settings.Path,
		Value:    event.Payload,
		Source:   event.WorkflowID + ":" + event.NodeID,
	})
}

func (r *Router) writeCache(ctx context.Context, event events.NodeOutputEvent, settings models.SyncSettings) error {
	if r.caches == nil {
		return errors.New("no shared cache configured")
	}

	cache := settings.CacheName
	if cache == "" {
		cache = event.NodeID
	}

	return r.caches.Append(ctx, event.TenantID, cache, event.Payload)
}

func (r *Router) queuePendingChange(ctx context.Context, event events.NodeOutputEvent, settings models.SyncSettings) error {
	now := time.Now().UTC()

	return r.pending.Create(ctx, &models.PendingChange{
		TenantID: event.TenantID,
		Domain:   settings.Domain,
		Level:    settings.Level,
		Path:     settings.Path,
		Value:    event.Payload,
		Provenance: models.ChangeProvenance{
			WorkflowID: event.WorkflowID,
			NodeID:     event.NodeID,
			Version:    event.Version,
		},
		Status:    models.PendingChangeStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
