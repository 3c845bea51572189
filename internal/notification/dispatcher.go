package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecotracker/fillstate/internal/metastore"
	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/registry"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// DefaultPushFreshnessWindow is the anti-flood tolerance: a push is
// only dispatched while the full transition is at most this old.
const DefaultPushFreshnessWindow = 10 * time.Second

// Publisher is the live channel: fire-and-forget delivery of an event
// to every observer session of a tenant.
type Publisher interface {
	Publish(ctx context.Context, tenantID string, event model.UpdateEvent) error
}

type DispatcherConfig struct {
	PushFreshnessWindow time.Duration
}

type TokenFailure struct {
	Token string
	Err   error
}

// DeliveryReport summarizes the push leg of one dispatch.
type DeliveryReport struct {
	Attempted int
	Delivered int
	Failures  []TokenFailure
}

// Dispatcher fans a committed update out to the live channel, the
// firehose and, on a full transition, the push channel. The publisher,
// notifier and sender are each optional; a nil collaborator disables
// that leg.
type Dispatcher struct {
	registry  *registry.Registry
	catalog   metastore.Catalog
	publisher Publisher
	notifier  Notifier
	sender    PushSender
	config    DispatcherConfig
}

func NewDispatcher(reg *registry.Registry, catalog metastore.Catalog, publisher Publisher, notifier Notifier, sender PushSender, config DispatcherConfig) *Dispatcher {
	if config.PushFreshnessWindow == 0 {
		config.PushFreshnessWindow = DefaultPushFreshnessWindow
	}
	return &Dispatcher{
		registry:  reg,
		catalog:   catalog,
		publisher: publisher,
		notifier:  notifier,
		sender:    sender,
		config:    config,
	}
}

// Dispatch propagates a single container update.
func (d *Dispatcher) Dispatch(ctx context.Context, outcome *model.UpdateOutcome) *DeliveryReport {
	event := model.UpdateEvent{
		Type:      model.EventTypeContainerUpdated,
		TenantID:  outcome.Location.TenantID,
		Container: outcome.Container,
		Location:  outcome.Location,
		Timestamp: time.Now().UTC(),
	}
	d.emit(ctx, event)

	if !outcome.LocationBecameFull {
		return &DeliveryReport{}
	}
	return d.push(ctx, outcome.Location, outcome.TransitionAt)
}

// DispatchBatch propagates a batch update as one location-level event.
func (d *Dispatcher) DispatchBatch(ctx context.Context, result *model.BatchResult) *DeliveryReport {
	event := model.UpdateEvent{
		Type:       model.EventTypeLocationUpdated,
		TenantID:   result.Location.TenantID,
		Containers: result.Updated,
		Location:   result.Location,
		Timestamp:  time.Now().UTC(),
	}
	d.emit(ctx, event)

	if !result.LocationBecameFull {
		return &DeliveryReport{}
	}
	return d.push(ctx, result.Location, result.TransitionAt)
}

// DispatchPickup announces an emptied location on the live channel and
// the firehose. Pickups never push.
func (d *Dispatcher) DispatchPickup(ctx context.Context, location model.LocationSnapshot, containers []*model.Container) {
	d.emit(ctx, model.UpdateEvent{
		Type:       model.EventTypeLocationUpdated,
		TenantID:   location.TenantID,
		Containers: containers,
		Location:   location,
		Timestamp:  time.Now().UTC(),
	})
}

func (d *Dispatcher) emit(ctx context.Context, event model.UpdateEvent) {
	if d.publisher != nil && d.registry.HasObservers(event.TenantID) {
		if err := d.publisher.Publish(ctx, event.TenantID, event); err != nil {
			log.Error("Failed to publish live event",
				zap.String("tenantID", event.TenantID), zap.Error(err))
		}
	}
	if d.notifier != nil {
		if err := d.notifier.Notify(ctx, event); err != nil {
			log.Error("Failed to notify firehose",
				zap.String("tenantID", event.TenantID), zap.Error(err))
		}
	}
}

func (d *Dispatcher) push(ctx context.Context, location model.LocationSnapshot, transitionAt time.Time) *DeliveryReport {
	report := &DeliveryReport{}
	if d.sender == nil {
		return report
	}

	// Anti-flood guard: a transition older than the window is a replay
	// of past state, not news.
	if !transitionAt.IsZero() && time.Since(transitionAt) > d.config.PushFreshnessWindow {
		log.Warn("Skipping push for stale transition",
			zap.String("locationID", location.ID.String()),
			zap.Time("transitionAt", transitionAt))
		return report
	}

	tokens, err := d.catalog.GetTenantTokens(ctx, location.TenantID)
	if err != nil {
		log.Error("Failed to load tenant tokens",
			zap.String("tenantID", location.TenantID), zap.Error(err))
		return report
	}

	notification := PushNotification{
		Title: "Location full",
		Body:  fmt.Sprintf("%s is full and ready for pickup", location.Name),
		Data: map[string]string{
			"location_id": location.ID.String(),
			"status":      string(location.Status),
		},
	}
	for _, token := range Recipients(tokens, transitionAt) {
		report.Attempted++
		if err := d.sender.Send(ctx, token.Token, notification); err != nil {
			if errors.Is(err, ErrTokenUnregistered) {
				if err := d.catalog.DeleteToken(ctx, token.Token); err != nil {
					log.Error("Failed to remove unregistered token", zap.Error(err))
				}
			}
			report.Failures = append(report.Failures, TokenFailure{Token: token.Token, Err: err})
			continue
		}
		report.Delivered++
	}
	log.Info("Push dispatched",
		zap.String("tenantID", location.TenantID),
		zap.Int("attempted", report.Attempted),
		zap.Int("delivered", report.Delivered))
	return report
}
