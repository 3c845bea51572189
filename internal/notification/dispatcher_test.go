package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ecotracker/fillstate/internal/metastore/coordinator"
	"github.com/ecotracker/fillstate/internal/model"
	"github.com/ecotracker/fillstate/internal/registry"
	"github.com/ecotracker/fillstate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []model.UpdateEvent
}

func (p *fakePublisher) Publish(ctx context.Context, tenantID string, event model.UpdateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type fakeSender struct {
	mu           sync.Mutex
	sent         []string
	unregistered map[string]bool
}

func (s *fakeSender) Send(ctx context.Context, token string, notification PushNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unregistered[token] {
		return ErrTokenUnregistered
	}
	s.sent = append(s.sent, token)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []model.UpdateEvent
}

func (n *fakeNotifier) Notify(ctx context.Context, event model.UpdateEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestRecipientsFilter(t *testing.T) {
	transitionAt := time.Now().UTC()
	before := transitionAt.Add(-time.Minute)
	after := transitionAt.Add(time.Minute)

	tokens := []*model.PushToken{
		{Token: "stale", LastSeenAt: timePtr(before)},
		{Token: "active", LastSeenAt: timePtr(after)},
		{Token: "never-seen"},
		{Token: "stale", LastSeenAt: timePtr(before)},
	}

	recipients := Recipients(tokens, transitionAt)
	got := make([]string, 0, len(recipients))
	for _, r := range recipients {
		got = append(got, r.Token)
	}
	assert.ElementsMatch(t, []string{"stale", "never-seen"}, got)
}

func TestRecipientsZeroTransitionIncludesAll(t *testing.T) {
	now := time.Now().UTC()
	tokens := []*model.PushToken{
		{Token: "a", LastSeenAt: timePtr(now)},
		{Token: "b"},
	}
	recipients := Recipients(tokens, time.Time{})
	assert.Len(t, recipients, 2)
}

func TestRecipientsLastSeenEqualTransitionExcluded(t *testing.T) {
	transitionAt := time.Now().UTC()
	tokens := []*model.PushToken{
		{Token: "a", LastSeenAt: timePtr(transitionAt)},
	}
	assert.Empty(t, Recipients(tokens, transitionAt))
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	registry   *registry.Registry
	catalog    *coordinator.MemoryCatalog
	publisher  *fakePublisher
	notifier   *fakeNotifier
	sender     *fakeSender
	userID     types.UniqueID
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	ctx := context.Background()
	catalog := coordinator.NewMemoryCatalog()
	require.NoError(t, catalog.CreateTenant(ctx, &model.Tenant{ID: "tenant1", Name: "Tenant One"}))
	userID := types.NewUniqueID()
	require.NoError(t, catalog.CreateUser(ctx, &model.User{ID: userID, TenantID: "tenant1", Email: "ops@tenant1.example"}))

	reg := registry.NewRegistry()
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	sender := &fakeSender{unregistered: make(map[string]bool)}
	dispatcher := NewDispatcher(reg, catalog, publisher, notifier, sender, DispatcherConfig{})
	return &dispatcherFixture{
		dispatcher: dispatcher,
		registry:   reg,
		catalog:    catalog,
		publisher:  publisher,
		notifier:   notifier,
		sender:     sender,
		userID:     userID,
	}
}

func fullOutcome(transitionAt time.Time) *model.UpdateOutcome {
	now := transitionAt
	return &model.UpdateOutcome{
		Container: &model.Container{ID: types.NewUniqueID(), FillLevel: 90, Status: model.StatusFull},
		Location: model.LocationSnapshot{
			ID:         types.NewUniqueID(),
			TenantID:   "tenant1",
			Name:       "Depot North",
			Status:     model.StatusFull,
			LastFullAt: &now,
		},
		LocationBecameFull: true,
		TransitionAt:       transitionAt,
	}
}

func TestDispatchLiveOnlyWithObservers(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	outcome := &model.UpdateOutcome{
		Container: &model.Container{ID: types.NewUniqueID(), FillLevel: 30, Status: model.StatusPartial},
		Location:  model.LocationSnapshot{ID: types.NewUniqueID(), TenantID: "tenant1", Status: model.StatusPartial},
	}

	// No observers: the live leg is skipped, the firehose still fires.
	f.dispatcher.Dispatch(ctx, outcome)
	assert.Empty(t, f.publisher.events)
	assert.Len(t, f.notifier.events, 1)

	f.registry.Join("tenant1", "session-1")
	f.dispatcher.Dispatch(ctx, outcome)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, model.EventTypeContainerUpdated, f.publisher.events[0].Type)
	assert.Equal(t, "tenant1", f.publisher.events[0].TenantID)
}

func TestDispatchPushOnFullTransition(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)

	transitionAt := time.Now().UTC()
	stale := transitionAt.Add(-time.Hour)
	require.NoError(t, f.catalog.UpsertToken(ctx, &model.PushToken{UserID: f.userID, Token: "tok-stale"}))
	require.NoError(t, f.catalog.TouchToken(ctx, "tok-stale", stale))
	require.NoError(t, f.catalog.UpsertToken(ctx, &model.PushToken{UserID: f.userID, Token: "tok-active"}))
	require.NoError(t, f.catalog.TouchToken(ctx, "tok-active", transitionAt.Add(time.Second)))

	report := f.dispatcher.Dispatch(ctx, fullOutcome(transitionAt))
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Delivered)
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"tok-stale"}, f.sender.sent)
}

func TestDispatchNoPushWithoutTransition(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)
	require.NoError(t, f.catalog.UpsertToken(ctx, &model.PushToken{UserID: f.userID, Token: "tok-1"}))

	outcome := fullOutcome(time.Now().UTC())
	outcome.LocationBecameFull = false

	report := f.dispatcher.Dispatch(ctx, outcome)
	assert.Equal(t, 0, report.Attempted)
	assert.Empty(t, f.sender.sent)
}

func TestDispatchSkipsStaleTransition(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)
	require.NoError(t, f.catalog.UpsertToken(ctx, &model.PushToken{UserID: f.userID, Token: "tok-1"}))

	report := f.dispatcher.Dispatch(ctx, fullOutcome(time.Now().UTC().Add(-time.Minute)))
	assert.Equal(t, 0, report.Attempted)
	assert.Empty(t, f.sender.sent)
}

func TestDispatchRemovesUnregisteredTokens(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)
	require.NoError(t, f.catalog.UpsertToken(ctx, &model.PushToken{UserID: f.userID, Token: "tok-dead"}))
	f.sender.unregistered["tok-dead"] = true

	report := f.dispatcher.Dispatch(ctx, fullOutcome(time.Now().UTC()))
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 0, report.Delivered)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, ErrTokenUnregistered)

	tokens, err := f.catalog.GetTenantTokens(ctx, "tenant1")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestDispatchBatchSingleEvent(t *testing.T) {
	ctx := context.Background()
	f := newDispatcherFixture(t)
	f.registry.Join("tenant1", "session-1")
	require.NoError(t, f.catalog.UpsertToken(ctx, &model.PushToken{UserID: f.userID, Token: "tok-1"}))

	transitionAt := time.Now().UTC()
	result := &model.BatchResult{
		Location: model.LocationSnapshot{
			ID:       types.NewUniqueID(),
			TenantID: "tenant1",
			Name:     "Depot North",
			Status:   model.StatusFull,
		},
		Updated: []*model.Container{
			{ID: types.NewUniqueID(), Status: model.StatusFull},
			{ID: types.NewUniqueID(), Status: model.StatusFull},
		},
		LocationBecameFull: true,
		TransitionAt:       transitionAt,
	}

	report := f.dispatcher.DispatchBatch(ctx, result)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, model.EventTypeLocationUpdated, f.publisher.events[0].Type)
	assert.Len(t, f.publisher.events[0].Containers, 2)
	assert.Equal(t, 1, report.Delivered)
}
