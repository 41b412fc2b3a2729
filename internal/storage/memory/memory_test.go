package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/storage"
)

func seedItem(t *testing.T, s *Store, owner uuid.UUID, createdAt time.Time) *models.SwapItem {
	t.Helper()
	item := &models.SwapItem{
		ID:        uuid.New(),
		OwnerID:   owner,
		Title:     "Item",
		Category:  "toys",
		Condition: models.ConditionGood,
		Status:    models.ItemStatusActive,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, s.CreateItem(context.Background(), item))
	return item
}

func TestGetItemAbsentReturnsNilNil(t *testing.T) {
	s := New()
	item, err := s.GetItem(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestUpdateItemStatusIsConditional(t *testing.T) {
	s := New()
	ctx := context.Background()
	item := seedItem(t, s, uuid.New(), time.Now())

	ok, err := s.UpdateItemStatus(ctx, item.ID, models.ItemStatusActive, models.ItemStatusReserved)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second flip from the same precondition must lose
	ok, err = s.UpdateItemStatus(ctx, item.ID, models.ItemStatusActive, models.ItemStatusReserved)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusReserved, got.Status)
}

func TestUpdateItemStatusSingleWinnerUnderContention(t *testing.T) {
	s := New()
	ctx := context.Background()
	item := seedItem(t, s, uuid.New(), time.Now())

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.UpdateItemStatus(ctx, item.ID, models.ItemStatusActive, models.ItemStatusReserved)
			if err == nil && ok {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)
}

func TestListFeedKeysetOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var created []uuid.UUID
	for i := 0; i < 5; i++ {
		item := seedItem(t, s, owner, base.Add(time.Duration(i)*time.Minute))
		created = append(created, item.ID)
	}

	filter := storage.FeedFilter{Status: models.ItemStatusActive}

	page1, err := s.ListFeed(ctx, filter, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, created[4], page1[0].ID)
	assert.Equal(t, created[3], page1[1].ID)

	cursor := &storage.FeedCursor{CreatedAt: page1[1].CreatedAt, ID: page1[1].ID}
	page2, err := s.ListFeed(ctx, filter, cursor, 10)
	require.NoError(t, err)
	require.Len(t, page2, 3)
	assert.Equal(t, created[2], page2[0].ID)
	assert.Equal(t, created[0], page2[2].ID)
}

func TestListFeedTieBreaksOnID(t *testing.T) {
	s := New()
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Same timestamp for every row forces the id tie-break
	for i := 0; i < 4; i++ {
		seedItem(t, s, uuid.New(), ts)
	}

	filter := storage.FeedFilter{Status: models.ItemStatusActive}
	var seen []uuid.UUID
	var cursor *storage.FeedCursor
	for {
		page, err := s.ListFeed(ctx, filter, cursor, 1)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		seen = append(seen, page[0].ID)
		cursor = &storage.FeedCursor{CreatedAt: page[0].CreatedAt, ID: page[0].ID}
	}

	require.Len(t, seen, 4)
	unique := make(map[uuid.UUID]bool)
	for _, id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, 4)
}

func TestDeclineCompetingProposals(t *testing.T) {
	s := New()
	ctx := context.Background()
	target := seedItem(t, s, uuid.New(), time.Now())
	offered := seedItem(t, s, uuid.New(), time.Now())

	winner := &models.Proposal{ID: uuid.New(), TargetItemID: target.ID, ProposerID: offered.OwnerID,
		OfferKind: models.OfferKindItem, OfferItemID: &offered.ID, Status: models.ProposalStatusPending}
	competingTarget := &models.Proposal{ID: uuid.New(), TargetItemID: target.ID, ProposerID: uuid.New(),
		OfferKind: models.OfferKindService, Status: models.ProposalStatusPending}
	competingOffer := &models.Proposal{ID: uuid.New(), TargetItemID: uuid.New(), ProposerID: uuid.New(),
		OfferKind: models.OfferKindItem, OfferItemID: &offered.ID, Status: models.ProposalStatusPending}
	unrelated := &models.Proposal{ID: uuid.New(), TargetItemID: uuid.New(), ProposerID: uuid.New(),
		OfferKind: models.OfferKindService, Status: models.ProposalStatusPending}

	for _, p := range []*models.Proposal{winner, competingTarget, competingOffer, unrelated} {
		require.NoError(t, s.CreateProposal(ctx, p))
	}

	count, err := s.DeclineCompetingProposals(ctx, []uuid.UUID{target.ID, offered.ID}, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for id, want := range map[uuid.UUID]models.ProposalStatus{
		winner.ID:          models.ProposalStatusPending,
		competingTarget.ID: models.ProposalStatusDeclined,
		competingOffer.ID:  models.ProposalStatusDeclined,
		unrelated.ID:       models.ProposalStatusPending,
	} {
		p, err := s.GetProposal(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, p.Status)
	}
}

func TestTerminalizeProposalsForItem(t *testing.T) {
	s := New()
	ctx := context.Background()
	doomed := seedItem(t, s, uuid.New(), time.Now())
	other := seedItem(t, s, uuid.New(), time.Now())

	targeting := &models.Proposal{ID: uuid.New(), TargetItemID: doomed.ID, ProposerID: uuid.New(),
		OfferKind: models.OfferKindService, Status: models.ProposalStatusPending}
	offering := &models.Proposal{ID: uuid.New(), TargetItemID: other.ID, ProposerID: doomed.OwnerID,
		OfferKind: models.OfferKindItem, OfferItemID: &doomed.ID, Status: models.ProposalStatusPending}
	accepted := &models.Proposal{ID: uuid.New(), TargetItemID: doomed.ID, ProposerID: uuid.New(),
		OfferKind: models.OfferKindService, Status: models.ProposalStatusAccepted}

	for _, p := range []*models.Proposal{targeting, offering, accepted} {
		require.NoError(t, s.CreateProposal(ctx, p))
	}

	require.NoError(t, s.TerminalizeProposalsForItem(ctx, doomed.ID))

	p, _ := s.GetProposal(ctx, targeting.ID)
	assert.Equal(t, models.ProposalStatusDeclined, p.Status)
	p, _ = s.GetProposal(ctx, offering.ID)
	assert.Equal(t, models.ProposalStatusCancelled, p.Status)
	p, _ = s.GetProposal(ctx, accepted.ID)
	assert.Equal(t, models.ProposalStatusAccepted, p.Status)
}

func TestReservationLifecycleInStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	item := seedItem(t, s, uuid.New(), time.Now())
	liker := uuid.New()

	r := &models.Reservation{
		ID: uuid.New(), ItemID: item.ID, LikerID: liker,
		Status: models.ReservationStatusActive, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, s.CreateReservation(ctx, r))

	got, err := s.GetActiveReservation(ctx, item.ID, liker)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.ID, got.ID)

	require.NoError(t, s.ConsumeReservation(ctx, item.ID, liker))

	got, err = s.GetActiveReservation(ctx, item.ID, liker)
	require.NoError(t, err)
	assert.Nil(t, got)
}
