package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRecord(t *testing.T, repo TrackingRepository, id, owner, recipient string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &model.TrackingRecord{
		TrackingID: id,
		OwnerID:    owner,
		Recipient:  recipient,
		CreatedAt:  createdAt,
	}))
}

func TestTrackingRepository_CreateAndGet(t *testing.T) {
	repo := NewTrackingRepository(testutil.NewDB(t))
	createRecord(t, repo, "t1", "alice", "a@x.com", time.Now())

	got, err := repo.GetByTrackingID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Recipient)
	assert.Zero(t, got.OpenCount)
	assert.Nil(t, got.LastOpenTime)

	_, err = repo.GetByTrackingID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTrackingNotFound)

	err = repo.Create(context.Background(), &model.TrackingRecord{TrackingID: "t1", Recipient: "dup@x.com"})
	assert.Error(t, err)
}

func TestTrackingRepository_ListOrderingIsStable(t *testing.T) {
	repo := NewTrackingRepository(testutil.NewDB(t))
	same := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		createRecord(t, repo, fmt.Sprintf("t%d", i), "alice", fmt.Sprintf("r%d@x.com", i), same)
	}

	page1, total, err := repo.List(context.Background(), ListFilter{Limit: 2, OwnerID: "alice"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	page2, _, err := repo.List(context.Background(), ListFilter{Limit: 2, Offset: 2, OwnerID: "alice"})
	require.NoError(t, err)

	// Equal created_at falls back to id DESC.
	assert.Equal(t, "t4", page1[0].TrackingID)
	assert.Equal(t, "t3", page1[1].TrackingID)
	assert.Equal(t, "t2", page2[0].TrackingID)
	assert.Equal(t, "t1", page2[1].TrackingID)
}

func TestTrackingRepository_ListScopes(t *testing.T) {
	repo := NewTrackingRepository(testutil.NewDB(t))
	now := time.Now().UTC()
	createRecord(t, repo, "t1", "alice", "a@x.com", now)
	createRecord(t, repo, "t2", "bob", "b@x.com", now)
	createRecord(t, repo, "t3", "", "c@x.com", now)

	_, total, err := repo.List(context.Background(), ListFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = repo.List(context.Background(), ListFilter{AllOwners: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	items, total, err := repo.List(context.Background(), ListFilter{AllOwners: true, Search: "  B@X  "})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "t2", items[0].TrackingID)
}

func TestTrackingRepository_DeleteAll(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTrackingRepository(db)
	events := NewEventRepository(db)
	createRecord(t, repo, "t1", "alice", "a@x.com", time.Now())
	require.NoError(t, events.AppendOpen(context.Background(), &model.OpenEvent{TrackingID: "t1", OccurredAt: time.Now().UTC()}))
	require.NoError(t, events.AppendOpen(context.Background(), &model.OpenEvent{TrackingID: "t1", OccurredAt: time.Now().UTC()}))

	res, err := repo.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WipeResult{Records: 1, Opens: 2, Clicks: 0}, res)

	res, err = repo.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WipeResult{}, res)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
