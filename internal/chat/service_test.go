package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/models"
)

type fixture struct {
	svc        *Service
	store      *MemoryStore
	user       uuid.UUID
	consultant uuid.UUID
	room       *models.ChatRoom
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemoryStore()
	f := &fixture{svc: NewService(store, nil), store: store, user: uuid.New(), consultant: uuid.New()}
	store.AddConsultant(f.consultant)
	room, created, err := f.svc.Open(context.Background(), f.user, f.consultant)
	require.NoError(t, err)
	require.True(t, created)
	f.room = room
	return f
}

func TestOpen_ReturnsExistingRoom(t *testing.T) {
	f := newFixture(t)
	again, created, err := f.svc.Open(context.Background(), f.user, f.consultant)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, f.room.ID, again.ID)
}

func TestOpen_RequiresConsultant(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Open(context.Background(), f.user, uuid.New())
	assert.ErrorIs(t, err, ErrNotConsultant)
	_, _, err = f.svc.Open(context.Background(), f.consultant, f.consultant)
	assert.ErrorIs(t, err, ErrSelfChat)
}

func TestSend_RejectedWhileClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Send(ctx, f.room.ID, f.user, "hello")
	require.NoError(t, err)

	_, err = f.svc.Close(ctx, f.room.ID, f.consultant, nil, "")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, f.room.ID, f.user, "still there?")
	assert.ErrorIs(t, err, ErrRoomClosed)
	_, err = f.svc.Send(ctx, f.room.ID, f.consultant, "bye")
	assert.ErrorIs(t, err, ErrRoomClosed)

	msgs, err := f.svc.Messages(ctx, f.room.ID, f.user, 0, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestRestart_PreservesHistoryInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two"} {
		_, err := f.svc.Send(ctx, f.room.ID, f.user, text)
		require.NoError(t, err)
	}
	_, err := f.svc.Close(ctx, f.room.ID, f.user, nil, "")
	require.NoError(t, err)

	room, err := f.svc.Restart(ctx, f.room.ID, f.consultant)
	require.NoError(t, err)
	assert.Equal(t, models.RoomActive, room.Status)
	assert.Nil(t, room.ClosedAt)

	_, err = f.svc.Send(ctx, f.room.ID, f.consultant, "three")
	require.NoError(t, err)

	msgs, err := f.svc.Messages(ctx, f.room.ID, f.user, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
	assert.Equal(t, "three", msgs[2].Content)
	assert.Less(t, msgs[0].Seq, msgs[1].Seq)
	assert.Less(t, msgs[1].Seq, msgs[2].Seq)

	after, err := f.svc.Messages(ctx, f.room.ID, f.user, msgs[1].Seq, 0)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "three", after[0].Content)
}

func TestTransitions_WrongState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Restart(ctx, f.room.ID, f.user)
	assert.ErrorIs(t, err, ErrRoomActive)
	_, err = f.svc.Rate(ctx, f.room.ID, f.user, 5, "")
	assert.ErrorIs(t, err, ErrRoomActive)

	_, err = f.svc.Close(ctx, f.room.ID, f.user, nil, "")
	require.NoError(t, err)
	_, err = f.svc.Close(ctx, f.room.ID, f.user, nil, "")
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestClose_OnlyParticipants(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Close(context.Background(), f.room.ID, uuid.New(), nil, "")
	assert.ErrorIs(t, err, ErrNotParticipant)
	_, err = f.svc.Send(context.Background(), f.room.ID, uuid.New(), "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Close(ctx, f.room.ID, f.user, nil, "")
	require.NoError(t, err)

	_, err = f.svc.Rate(ctx, f.room.ID, f.consultant, 5, "")
	assert.ErrorIs(t, err, ErrOwnerOnly)
	_, err = f.svc.Rate(ctx, f.room.ID, f.user, 6, "")
	assert.ErrorIs(t, err, ErrInvalidRating)

	room, err := f.svc.Rate(ctx, f.room.ID, f.user, 4, " helpful ")
	require.NoError(t, err)
	require.NotNil(t, room.Rating)
	assert.Equal(t, 4, *room.Rating)
	assert.Equal(t, "helpful", room.RatingComment)
}

func TestClose_RatingFromConsultantIgnored(t *testing.T) {
	f := newFixture(t)
	five := 5
	room, err := f.svc.Close(context.Background(), f.room.ID, f.consultant, &five, "great")
	require.NoError(t, err)
	assert.Nil(t, room.Rating)
}

func TestUnreadCountsAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Send(ctx, f.room.ID, f.consultant, "msg")
		require.NoError(t, err)
	}
	_, err := f.svc.Send(ctx, f.room.ID, f.user, "reply")
	require.NoError(t, err)

	rooms, err := f.svc.Rooms(ctx, f.user, models.RoleUser)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 3, rooms[0].UnreadCount)

	rooms, err = f.svc.Rooms(ctx, f.consultant, models.RoleConsultant)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, rooms[0].UnreadCount)

	n, err := f.svc.MarkRead(ctx, f.room.ID, f.user)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	rooms, err = f.svc.Rooms(ctx, f.user, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, 0, rooms[0].UnreadCount)
}

func TestSend_ConcurrentWithClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	accepted := make(chan int64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m, err := f.svc.Send(ctx, f.room.ID, f.user, "x"); err == nil {
				accepted <- m.Seq
			}
		}()
	}
	_, err := f.svc.Close(ctx, f.room.ID, f.consultant, nil, "")
	require.NoError(t, err)
	wg.Wait()
	close(accepted)

	msgs, err := f.svc.Messages(ctx, f.room.ID, f.user, 0, MaxPageSize)
	require.NoError(t, err)
	assert.Len(t, msgs, len(accepted))

	_, err = f.svc.Send(ctx, f.room.ID, f.user, "late")
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestSend_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), f.room.ID, f.user, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
