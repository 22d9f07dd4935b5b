package chatsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func startedEngine(t *testing.T) (*Engine, *fakeChatRepo, *fakeUserRepo) {
	t.Helper()
	chatRepo := newFakeChatRepo()
	userRepo := newFakeUserRepo()
	engine := NewEngine(chatRepo, userRepo)

	assert.NoError(t, engine.Start(context.Background(), "u1"))
	t.Cleanup(engine.Stop)
	assert.Eventually(t, chatRepo.membershipWatched, waitFor, tick)
	return engine, chatRepo, userRepo
}

func roomDoc(roomID string, readBy []string, ts time.Time, content string) *entity.ChatRoom {
	return &entity.ChatRoom{
		ID:           roomID,
		Participants: []string{"u1", "u2"},
		LastMessage: &entity.MessageSummary{
			SenderID:  "u2",
			Content:   content,
			Timestamp: ts,
		},
		LastUpdated: ts,
		ReadBy:      readBy,
	}
}

func TestEngineStartValidation(t *testing.T) {
	engine := NewEngine(newFakeChatRepo(), newFakeUserRepo())
	assert.Error(t, engine.Start(context.Background(), ""))

	assert.NoError(t, engine.Start(context.Background(), "u1"))
	defer engine.Stop()
	assert.Error(t, engine.Start(context.Background(), "u1"))
}

func TestEngineBuildsConversationFromRoomAndProfile(t *testing.T) {
	engine, chatRepo, userRepo := startedEngine(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	chatRepo.emitMembership(repository.ChangeAdded, "r1")
	assert.Eventually(t, func() bool { return chatRepo.roomWatched("r1") }, waitFor, tick)

	chatRepo.emitRoom("r1", roomDoc("r1", []string{"u2"}, ts, "hello"), true)
	assert.Eventually(t, func() bool { return userRepo.profileWatched("u2") }, waitFor, tick)

	// No entry yet: the profile has not reported.
	assert.Empty(t, engine.Conversations())

	userRepo.emitProfile("u2", &entity.User{UserID: "u2", Name: "Bob", Gender: "male"}, true)

	assert.Eventually(t, func() bool { return len(engine.Conversations()) == 1 }, waitFor, tick)
	entry := engine.Conversations()[0]
	assert.Equal(t, "r1", entry.ID)
	assert.Equal(t, "Bob", entry.OtherUser.Name)
	assert.Equal(t, "hello", entry.LastMessage.Content)
	assert.Equal(t, ts, entry.LastMessageTimestamp)
	assert.False(t, entry.HasReadByMe)
	assert.True(t, entry.HasReadByThem)
}

func TestEngineRedundantEventsKeepOneEntry(t *testing.T) {
	engine, chatRepo, userRepo := startedEngine(t)
	ts := time.Now()

	chatRepo.emitMembership(repository.ChangeAdded, "r1")
	chatRepo.emitMembership(repository.ChangeModified, "r1")
	assert.Eventually(t, func() bool { return chatRepo.roomWatched("r1") }, waitFor, tick)

	chatRepo.emitRoom("r1", roomDoc("r1", nil, ts, "first"), true)
	assert.Eventually(t, func() bool { return userRepo.profileWatched("u2") }, waitFor, tick)
	userRepo.emitProfile("u2", &entity.User{UserID: "u2", Name: "Bob"}, true)
	chatRepo.emitRoom("r1", roomDoc("r1", nil, ts.Add(time.Minute), "second"), true)

	assert.Eventually(t, func() bool {
		list := engine.Conversations()
		return len(list) == 1 && list[0].LastMessage.Content == "second"
	}, waitFor, tick)

	// Re-adding an already tracked room never spawns a second aggregator.
	chatRepo.emitMembership(repository.ChangeAdded, "r1")
	assert.Eventually(t, func() bool { return liveAggregators(engine) == 1 }, waitFor, tick)
	chatRepo.mu.Lock()
	watchCount := chatRepo.roomWatchCount["r1"]
	chatRepo.mu.Unlock()
	assert.Equal(t, 1, watchCount)
}

func TestEngineSendResetsReadFlags(t *testing.T) {
	engine, chatRepo, userRepo := startedEngine(t)
	ts := time.Now()

	chatRepo.emitMembership(repository.ChangeAdded, "r1")
	assert.Eventually(t, func() bool { return chatRepo.roomWatched("r1") }, waitFor, tick)
	chatRepo.emitRoom("r1", roomDoc("r1", []string{"u1", "u2"}, ts, "hi"), true)
	assert.Eventually(t, func() bool { return userRepo.profileWatched("u2") }, waitFor, tick)
	userRepo.emitProfile("u2", &entity.User{UserID: "u2", Name: "Bob"}, true)

	assert.Eventually(t, func() bool {
		list := engine.Conversations()
		return len(list) == 1 && list[0].HasReadByMe && list[0].HasReadByThem
	}, waitFor, tick)

	// Sending a message rewrites readBy to just the sender; the next room
	// event must flip the counterpart's flag off.
	chatRepo.emitRoom("r1", roomDoc("r1", []string{"u1"}, ts.Add(time.Second), "sent"), true)
	assert.Eventually(t, func() bool {
		list := engine.Conversations()
		return len(list) == 1 && list[0].HasReadByMe && !list[0].HasReadByThem
	}, waitFor, tick)
}

func TestEngineMissingRoomBecomesOrphan(t *testing.T) {
	engine, chatRepo, _ := startedEngine(t)

	chatRepo.emitMembership(repository.ChangeAdded, "r3")
	assert.Eventually(t, func() bool { return chatRepo.roomWatched("r3") }, waitFor, tick)

	chatRepo.emitRoom("r3", nil, false)
	assert.Eventually(t, func() bool {
		return len(engine.OrphanedRooms()) == 1
	}, waitFor, tick)
	assert.Equal(t, []string{"r3"}, engine.OrphanedRooms())
	assert.Empty(t, engine.Conversations())

	// The aggregator went quiet but stays registered so the same membership
	// row can never spawn a duplicate.
	assert.Eventually(t, func() bool {
		chatRepo.mu.Lock()
		defer chatRepo.mu.Unlock()
		return chatRepo.roomCancels["r3"] == 1
	}, waitFor, tick)
	assert.Equal(t, 1, liveAggregators(engine))

	n, err := engine.CleanupOrphans(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, [][]string{{"r3"}}, chatRepo.deleteBatches())
	assert.Empty(t, engine.OrphanedRooms())
}

func TestEngineMembershipRemovedTearsDownRoom(t *testing.T) {
	engine, chatRepo, userRepo := startedEngine(t)
	ts := time.Now()

	chatRepo.emitMembership(repository.ChangeAdded, "r1")
	assert.Eventually(t, func() bool { return chatRepo.roomWatched("r1") }, waitFor, tick)
	chatRepo.emitRoom("r1", roomDoc("r1", nil, ts, "hi"), true)
	assert.Eventually(t, func() bool { return userRepo.profileWatched("u2") }, waitFor, tick)
	userRepo.emitProfile("u2", &entity.User{UserID: "u2", Name: "Bob"}, true)
	assert.Eventually(t, func() bool { return len(engine.Conversations()) == 1 }, waitFor, tick)

	chatRepo.emitMembership(repository.ChangeRemoved, "r1")
	assert.Eventually(t, func() bool { return len(engine.Conversations()) == 0 }, waitFor, tick)
	assert.Equal(t, 0, liveAggregators(engine))

	chatRepo.mu.Lock()
	roomCancels := chatRepo.roomCancels["r1"]
	chatRepo.mu.Unlock()
	userRepo.mu.Lock()
	profileCancels := userRepo.profileCancels["u2"]
	userRepo.mu.Unlock()
	assert.Equal(t, 1, roomCancels)
	assert.Equal(t, 1, profileCancels)
}

func TestEngineDeletedProfileFallsBackToPlaceholder(t *testing.T) {
	engine, chatRepo, userRepo := startedEngine(t)

	chatRepo.emitMembership(repository.ChangeAdded, "r1")
	assert.Eventually(t, func() bool { return chatRepo.roomWatched("r1") }, waitFor, tick)
	chatRepo.emitRoom("r1", roomDoc("r1", nil, time.Now(), "hi"), true)
	assert.Eventually(t, func() bool { return userRepo.profileWatched("u2") }, waitFor, tick)

	userRepo.emitProfile("u2", nil, false)

	assert.Eventually(t, func() bool { return len(engine.Conversations()) == 1 }, waitFor, tick)
	other := engine.Conversations()[0].OtherUser
	assert.Equal(t, "u2", other.ID)
	assert.Equal(t, "User Deleted", other.Name)
	assert.Equal(t, "other", other.Gender)
}

func TestEngineProfileUpdateRefreshesSummary(t *testing.T) {
	engine, chatRepo, userRepo := startedEngine(t)

	chatRepo.emitMembership(repository.ChangeAdded, "r1")
	assert.Eventually(t, func() bool { return chatRepo.roomWatched("r1") }, waitFor, tick)
	chatRepo.emitRoom("r1", roomDoc("r1", nil, time.Now(), "hi"), true)
	assert.Eventually(t, func() bool { return userRepo.profileWatched("u2") }, waitFor, tick)

	userRepo.emitProfile("u2", &entity.User{UserID: "u2", Name: "Bob"}, true)
	assert.Eventually(t, func() bool {
		list := engine.Conversations()
		return len(list) == 1 && list[0].OtherUser.Name == "Bob"
	}, waitFor, tick)

	userRepo.emitProfile("u2", &entity.User{UserID: "u2", Name: "Bobby"}, true)
	assert.Eventually(t, func() bool {
		list := engine.Conversations()
		return len(list) == 1 && list[0].OtherUser.Name == "Bobby"
	}, waitFor, tick)
}

func TestEngineStopCancelsEveryWatch(t *testing.T) {
	engine, chatRepo, userRepo := startedEngine(t)

	chatRepo.emitMembership(repository.ChangeAdded, "r1")
	chatRepo.emitMembership(repository.ChangeAdded, "r2")
	assert.Eventually(t, func() bool {
		return chatRepo.roomWatched("r1") && chatRepo.roomWatched("r2")
	}, waitFor, tick)
	chatRepo.emitRoom("r1", roomDoc("r1", nil, time.Now(), "hi"), true)
	assert.Eventually(t, func() bool { return userRepo.profileWatched("u2") }, waitFor, tick)

	engine.Stop()

	chatRepo.mu.Lock()
	membershipCancelled := chatRepo.membershipCancelled
	r1Cancels := chatRepo.roomCancels["r1"]
	r2Cancels := chatRepo.roomCancels["r2"]
	chatRepo.mu.Unlock()
	userRepo.mu.Lock()
	profileCancels := userRepo.profileCancels["u2"]
	userRepo.mu.Unlock()

	assert.True(t, membershipCancelled)
	assert.Equal(t, 1, r1Cancels)
	assert.Equal(t, 1, r2Cancels)
	assert.Equal(t, 1, profileCancels)
	assert.Empty(t, engine.Conversations())

	// Stop twice is fine.
	engine.Stop()
}

// liveAggregators reads the tracker's aggregator count for parity checks.
func liveAggregators(e *Engine) int {
	e.mu.Lock()
	tr := e.tracker
	e.mu.Unlock()
	if tr == nil {
		return 0
	}
	return tr.aggregatorCount()
}
