package chatsync

import (
	"context"
	"sync"

	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
	"nocturne/pkg/errors"
)

// fakeChatRepo drives the engine from tests by emitting watch events by
// hand. One watcher per path at a time, which matches how the tracker and
// aggregators use the repository.
type fakeChatRepo struct {
	mu sync.Mutex

	membershipFn        func(repository.MembershipChange)
	membershipCancelled bool

	roomFns        map[string]func(*entity.ChatRoom, bool)
	roomWatchCount map[string]int
	roomCancels    map[string]int

	rooms map[string]*entity.ChatRoom

	deleted   [][]string
	deleteErr error
	onDelete  func()

	marked [][2]string
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		roomFns:        make(map[string]func(*entity.ChatRoom, bool)),
		roomWatchCount: make(map[string]int),
		roomCancels:    make(map[string]int),
		rooms:          make(map[string]*entity.ChatRoom),
	}
}

func (f *fakeChatRepo) WatchMemberships(ctx context.Context, userID string, onChange func(repository.MembershipChange), onError func(error)) repository.CancelFunc {
	f.mu.Lock()
	f.membershipFn = onChange
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.membershipCancelled = true
		f.membershipFn = nil
		f.mu.Unlock()
	}
}

func (f *fakeChatRepo) WatchRoom(ctx context.Context, roomID string, onChange func(*entity.ChatRoom, bool), onError func(error)) repository.CancelFunc {
	f.mu.Lock()
	f.roomFns[roomID] = onChange
	f.roomWatchCount[roomID]++
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.roomCancels[roomID]++
		delete(f.roomFns, roomID)
		f.mu.Unlock()
	}
}

func (f *fakeChatRepo) emitMembership(kind repository.ChangeKind, roomID string) {
	f.mu.Lock()
	fn := f.membershipFn
	f.mu.Unlock()
	if fn != nil {
		fn(repository.MembershipChange{Kind: kind, ChatRoomID: roomID})
	}
}

func (f *fakeChatRepo) emitRoom(roomID string, room *entity.ChatRoom, exists bool) {
	f.mu.Lock()
	fn := f.roomFns[roomID]
	f.mu.Unlock()
	if fn != nil {
		fn(room, exists)
	}
}

func (f *fakeChatRepo) membershipWatched() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.membershipFn != nil
}

func (f *fakeChatRepo) roomWatched(roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roomFns[roomID] != nil
}

func (f *fakeChatRepo) GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, errors.NotFound("Chat room", nil)
	}
	return room, nil
}

func (f *fakeChatRepo) MarkRead(ctx context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, [2]string{roomID, userID})
	return nil
}

func (f *fakeChatRepo) CreateMessage(ctx context.Context, roomID string, message *entity.Message) error {
	return nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, roomID string, limit, offset int) ([]*entity.Message, error) {
	return nil, nil
}

func (f *fakeChatRepo) DeleteMemberships(ctx context.Context, userID string, roomIDs []string) error {
	f.mu.Lock()
	hook := f.onDelete
	err := f.deleteErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.deleted = append(f.deleted, roomIDs)
	f.mu.Unlock()
	return nil
}

func (f *fakeChatRepo) deleteBatches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

type fakeUserRepo struct {
	mu sync.Mutex

	users map[string]*entity.User

	profileFns     map[string]func(*entity.User, bool)
	profileCancels map[string]int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:          make(map[string]*entity.User),
		profileFns:     make(map[string]func(*entity.User, bool)),
		profileCancels: make(map[string]int),
	}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UserID] = user
	return nil
}

func (f *fakeUserRepo) WatchProfile(ctx context.Context, userID string, onChange func(*entity.User, bool), onError func(error)) repository.CancelFunc {
	f.mu.Lock()
	f.profileFns[userID] = onChange
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.profileCancels[userID]++
		delete(f.profileFns, userID)
		f.mu.Unlock()
	}
}

func (f *fakeUserRepo) emitProfile(userID string, user *entity.User, exists bool) {
	f.mu.Lock()
	fn := f.profileFns[userID]
	f.mu.Unlock()
	if fn != nil {
		fn(user, exists)
	}
}

func (f *fakeUserRepo) profileWatched(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileFns[userID] != nil
}
