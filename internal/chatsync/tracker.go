package chatsync

import (
	"context"
	"sync"

	"nocturne/internal/domain/repository"
	"nocturne/pkg/logger"
)

// membershipTracker maintains the invariant that exactly one live room
// aggregator exists per current membership row. All watcher callbacks are
// posted as tasks onto a single-goroutine loop, so handler code never runs
// concurrently with itself; only the arrival order across different watched
// paths is unconstrained.
type membershipTracker struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	table    *ConversationTable
	orphans  *OrphanCollector

	selfID string
	ctx    context.Context

	tasks     chan func()
	closed    chan struct{}
	closeOnce sync.Once

	// Loop-confined state. Touched only from tasks running on the loop.
	active            bool
	aggregators       map[string]*roomAggregator
	cancelMemberships repository.CancelFunc
}

func newMembershipTracker(
	ctx context.Context,
	selfID string,
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	table *ConversationTable,
	orphans *OrphanCollector,
) *membershipTracker {
	return &membershipTracker{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		table:       table,
		orphans:     orphans,
		selfID:      selfID,
		ctx:         ctx,
		tasks:       make(chan func(), 128),
		closed:      make(chan struct{}),
		aggregators: make(map[string]*roomAggregator),
	}
}

func (t *membershipTracker) start() {
	go t.run()
	t.post(func() {
		t.active = true
		t.cancelMemberships = t.chatRepo.WatchMemberships(t.ctx, t.selfID, t.onMembershipChange, t.onWatchError)
		logger.Info("Started chat room sync for user %s", t.selfID)
	})
}

func (t *membershipTracker) run() {
	for {
		select {
		case fn := <-t.tasks:
			fn()
		case <-t.closed:
			return
		}
	}
}

// post schedules fn on the loop. After shutdown it drops the task instead of
// blocking, so late watcher callbacks can never wedge their pump goroutine.
func (t *membershipTracker) post(fn func()) {
	select {
	case t.tasks <- fn:
	case <-t.closed:
	}
}

// stop tears the session down exhaustively: the membership watch and every
// spawned aggregator are cancelled before stop returns. No subscription
// survives the owning session.
func (t *membershipTracker) stop() {
	done := make(chan struct{})
	t.post(func() {
		defer close(done)
		if !t.active {
			return
		}
		t.active = false
		if t.cancelMemberships != nil {
			t.cancelMemberships()
			t.cancelMemberships = nil
		}
		for id, agg := range t.aggregators {
			agg.stop()
			delete(t.aggregators, id)
		}
		t.table.Clear()
		logger.Info("Stopped chat room sync for user %s", t.selfID)
	})
	select {
	case <-done:
	case <-t.closed:
	}
	t.closeOnce.Do(func() { close(t.closed) })
}

func (t *membershipTracker) onMembershipChange(change repository.MembershipChange) {
	t.post(func() { t.handleMembership(change) })
}

func (t *membershipTracker) handleMembership(change repository.MembershipChange) {
	if !t.active {
		return
	}

	switch change.Kind {
	case repository.ChangeRemoved:
		if agg, ok := t.aggregators[change.ChatRoomID]; ok {
			agg.stop()
			delete(t.aggregators, change.ChatRoomID)
		}
		t.table.Delete(change.ChatRoomID)

	default:
		// The room ID is the single source of truth for "is there a live
		// aggregator"; a rapid remove/add of the same room can never leave
		// two live ones because this check runs on the loop.
		if _, exists := t.aggregators[change.ChatRoomID]; exists {
			return
		}
		agg := newRoomAggregator(t, change.ChatRoomID)
		t.aggregators[change.ChatRoomID] = agg
		agg.start()
	}
}

func (t *membershipTracker) onWatchError(err error) {
	// The Firestore listener reconnects on its own; nothing is torn down.
	logger.Error("Membership watch error for user %s: %v", t.selfID, err)
}

// aggregatorCount is a test hook; it reads loop-confined state from the loop.
func (t *membershipTracker) aggregatorCount() int {
	result := make(chan int, 1)
	t.post(func() { result <- len(t.aggregators) })
	select {
	case n := <-result:
		return n
	case <-t.closed:
		return 0
	}
}
