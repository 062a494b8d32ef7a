package convstate

import (
	"sync"
	"time"

	"github.com/samber/do"
)

// Tier is the lead-classification state of a conversation.
type Tier int

const (
	TierNone Tier = iota
	TierInterested
	TierConfirmed
)

func (t Tier) String() string {
	switch t {
	case TierInterested:
		return "interested"
	case TierConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// record holds all per-conversation bookkeeping. Every field is guarded by
// the record's own mutex, so conversations never contend with each other.
type record struct {
	mu sync.Mutex

	lastActivity  time.Time
	userMessages  int
	tier          Tier
	relayedCount  int
	lastRelayedID string
	watching      bool
}

// Store keeps derived per-conversation state for the lifetime of the
// process. The engine remains the source of truth for messages; this is
// only activity, tier, delta and watchdog bookkeeping.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record

	now func() time.Time
}

func New(_ *do.Injector) (*Store, error) {
	return NewStore(), nil
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

func (s *Store) get(convID string) *record {
	s.mu.RLock()
	rec, ok := s.records[convID]
	s.mu.RUnlock()

	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok = s.records[convID]; !ok {
		rec = &record{}
		s.records[convID] = rec
	}

	return rec
}

// Touch records an inbound user message: activity moves to now and the user
// message counter advances.
func (s *Store) Touch(convID string) {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.lastActivity = s.now()
	rec.userMessages++
}

// QuietFor returns the elapsed time since the last touch. ok is false for
// conversations that were never touched.
func (s *Store) QuietFor(convID string) (time.Duration, bool) {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.lastActivity.IsZero() {
		return 0, false
	}

	return s.now().Sub(rec.lastActivity), true
}

func (s *Store) UserMessages(convID string) int {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.userMessages
}

func (s *Store) Tier(convID string) Tier {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.tier
}

// RaiseTier moves the tier up, never down. Repeated identical raises are
// no-ops, which keeps duplicate triggers idempotent.
func (s *Store) RaiseTier(convID string, tier Tier) {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if tier > rec.tier {
		rec.tier = tier
	}
}

func (s *Store) RelayedCount(convID string) int {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.relayedCount
}

// LastRelayed returns the delta cursor: the id of the newest message already
// relayed (empty when nothing was) and how many messages that is in total.
func (s *Store) LastRelayed(convID string) (string, int) {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.lastRelayedID, rec.relayedCount
}

// MarkRelayed advances the delta cursor after a successful relay. The cursor
// never moves backwards.
func (s *Store) MarkRelayed(convID, lastID string, count int) {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if count > rec.relayedCount {
		rec.relayedCount = count
		rec.lastRelayedID = lastID
	}
}

// BeginWatch claims the single watchdog slot for the conversation. It
// returns false when a live task already exists.
func (s *Store) BeginWatch(convID string) bool {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.watching {
		return false
	}

	rec.watching = true

	return true
}

// EndWatch releases the watchdog slot. Must run on every task exit path.
func (s *Store) EndWatch(convID string) {
	rec := s.get(convID)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.watching = false
}
