package membership

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development. It
// emulates the two uniqueness constraints (event id, email) and gives InTx
// real rollback semantics via state snapshots, so atomicity violations show
// up in tests the same way they would against Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[string]User // keyed by normalized email
	events map[string]LedgerEntry
	audits []AuditEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]User),
		events: make(map[string]LedgerEntry),
	}
}

// InTx serializes the transaction under the store mutex and restores a
// snapshot of all state if fn fails, mirroring a database rollback.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usersSnap := maps.Clone(s.users)
	eventsSnap := maps.Clone(s.events)
	auditsSnap := slices.Clone(s.audits)

	if err := fn(&memTx{s: s}); err != nil {
		s.users = usersSnap
		s.events = eventsSnap
		s.audits = auditsSnap
		return err
	}
	return nil
}

func (s *MemoryStore) AdmitEvent(ctx context.Context, entry LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admitEvent(entry)
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userByEmail(email)
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUser(u)
}

func (s *MemoryStore) UpdateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateUser(u)
}

func (s *MemoryStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAudit(entry)
}

// Audits returns a copy of the audit log, for test assertions.
func (s *MemoryStore) Audits() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.audits)
}

// EventCount returns the number of admitted events, for test assertions.
func (s *MemoryStore) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *MemoryStore) admitEvent(entry LedgerEntry) error {
	if entry.EventID == "" {
		return ErrEmptyEventID
	}
	if _, exists := s.events[entry.EventID]; exists {
		return ErrDuplicateEvent
	}
	s.events[entry.EventID] = entry
	return nil
}

func (s *MemoryStore) userByEmail(email string) (*User, error) {
	u, ok := s.users[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := u
	return &copied, nil
}

func (s *MemoryStore) createUser(u *User) error {
	email := NormalizeEmail(u.Email)
	if _, exists := s.users[email]; exists {
		return ErrEmailTaken
	}
	stored := *u
	stored.Email = email
	s.users[email] = stored
	return nil
}

func (s *MemoryStore) updateUser(u *User) error {
	email := NormalizeEmail(u.Email)
	if _, exists := s.users[email]; !exists {
		return ErrUserNotFound
	}
	stored := *u
	stored.Email = email
	s.users[email] = stored
	return nil
}

func (s *MemoryStore) appendAudit(entry *AuditEntry) error {
	stored := *entry
	stored.ID = int64(len(s.audits) + 1)
	stored.Email = NormalizeEmail(stored.Email)
	s.audits = append(s.audits, stored)
	entry.ID = stored.ID
	return nil
}

// memTx is the store view handed to InTx callbacks: the caller already
// holds the store mutex, so methods go straight to the unexported
// operations.
type memTx struct {
	s *MemoryStore
}

func (t *memTx) InTx(ctx context.Context, fn func(tx Store) error) error {
	// Already inside the transaction.
	return fn(t)
}

func (t *memTx) AdmitEvent(ctx context.Context, entry LedgerEntry) error {
	return t.s.admitEvent(entry)
}

func (t *memTx) UserByEmail(ctx context.Context, email string) (*User, error) {
	return t.s.userByEmail(email)
}

func (t *memTx) CreateUser(ctx context.Context, u *User) error {
	return t.s.createUser(u)
}

func (t *memTx) UpdateUser(ctx context.Context, u *User) error {
	return t.s.updateUser(u)
}

func (t *memTx) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	return t.s.appendAudit(entry)
}
