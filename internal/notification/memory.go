package notification

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used for local development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]*Notification
	watchers map[int]chan struct{}
	nextID   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]*Notification),
		watchers: make(map[int]chan struct{}),
	}
}

func (m *MemoryStore) Create(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[n.ID]; exists {
		return fmt.Errorf("notification %s already exists", n.ID)
	}
	m.docs[n.ID] = clone(n)
	m.notifyLocked()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (m *MemoryStore) List(ctx context.Context, q ListQuery) ([]*Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(q), nil
}

func (m *MemoryStore) listLocked(q ListQuery) []*Notification {
	live := make([]*Notification, 0, len(m.docs))
	for _, doc := range m.docs {
		if doc.ExpiresAt.After(q.Now) {
			live = append(live, doc)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return CursorFor(live[i]).before(CursorFor(live[j]))
	})

	out := make([]*Notification, 0, len(live))
	for _, doc := range live {
		if q.After != nil && !q.After.before(CursorFor(doc)) {
			continue
		}
		out = append(out, clone(doc))
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

func (m *MemoryStore) Watch(ctx context.Context, q ListQuery, onChange func([]*Notification)) error {
	changed := make(chan struct{}, 1)
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = changed
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}()

	for {
		m.mu.Lock()
		docs := m.listLocked(q)
		m.mu.Unlock()
		onChange(docs)

		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}

func (m *MemoryStore) AddReader(ctx context.Context, id, uid string) error {
	return m.update(id, func(doc *Notification) {
		if !slices.Contains(doc.ReadBy, uid) {
			doc.ReadBy = append(doc.ReadBy, uid)
		}
	})
}

func (m *MemoryStore) AddReaders(ctx context.Context, ids []string, uid string) error {
	for _, id := range ids {
		if err := m.AddReader(ctx, id, uid); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) RemoveReader(ctx context.Context, id, uid string) error {
	return m.update(id, func(doc *Notification) {
		doc.ReadBy = slices.DeleteFunc(doc.ReadBy, func(reader string) bool { return reader == uid })
	})
}

// Watchers returns the number of live Watch calls.
func (m *MemoryStore) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

func (m *MemoryStore) update(id string, mutate func(*Notification)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	mutate(doc)
	m.notifyLocked()
	return nil
}

func (m *MemoryStore) notifyLocked() {
	for _, ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func clone(n *Notification) *Notification {
	c := *n
	c.TargetRoles = slices.Clone(n.TargetRoles)
	c.TargetUserIDs = slices.Clone(n.TargetUserIDs)
	c.ReadBy = slices.Clone(n.ReadBy)
	return &c
}
