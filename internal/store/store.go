package store

import (
	"errors"
	"log"
	"sync"
)

// Entity is the contract both tasks and habits satisfy. Toggled returns a
// copy with the completion state flipped (habits move their streak with it).
type Entity[E any] interface {
	Key() string
	DisplayName() string
	IsCompleted() bool
	Toggled() E
	Validate() error
}

// Remote is the slice of the gateway an entity store needs.
type Remote[E any] interface {
	List(userID string) ([]E, error)
	Create(entity E) (E, error)
	Toggle(id string) error
	Delete(id string) error
}

// Hooks are the side effects fired around mutations. OnMutating runs when a
// toggle or delete is issued, before the backend answers, and fires whether
// or not the mutation sticks; the rest run only after the remote call
// confirms. All of them sit outside the rollback contract: a hook failure
// never unwinds the mutation.
type Hooks[E any] struct {
	OnMutating  func(E)
	OnCreated   func(E)
	OnCompleted func(E)
	OnDeleted   func(E)
}

// Store holds the in-memory entity list as an observable value, applies
// mutations optimistically and rolls them back when the backend rejects
// them. Mutations on the same entity id are serialized; mutations on
// different entities run independently, but every read-modify-write of the
// list goes through a single lock so they never lose each other's writes.
type Store[E Entity[E]] struct {
	remote  Remote[E]
	hooks   Hooks[E]
	list    *Observable[[]E]
	loading *Observable[bool]
	lastErr *Observable[string]

	listMu sync.Mutex // serializes read-modify-write cycles on list
	mu     sync.Mutex // guards locks
	locks  map[string]*sync.Mutex
}

func New[E Entity[E]](remote Remote[E], hooks Hooks[E]) *Store[E] {
	return &Store[E]{
		remote:  remote,
		hooks:   hooks,
		list:    NewObservable([]E{}),
		loading: NewObservable(false),
		lastErr: NewObservable(""),
		locks:   map[string]*sync.Mutex{},
	}
}

// List is the observable entity list.
func (s *Store[E]) List() *Observable[[]E] { return s.list }

// Loading is the observable loading flag.
func (s *Store[E]) Loading() *Observable[bool] { return s.loading }

// Error is the observable last-error message. A new error overwrites the
// previous one; it clears on the next successful operation.
func (s *Store[E]) Error() *Observable[string] { return s.lastErr }

func (s *Store[E]) entityLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Store[E]) fail(msg string) {
	log.Printf("Store error: %s", msg)
	s.lastErr.Set(msg)
}

func (s *Store[E]) succeed() {
	s.lastErr.Set("")
}

// find returns the entity with the given key from the current list.
func (s *Store[E]) find(key string) (E, bool) {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	for _, e := range s.list.Get() {
		if e.Key() == key {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// replace swaps the entity with the given key in place, preserving order.
func (s *Store[E]) replace(key string, next E) {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	current := s.list.Get()
	out := make([]E, len(current))
	copy(out, current)
	for i, e := range out {
		if e.Key() == key {
			out[i] = next
			break
		}
	}
	s.list.Set(out)
}

func (s *Store[E]) remove(key string) {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	current := s.list.Get()
	out := make([]E, 0, len(current))
	for _, e := range current {
		if e.Key() != key {
			out = append(out, e)
		}
	}
	s.list.Set(out)
}

func (s *Store[E]) append(entity E) {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	current := s.list.Get()
	out := make([]E, len(current), len(current)+1)
	copy(out, current)
	s.list.Set(append(out, entity))
}

func (s *Store[E]) done(cb func(error), err error) {
	if cb != nil {
		cb(err)
	}
}

// Load replaces the full local list from the backend. On failure the
// previous list is left untouched and the error message is set.
func (s *Store[E]) Load(userID string, cb func(error)) {
	s.loading.Set(true)
	go func() {
		entities, err := s.remote.List(userID)
		s.loading.Set(false)
		if err != nil {
			s.fail(err.Error())
			s.done(cb, err)
			return
		}
		s.listMu.Lock()
		s.list.Set(entities)
		s.listMu.Unlock()
		s.succeed()
		s.done(cb, nil)
	}()
}

// Add submits a new entity. There is no speculative insert: only the
// server-confirmed copy, carrying its real id, enters the local list.
func (s *Store[E]) Add(entity E, cb func(error)) {
	if err := entity.Validate(); err != nil {
		s.fail(err.Error())
		s.done(cb, err)
		return
	}

	s.loading.Set(true)
	go func() {
		created, err := s.remote.Create(entity)
		s.loading.Set(false)
		if err != nil {
			s.fail(err.Error())
			s.done(cb, err)
			return
		}
		s.append(created)
		s.succeed()
		if s.hooks.OnCreated != nil {
			s.hooks.OnCreated(created)
		}
		s.done(cb, nil)
	}()
}

// ToggleCompletion flips the completion state optimistically, confirms with
// the backend and rolls the exact prior state back on failure.
func (s *Store[E]) ToggleCompletion(entity E, cb func(error)) {
	key := entity.Key()
	if key == "" {
		err := errors.New("cannot update an unconfirmed entity")
		s.fail(err.Error())
		s.done(cb, err)
		return
	}

	go func() {
		l := s.entityLock(key)
		l.Lock()
		defer l.Unlock()

		prev, ok := s.find(key)
		if !ok {
			err := errors.New("entity no longer present")
			s.fail(err.Error())
			s.done(cb, err)
			return
		}

		if s.hooks.OnMutating != nil {
			s.hooks.OnMutating(prev)
		}

		next := prev.Toggled()
		s.replace(key, next)

		if err := s.remote.Toggle(key); err != nil {
			s.replace(key, prev)
			s.fail(err.Error())
			s.done(cb, err)
			return
		}

		s.succeed()
		if next.IsCompleted() && s.hooks.OnCompleted != nil {
			s.hooks.OnCompleted(next)
		}
		s.done(cb, nil)
	}()
}

// Delete removes the entity optimistically and re-inserts it when the
// backend rejects the call. On success the full list is reloaded.
func (s *Store[E]) Delete(entity E, userID string, cb func(error)) {
	key := entity.Key()
	if key == "" {
		err := errors.New("cannot delete an unconfirmed entity")
		s.fail(err.Error())
		s.done(cb, err)
		return
	}

	go func() {
		l := s.entityLock(key)
		l.Lock()
		defer l.Unlock()

		removed, ok := s.find(key)
		if !ok {
			err := errors.New("entity no longer present")
			s.fail(err.Error())
			s.done(cb, err)
			return
		}
		if s.hooks.OnMutating != nil {
			s.hooks.OnMutating(removed)
		}
		s.remove(key)

		if err := s.remote.Delete(key); err != nil {
			s.append(removed)
			s.fail(err.Error())
			s.done(cb, err)
			return
		}

		s.succeed()
		if s.hooks.OnDeleted != nil {
			s.hooks.OnDeleted(removed)
		}
		s.Load(userID, func(err error) { s.done(cb, err) })
	}()
}
