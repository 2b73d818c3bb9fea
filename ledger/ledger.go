// Package ledger provides shared component state changed by atomic units of work.
package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when requested storage item is missing.
	ErrNotFound = errors.New("storage item not found")
	// ErrExists is returned when item is created under already occupied key.
	// Commit returns it too if the key was occupied by a concurrent unit.
	ErrExists = errors.New("storage item already exists")
	// ErrConflict is returned by Commit when an item read within the unit
	// has been changed by a concurrent unit.
	ErrConflict = errors.New("storage item was concurrently modified")
	// ErrTxDone is returned when unit of work is used after it was committed
	// or rolled back.
	ErrTxDone = errors.New("unit of work is already finished")
)

// Notification is an event emitted by the component within the unit of work.
// Notifications are delivered only if the unit is committed.
type Notification struct {
	// ID of the emitting component.
	Component int32
	// Event name.
	Name string
	// Event payload.
	Item stackitem.Item
}

// Prm groups parameters of the Ledger.
type Prm struct {
	// Underlying store holding the committed state.
	// Defaults to storage.NewMemoryStore.
	Store storage.Store

	// Writes results of the units of work into the log. Defaults to no-op.
	Logger *zap.Logger

	// Optional receiver of the notifications emitted by committed units.
	// Called synchronously from Commit in emission order.
	OnNotification func(Notification)
}

// Ledger is a key-value state shared by the components. Each component owns
// its own part of the state identified by int32 ID, keys are laid out the
// same way Neo contract storage items are.
//
// All state changes are made within units of work (see Tx). Ledger is safe
// for concurrent use, however each particular Tx is not.
type Ledger struct {
	commitMtx sync.Mutex

	store storage.Store

	log *zap.Logger

	onNotification func(Notification)
}

// New constructs Ledger from the given parameters.
func New(prm Prm) *Ledger {
	l := &Ledger{
		store:          prm.Store,
		log:            prm.Logger,
		onNotification: prm.OnNotification,
	}

	if l.store == nil {
		l.store = storage.NewMemoryStore()
	}

	if l.log == nil {
		l.log = zap.NewNop()
	}

	return l
}

func storageKey(id int32, key []byte) []byte {
	res := make([]byte, 5+len(key))
	res[0] = byte(storage.STStorage)
	binary.LittleEndian.PutUint32(res[1:], uint32(id))
	copy(res[5:], key)

	return res
}

// Get returns committed value of the component's item. Returns ErrNotFound
// if there is no such item.
func (l *Ledger) Get(id int32, key []byte) ([]byte, error) {
	return l.get(storageKey(id, key))
}

func (l *Ledger) get(key []byte) ([]byte, error) {
	v, err := l.store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read storage item: %w", err)
	}

	return v, nil
}

// Len returns number of committed items owned by the component.
func (l *Ledger) Len(id int32) int {
	var n int

	l.store.Seek(storage.SeekRange{Prefix: storageKey(id, nil)}, func(_, _ []byte) bool {
		n++
		return true
	})

	return n
}

// Run executes f within new unit of work. The unit is committed if f returns
// no error and rolled back otherwise, so either all changes made by f become
// visible or none of them.
func (l *Ledger) Run(ctx context.Context, f func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := l.Begin()
	defer func() {
		if !tx.done {
			tx.Rollback()
		}
	}()

	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Begin opens new unit of work. The unit must be finished with either Commit
// or Rollback.
func (l *Ledger) Begin() *Tx {
	return &Tx{
		l:       l,
		cache:   storage.NewMemCachedStore(l.store),
		reads:   make(map[string][]byte),
		writes:  make(map[string]struct{}),
		created: make(map[string]struct{}),
	}
}

// Tx is a unit of work over the Ledger. Reads are repeatable within the unit:
// the first observed value of the item is kept until the end. Commit checks
// that none of the observed items was changed by the concurrently committed
// units.
type Tx struct {
	l *Ledger

	done bool

	cache *storage.MemCachedStore

	// observed committed values, nil for missing items
	reads map[string][]byte
	// items written within the unit
	writes map[string]struct{}
	// items created within the unit
	created map[string]struct{}

	events []Notification
}

// Get returns value of the component's item as it is seen within the unit.
// Returns ErrNotFound if there is no such item.
func (tx *Tx) Get(id int32, key []byte) ([]byte, error) {
	if tx.done {
		return nil, ErrTxDone
	}

	return tx.get(storageKey(id, key))
}

func (tx *Tx) get(k []byte) ([]byte, error) {
	sk := string(k)

	if _, ok := tx.writes[sk]; ok {
		v, err := tx.cache.Get(k)
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				return nil, ErrNotFound
			}

			return nil, fmt.Errorf("read cached storage item: %w", err)
		}

		return bytes.Clone(v), nil
	}

	v, ok := tx.reads[sk]
	if !ok {
		var err error

		v, err = tx.l.get(k)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		tx.reads[sk] = bytes.Clone(v)
	}

	if v == nil {
		return nil, ErrNotFound
	}

	return bytes.Clone(v), nil
}

// Put sets value of the component's item within the unit.
func (tx *Tx) Put(id int32, key, value []byte) error {
	if tx.done {
		return ErrTxDone
	}

	tx.put(storageKey(id, key), value)

	return nil
}

func (tx *Tx) put(k, value []byte) {
	tx.writes[string(k)] = struct{}{}
	tx.cache.Put(k, bytes.Clone(value))
}

// Delete removes the component's item within the unit.
func (tx *Tx) Delete(id int32, key []byte) error {
	if tx.done {
		return ErrTxDone
	}

	k := storageKey(id, key)

	tx.writes[string(k)] = struct{}{}
	tx.cache.Delete(k)

	return nil
}

// Create puts new item of the component within the unit. Returns ErrExists
// if the item is already present. If the same item is created by the
// concurrent unit, the one committed last fails with ErrExists.
func (tx *Tx) Create(id int32, key, value []byte) error {
	if tx.done {
		return ErrTxDone
	}

	k := storageKey(id, key)

	_, err := tx.get(k)
	if err == nil {
		return ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	tx.put(k, value)
	tx.created[string(k)] = struct{}{}

	return nil
}

// Created checks whether the component's item was created within this unit.
func (tx *Tx) Created(id int32, key []byte) bool {
	_, ok := tx.created[string(storageKey(id, key))]
	return ok
}

// Notify queues notification of the component. It will be delivered if the
// unit is committed.
func (tx *Tx) Notify(id int32, name string, item stackitem.Item) error {
	if tx.done {
		return ErrTxDone
	}

	tx.events = append(tx.events, Notification{
		Component: id,
		Name:      name,
		Item:      item,
	})

	return nil
}

// Commit atomically applies all changes made within the unit to the Ledger
// and delivers queued notifications. If any of the items observed within the
// unit was changed concurrently, Commit applies nothing and returns
// ErrExists if any of the created items is already present or ErrConflict
// otherwise.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}

	tx.done = true

	n, err := tx.commit()
	if err != nil {
		tx.l.log.Debug("unit of work aborted", zap.Error(err))
		return err
	}

	tx.l.log.Debug("unit of work committed",
		zap.Int("items", n), zap.Int("notifications", len(tx.events)))

	if tx.l.onNotification != nil {
		for i := range tx.events {
			tx.l.onNotification(tx.events[i])
		}
	}

	return nil
}

func (tx *Tx) commit() (int, error) {
	tx.l.commitMtx.Lock()
	defer tx.l.commitMtx.Unlock()

	// lost creation takes precedence over other conflicts
	for k := range tx.created {
		_, err := tx.l.get([]byte(k))
		if err == nil {
			return 0, ErrExists
		} else if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
	}

	for k, seen := range tx.reads {
		if _, ok := tx.created[k]; ok {
			continue
		}

		v, err := tx.l.get([]byte(k))
		if err != nil && !errors.Is(err, ErrNotFound) {
			return 0, err
		}

		if (v == nil) == (seen == nil) && bytes.Equal(v, seen) {
			continue
		}

		return 0, ErrConflict
	}

	n, err := tx.cache.Persist()
	if err != nil {
		return 0, fmt.Errorf("persist changes: %w", err)
	}

	return n, nil
}

// Rollback discards all changes made within the unit.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}

	tx.done = true
	tx.events = nil
	tx.cache = nil

	tx.l.log.Debug("unit of work rolled back", zap.Int("items", len(tx.writes)))
}
