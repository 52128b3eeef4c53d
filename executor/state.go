package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/xyths/hs"
	"go.mongodb.org/mongo-driver/mongo"
)

// ClientIdManager numbers order comments as prefix-closes-opens-unique.
// Counters live in memory and are mirrored to coll when it is set.
type ClientIdManager struct {
	sep    string
	lock   sync.RWMutex
	opens  int64
	closes int64
	unique int64
	coll   *mongo.Collection
}

func NewClientIdManager(sep string, coll *mongo.Collection) *ClientIdManager {
	m := &ClientIdManager{}
	m.Init(sep, coll)
	return m
}

func (m *ClientIdManager) Init(sep string, coll *mongo.Collection) {
	m.sep = sep
	m.coll = coll
}

func (m *ClientIdManager) Load(ctx context.Context) (err error) {
	if m.coll == nil {
		return nil
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.opens, err = loadInt64(ctx, m.coll, "opens"); err != nil {
		return
	}
	if m.closes, err = loadInt64(ctx, m.coll, "closes"); err != nil {
		return
	}
	m.unique, err = loadInt64(ctx, m.coll, "unique")
	return
}

func loadInt64(ctx context.Context, coll *mongo.Collection, key string) (int64, error) {
	v, err := hs.LoadInt64(ctx, coll, key)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	return v, err
}

func (m *ClientIdManager) save(ctx context.Context, key string, v int64) error {
	if m.coll == nil {
		return nil
	}
	return hs.SaveInt64(ctx, m.coll, key, v)
}

func (m *ClientIdManager) OpenAdd(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.opens++
	return m.save(ctx, "opens", m.opens)
}

func (m *ClientIdManager) CloseAdd(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closes++
	return m.save(ctx, "closes", m.closes)
}

func (m *ClientIdManager) Counts() (opens, closes int64) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.opens, m.closes
}

func (m *ClientIdManager) GetClientOrderId(ctx context.Context, prefix string) (string, error) {
	unique, err := m.getUniqueId(ctx)
	if err != nil {
		return "", err
	}
	m.lock.RLock()
	closes := m.closes
	opens := m.opens
	m.lock.RUnlock()
	return fmt.Sprintf("%[2]s%[1]s%[3]d%[1]s%[4]d%[1]s%[5]d", m.sep, prefix, closes, opens, unique), nil
}

func (m *ClientIdManager) getUniqueId(ctx context.Context) (int64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.unique = (m.unique + 1) % 10000
	if err := m.save(ctx, "unique", m.unique); err != nil {
		return 0, errors.Wrap(err, "save unique id")
	}
	return m.unique, nil
}

// NewPersistentIdManager keeps the counters in the state collection of db.
func NewPersistentIdManager(db *mongo.Database) *ClientIdManager {
	return NewClientIdManager(sep, db.Collection(collNameState))
}
