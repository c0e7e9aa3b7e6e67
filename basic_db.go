package kvbench

import (
	"bytes"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// BasicDB is an in-memory sorted store. It is useful for dry runs of a
// workload and as the engine under test of the scheduler.
type BasicDB struct {
	ByteCounters
	name      string
	delay     time.Duration
	failAfter uint64

	lock    sync.RWMutex
	keys    [][]byte
	values  map[string][]byte
	live    uint64
	puts    atomic.Uint64
	flushes atomic.Uint64
}

func NewBasicDB() *BasicDB {
	return &BasicDB{
		name:   "basic",
		values: make(map[string][]byte),
	}
}

func NewBasicDBFromProperties(p Properties) (*BasicDB, error) {
	db := NewBasicDB()
	delay, err := p.GetInt(PropertyBasicDBDelay, 0)
	if err != nil {
		return nil, err
	}
	failAfter, err := p.GetInt(PropertyBasicDBFailAfter, 0)
	if err != nil {
		return nil, err
	}
	if delay < 0 || failAfter < 0 {
		return nil, NewConfigError("properties", PropertyBasicDBDelay, "must not be negative")
	}
	db.SetDelay(time.Duration(delay) * time.Microsecond)
	db.SetFailAfter(uint64(failAfter))
	return db, nil
}

// SetDelay adds a fixed latency to every operation.
func (db *BasicDB) SetDelay(d time.Duration) {
	db.delay = d
}

// SetFailAfter makes the n-th put fail with ErrInjected. Zero disables it.
func (db *BasicDB) SetFailAfter(n uint64) {
	db.failAfter = n
}

func (db *BasicDB) wait() {
	if db.delay > 0 {
		time.Sleep(db.delay)
	}
}

func (db *BasicDB) Put(key, value []byte) error {
	db.wait()
	n := db.puts.Add(1)
	if db.failAfter > 0 && n == db.failAfter {
		return ErrInjected
	}
	db.AddWritten(len(key) + len(value))
	k := string(key)
	v := append([]byte(nil), value...)

	db.lock.Lock()
	defer db.lock.Unlock()
	if old, ok := db.values[k]; ok {
		db.live -= uint64(len(old))
	} else {
		i := sort.Search(len(db.keys), func(i int) bool {
			return bytes.Compare(db.keys[i], key) >= 0
		})
		db.keys = append(db.keys, nil)
		copy(db.keys[i+1:], db.keys[i:])
		db.keys[i] = []byte(k)
		db.live += uint64(len(key))
	}
	db.values[k] = v
	db.live += uint64(len(v))
	return nil
}

func (db *BasicDB) Get(key []byte) ([]byte, bool, error) {
	db.wait()
	db.lock.RLock()
	v, ok := db.values[string(key)]
	db.lock.RUnlock()
	if !ok {
		return nil, false, nil
	}
	db.AddRead(len(key) + len(v))
	return append([]byte(nil), v...), true, nil
}

func (db *BasicDB) RangeScan(start []byte, limit int) ([]KV, error) {
	db.wait()
	db.lock.RLock()
	i := sort.Search(len(db.keys), func(i int) bool {
		return bytes.Compare(db.keys[i], start) >= 0
	})
	ret := make([]KV, 0)
	for ; i < len(db.keys) && len(ret) < limit; i++ {
		k := db.keys[i]
		ret = append(ret, KV{
			Key:   append([]byte(nil), k...),
			Value: append([]byte(nil), db.values[string(k)]...),
		})
	}
	db.lock.RUnlock()
	db.CountScan(ret)
	return ret, nil
}

func (db *BasicDB) Flush() error {
	db.flushes.Add(1)
	return nil
}

// Flushes returns how many times Flush was called.
func (db *BasicDB) Flushes() uint64 {
	return db.flushes.Load()
}

// Len returns the number of live keys.
func (db *BasicDB) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return len(db.keys)
}

func (db *BasicDB) Name() string {
	return db.name
}

func (db *BasicDB) Family() Family {
	return FamilyInMemory
}

// Statistics reports the live key and value bytes as the disk footprint.
func (db *BasicDB) Statistics() EngineStatistics {
	s := db.ByteCounters.Statistics()
	db.lock.RLock()
	s.DiskSizeBytes = db.live
	db.lock.RUnlock()
	s.DiskSizeReported = true
	s.CompactionReported = true
	return s
}

func (db *BasicDB) Close() error {
	return nil
}
