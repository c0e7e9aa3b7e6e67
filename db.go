package kvbench

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Family groups engines by on-disk organisation. It selects the
// amplification estimator applied to an engine's statistics.
type Family string

const (
	FamilyLogStructured  Family = "log-structured"
	FamilyPageStructured Family = "page-structured"
	FamilyInMemory       Family = "in-memory"
)

// KV is one key/value pair returned by a range scan.
type KV struct {
	Key   []byte
	Value []byte
}

// StorageEngine is a layer for accessing a key-value store to be
// benchmarked. A single instance is shared by the scheduler loop and the
// progress ticker, so implementations must be safe for concurrent use.
//
// Get reports a miss with found == false and a nil error. RangeScan returns
// at most limit pairs with key >= start, in ascending byte order.
//
// Implementations count the logical bytes they move: key plus value for
// every put, and for every pair returned by a get or a scan.
type StorageEngine interface {
	Put(key, value []byte) error
	Get(key []byte) (value []byte, found bool, err error)
	RangeScan(start []byte, limit int) ([]KV, error)
	// Flush persists buffered writes to durable storage.
	Flush() error
	Name() string
	Family() Family
	Statistics() EngineStatistics
	Close() error
}

// ByteCounters tracks the logical bytes moved through an engine.
type ByteCounters struct {
	written atomic.Uint64
	read    atomic.Uint64
}

func (c *ByteCounters) AddWritten(n int) {
	c.written.Add(uint64(n))
}

func (c *ByteCounters) AddRead(n int) {
	c.read.Add(uint64(n))
}

func (c *ByteCounters) BytesWritten() uint64 {
	return c.written.Load()
}

func (c *ByteCounters) BytesRead() uint64 {
	return c.read.Load()
}

// CountScan adds the size of every returned pair to the read counter.
func (c *ByteCounters) CountScan(kvs []KV) {
	n := 0
	for _, kv := range kvs {
		n += len(kv.Key) + len(kv.Value)
	}
	c.AddRead(n)
}

// Statistics returns the logical counters with nothing reported natively.
func (c *ByteCounters) Statistics() EngineStatistics {
	return EngineStatistics{
		BytesWritten: c.BytesWritten(),
		BytesRead:    c.BytesRead(),
	}
}

// MakeEngineFunc opens an engine keeping its files under dir.
type MakeEngineFunc func(dir string, props Properties) (StorageEngine, error)

var (
	Engines = map[string]MakeEngineFunc{
		"basic": func(dir string, props Properties) (StorageEngine, error) {
			return NewBasicDBFromProperties(props)
		},
	}
)

// EngineNames lists the registered engines in sorted order.
func EngineNames() []string {
	names := make([]string, 0, len(Engines))
	for name := range Engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewEngine(name string, dir string, props Properties) (StorageEngine, error) {
	f, ok := Engines[name]
	if !ok {
		return nil, &ConfigError{
			Field: "engine",
			Err:   fmt.Errorf("%w: %q, registered: %v", ErrUnknownEngine, name, EngineNames()),
		}
	}
	if props == nil {
		props = NewProperties()
	}
	e, err := f(dir, props)
	if err != nil {
		return nil, NewEngineError(name, "open", nil, fmt.Errorf("dir %s: %w", dir, err))
	}
	return e, nil
}
