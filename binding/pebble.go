package binding

import (
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/hhkbp2/kvbench"
)

const (
	PropertyPebbleMemTableSize        = "pebble.memtablesize"
	PropertyPebbleMemTableSizeDefault = 64 << 20
	PropertyPebbleSync                = "pebble.sync"
	PropertyPebbleSyncDefault         = false
	PropertyPebbleCacheSize           = "pebble.cachesize"
	PropertyPebbleCacheSizeDefault    = 8 << 20
)

// PebbleDB benchmarks a pebble LSM tree. Amplification uses pebble's own
// flush and compaction counters.
type PebbleDB struct {
	kvbench.ByteCounters
	db        *pebble.DB
	cache     *pebble.Cache
	writeOpts *pebble.WriteOptions
}

func NewPebbleDB(dir string, props kvbench.Properties) (*PebbleDB, error) {
	memTableSize, err := props.GetInt(PropertyPebbleMemTableSize, PropertyPebbleMemTableSizeDefault)
	if err != nil {
		return nil, err
	}
	cacheSize, err := props.GetInt(PropertyPebbleCacheSize, PropertyPebbleCacheSizeDefault)
	if err != nil {
		return nil, err
	}
	syncWrites, err := props.GetBool(PropertyPebbleSync, PropertyPebbleSyncDefault)
	if err != nil {
		return nil, err
	}
	if memTableSize <= 0 || cacheSize < 0 {
		return nil, kvbench.NewConfigError("properties", PropertyPebbleMemTableSize,
			"memtable size %d and cache size %d must be positive", memTableSize, cacheSize)
	}
	cache := pebble.NewCache(cacheSize)
	opts := &pebble.Options{
		Cache:        cache,
		MemTableSize: uint64(memTableSize),
		Logger:       bindingLogger("pebble").Sugar(),
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		cache.Unref()
		return nil, err
	}
	writeOpts := pebble.NoSync
	if syncWrites {
		writeOpts = pebble.Sync
	}
	return &PebbleDB{
		db:        db,
		cache:     cache,
		writeOpts: writeOpts,
	}, nil
}

func (p *PebbleDB) Put(key, value []byte) error {
	if err := p.db.Set(key, value, p.writeOpts); err != nil {
		return err
	}
	p.AddWritten(len(key) + len(value))
	return nil
}

func (p *PebbleDB) Get(key []byte) ([]byte, bool, error) {
	v, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value := append([]byte(nil), v...)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	p.AddRead(len(key) + len(value))
	return value, true, nil
}

func (p *PebbleDB) RangeScan(start []byte, limit int) (ret []kvbench.KV, err error) {
	if limit <= 0 {
		return []kvbench.KV{}, nil
	}
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: start})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := iter.Close(); cerr != nil && err == nil {
			ret, err = nil, cerr
		}
	}()
	ret = make([]kvbench.KV, 0, limit)
	for valid := iter.First(); valid && len(ret) < limit; valid = iter.Next() {
		ret = append(ret, kvbench.KV{
			Key:   append([]byte(nil), iter.Key()...),
			Value: append([]byte(nil), iter.Value()...),
		})
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	p.CountScan(ret)
	return ret, nil
}

func (p *PebbleDB) Flush() error {
	return p.db.Flush()
}

func (p *PebbleDB) Name() string {
	return "pebble"
}

func (p *PebbleDB) Family() kvbench.Family {
	return kvbench.FamilyLogStructured
}

// Statistics counts flushed and compacted bytes as the engine's
// background writes.
func (p *PebbleDB) Statistics() kvbench.EngineStatistics {
	s := p.ByteCounters.Statistics()
	m := p.db.Metrics()
	total := m.Total()
	s.CompactionBytesWritten = total.BytesFlushed + total.BytesCompacted
	s.CompactionBytesRead = total.BytesRead
	s.CompactionReported = true
	s.DiskSizeBytes = m.DiskSpaceUsage()
	s.DiskSizeReported = true
	return s
}

func (p *PebbleDB) Close() error {
	err := p.db.Close()
	p.cache.Unref()
	return err
}
