package binding

import (
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hhkbp2/kvbench"
)

const (
	PropertyBoltNoSync        = "bolt.nosync"
	PropertyBoltNoSyncDefault = true
	PropertyBoltBucket        = "bolt.bucket"
	PropertyBoltBucketDefault = "kvbench"

	BoltFileName = "kvbench.db"
)

// BoltDB benchmarks a bbolt B+tree holding every pair in one bucket.
// Writes are unsynced by default and Flush fsyncs the file.
type BoltDB struct {
	kvbench.ByteCounters
	db     *bolt.DB
	bucket []byte
}

func NewBoltDB(dir string, props kvbench.Properties) (*BoltDB, error) {
	noSync, err := props.GetBool(PropertyBoltNoSync, PropertyBoltNoSyncDefault)
	if err != nil {
		return nil, err
	}
	bucket := []byte(props.GetDefault(PropertyBoltBucket, PropertyBoltBucketDefault))
	db, err := bolt.Open(filepath.Join(dir, BoltFileName), 0600, &bolt.Options{
		Timeout: time.Second,
		NoSync:  noSync,
	})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltDB{
		db:     db,
		bucket: bucket,
	}, nil
}

func (b *BoltDB) Put(key, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put(key, value)
	})
	if err != nil {
		return err
	}
	b.AddWritten(len(key) + len(value))
	return nil
}

func (b *BoltDB) Get(key []byte) (value []byte, found bool, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		// values are only valid during the transaction
		if v := tx.Bucket(b.bucket).Get(key); v != nil {
			value = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if found {
		b.AddRead(len(key) + len(value))
	}
	return value, found, nil
}

func (b *BoltDB) RangeScan(start []byte, limit int) ([]kvbench.KV, error) {
	if limit <= 0 {
		return []kvbench.KV{}, nil
	}
	ret := make([]kvbench.KV, 0, limit)
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(b.bucket).Cursor()
		for k, v := c.Seek(start); k != nil && len(ret) < limit; k, v = c.Next() {
			ret = append(ret, kvbench.KV{
				Key:   append([]byte(nil), k...),
				Value: append([]byte(nil), v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.CountScan(ret)
	return ret, nil
}

func (b *BoltDB) Flush() error {
	return b.db.Sync()
}

func (b *BoltDB) Name() string {
	return "bolt"
}

func (b *BoltDB) Family() kvbench.Family {
	return kvbench.FamilyPageStructured
}

// Statistics reports the data file size. bbolt keeps no compaction
// counters so the page heuristic supplies the background writes.
func (b *BoltDB) Statistics() kvbench.EngineStatistics {
	s := b.ByteCounters.Statistics()
	err := b.db.View(func(tx *bolt.Tx) error {
		s.DiskSizeBytes = uint64(tx.Size())
		return nil
	})
	s.DiskSizeReported = err == nil
	return s
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}
