package binding

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/hhkbp2/testify/require"

	"github.com/hhkbp2/kvbench"
)

func key(i int) []byte {
	return []byte(fmt.Sprintf("%016d", i))
}

// testStorageEngine runs the behaviour every binding shares against a
// fresh, empty engine.
func testStorageEngine(t *testing.T, e kvbench.StorageEngine) {
	_, found, err := e.Get(key(1))
	require.Nil(t, err)
	require.True(t, !found)

	// insert in reverse so scans must sort
	for i := 9; i >= 0; i-- {
		value := bytes.Repeat([]byte{byte('a' + i)}, 100)
		require.Nil(t, e.Put(key(i), value))
	}
	s := e.Statistics()
	require.Equal(t, uint64(10*(16+100)), s.BytesWritten)

	v, found, err := e.Get(key(3))
	require.Nil(t, err)
	require.True(t, found)
	require.Equal(t, bytes.Repeat([]byte("d"), 100), v)

	require.Nil(t, e.Put(key(3), []byte("overwritten")))
	v, found, err = e.Get(key(3))
	require.Nil(t, err)
	require.True(t, found)
	require.Equal(t, []byte("overwritten"), v)

	kvs, err := e.RangeScan(key(2), 4)
	require.Nil(t, err)
	require.Equal(t, 4, len(kvs))
	for i, kv := range kvs {
		require.Equal(t, key(2+i), kv.Key)
	}
	require.Equal(t, []byte("overwritten"), kvs[1].Value)

	kvs, err = e.RangeScan(key(8), 100)
	require.Nil(t, err)
	require.Equal(t, 2, len(kvs))

	kvs, err = e.RangeScan(key(50), 10)
	require.Nil(t, err)
	require.Equal(t, 0, len(kvs))

	for _, limit := range []int{0, -1} {
		kvs, err = e.RangeScan(key(0), limit)
		require.Nil(t, err)
		require.Equal(t, 0, len(kvs))
	}

	require.Nil(t, e.Flush())
	s = e.Statistics()
	require.True(t, s.BytesRead > 0)
	require.True(t, s.DiskSizeReported)
	require.True(t, s.DiskSizeBytes > 0)
}

func TestAddBindings(t *testing.T) {
	AddBindings()
	for _, name := range []string{"basic", "pebble", "bolt", "mysql", "postgres", "etcd"} {
		_, ok := kvbench.Engines[name]
		require.True(t, ok, name)
	}
}

func TestPebbleDB(t *testing.T) {
	db, err := NewPebbleDB(t.TempDir(), kvbench.NewProperties())
	require.Nil(t, err)
	require.Equal(t, "pebble", db.Name())
	require.Equal(t, kvbench.FamilyLogStructured, db.Family())
	testStorageEngine(t, db)
	s := db.Statistics()
	require.True(t, s.CompactionReported)
	// the flush wrote at least one sstable
	require.True(t, s.CompactionBytesWritten > 0)
	amp := kvbench.EstimatorFor(db.Family()).Estimate(s)
	require.Equal(t, "log-structured:native", amp.Model)
	require.True(t, amp.Write >= 1.0)
	require.Nil(t, db.Close())
}

func TestPebbleDBProperties(t *testing.T) {
	p := kvbench.NewProperties()
	p.Add(PropertyPebbleMemTableSize, "0")
	_, err := NewPebbleDB(t.TempDir(), p)
	require.NotNil(t, err)

	p = kvbench.NewProperties()
	p.Add(PropertyPebbleSync, "maybe")
	_, err = NewPebbleDB(t.TempDir(), p)
	require.NotNil(t, err)

	p = kvbench.NewProperties()
	p.Add(PropertyPebbleSync, "true")
	db, err := NewPebbleDB(t.TempDir(), p)
	require.Nil(t, err)
	require.Nil(t, db.Put(key(1), []byte("v")))
	require.Nil(t, db.Close())
}

func TestBoltDB(t *testing.T) {
	dir := t.TempDir()
	db, err := NewBoltDB(dir, kvbench.NewProperties())
	require.Nil(t, err)
	require.Equal(t, "bolt", db.Name())
	require.Equal(t, kvbench.FamilyPageStructured, db.Family())
	testStorageEngine(t, db)
	amp := kvbench.EstimatorFor(db.Family()).Estimate(db.Statistics())
	require.Equal(t, "page-structured:heuristic", amp.Model)
	require.True(t, amp.Space >= 1.0)
	require.Nil(t, db.Close())

	_, err = os.Stat(dir + "/" + BoltFileName)
	require.Nil(t, err)
}

func TestNewEngineThroughRegistry(t *testing.T) {
	AddBindings()
	e, err := kvbench.NewEngine("bolt", t.TempDir(), nil)
	require.Nil(t, err)
	require.Nil(t, e.Put(key(0), []byte("zero")))
	require.Nil(t, e.Close())
}

func TestMysqlDSN(t *testing.T) {
	p := kvbench.NewProperties()
	dsn, err := MysqlDSN(p)
	require.Nil(t, err)
	require.Equal(t, "root:@tcp(127.0.0.1:3306)/kvbench?charset=utf8mb4", dsn)

	p.Add(PropertyMysqlDSN, "not a dsn")
	_, err = MysqlDSN(p)
	require.NotNil(t, err)

	p = kvbench.NewProperties()
	p.Add(PropertyMysqlPort, "port")
	_, err = MysqlDSN(p)
	require.NotNil(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn, err := PostgresDSN(kvbench.NewProperties())
	require.Nil(t, err)
	require.True(t, bytes.Contains([]byte(dsn), []byte("host=127.0.0.1")))

	p := kvbench.NewProperties()
	p.Add(PropertyPostgresDSN, "host=db user=bench")
	dsn, err = PostgresDSN(p)
	require.Nil(t, err)
	require.Equal(t, "host=db user=bench", dsn)
}

func TestSQLTableName(t *testing.T) {
	_, err := openSQLDB(mysqlDialect, "root:@tcp(127.0.0.1:1)/x", "kv; DROP TABLE users", false)
	require.NotNil(t, err)
}

func TestMysqlDB(t *testing.T) {
	dsn := os.Getenv("KVBENCH_MYSQL_DSN")
	if dsn == "" {
		t.Skip("KVBENCH_MYSQL_DSN not set")
	}
	p := kvbench.NewProperties()
	p.Add(PropertyMysqlDSN, dsn)
	p.Add(PropertyMysqlTable, "kvbench_test")
	db, err := NewMysqlDB(p)
	require.Nil(t, err)
	testStorageEngine(t, db)
	require.Nil(t, db.Close())
}

func TestPostgresDB(t *testing.T) {
	dsn := os.Getenv("KVBENCH_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("KVBENCH_POSTGRES_DSN not set")
	}
	p := kvbench.NewProperties()
	p.Add(PropertyPostgresDSN, dsn)
	p.Add(PropertyPostgresTable, "kvbench_test")
	db, err := NewPostgresDB(p)
	require.Nil(t, err)
	testStorageEngine(t, db)
	require.Nil(t, db.Close())
}

func TestEtcdDB(t *testing.T) {
	endpoints := os.Getenv("KVBENCH_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("KVBENCH_ETCD_ENDPOINTS not set")
	}
	p := kvbench.NewProperties()
	p.Add(PropertyEtcdEndpoints, endpoints)
	db, err := NewEtcdDB(t.TempDir(), p)
	require.Nil(t, err)
	testStorageEngine(t, db)
	require.Nil(t, db.Close())
}

func TestEtcdDBProperties(t *testing.T) {
	p := kvbench.NewProperties()
	p.Add(PropertyEtcdEndpoints, " , ")
	_, err := NewEtcdDB(t.TempDir(), p)
	require.NotNil(t, err)

	p = kvbench.NewProperties()
	p.Add(PropertyEtcdTimeout, "-1s")
	_, err = NewEtcdDB(t.TempDir(), p)
	require.NotNil(t, err)
}
