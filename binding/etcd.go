package binding

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/hhkbp2/kvbench"
)

const (
	PropertyEtcdEndpoints        = "etcd.endpoints"
	PropertyEtcdEndpointsDefault = "127.0.0.1:2379"
	PropertyEtcdTimeout          = "etcd.timeout"
	PropertyEtcdTimeoutDefault   = "5s"
	PropertyEtcdPrefix           = "etcd.prefix"
	PropertyEtcdPrefixDefault    = "/kvbench/"
	PropertyEtcdKeepKeys         = "etcd.keepkeys"
	PropertyEtcdKeepKeysDefault  = false
)

// EtcdDB benchmarks an etcd cluster. Every run writes under its own key
// prefix, derived from the engine directory name, so runs sharing a
// cluster do not see each other's keys.
type EtcdDB struct {
	kvbench.ByteCounters
	client    *clientv3.Client
	endpoints []string
	prefix    string
	rangeEnd  string
	timeout   time.Duration
	keepKeys  bool
}

func NewEtcdDB(dir string, props kvbench.Properties) (*EtcdDB, error) {
	var endpoints []string
	for _, ep := range strings.Split(props.GetDefault(PropertyEtcdEndpoints, PropertyEtcdEndpointsDefault), ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			endpoints = append(endpoints, ep)
		}
	}
	if len(endpoints) == 0 {
		return nil, kvbench.NewConfigError("properties", PropertyEtcdEndpoints, "no endpoint given")
	}
	timeout, err := time.ParseDuration(props.GetDefault(PropertyEtcdTimeout, PropertyEtcdTimeoutDefault))
	if err != nil || timeout <= 0 {
		return nil, kvbench.NewConfigError("properties", PropertyEtcdTimeout, "invalid timeout %q",
			props.Get(PropertyEtcdTimeout))
	}
	keepKeys, err := props.GetBool(PropertyEtcdKeepKeys, PropertyEtcdKeepKeysDefault)
	if err != nil {
		return nil, err
	}
	prefix := props.GetDefault(PropertyEtcdPrefix, PropertyEtcdPrefixDefault) + filepath.Base(dir) + "/"
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
		Logger:      bindingLogger("etcd"),
	})
	if err != nil {
		return nil, err
	}
	e := &EtcdDB{
		client:    client,
		endpoints: endpoints,
		prefix:    prefix,
		rangeEnd:  clientv3.GetPrefixRangeEnd(prefix),
		timeout:   timeout,
		keepKeys:  keepKeys,
	}
	// the client dials lazily; fail the open instead of the first put.
	ctx, cancel := e.context()
	defer cancel()
	if _, err := client.Status(ctx, endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("etcd %s: %w", endpoints[0], err)
	}
	return e, nil
}

func (e *EtcdDB) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.timeout)
}

func (e *EtcdDB) Put(key, value []byte) error {
	ctx, cancel := e.context()
	defer cancel()
	if _, err := e.client.Put(ctx, e.prefix+string(key), string(value)); err != nil {
		return err
	}
	e.AddWritten(len(key) + len(value))
	return nil
}

func (e *EtcdDB) Get(key []byte) ([]byte, bool, error) {
	ctx, cancel := e.context()
	defer cancel()
	resp, err := e.client.Get(ctx, e.prefix+string(key))
	if err != nil {
		return nil, false, err
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	value := resp.Kvs[0].Value
	e.AddRead(len(key) + len(value))
	return value, true, nil
}

func (e *EtcdDB) RangeScan(start []byte, limit int) ([]kvbench.KV, error) {
	// etcd reads a zero limit as unlimited
	if limit <= 0 {
		return []kvbench.KV{}, nil
	}
	ctx, cancel := e.context()
	defer cancel()
	resp, err := e.client.Get(ctx, e.prefix+string(start),
		clientv3.WithRange(e.rangeEnd),
		clientv3.WithLimit(int64(limit)),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}
	ret := make([]kvbench.KV, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		ret = append(ret, kvbench.KV{
			Key:   kv.Key[len(e.prefix):],
			Value: kv.Value,
		})
	}
	e.CountScan(ret)
	return ret, nil
}

// Flush is a no-op, etcd acknowledges a put once it is committed to the
// raft log.
func (e *EtcdDB) Flush() error {
	return nil
}

func (e *EtcdDB) Name() string {
	return "etcd"
}

func (e *EtcdDB) Family() kvbench.Family {
	return kvbench.FamilyPageStructured
}

// Statistics reports the backend database size of the first endpoint.
// It covers every key of the cluster, not only this run's prefix.
func (e *EtcdDB) Statistics() kvbench.EngineStatistics {
	s := e.ByteCounters.Statistics()
	ctx, cancel := e.context()
	defer cancel()
	status, err := e.client.Status(ctx, e.endpoints[0])
	if err != nil {
		bindingLogger("etcd").Warn("status unavailable", zap.Error(err))
		return s
	}
	if status.DbSize > 0 {
		s.DiskSizeBytes = uint64(status.DbSize)
		s.DiskSizeReported = true
	}
	return s
}

func (e *EtcdDB) Close() error {
	var err error
	if !e.keepKeys {
		ctx, cancel := e.context()
		_, err = e.client.Delete(ctx, e.prefix, clientv3.WithPrefix())
		cancel()
	}
	if cerr := e.client.Close(); err == nil {
		err = cerr
	}
	return err
}
