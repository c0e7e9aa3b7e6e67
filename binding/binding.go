package binding

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hhkbp2/kvbench"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger routes the engines' own diagnostics to l.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

func bindingLogger(engine string) *zap.Logger {
	return logger.Load().With(zap.String("engine", engine))
}

func AddBindings() {
	kvbench.Engines["pebble"] = func(dir string, props kvbench.Properties) (kvbench.StorageEngine, error) {
		return NewPebbleDB(dir, props)
	}
	kvbench.Engines["bolt"] = func(dir string, props kvbench.Properties) (kvbench.StorageEngine, error) {
		return NewBoltDB(dir, props)
	}
	kvbench.Engines["mysql"] = func(dir string, props kvbench.Properties) (kvbench.StorageEngine, error) {
		return NewMysqlDB(props)
	}
	kvbench.Engines["postgres"] = func(dir string, props kvbench.Properties) (kvbench.StorageEngine, error) {
		return NewPostgresDB(props)
	}
	kvbench.Engines["etcd"] = func(dir string, props kvbench.Properties) (kvbench.StorageEngine, error) {
		return NewEtcdDB(dir, props)
	}
}
