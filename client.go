package kvbench

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	g "github.com/hhkbp2/kvbench/generator"
)

// Phase is the lifecycle state of a WorkloadScheduler.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhasePopulating
	PhaseRunning
	PhaseDraining
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhasePopulating:
		return "POPULATING"
	case PhaseRunning:
		return "RUNNING"
	case PhaseDraining:
		return "DRAINING"
	case PhaseCompleted:
		return "COMPLETED"
	case PhaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN_PHASE"
	}
}

// Engine operation names used in errors.
const (
	OpPut       = "put"
	OpGet       = "get"
	OpRangeScan = "range_scan"
	OpFlush     = "flush"
)

// Progress is the snapshot handed to a ProgressFunc on every tick.
type Progress struct {
	Engine     string
	Phase      Phase
	Operations uint64
	Elapsed    time.Duration
	Ticks      uint64
}

func (p Progress) Throughput() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Operations) / p.Elapsed.Seconds()
}

type ProgressFunc func(p Progress)

type SchedulerOptions struct {
	Logger *zap.Logger
	RunID  string
	// ProgressInterval is the tick period; zero selects
	// DefaultProgressInterval and a negative value disables the ticker.
	ProgressInterval time.Duration
	OnProgress       ProgressFunc
}

// WorkloadScheduler drives one engine through populate, run and drain.
//
// The scheduler loop is single threaded. A separate ticker goroutine
// reports progress; it only reads the atomic operation counter and
// increments its own tick counter.
type WorkloadScheduler struct {
	config   *WorkloadConfig
	engine   StorageEngine
	name     string
	opts     SchedulerOptions
	logger   *zap.Logger
	recorder *LatencyRecorder
	gen      *g.KeyValueGenerator

	phase     atomic.Int32
	ops       atomic.Uint64
	ticks     atomic.Uint64
	flushes   uint64
	populated uint64
	opCounts  map[OperationType]int64
}

func NewWorkloadScheduler(config *WorkloadConfig, engine StorageEngine, opts SchedulerOptions) *WorkloadScheduler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.ProgressInterval == 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	name := engine.Name()
	return &WorkloadScheduler{
		config:   config,
		engine:   engine,
		name:     name,
		opts:     opts,
		logger:   logger.With(zap.String("engine", name)),
		recorder: NewLatencyRecorder(),
		gen:      g.NewKeyValueGenerator(config.KeySize, config.ValueSize, config.Seed),
		opCounts: make(map[OperationType]int64, len(Operations)),
	}
}

func (s *WorkloadScheduler) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *WorkloadScheduler) setPhase(p Phase) {
	s.phase.Store(int32(p))
	s.logger.Info("phase", zap.Stringer("phase", p))
}

// Operations returns the number of running phase operations issued so far.
func (s *WorkloadScheduler) Operations() uint64 {
	return s.ops.Load()
}

// Ticks returns how many times the progress ticker fired.
func (s *WorkloadScheduler) Ticks() uint64 {
	return s.ticks.Load()
}

func (s *WorkloadScheduler) Recorder() *LatencyRecorder {
	return s.recorder
}

// Run executes the whole workload. Any engine error aborts the run and
// leaves the scheduler in PhaseFailed.
func (s *WorkloadScheduler) Run() (*BenchmarkResult, error) {
	if !s.phase.CompareAndSwap(int32(PhaseIdle), int32(PhasePopulating)) {
		return nil, fmt.Errorf("scheduler for %s already started", s.name)
	}
	startedAt := time.Now().UTC()
	s.logger.Info("phase", zap.Stringer("phase", PhasePopulating), zap.Object("workload", s.config))
	stop := s.startProgress()
	defer stop()

	if err := s.populate(); err != nil {
		return nil, s.fail(err)
	}
	s.setPhase(PhaseRunning)
	start := time.Now()
	err := s.run(start)
	if err == nil {
		s.setPhase(PhaseDraining)
		err = s.flush()
	}
	elapsed := time.Since(start)
	if err != nil {
		return nil, s.fail(err)
	}
	result := s.result(startedAt, elapsed)
	s.setPhase(PhaseCompleted)
	s.logger.Info("run completed",
		zap.Uint64("operations", result.Operations),
		zap.Float64("throughput", result.Throughput),
		zap.Float64("write_amplification", result.WriteAmplification),
		zap.Float64("space_amplification", result.SpaceAmplification),
		zap.String("latency", s.recorder.GetSummary()))
	return result, nil
}

func (s *WorkloadScheduler) fail(err error) error {
	s.phase.Store(int32(PhaseFailed))
	s.logger.Error("run failed", zap.Error(err))
	return err
}

func (s *WorkloadScheduler) flush() error {
	if err := s.engine.Flush(); err != nil {
		return NewEngineError(s.name, OpFlush, nil, err)
	}
	s.flushes++
	return nil
}

func (s *WorkloadScheduler) populate() error {
	n := s.config.PopulateKeys()
	interval := uint64(s.config.FlushInterval)
	s.gen.Reset()
	counter := g.NewCounterGenerator(0)
	for i := uint64(0); i < n; i++ {
		index := uint64(counter.NextInt())
		key := s.gen.Key(index)
		var value []byte
		if s.config.ConstantPopulateValues {
			value = s.gen.ConstantValue()
		} else {
			value = s.gen.ValueAt(index)
		}
		if err := s.engine.Put(key, value); err != nil {
			return NewEngineError(s.name, OpPut, key, err)
		}
		if (i+1)%interval == 0 {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}
	if err := s.flush(); err != nil {
		return err
	}
	s.populated = n
	s.logger.Debug("populated", zap.Uint64("keys", n))
	return nil
}

func (s *WorkloadScheduler) keyGenerators() (writes, reads g.IntegerGenerator) {
	rng := s.gen.Rand()
	last := int64(s.config.TotalKeys()) - 1
	writes = g.NewUniformIntegerGenerator(rng, 0, last)
	switch s.config.KeyDistribution {
	case KeyDistributionPopulated:
		if upper := int64(s.populated) - 1; upper > 0 {
			reads = g.NewUniformIntegerGenerator(rng, 0, upper)
		} else {
			reads = g.NewConstantIntegerGenerator(0)
		}
	case KeyDistributionZipfian:
		reads = g.NewZipfianGeneratorByInterval(rng, 0, last)
	default:
		reads = writes
	}
	return
}

func (s *WorkloadScheduler) run(start time.Time) error {
	s.gen.Reset()
	chooser := g.NewDiscreteGenerator[OperationType](s.gen.Rand())
	chooser.AddValue(s.config.Writes, OperationWrite)
	chooser.AddValue(s.config.Scans, OperationScan)
	chooser.AddValue(s.config.Reads, OperationRead)
	writeKeys, readKeys := s.keyGenerators()

	deadline := start.Add(s.config.Duration)
	interval := uint64(s.config.FlushInterval)
	limit := s.config.OperationCount
	for {
		if limit > 0 && s.ops.Load() >= limit {
			break
		}
		if !time.Now().Before(deadline) {
			break
		}
		op := chooser.Next()
		var index int64
		if op == OperationWrite {
			index = writeKeys.NextInt()
		} else {
			index = readKeys.NextInt()
		}
		if err := s.doOperation(op, s.gen.Key(uint64(index))); err != nil {
			return err
		}
		s.opCounts[op]++
		if n := s.ops.Add(1); n%interval == 0 {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *WorkloadScheduler) doOperation(op OperationType, key []byte) error {
	var (
		name  string
		err   error
		begin time.Time
	)
	switch op {
	case OperationWrite:
		name = OpPut
		value := s.gen.Value()
		begin = time.Now()
		err = s.engine.Put(key, value)
	case OperationRead:
		name = OpGet
		begin = time.Now()
		_, _, err = s.engine.Get(key)
	case OperationScan:
		name = OpRangeScan
		begin = time.Now()
		_, err = s.engine.RangeScan(key, s.config.ScanLength)
	default:
		return &MeasurementError{Class: op, Err: errors.New("unknown operation class")}
	}
	latency := time.Since(begin)
	if err != nil {
		return NewEngineError(s.name, name, key, err)
	}
	return s.recorder.Record(op, latency)
}

func (s *WorkloadScheduler) result(startedAt time.Time, elapsed time.Duration) *BenchmarkResult {
	ops := s.ops.Load()
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(ops) / elapsed.Seconds()
	}
	amp := EstimatorFor(s.engine.Family()).Estimate(s.engine.Statistics())
	counts := make(map[string]int64, len(s.opCounts))
	for op, n := range s.opCounts {
		counts[op.String()] = n
	}
	runtime.GC()
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return &BenchmarkResult{
		RunID:              s.opts.RunID,
		Engine:             s.name,
		Family:             s.engine.Family(),
		StartedAt:          startedAt,
		Throughput:         throughput,
		Operations:         ops,
		Duration:           Duration(elapsed),
		Latencies:          s.recorder.Snapshot(),
		ScanLatencies:      s.recorder.ScanSnapshot(),
		WriteAmplification: amp.Write,
		SpaceAmplification: amp.Space,
		AmplificationModel: amp.Model,
		Statistics:         amp.Statistics,
		OperationCounts:    counts,
		Flushes:            s.flushes,
		MemoryBytes:        mem.HeapInuse,
		ClampedSamples:     s.recorder.Clamped(),
		Workload:           s.config,
	}
}

func (s *WorkloadScheduler) startProgress() func() {
	if s.opts.ProgressInterval < 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.opts.ProgressInterval)
		defer ticker.Stop()
		begin := time.Now()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.tick(begin)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func (s *WorkloadScheduler) tick(begin time.Time) {
	p := Progress{
		Engine:     s.name,
		Phase:      s.Phase(),
		Operations: s.ops.Load(),
		Elapsed:    time.Since(begin),
		Ticks:      s.ticks.Add(1),
	}
	if s.opts.OnProgress != nil {
		s.opts.OnProgress(p)
		return
	}
	s.logger.Info("progress",
		zap.Stringer("phase", p.Phase),
		zap.Uint64("operations", p.Operations),
		zap.Duration("elapsed", p.Elapsed),
		zap.Float64("throughput", p.Throughput()))
}

// Runner benchmarks a list of engines one after the other, each in a
// fresh data directory, with the same workload.
type Runner struct {
	Config     *WorkloadConfig
	Engines    []string
	Properties Properties
	// DataDir is the parent of the per engine directories. Empty selects
	// the system temporary directory.
	DataDir  string
	KeepData bool
	Logger   *zap.Logger

	ProgressInterval time.Duration
	OnProgress       ProgressFunc
	// Exporter, when set, receives the raw histogram summary of every
	// completed engine.
	Exporter MeasurementExporter
	// HistogramLog, when set, receives the histogram snapshots of every
	// completed engine.
	HistogramLog io.Writer
}

// Run returns one result per engine, in order. Engines that failed carry
// their error in the result and the joined errors are returned.
func (r *Runner) Run() ([]BenchmarkResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	var histograms *HdrHistogramLogWriter
	if r.HistogramLog != nil {
		histograms = NewHdrHistogramLogWriter(r.HistogramLog)
	}
	results := make([]BenchmarkResult, 0, len(r.Engines))
	var errs []error
	for _, name := range r.Engines {
		started := time.Now().UTC()
		result, recorder, err := r.runEngine(runID, name, logger)
		if err != nil {
			var eerr *EngineError
			if !errors.As(err, &eerr) {
				err = NewEngineError(name, "run", nil, err)
			}
			results = append(results, FailedResult(runID, name, "", started, err))
			errs = append(errs, err)
			continue
		}
		if r.Exporter != nil {
			if err := recorder.ExportMeasurements(r.Exporter); err != nil {
				errs = append(errs, fmt.Errorf("export %s measurements: %w", name, err))
			}
		}
		if histograms != nil {
			if err := histograms.OutputHistograms(name, recorder); err != nil {
				errs = append(errs, fmt.Errorf("log %s histograms: %w", name, err))
			}
		}
		results = append(results, *result)
	}
	return results, errors.Join(errs...)
}

func (r *Runner) runEngine(runID, name string, logger *zap.Logger) (result *BenchmarkResult, recorder *LatencyRecorder, err error) {
	dir, err := os.MkdirTemp(r.DataDir, "kvbench-"+name+"-")
	if err != nil {
		return nil, nil, err
	}
	if !r.KeepData {
		defer func() {
			if rerr := os.RemoveAll(dir); rerr != nil {
				logger.Warn("remove data dir", zap.String("dir", dir), zap.Error(rerr))
			}
		}()
	}
	engine, err := NewEngine(name, dir, r.Properties)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil && err == nil {
			err = NewEngineError(name, "close", nil, cerr)
			result = nil
		}
	}()
	logger.Info("engine opened", zap.String("engine", name), zap.String("dir", dir),
		zap.String("family", string(engine.Family())))
	s := NewWorkloadScheduler(r.Config, engine, SchedulerOptions{
		Logger:           logger,
		RunID:            runID,
		ProgressInterval: r.ProgressInterval,
		OnProgress:       r.OnProgress,
	})
	result, err = s.Run()
	if err != nil {
		return nil, nil, err
	}
	return result, s.Recorder(), nil
}
