package kvbench

import (
	"math"

	"go.uber.org/zap/zapcore"
)

const (
	// PageSize is the write unit assumed by the page-structured heuristic.
	PageSize uint64 = 8192
	// PageRewriteFactor is how many times each page is assumed rewritten.
	PageRewriteFactor uint64 = 10
	// CompactionFallbackFactor multiplies logical bytes when a
	// log-structured engine reports no compaction volume.
	CompactionFallbackFactor uint64 = 2
	// AmplificationPrecision is the number of decimals amplification
	// factors are rounded to.
	AmplificationPrecision = 2
)

// EngineStatistics is a snapshot of an engine's byte counters.
//
// CompactionReported and DiskSizeReported say whether the engine measured
// the compaction and disk size counters itself. When they are false the
// amplification estimators fall back to their heuristics.
type EngineStatistics struct {
	BytesWritten           uint64 `json:"bytes_written"`
	BytesRead              uint64 `json:"bytes_read"`
	CompactionBytesWritten uint64 `json:"compaction_bytes_written"`
	CompactionBytesRead    uint64 `json:"compaction_bytes_read"`
	DiskSizeBytes          uint64 `json:"disk_size_bytes,omitempty"`
	CompactionReported     bool   `json:"compaction_reported,omitempty"`
	DiskSizeReported       bool   `json:"disk_size_reported,omitempty"`
}

func (s EngineStatistics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("bytes_written", s.BytesWritten)
	enc.AddUint64("bytes_read", s.BytesRead)
	enc.AddUint64("compaction_bytes_written", s.CompactionBytesWritten)
	enc.AddUint64("compaction_bytes_read", s.CompactionBytesRead)
	if s.DiskSizeReported {
		enc.AddUint64("disk_size_bytes", s.DiskSizeBytes)
	}
	return nil
}

// Amplification holds the derived factors of one run.
type Amplification struct {
	Write float64
	Space float64
	// Model names the estimator which produced the factors.
	Model string
	// Statistics are the engine counters after estimation.
	Statistics EngineStatistics
}

// AmplificationEstimator fills in the counters an engine family cannot
// report and derives the amplification factors.
type AmplificationEstimator interface {
	Name() string
	Estimate(s EngineStatistics) Amplification
}

// WriteAmplification returns (bw + cbw) / bw, or 1.0 when nothing was
// written.
func WriteAmplification(bytesWritten, compactionBytesWritten uint64) float64 {
	if bytesWritten == 0 {
		return 1.0
	}
	waf := (float64(bytesWritten) + float64(compactionBytesWritten)) / float64(bytesWritten)
	return Round(waf, AmplificationPrecision)
}

// SpaceAmplification returns disk / bw, or 1.0 when nothing was written.
// A footprint smaller than the logical volume reports 1.0.
func SpaceAmplification(bytesWritten, diskSizeBytes uint64) float64 {
	if bytesWritten == 0 {
		return 1.0
	}
	saf := Round(float64(diskSizeBytes)/float64(bytesWritten), AmplificationPrecision)
	return math.Max(saf, 1.0)
}

func derive(model string, s EngineStatistics) Amplification {
	a := Amplification{
		Write:      WriteAmplification(s.BytesWritten, s.CompactionBytesWritten),
		Space:      1.0,
		Model:      model,
		Statistics: s,
	}
	if s.DiskSizeReported {
		a.Space = SpaceAmplification(s.BytesWritten, s.DiskSizeBytes)
	}
	return a
}

// LogStructuredEstimator uses the engine's compaction counter and falls
// back to twice the logical bytes when the engine reports none.
type LogStructuredEstimator struct{}

func (LogStructuredEstimator) Name() string {
	return string(FamilyLogStructured)
}

func (e LogStructuredEstimator) Estimate(s EngineStatistics) Amplification {
	model := e.Name() + ":native"
	if !s.CompactionReported {
		s.CompactionBytesWritten = s.BytesWritten * CompactionFallbackFactor
		model = e.Name() + ":heuristic"
	}
	return derive(model, s)
}

// PageStructuredEstimator assumes every full page of logical writes is
// rewritten PageRewriteFactor times.
type PageStructuredEstimator struct{}

func (PageStructuredEstimator) Name() string {
	return string(FamilyPageStructured)
}

func (e PageStructuredEstimator) Estimate(s EngineStatistics) Amplification {
	s.CompactionBytesWritten = PageRewriteBytes(s.BytesWritten)
	return derive(e.Name()+":heuristic", s)
}

// PageRewriteBytes returns floor(bw / PageSize) * PageSize * PageRewriteFactor.
func PageRewriteBytes(bytesWritten uint64) uint64 {
	return (bytesWritten / PageSize) * PageSize * PageRewriteFactor
}

// NativeEstimator trusts the engine counters as reported.
type NativeEstimator struct{}

func (NativeEstimator) Name() string {
	return "native"
}

func (e NativeEstimator) Estimate(s EngineStatistics) Amplification {
	return derive(e.Name(), s)
}

// EstimatorFor returns the estimator of an engine family.
func EstimatorFor(f Family) AmplificationEstimator {
	switch f {
	case FamilyLogStructured:
		return LogStructuredEstimator{}
	case FamilyPageStructured:
		return PageStructuredEstimator{}
	default:
		return NativeEstimator{}
	}
}
