package kvbench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Duration is a time.Duration encoded as a Go duration string in JSON.
type Duration time.Duration

// MarshalJSON implements the json.Marshaler interface
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (d *Duration) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	val, err := time.ParseDuration(str)
	*d = Duration(val)
	return err
}

// String returns the string representation of the duration
func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) Seconds() float64 {
	return time.Duration(d).Seconds()
}

// LatencyStats holds the write and read percentiles of a run, in
// milliseconds.
type LatencyStats struct {
	WriteP50  float64 `json:"write_p50"`
	WriteP95  float64 `json:"write_p95"`
	WriteP99  float64 `json:"write_p99"`
	WriteP999 float64 `json:"write_p999"`
	ReadP50   float64 `json:"read_p50"`
	ReadP95   float64 `json:"read_p95"`
	ReadP99   float64 `json:"read_p99"`
	ReadP999  float64 `json:"read_p999"`
}

// PercentileStats holds the percentiles of a single class, in milliseconds.
type PercentileStats struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	P999 float64 `json:"p999"`
}

// BenchmarkResult is the outcome of one engine run. A non-empty Error marks
// an engine that failed, and its metrics are not meaningful.
type BenchmarkResult struct {
	RunID              string           `json:"run_id"`
	Engine             string           `json:"engine"`
	Family             Family           `json:"family"`
	StartedAt          time.Time        `json:"started_at"`
	Throughput         float64          `json:"throughput"`
	Operations         uint64           `json:"operations"`
	Duration           Duration         `json:"duration"`
	Latencies          LatencyStats     `json:"latencies"`
	ScanLatencies      PercentileStats  `json:"scan_latencies"`
	WriteAmplification float64          `json:"write_amplification"`
	SpaceAmplification float64          `json:"space_amplification"`
	AmplificationModel string           `json:"amplification_model,omitempty"`
	Statistics         EngineStatistics `json:"statistics"`
	OperationCounts    map[string]int64 `json:"operation_counts,omitempty"`
	Flushes            uint64           `json:"flushes"`
	MemoryBytes        uint64           `json:"memory_bytes"`
	ClampedSamples     uint64           `json:"clamped_samples,omitempty"`
	Workload           *WorkloadConfig  `json:"workload,omitempty"`
	Error              string           `json:"error,omitempty"`
}

// Failed reports whether the run did not complete.
func (r *BenchmarkResult) Failed() bool {
	return r.Error != ""
}

// FailedResult records an engine which could not complete a run.
func FailedResult(runID, engine string, family Family, startedAt time.Time, err error) BenchmarkResult {
	return BenchmarkResult{
		RunID:     runID,
		Engine:    engine,
		Family:    family,
		StartedAt: startedAt,
		Error:     err.Error(),
	}
}

// EncodeResults writes results as an indented JSON array.
func EncodeResults(w io.Writer, results []BenchmarkResult) error {
	if results == nil {
		results = []BenchmarkResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// DecodeResults reads a JSON array of results.
func DecodeResults(r io.Reader) ([]BenchmarkResult, error) {
	var results []BenchmarkResult
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return results, nil
}

func WriteResults(path string, results []BenchmarkResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeResults(f, results); err != nil {
		f.Close()
		return fmt.Errorf("write results %s: %w", path, err)
	}
	return f.Close()
}

func ReadResults(path string) ([]BenchmarkResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	results, err := DecodeResults(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return results, nil
}
