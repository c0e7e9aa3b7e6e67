package kvbench

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hhkbp2/testify/require"
)

func sampleResults() []BenchmarkResult {
	started := time.Date(2026, 10, 14, 9, 30, 0, 123456789, time.UTC)
	w := DefaultWorkloadConfig()
	return []BenchmarkResult{
		{
			RunID:      "9a1c3c9e-6c2e-4c4e-9d4c-0d9d2f1f6b1e",
			Engine:     "pebble",
			Family:     FamilyLogStructured,
			StartedAt:  started,
			Throughput: 1234.5678901234,
			Operations: 123456,
			Duration:   Duration(10*time.Second + 3*time.Nanosecond),
			Latencies: LatencyStats{
				WriteP50: 0.012, WriteP95: 0.051, WriteP99: 0.103, WriteP999: 1.7,
				ReadP50: 0.004, ReadP95: 0.02, ReadP99: 0.033, ReadP999: 0.41,
			},
			ScanLatencies:      PercentileStats{P50: 0.3, P95: 0.9, P99: 1.1, P999: 2.25},
			WriteAmplification: 3.14,
			SpaceAmplification: 1.02,
			AmplificationModel: "log-structured:native",
			Statistics: EngineStatistics{
				BytesWritten:           1 << 40,
				BytesRead:              12345,
				CompactionBytesWritten: 77,
				CompactionReported:     true,
				DiskSizeBytes:          4096,
				DiskSizeReported:       true,
			},
			OperationCounts: map[string]int64{"WRITE": 100000, "READ": 23456},
			Flushes:         12,
			MemoryBytes:     1 << 30,
			ClampedSamples:  2,
			Workload:        w,
		},
		{
			RunID:     "9a1c3c9e-6c2e-4c4e-9d4c-0d9d2f1f6b1e",
			Engine:    "bolt",
			Family:    FamilyPageStructured,
			StartedAt: started,
			Error:     "engine bolt: put key \"0000000000000001\": disk full",
		},
	}
}

func TestResultsRoundTrip(t *testing.T) {
	results := sampleResults()
	var buf bytes.Buffer
	require.Nil(t, EncodeResults(&buf, results))
	decoded, err := DecodeResults(&buf)
	require.Nil(t, err)
	require.Equal(t, results, decoded)
	require.True(t, !decoded[0].Failed())
	require.True(t, decoded[1].Failed())
}

func TestResultsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	results := sampleResults()
	require.Nil(t, WriteResults(path, results))
	decoded, err := ReadResults(path)
	require.Nil(t, err)
	require.Equal(t, results, decoded)

	_, err = ReadResults(filepath.Join(t.TempDir(), "none.json"))
	require.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.Nil(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = ReadResults(bad)
	require.NotNil(t, err)
}

func TestEncodeEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	require.Nil(t, EncodeResults(&buf, nil))
	require.Equal(t, "[]\n", buf.String())
}

func TestDurationJSON(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	b, err := d.MarshalJSON()
	require.Nil(t, err)
	require.Equal(t, `"1.5s"`, string(b))
	var back Duration
	require.Nil(t, back.UnmarshalJSON(b))
	require.Equal(t, d, back)
	require.Equal(t, 1.5, back.Seconds())
	require.NotNil(t, back.UnmarshalJSON([]byte(`"soon"`)))
}
