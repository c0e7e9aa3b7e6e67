package kvbench

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/hhkbp2/testify/require"
)

func completedResult(engine string, throughput, writeP99, waf float64) BenchmarkResult {
	return BenchmarkResult{
		RunID:              "run",
		Engine:             engine,
		Family:             FamilyLogStructured,
		Throughput:         throughput,
		Operations:         uint64(throughput) * 10,
		Duration:           Duration(10 * time.Second),
		Latencies:          LatencyStats{WriteP50: 0.01, WriteP99: writeP99, ReadP50: 0.002, ReadP99: 0.05},
		WriteAmplification: waf,
		SpaceAmplification: 1.2,
		MemoryBytes:        1 << 20,
	}
}

func TestCompareThroughputWinner(t *testing.T) {
	results := []BenchmarkResult{
		completedResult("pebble", 1000, 2.0, 3.0),
		completedResult("bolt", 1500, 1.0, 12.0),
	}
	report := Compare(results, []string{"pebble", "bolt"})
	require.Equal(t, []string{"pebble", "bolt"}, report.Engines)
	require.Equal(t, 0, len(report.Missing))
	require.Equal(t, "run", report.RunID)

	row := report.Row("throughput")
	require.NotNil(t, row)
	require.Equal(t, "bolt", row.Winner)
	require.InDelta(t, 1.5, row.Ratio, 1e-9)
	require.True(t, !row.Tie)

	row = report.Row("write_p99")
	require.Equal(t, "bolt", row.Winner)
	require.InDelta(t, 2.0, row.Ratio, 1e-9)

	row = report.Row("write_amplification")
	require.Equal(t, "pebble", row.Winner)
	require.InDelta(t, 4.0, row.Ratio, 1e-9)

	row = report.Row("space_amplification")
	require.True(t, row.Tie)
	require.Equal(t, "pebble", row.Winner)
	require.Equal(t, 1.0, row.Ratio)

	// no scans in either run
	require.Nil(t, report.Row("scan_p50"))
}

func TestCompareZeroWinner(t *testing.T) {
	a := completedResult("a", 10, 0, 1)
	b := completedResult("b", 0, 1, 1)
	report := Compare([]BenchmarkResult{a, b}, nil)
	row := report.Row("write_p99")
	require.Equal(t, "a", row.Winner)
	require.True(t, math.IsInf(row.Ratio, 1))
	require.Equal(t, "inf", FormatRatio(row.Ratio))
	row = report.Row("throughput")
	require.Equal(t, "a", row.Winner)
	require.True(t, math.IsInf(row.Ratio, 1))
}

func TestCompareThreeEngines(t *testing.T) {
	results := []BenchmarkResult{
		completedResult("a", 100, 1, 1),
		completedResult("b", 400, 1, 1),
		completedResult("c", 300, 1, 1),
	}
	row := Compare(results, nil).Row("throughput")
	require.Equal(t, "b", row.Winner)
	require.InDelta(t, 4.0/3.0, row.Ratio, 1e-9)
}

func TestCompareMissingEngines(t *testing.T) {
	results := sampleResults()
	report := Compare(results, []string{"pebble", "bolt", "etcd"})
	require.Equal(t, []string{"pebble"}, report.Engines)
	require.Equal(t, 2, len(report.Missing))
	require.Equal(t, "bolt", report.Missing[0].Engine)
	require.Equal(t, results[1].Error, report.Missing[0].Reason)
	require.Equal(t, "etcd", report.Missing[1].Engine)
	row := report.Row("throughput")
	require.Equal(t, "pebble", row.Winner)
	require.Equal(t, 1.0, row.Ratio)
	require.True(t, !row.Tie)

	empty := Compare(nil, []string{"pebble"})
	require.Equal(t, 0, len(empty.Engines))
	require.Equal(t, "", empty.Row("throughput").Winner)
	require.Equal(t, 1, len(empty.Missing))
}

func TestCompareDuplicateEngines(t *testing.T) {
	results := []BenchmarkResult{
		completedResult("basic", 100, 1, 1),
		completedResult("basic", 100, 1, 1),
	}
	report := Compare(results, nil)
	require.Equal(t, []string{"basic", "basic#2"}, report.Engines)
	row := report.Row("throughput")
	require.True(t, row.Tie)
	require.Equal(t, "basic", row.Winner)
}

func TestRenderMarkdown(t *testing.T) {
	report := Compare(append(sampleResults(), completedResult("etcd", 2469.1357802468, 0.5, 1.5)), []string{"mysql"})
	report.GeneratedAt = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.Nil(t, Render(&buf, "markdown", report))
	out := buf.String()
	require.True(t, strings.Contains(out, "Generated 2026-10-14 09:30:00,"))
	require.True(t, strings.Contains(out, "| Metric | pebble | etcd | Winner | Ratio |"))
	require.True(t, strings.Contains(out, "| throughput (ops/s) | 1234.57 | 2469.14 | etcd | 2.00x |"))
	require.True(t, strings.Contains(out, "| scan_p50 (ms) | 0.300 | 0.000 | etcd | inf |"))
	require.True(t, strings.Contains(out, "**Missing engines:**"))
	require.True(t, strings.Contains(out, "- bolt: engine bolt"))
	require.True(t, strings.Contains(out, "- mysql: no result"))
	require.True(t, strings.Contains(out, "### pebble (log-structured)"))
	require.True(t, !strings.Contains(out, "### bolt"))
}

func renderCSV(t *testing.T, results []BenchmarkResult) [][]string {
	var buf bytes.Buffer
	require.Nil(t, Render(&buf, "csv", Compare(results, nil)))
	records, err := csv.NewReader(&buf).ReadAll()
	require.Nil(t, err)
	return records
}

func TestRenderCSV(t *testing.T) {
	pebble := completedResult("pebble", 1000, 2.0, 3.0)
	pebble.ScanLatencies.P99 = 4.5
	failed := FailedResult("run", "mysql", FamilyPageStructured, time.Now(), errors.New("refused"))
	records := renderCSV(t, []BenchmarkResult{
		pebble,
		failed,
		completedResult("bolt", 1500, 1.0, 12.0),
	})
	header := []string{"engine", "family", "throughput", "operations", "duration",
		"write_p50", "write_p95", "write_p99", "write_p999",
		"read_p50", "read_p95", "read_p99", "read_p999",
		"scan_p50", "scan_p95", "scan_p99", "scan_p999",
		"write_amplification", "space_amplification", "memory"}
	require.Equal(t, header, records[0])
	require.Equal(t, 3, len(records))
	require.Equal(t, []string{"pebble", "log-structured", "1000", "10000", "10",
		"0.01", "0", "2", "0", "0.002", "0", "0.05", "0",
		"0", "0", "4.5", "0", "3", "1.2", "1048576"}, records[1])
	require.Equal(t, "bolt", records[2][0])
	require.Equal(t, "1500", records[2][2])
	require.Equal(t, "12", records[2][17])
}

func TestRenderCSVColumnsAreFixed(t *testing.T) {
	one := renderCSV(t, []BenchmarkResult{completedResult("bolt", 10, 1.0, 2.0)})
	three := renderCSV(t, []BenchmarkResult{
		completedResult("pebble", 10, 1.0, 2.0),
		completedResult("bolt", 20, 1.0, 2.0),
		completedResult("bolt", 30, 1.0, 2.0),
	})
	none := renderCSV(t, nil)
	require.Equal(t, one[0], three[0])
	require.Equal(t, one[0], none[0])
	require.Equal(t, 1, len(none))
	require.Equal(t, 4, len(three))
	require.Equal(t, "bolt#2", three[3][0])
	for _, record := range append(one, three...) {
		require.Equal(t, len(CSVColumns), len(record))
	}
	require.Equal(t, one[1][1:], three[1][1:])
}

func TestRenderJSONRoundTrip(t *testing.T) {
	results := sampleResults()
	var buf bytes.Buffer
	require.Nil(t, Render(&buf, "json", Compare(results, nil)))
	decoded, err := DecodeResults(&buf)
	require.Nil(t, err)
	require.Equal(t, results, decoded)
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "html", Compare(nil, nil))
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, "format", cerr.Field)
	require.Equal(t, 0, buf.Len())
}
