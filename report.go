package kvbench

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hhkbp2/go-strftime"
)

const (
	ReportTimeFormat = "%Y-%m-%d %H:%M:%S"
)

// Metric is one comparable quantity of a BenchmarkResult.
type Metric struct {
	Name           string
	Unit           string
	HigherIsBetter bool
	// Optional rows are dropped when every engine reports zero.
	Optional bool
	Value    func(r *BenchmarkResult) float64
	Format   func(v float64) string
}

func formatFixed(places int) func(float64) string {
	return func(v float64) string {
		return strconv.FormatFloat(v, 'f', places, 64)
	}
}

func formatBytes(v float64) string {
	return FormatBytes(uint64(v))
}

func latencyMetric(name string, optional bool, value func(r *BenchmarkResult) float64) Metric {
	return Metric{
		Name:     name,
		Unit:     "ms",
		Optional: optional,
		Value:    value,
		Format:   formatFixed(3),
	}
}

// Metrics lists the report rows in display order.
var Metrics = []Metric{
	{
		Name:           "throughput",
		Unit:           "ops/s",
		HigherIsBetter: true,
		Value:          func(r *BenchmarkResult) float64 { return r.Throughput },
		Format:         formatFixed(2),
	},
	latencyMetric("write_p50", false, func(r *BenchmarkResult) float64 { return r.Latencies.WriteP50 }),
	latencyMetric("write_p95", false, func(r *BenchmarkResult) float64 { return r.Latencies.WriteP95 }),
	latencyMetric("write_p99", false, func(r *BenchmarkResult) float64 { return r.Latencies.WriteP99 }),
	latencyMetric("write_p999", false, func(r *BenchmarkResult) float64 { return r.Latencies.WriteP999 }),
	latencyMetric("read_p50", false, func(r *BenchmarkResult) float64 { return r.Latencies.ReadP50 }),
	latencyMetric("read_p95", false, func(r *BenchmarkResult) float64 { return r.Latencies.ReadP95 }),
	latencyMetric("read_p99", false, func(r *BenchmarkResult) float64 { return r.Latencies.ReadP99 }),
	latencyMetric("read_p999", false, func(r *BenchmarkResult) float64 { return r.Latencies.ReadP999 }),
	latencyMetric("scan_p50", true, func(r *BenchmarkResult) float64 { return r.ScanLatencies.P50 }),
	latencyMetric("scan_p95", true, func(r *BenchmarkResult) float64 { return r.ScanLatencies.P95 }),
	latencyMetric("scan_p99", true, func(r *BenchmarkResult) float64 { return r.ScanLatencies.P99 }),
	latencyMetric("scan_p999", true, func(r *BenchmarkResult) float64 { return r.ScanLatencies.P999 }),
	{
		Name:   "write_amplification",
		Unit:   "x",
		Value:  func(r *BenchmarkResult) float64 { return r.WriteAmplification },
		Format: formatFixed(2),
	},
	{
		Name:   "space_amplification",
		Unit:   "x",
		Value:  func(r *BenchmarkResult) float64 { return r.SpaceAmplification },
		Format: formatFixed(2),
	},
	{
		Name:   "memory",
		Unit:   "bytes",
		Value:  func(r *BenchmarkResult) float64 { return float64(r.MemoryBytes) },
		Format: formatBytes,
	},
}

// MetricRow holds one metric across the compared engines. Values are in
// the order of ComparisonReport.Engines.
type MetricRow struct {
	Metric *Metric
	Values []float64
	Winner string
	// Ratio is winner over runner up for higher-is-better metrics and
	// runner up over winner otherwise. It is +Inf when the runner up is
	// infinitely worse.
	Ratio float64
	Tie   bool
}

// MissingEngine is an engine which was expected or attempted but has no
// usable result.
type MissingEngine struct {
	Engine string
	Reason string
}

type ComparisonReport struct {
	GeneratedAt time.Time
	RunID       string
	Engines     []string
	Rows        []MetricRow
	Missing     []MissingEngine
	// Results are the inputs, failed engines included.
	Results []BenchmarkResult
}

// Compare ranks the completed results metric by metric. Engines named in
// expected without a result, and results carrying an error, are listed
// as missing and take no part in the ranking.
func Compare(results []BenchmarkResult, expected []string) *ComparisonReport {
	report := &ComparisonReport{
		GeneratedAt: time.Now(),
		Results:     results,
	}
	var completed []*BenchmarkResult
	seen := make(map[string]int)
	present := make(map[string]bool)
	for i := range results {
		r := &results[i]
		if report.RunID == "" {
			report.RunID = r.RunID
		}
		if r.Failed() {
			report.Missing = append(report.Missing, MissingEngine{Engine: r.Engine, Reason: r.Error})
			continue
		}
		present[r.Engine] = true
		seen[r.Engine]++
		label := r.Engine
		if n := seen[r.Engine]; n > 1 {
			label = fmt.Sprintf("%s#%d", r.Engine, n)
		}
		report.Engines = append(report.Engines, label)
		completed = append(completed, r)
	}
	for _, name := range expected {
		if present[name] || report.missing(name) {
			continue
		}
		report.Missing = append(report.Missing, MissingEngine{Engine: name, Reason: "no result"})
	}
	for i := range Metrics {
		m := &Metrics[i]
		row := MetricRow{
			Metric: m,
			Values: make([]float64, len(completed)),
		}
		allZero := true
		for j, r := range completed {
			row.Values[j] = m.Value(r)
			if row.Values[j] != 0 {
				allZero = false
			}
		}
		if m.Optional && allZero {
			continue
		}
		row.rank(report.Engines)
		report.Rows = append(report.Rows, row)
	}
	return report
}

func (r *ComparisonReport) missing(name string) bool {
	for _, m := range r.Missing {
		if m.Engine == name {
			return true
		}
	}
	return false
}

// Row returns the row of a metric, or nil if the report has none.
func (r *ComparisonReport) Row(metric string) *MetricRow {
	for i := range r.Rows {
		if r.Rows[i].Metric.Name == metric {
			return &r.Rows[i]
		}
	}
	return nil
}

func (row *MetricRow) better(a, b float64) bool {
	if row.Metric.HigherIsBetter {
		return a > b
	}
	return a < b
}

func (row *MetricRow) rank(engines []string) {
	if len(row.Values) == 0 {
		return
	}
	best := 0
	for i := 1; i < len(row.Values); i++ {
		if row.better(row.Values[i], row.Values[best]) {
			best = i
		}
	}
	row.Winner = engines[best]
	row.Ratio = 1
	if len(row.Values) == 1 {
		return
	}
	runnerUp := -1
	for i := range row.Values {
		if i == best {
			continue
		}
		if runnerUp < 0 || row.better(row.Values[i], row.Values[runnerUp]) {
			runnerUp = i
		}
	}
	winner, second := row.Values[best], row.Values[runnerUp]
	if winner == second {
		row.Tie = true
		return
	}
	numerator, denominator := second, winner
	if row.Metric.HigherIsBetter {
		numerator, denominator = winner, second
	}
	if denominator == 0 {
		row.Ratio = math.Inf(1)
		return
	}
	row.Ratio = numerator / denominator
}

// FormatRatio renders a ratio with two decimals, or "inf".
func FormatRatio(ratio float64) string {
	if math.IsInf(ratio, 1) {
		return "inf"
	}
	return strconv.FormatFloat(ratio, 'f', 2, 64)
}

type ReportRenderer func(w io.Writer, r *ComparisonReport) error

var ReportFormats = map[string]ReportRenderer{
	"markdown": RenderMarkdown,
	"csv":      RenderCSV,
	"json":     RenderJSON,
}

func ReportFormatNames() []string {
	names := make([]string, 0, len(ReportFormats))
	for name := range ReportFormats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render writes the report in the named format.
func Render(w io.Writer, format string, r *ComparisonReport) error {
	render, ok := ReportFormats[format]
	if !ok {
		return NewConfigError("flag", "format", "unknown report format %q, expected one of %s",
			format, strings.Join(ReportFormatNames(), ", "))
	}
	return render(w, r)
}

func RenderMarkdown(w io.Writer, r *ComparisonReport) error {
	b := &strings.Builder{}
	fmt.Fprintf(b, "# Storage Engine Benchmark Results\n\n")
	fmt.Fprintf(b, "Generated %s", strftime.Format(ReportTimeFormat, r.GeneratedAt))
	if r.RunID != "" {
		fmt.Fprintf(b, ", run `%s`", r.RunID)
	}
	b.WriteString("\n\n## Summary\n\n")
	if len(r.Engines) == 0 {
		b.WriteString("No engine completed.\n")
	} else {
		b.WriteString("| Metric |")
		for _, e := range r.Engines {
			fmt.Fprintf(b, " %s |", e)
		}
		b.WriteString(" Winner | Ratio |\n|---|")
		for range r.Engines {
			b.WriteString("---:|")
		}
		b.WriteString("---|---:|\n")
		for _, row := range r.Rows {
			fmt.Fprintf(b, "| %s (%s) |", row.Metric.Name, row.Metric.Unit)
			for _, v := range row.Values {
				fmt.Fprintf(b, " %s |", row.Metric.Format(v))
			}
			winner := row.Winner
			if row.Tie {
				winner += " (tie)"
			}
			ratio := FormatRatio(row.Ratio)
			if !math.IsInf(row.Ratio, 1) {
				ratio += "x"
			}
			fmt.Fprintf(b, " %s | %s |\n", winner, ratio)
		}
	}
	if len(r.Missing) > 0 {
		b.WriteString("\n**Missing engines:**\n\n")
		for _, m := range r.Missing {
			fmt.Fprintf(b, "- %s: %s\n", m.Engine, m.Reason)
		}
	}
	b.WriteString("\n## Detailed Results\n")
	for i := range r.Results {
		res := &r.Results[i]
		if res.Failed() {
			continue
		}
		fmt.Fprintf(b, "\n### %s (%s)\n\n", res.Engine, res.Family)
		fmt.Fprintf(b, "- Operations: %d in %s\n", res.Operations, res.Duration)
		fmt.Fprintf(b, "- Throughput: %.0f ops/sec\n", res.Throughput)
		fmt.Fprintf(b, "- Write latency (ms): p50 %.3f, p95 %.3f, p99 %.3f, p99.9 %.3f\n",
			res.Latencies.WriteP50, res.Latencies.WriteP95, res.Latencies.WriteP99, res.Latencies.WriteP999)
		fmt.Fprintf(b, "- Read latency (ms): p50 %.3f, p95 %.3f, p99 %.3f, p99.9 %.3f\n",
			res.Latencies.ReadP50, res.Latencies.ReadP95, res.Latencies.ReadP99, res.Latencies.ReadP999)
		if res.ScanLatencies != (PercentileStats{}) {
			fmt.Fprintf(b, "- Scan latency (ms): p50 %.3f, p95 %.3f, p99 %.3f, p99.9 %.3f\n",
				res.ScanLatencies.P50, res.ScanLatencies.P95, res.ScanLatencies.P99, res.ScanLatencies.P999)
		}
		fmt.Fprintf(b, "- Amplification: write %.2fx, space %.2fx (%s)\n",
			res.WriteAmplification, res.SpaceAmplification, res.AmplificationModel)
		fmt.Fprintf(b, "- Logical bytes: written %s, read %s; disk %s\n",
			FormatBytes(res.Statistics.BytesWritten), FormatBytes(res.Statistics.BytesRead),
			FormatBytes(res.Statistics.DiskSizeBytes))
		fmt.Fprintf(b, "- Memory: %s; flushes %d", FormatBytes(res.MemoryBytes), res.Flushes)
		if res.ClampedSamples > 0 {
			fmt.Fprintf(b, "; %d latency samples clamped", res.ClampedSamples)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func csvFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSVColumn is one field of a CSV report record.
type CSVColumn struct {
	Name  string
	Value func(label string, r *BenchmarkResult) string
}

func csvNumber(name string, value func(r *BenchmarkResult) float64) CSVColumn {
	return CSVColumn{name, func(_ string, r *BenchmarkResult) string { return csvFloat(value(r)) }}
}

// CSVColumns is the fixed column order of the CSV report. Latencies are
// in ms, duration in seconds and memory in bytes.
var CSVColumns = []CSVColumn{
	{"engine", func(label string, _ *BenchmarkResult) string { return label }},
	{"family", func(_ string, r *BenchmarkResult) string { return string(r.Family) }},
	{"throughput", func(_ string, r *BenchmarkResult) string { return csvFloat(r.Throughput) }},
	{"operations", func(_ string, r *BenchmarkResult) string { return strconv.FormatUint(r.Operations, 10) }},
	{"duration", func(_ string, r *BenchmarkResult) string { return csvFloat(r.Duration.Seconds()) }},
	csvNumber("write_p50", func(r *BenchmarkResult) float64 { return r.Latencies.WriteP50 }),
	csvNumber("write_p95", func(r *BenchmarkResult) float64 { return r.Latencies.WriteP95 }),
	csvNumber("write_p99", func(r *BenchmarkResult) float64 { return r.Latencies.WriteP99 }),
	csvNumber("write_p999", func(r *BenchmarkResult) float64 { return r.Latencies.WriteP999 }),
	csvNumber("read_p50", func(r *BenchmarkResult) float64 { return r.Latencies.ReadP50 }),
	csvNumber("read_p95", func(r *BenchmarkResult) float64 { return r.Latencies.ReadP95 }),
	csvNumber("read_p99", func(r *BenchmarkResult) float64 { return r.Latencies.ReadP99 }),
	csvNumber("read_p999", func(r *BenchmarkResult) float64 { return r.Latencies.ReadP999 }),
	csvNumber("scan_p50", func(r *BenchmarkResult) float64 { return r.ScanLatencies.P50 }),
	csvNumber("scan_p95", func(r *BenchmarkResult) float64 { return r.ScanLatencies.P95 }),
	csvNumber("scan_p99", func(r *BenchmarkResult) float64 { return r.ScanLatencies.P99 }),
	csvNumber("scan_p999", func(r *BenchmarkResult) float64 { return r.ScanLatencies.P999 }),
	csvNumber("write_amplification", func(r *BenchmarkResult) float64 { return r.WriteAmplification }),
	csvNumber("space_amplification", func(r *BenchmarkResult) float64 { return r.SpaceAmplification }),
	{"memory", func(_ string, r *BenchmarkResult) string { return strconv.FormatUint(r.MemoryBytes, 10) }},
}

// RenderCSV writes a header and one record per completed engine in
// CSVColumns order. Failed engines are left out.
func RenderCSV(w io.Writer, r *ComparisonReport) error {
	out := csv.NewWriter(w)
	record := make([]string, len(CSVColumns))
	for i, c := range CSVColumns {
		record[i] = c.Name
	}
	if err := out.Write(record); err != nil {
		return err
	}
	n := 0
	for i := range r.Results {
		res := &r.Results[i]
		if res.Failed() {
			continue
		}
		label := res.Engine
		if n < len(r.Engines) {
			label = r.Engines[n]
		}
		n++
		for j, c := range CSVColumns {
			record[j] = c.Value(label, res)
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// RenderJSON writes the input results, failed engines included.
func RenderJSON(w io.Writer, r *ComparisonReport) error {
	return EncodeResults(w, r.Results)
}
