package kvbench

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// OperationType is the class of a measured operation.
type OperationType uint8

const (
	OperationWrite OperationType = 1 + iota
	OperationRead
	OperationScan
)

var (
	// Operations lists the measured classes in report order.
	Operations = []OperationType{OperationWrite, OperationRead, OperationScan}
	// ReportPercentiles are the percentiles carried by a BenchmarkResult.
	ReportPercentiles = []float64{50, 95, 99, 99.9}
)

func (o OperationType) String() string {
	switch o {
	case OperationWrite:
		return "WRITE"
	case OperationRead:
		return "READ"
	case OperationScan:
		return "SCAN"
	default:
		return "UNKNOWN_OPERATION"
	}
}

func (o OperationType) valid() bool {
	return o >= OperationWrite && o <= OperationScan
}

// Used to export the collected measuremrnts into a usefull format, for example
// human readable text or machine readable JSON.
type MeasurementExporter interface {
	// Write a measurement to the exported format. v should be int64 or float64
	Write(metric string, measurement string, v interface{}) error
	// Close flushes buffered output. It does not close the underlying writer.
	io.Closer
}

type MakeMeasurementExporterFunc func(w io.Writer) MeasurementExporter

var (
	MeasurementExporters = map[string]MakeMeasurementExporterFunc{
		"text": func(w io.Writer) MeasurementExporter {
			return NewTextMeasurementExporter(w)
		},
		"json": func(w io.Writer) MeasurementExporter {
			return NewJSONMeasurementExporter(w)
		},
		"jsonarray": func(w io.Writer) MeasurementExporter {
			return NewJSONArrayMeasurementExporter(w)
		},
	}
)

func NewMeasurementExporter(name string, w io.Writer) (MeasurementExporter, error) {
	f, ok := MeasurementExporters[name]
	if !ok {
		return nil, NewConfigError("", "export", "unsupported measurement exporter: %s", name)
	}
	return f(w), nil
}

// Take measurements and maintain a HdrHistogram of a given metric, such as
// READ LATENCY. Latencies are in microseconds. Values outside the trackable
// range are clamped to its bounds and counted.
type OneMeasurementHdrHistogram struct {
	name        string
	measureLock sync.Mutex
	histogram   *hdrhistogram.Histogram
	clamped     atomic.Uint64
}

func NewOneMeasurementHdrHistogram(name string) *OneMeasurementHdrHistogram {
	return &OneMeasurementHdrHistogram{
		name: name,
		histogram: hdrhistogram.New(
			HistogramLowest, HistogramHighest, HistogramSignificantFigures),
	}
}

func (m *OneMeasurementHdrHistogram) GetName() string {
	return m.name
}

// Measure records one latency in microseconds.
func (m *OneMeasurementHdrHistogram) Measure(latency int64) error {
	if latency < HistogramLowest {
		latency = HistogramLowest
		m.clamped.Add(1)
	} else if latency > HistogramHighest {
		latency = HistogramHighest
		m.clamped.Add(1)
	}
	m.measureLock.Lock()
	defer m.measureLock.Unlock()
	return m.histogram.RecordValue(latency)
}

func (m *OneMeasurementHdrHistogram) Count() int64 {
	m.measureLock.Lock()
	defer m.measureLock.Unlock()
	return m.histogram.TotalCount()
}

func (m *OneMeasurementHdrHistogram) Clamped() uint64 {
	return m.clamped.Load()
}

// ValueAtPercentile returns the latency, in microseconds, at or below which
// p percent of the samples fall. ok is false for an empty histogram.
func (m *OneMeasurementHdrHistogram) ValueAtPercentile(p float64) (v int64, ok bool) {
	m.measureLock.Lock()
	defer m.measureLock.Unlock()
	if m.histogram.TotalCount() == 0 {
		return 0, false
	}
	return m.histogram.ValueAtQuantile(p), true
}

// GetSummary returns a one line summary of the histogram.
func (m *OneMeasurementHdrHistogram) GetSummary() string {
	m.measureLock.Lock()
	defer m.measureLock.Unlock()
	if m.histogram.TotalCount() == 0 {
		return ""
	}
	format := "[%s: Count=%d, Max=%d, Min=%d, Avg=%.2f, 90=%d, 99=%d, 99.9=%d, 99.99=%d]"
	return fmt.Sprintf(format,
		m.GetName(),
		m.histogram.TotalCount(),
		m.histogram.Max(),
		m.histogram.Min(),
		m.histogram.Mean(),
		m.histogram.ValueAtQuantile(90),
		m.histogram.ValueAtQuantile(99),
		m.histogram.ValueAtQuantile(99.9),
		m.histogram.ValueAtQuantile(99.99))
}

// Snapshot exports the histogram counts.
func (m *OneMeasurementHdrHistogram) Snapshot() *hdrhistogram.Snapshot {
	m.measureLock.Lock()
	defer m.measureLock.Unlock()
	return m.histogram.Export()
}

var (
	Suffixes = []string{"th", "st", "nd", "rd", "th", "th", "th", "th", "th", "th"}
)

func ordinal(p float64) string {
	if p != math.Trunc(p) {
		return fmt.Sprintf("%gth", p)
	}
	i := int64(p)
	switch i % 100 {
	case 11, 12, 13:
		return fmt.Sprintf("%dth", i)
	default:
		return fmt.Sprintf("%d%s", i, Suffixes[i%10])
	}
}

// ExportMeasurements writes the histogram summary to exporter.
func (m *OneMeasurementHdrHistogram) ExportMeasurements(exporter MeasurementExporter) (err error) {
	defer catch(&err)
	m.measureLock.Lock()
	defer m.measureLock.Unlock()

	name := m.GetName()
	try(exporter.Write(name, "Operations", m.histogram.TotalCount()))
	if m.histogram.TotalCount() == 0 {
		return
	}
	try(exporter.Write(name, "AverageLatency(us)", m.histogram.Mean()))
	try(exporter.Write(name, "MinLatency(us)", m.histogram.Min()))
	try(exporter.Write(name, "MaxLatency(us)", m.histogram.Max()))
	for _, p := range ReportPercentiles {
		try(exporter.Write(name, ordinal(p)+"PercentileLatency(us)", m.histogram.ValueAtQuantile(p)))
	}
	try(exporter.Write(name, "Clamped", m.clamped.Load()))
	return
}

// LatencyRecorder keeps one histogram per operation class. Recording is
// safe for concurrent use.
type LatencyRecorder struct {
	measurements map[OperationType]*OneMeasurementHdrHistogram
}

func NewLatencyRecorder() *LatencyRecorder {
	measurements := make(map[OperationType]*OneMeasurementHdrHistogram, len(Operations))
	for _, op := range Operations {
		measurements[op] = NewOneMeasurementHdrHistogram(op.String())
	}
	return &LatencyRecorder{
		measurements: measurements,
	}
}

func (r *LatencyRecorder) measurement(op OperationType) (*OneMeasurementHdrHistogram, error) {
	if !op.valid() {
		return nil, &MeasurementError{Class: op, Err: fmt.Errorf("unknown operation class %d", uint8(op))}
	}
	return r.measurements[op], nil
}

// Record adds one latency sample.
func (r *LatencyRecorder) Record(op OperationType, latency time.Duration) error {
	return r.RecordMicros(op, NanosecondToMicrosecond(latency.Nanoseconds()))
}

// RecordMicros adds one latency sample given in microseconds.
func (r *LatencyRecorder) RecordMicros(op OperationType, latency int64) error {
	m, err := r.measurement(op)
	if err != nil {
		return err
	}
	if err := m.Measure(latency); err != nil {
		return &MeasurementError{Class: op, Err: err}
	}
	return nil
}

// Percentile returns the latency in milliseconds at percentile p of op.
func (r *LatencyRecorder) Percentile(op OperationType, p float64) (float64, error) {
	m, err := r.measurement(op)
	if err != nil {
		return 0, err
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, &MeasurementError{Class: op, Err: fmt.Errorf("%w: %g", ErrPercentileRange, p)}
	}
	v, ok := m.ValueAtPercentile(p)
	if !ok {
		return 0, &MeasurementError{Class: op, Err: ErrEmptyHistogram}
	}
	return MicrosecondToMillisecond(v), nil
}

// Count returns the number of samples recorded for op.
func (r *LatencyRecorder) Count(op OperationType) int64 {
	m, err := r.measurement(op)
	if err != nil {
		return 0
	}
	return m.Count()
}

// Clamped returns the number of out of range samples over all classes.
func (r *LatencyRecorder) Clamped() uint64 {
	var n uint64
	for _, m := range r.measurements {
		n += m.Clamped()
	}
	return n
}

// percentiles returns the ReportPercentiles of op in milliseconds. An empty
// class reports zeros.
func (r *LatencyRecorder) percentiles(op OperationType) PercentileStats {
	var values [4]float64
	for i, p := range ReportPercentiles {
		v, err := r.Percentile(op, p)
		if err == nil {
			values[i] = v
		}
	}
	return PercentileStats{P50: values[0], P95: values[1], P99: values[2], P999: values[3]}
}

// Snapshot summarizes the write and read classes into the result form.
func (r *LatencyRecorder) Snapshot() LatencyStats {
	w := r.percentiles(OperationWrite)
	rd := r.percentiles(OperationRead)
	return LatencyStats{
		WriteP50:  w.P50,
		WriteP95:  w.P95,
		WriteP99:  w.P99,
		WriteP999: w.P999,
		ReadP50:   rd.P50,
		ReadP95:   rd.P95,
		ReadP99:   rd.P99,
		ReadP999:  rd.P999,
	}
}

// ScanSnapshot summarizes the scan class.
func (r *LatencyRecorder) ScanSnapshot() PercentileStats {
	return r.percentiles(OperationScan)
}

// GetSummary returns a one line summary of the measurements.
func (r *LatencyRecorder) GetSummary() string {
	parts := make([]string, 0, len(Operations))
	for _, op := range Operations {
		if s := r.measurements[op].GetSummary(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ExportMeasurements exports every class to exporter.
func (r *LatencyRecorder) ExportMeasurements(exporter MeasurementExporter) (err error) {
	defer catch(&err)
	for _, op := range Operations {
		try(r.measurements[op].ExportMeasurements(exporter))
	}
	return
}

// HistogramLogEntry is one line of a histogram log.
type HistogramLogEntry struct {
	Engine    string                 `json:"engine"`
	Operation string                 `json:"operation"`
	Snapshot  *hdrhistogram.Snapshot `json:"snapshot"`
}

// HdrHistogramLogWriter appends histogram snapshots as JSON lines, so that
// runs can later be merged or re-analyzed at full resolution.
type HdrHistogramLogWriter struct {
	enc *json.Encoder
}

func NewHdrHistogramLogWriter(w io.Writer) *HdrHistogramLogWriter {
	return &HdrHistogramLogWriter{
		enc: json.NewEncoder(w),
	}
}

// OutputHistograms writes one entry per non-empty class of r.
func (w *HdrHistogramLogWriter) OutputHistograms(engine string, r *LatencyRecorder) error {
	for _, op := range Operations {
		m := r.measurements[op]
		if m.Count() == 0 {
			continue
		}
		err := w.enc.Encode(&HistogramLogEntry{
			Engine:    engine,
			Operation: op.String(),
			Snapshot:  m.Snapshot(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type HdrHistogramLogReader struct {
	dec *json.Decoder
}

func NewHdrHistogramLogReader(r io.Reader) *HdrHistogramLogReader {
	return &HdrHistogramLogReader{
		dec: json.NewDecoder(r),
	}
}

// NextHistogram returns the next entry and its histogram, or io.EOF.
func (r *HdrHistogramLogReader) NextHistogram() (*HistogramLogEntry, *hdrhistogram.Histogram, error) {
	entry := &HistogramLogEntry{}
	if err := r.dec.Decode(entry); err != nil {
		return nil, nil, err
	}
	if entry.Snapshot == nil {
		return nil, nil, fmt.Errorf("histogram log entry %s/%s has no snapshot", entry.Engine, entry.Operation)
	}
	return entry, hdrhistogram.Import(entry.Snapshot), nil
}

// Write human readable text.
type TextMeasurementExporter struct {
	buf *bufio.Writer
}

func NewTextMeasurementExporter(w io.Writer) *TextMeasurementExporter {
	return &TextMeasurementExporter{
		buf: bufio.NewWriter(w),
	}
}

func (e *TextMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	_, err := fmt.Fprintf(e.buf, "[%s], %s, %v\n", metric, measurement, v)
	return err
}

func (e *TextMeasurementExporter) Close() error {
	return e.buf.Flush()
}

type innerJSONMeasurement struct {
	Metric      string      `json:"metric"`
	Measurement string      `json:"measurement"`
	Value       interface{} `json:"value"`
}

// Export measurements as one JSON object per line.
type JSONMeasurementExporter struct {
	buf *bufio.Writer
}

func NewJSONMeasurementExporter(w io.Writer) *JSONMeasurementExporter {
	return &JSONMeasurementExporter{
		buf: bufio.NewWriter(w),
	}
}

func (e *JSONMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	if _, err = e.buf.Write(b); err != nil {
		return err
	}
	return e.buf.WriteByte('\n')
}

func (e *JSONMeasurementExporter) Close() error {
	return e.buf.Flush()
}

// Export measurements into a machine readable JSON Array of measurement objects.
type JSONArrayMeasurementExporter struct {
	buf        *bufio.Writer
	afterFirst bool
}

func NewJSONArrayMeasurementExporter(w io.Writer) *JSONArrayMeasurementExporter {
	object := &JSONArrayMeasurementExporter{
		buf: bufio.NewWriter(w),
	}
	object.buf.WriteString("[")
	return object
}

func (e *JSONArrayMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	if e.afterFirst {
		if _, err = e.buf.WriteString(","); err != nil {
			return err
		}
	} else {
		e.afterFirst = true
	}
	_, err = e.buf.Write(b)
	return err
}

func (e *JSONArrayMeasurementExporter) Close() error {
	if _, err := e.buf.WriteString("]"); err != nil {
		return err
	}
	return e.buf.Flush()
}
