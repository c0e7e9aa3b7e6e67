package kvbench

import (
	"time"
)

const (
	// BasicDB
	// The fixed latency added to every BasicDB operation, in microseconds.
	PropertyBasicDBDelay = "basicdb.delay"
	// Make the n-th BasicDB put fail. Zero disables failure injection.
	PropertyBasicDBFailAfter = "basicdb.failafter"

	// Workload defaults
	// The seed used when the workload file does not set one.
	DefaultSeed uint64 = 42
	// Populate total_keys / DefaultPopulateDivisor records before running.
	DefaultPopulateDivisor = 10
	// Flush every DefaultFlushInterval operations.
	DefaultFlushInterval = 10000
	// The limit passed to RangeScan.
	DefaultScanLength = 100

	// Key distributions for reads and scans.
	KeyDistributionUniform   = "uniform"
	KeyDistributionPopulated = "populated"
	KeyDistributionZipfian   = "zipfian"

	// Histogram bounds, in microseconds.
	HistogramLowest             int64 = 1
	HistogramHighest            int64 = 1000000000
	HistogramSignificantFigures       = 3

	// The interval between two progress ticks.
	DefaultProgressInterval = time.Second
)
