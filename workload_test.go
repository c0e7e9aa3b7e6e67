package kvbench

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hhkbp2/testify/require"
)

func TestParseDatasetSize(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"100GB", 100000000000},
		{"100gb", 100000000000},
		{"1MB", 1000000},
		{" 2 mb ", 2000000},
		{"4096", 4096},
		{"10KB", 10},
		{"GB", 1000000000},
		{"", 1},
		{"lots", 1},
		{"1.5GB", 15000000000},
		{"99999999999999999999999GB", math.MaxUint64},
		{"100000000000000GB", math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, ParseDatasetSize(tt.input))
		})
	}
}

func TestTotalKeys(t *testing.T) {
	c := DefaultWorkloadConfig()
	c.DatasetSize = "100GB"
	require.Equal(t, uint64(96153846), c.TotalKeys())
	c.DatasetSize = "1MB"
	require.Equal(t, uint64(961), c.TotalKeys())
	require.Equal(t, uint64(96), c.PopulateKeys())
}

func TestParseWorkloadConfig(t *testing.T) {
	doc := `
writes: 80
reads: 20
key_size: 16
value_size: 1024
dataset_size: 1MB
duration: 5
`
	c, err := ParseWorkloadConfig([]byte(doc))
	require.Nil(t, err)
	require.Equal(t, 80, c.Writes)
	require.Equal(t, 20, c.Reads)
	require.Equal(t, 0, c.Scans)
	require.Equal(t, 5*time.Second, c.Duration)
	require.Equal(t, DefaultSeed, c.Seed)
	require.Equal(t, DefaultScanLength, c.ScanLength)
	require.Equal(t, DefaultFlushInterval, c.FlushInterval)
	require.Equal(t, DefaultPopulateDivisor, c.PopulateDivisor)
	require.Equal(t, KeyDistributionUniform, c.KeyDistribution)
	require.Equal(t, uint64(961), c.TotalKeys())
}

func TestParseWorkloadConfigExplicitFields(t *testing.T) {
	doc := `
writes: 10
reads: 40
scans: 50
key_size: 32
value_size: 100
dataset_size: 10mb
duration: 1
scan_length: 20
seed: 0
flush_interval: 500
populate_divisor: 2
key_distribution: zipfian
operation_count: 1000
constant_populate_values: true
`
	c, err := ParseWorkloadConfig([]byte(doc))
	require.Nil(t, err)
	require.Equal(t, 50, c.Scans)
	require.Equal(t, uint64(0), c.Seed)
	require.Equal(t, 20, c.ScanLength)
	require.Equal(t, 500, c.FlushInterval)
	require.Equal(t, KeyDistributionZipfian, c.KeyDistribution)
	require.Equal(t, uint64(1000), c.OperationCount)
	require.True(t, c.ConstantPopulateValues)
	require.Equal(t, uint64(10000000/132), c.TotalKeys())
	require.Equal(t, c.TotalKeys()/2, c.PopulateKeys())
}

func TestParseWorkloadConfigErrors(t *testing.T) {
	base := "key_size: 16\nvalue_size: 1024\ndataset_size: 1MB\nduration: 5\n"
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"explicit mix over 100", "writes: 50\nreads: 40\nscans: 20\n" + base, "scans"},
		{"explicit mix under 100", "writes: 50\nreads: 40\nscans: 0\n" + base, "scans"},
		{"implied scans negative", "writes: 70\nreads: 40\n" + base, "scans"},
		{"missing writes", "reads: 40\n" + base, "writes"},
		{"missing reads", "writes: 40\n" + base, "reads"},
		{"percent above 100", "writes: 120\nreads: 0\nscans: -20\n" + base, "writes"},
		{"zero key size", "writes: 100\nreads: 0\nkey_size: 0\nvalue_size: 1\ndataset_size: 1MB\nduration: 5\n", "key_size"},
		{"zero duration", "writes: 100\nreads: 0\nkey_size: 16\nvalue_size: 1\ndataset_size: 1MB\nduration: 0\n", "duration"},
		{"unknown distribution", "writes: 100\nreads: 0\nkey_distribution: hot\n" + base, "key_distribution"},
		{"dataset below one record", "writes: 100\nreads: 0\nkey_size: 16\nvalue_size: 1024\ndataset_size: 100\nduration: 5\n", "dataset_size"},
		{"key too narrow", "writes: 100\nreads: 0\nkey_size: 2\nvalue_size: 1024\ndataset_size: 1MB\nduration: 5\n", "key_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWorkloadConfig([]byte(tt.doc))
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "%v", err)
			require.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestParseWorkloadConfigRejectsUnknownField(t *testing.T) {
	_, err := ParseWorkloadConfig([]byte("writes: 100\nreads: 0\nthreads: 4\n"))
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
}

func TestLoadWorkloadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workload.yaml")
	doc := "writes: 50\nreads: 50\nkey_size: 16\nvalue_size: 1024\ndataset_size: 1MB\nduration: 2\n"
	require.Nil(t, os.WriteFile(path, []byte(doc), 0644))
	c, err := LoadWorkloadConfig(path)
	require.Nil(t, err)
	require.Equal(t, 50, c.Writes)

	bad := filepath.Join(dir, "bad.yaml")
	require.Nil(t, os.WriteFile(bad, []byte("writes: 50\nreads: 60\n"), 0644))
	_, err = LoadWorkloadConfig(bad)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, bad, cerr.Source)

	_, err = LoadWorkloadConfig(filepath.Join(dir, "missing.yaml"))
	require.True(t, errors.As(err, &cerr))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDefaultWorkloadConfigIsValid(t *testing.T) {
	require.Nil(t, DefaultWorkloadConfig().Validate())
}
