package kvbench

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	g "github.com/hhkbp2/kvbench/generator"
)

// workloadFile is the YAML form of a workload. Pointer fields tell absent
// keys apart from explicit zeros.
type workloadFile struct {
	Writes                 *int    `yaml:"writes"`
	Reads                  *int    `yaml:"reads"`
	Scans                  *int    `yaml:"scans"`
	KeySize                int     `yaml:"key_size"`
	ValueSize              int     `yaml:"value_size"`
	DatasetSize            string  `yaml:"dataset_size"`
	Duration               int     `yaml:"duration"`
	ScanLength             int     `yaml:"scan_length"`
	Seed                   *uint64 `yaml:"seed"`
	FlushInterval          int     `yaml:"flush_interval"`
	PopulateDivisor        int     `yaml:"populate_divisor"`
	KeyDistribution        string  `yaml:"key_distribution"`
	OperationCount         uint64  `yaml:"operation_count"`
	ConstantPopulateValues bool    `yaml:"constant_populate_values"`
}

// WorkloadConfig describes one benchmark run. It is immutable once loaded.
type WorkloadConfig struct {
	Writes                 int           `yaml:"writes" json:"writes" validate:"min=0,max=100"`
	Reads                  int           `yaml:"reads" json:"reads" validate:"min=0,max=100"`
	Scans                  int           `yaml:"scans" json:"scans" validate:"min=0,max=100"`
	KeySize                int           `yaml:"key_size" json:"key_size" validate:"required,min=1,max=1024"`
	ValueSize              int           `yaml:"value_size" json:"value_size" validate:"required,min=1,max=16777216"`
	DatasetSize            string        `yaml:"dataset_size" json:"dataset_size" validate:"required"`
	Duration               time.Duration `yaml:"duration" json:"duration" validate:"required,min=1s"`
	ScanLength             int           `yaml:"scan_length" json:"scan_length" validate:"required,min=1"`
	Seed                   uint64        `yaml:"seed" json:"seed"`
	FlushInterval          int           `yaml:"flush_interval" json:"flush_interval" validate:"required,min=1"`
	PopulateDivisor        int           `yaml:"populate_divisor" json:"populate_divisor" validate:"required,min=1"`
	KeyDistribution        string        `yaml:"key_distribution" json:"key_distribution" validate:"required,valid_key_distribution"`
	OperationCount         uint64        `yaml:"operation_count" json:"operation_count,omitempty"`
	ConstantPopulateValues bool          `yaml:"constant_populate_values" json:"constant_populate_values,omitempty"`
}

// Custom validation tags
const (
	keyDistributionTag = "valid_key_distribution"
	mixSumTag          = "mix_sum"
)

// RegisterCustomValidators registers all custom validators for WorkloadConfig
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation(keyDistributionTag, validateKeyDistribution); err != nil {
		return fmt.Errorf("failed to register key distribution validator: %w", err)
	}
	v.RegisterStructValidation(validateMix, WorkloadConfig{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return nil
}

func validateKeyDistribution(fl validator.FieldLevel) bool {
	validTypes := map[string]bool{
		KeyDistributionUniform:   true,
		KeyDistributionPopulated: true,
		KeyDistributionZipfian:   true,
	}
	return validTypes[fl.Field().String()]
}

// validateMix ensures the operation percentages add up to exactly 100.
func validateMix(sl validator.StructLevel) {
	c := sl.Current().Interface().(WorkloadConfig)
	if c.Writes+c.Reads+c.Scans != 100 {
		sl.ReportError(c.Scans, "scans", "Scans", mixSumTag, "")
	}
}

// DefaultWorkloadConfig returns a write-heavy workload over 1MB of data.
func DefaultWorkloadConfig() *WorkloadConfig {
	return &WorkloadConfig{
		Writes:          80,
		Reads:           20,
		Scans:           0,
		KeySize:         16,
		ValueSize:       1024,
		DatasetSize:     "1MB",
		Duration:        10 * time.Second,
		ScanLength:      DefaultScanLength,
		Seed:            DefaultSeed,
		FlushInterval:   DefaultFlushInterval,
		PopulateDivisor: DefaultPopulateDivisor,
		KeyDistribution: KeyDistributionUniform,
	}
}

// LoadWorkloadConfig reads, defaults and validates a YAML workload file.
func LoadWorkloadConfig(path string) (*WorkloadConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	c, err := ParseWorkloadConfig(data)
	if err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			cerr.Source = path
		}
		return nil, err
	}
	return c, nil
}

// ParseWorkloadConfig parses a YAML workload document.
func ParseWorkloadConfig(data []byte) (*WorkloadConfig, error) {
	f := &workloadFile{}
	if err := yaml.UnmarshalStrict(data, f); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if f.Writes == nil {
		return nil, NewConfigError("", "writes", "missing")
	}
	if f.Reads == nil {
		return nil, NewConfigError("", "reads", "missing")
	}
	c := &WorkloadConfig{
		Writes:                 *f.Writes,
		Reads:                  *f.Reads,
		KeySize:                f.KeySize,
		ValueSize:              f.ValueSize,
		DatasetSize:            f.DatasetSize,
		Duration:               time.Duration(f.Duration) * time.Second,
		ScanLength:             f.ScanLength,
		Seed:                   DefaultSeed,
		FlushInterval:          f.FlushInterval,
		PopulateDivisor:        f.PopulateDivisor,
		KeyDistribution:        f.KeyDistribution,
		OperationCount:         f.OperationCount,
		ConstantPopulateValues: f.ConstantPopulateValues,
	}
	if f.Scans != nil {
		c.Scans = *f.Scans
	} else {
		c.Scans = 100 - c.Writes - c.Reads
	}
	if f.Seed != nil {
		c.Seed = *f.Seed
	}
	if c.ScanLength == 0 {
		c.ScanLength = DefaultScanLength
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.PopulateDivisor == 0 {
		c.PopulateDivisor = DefaultPopulateDivisor
	}
	if c.KeyDistribution == "" {
		c.KeyDistribution = KeyDistributionUniform
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field ranges, the operation mix and that the dataset
// holds at least one addressable record.
func (c *WorkloadConfig) Validate() error {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		return &ConfigError{Err: err}
	}
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return c.translate(verrs[0])
		}
		return &ConfigError{Err: err}
	}
	total := c.TotalKeys()
	if total == 0 {
		return NewConfigError("", "dataset_size",
			"%q holds no record of %d bytes", c.DatasetSize, c.KeySize+c.ValueSize)
	}
	if limit := g.MaxAddressableKeys(c.KeySize); total > limit {
		return NewConfigError("", "key_size",
			"%d bytes address %d keys, dataset needs %d", c.KeySize, limit, total)
	}
	return nil
}

func (c *WorkloadConfig) translate(fe validator.FieldError) *ConfigError {
	switch fe.Tag() {
	case mixSumTag:
		return NewConfigError("", fe.Field(),
			"writes(%d) + reads(%d) + scans(%d) = %d, must equal 100",
			c.Writes, c.Reads, c.Scans, c.Writes+c.Reads+c.Scans)
	case keyDistributionTag:
		return NewConfigError("", fe.Field(), "unknown distribution %q", fe.Value())
	case "required":
		return NewConfigError("", fe.Field(), "missing")
	default:
		return NewConfigError("", fe.Field(), "value %v violates %s=%s", fe.Value(), fe.Tag(), fe.Param())
	}
}

// DatasetBytes returns the dataset size in bytes.
func (c *WorkloadConfig) DatasetBytes() uint64 {
	return ParseDatasetSize(c.DatasetSize)
}

// TotalKeys returns how many records of key_size + value_size bytes fit in
// the dataset.
func (c *WorkloadConfig) TotalKeys() uint64 {
	recordSize := c.KeySize + c.ValueSize
	if recordSize <= 0 {
		return 0
	}
	return c.DatasetBytes() / uint64(recordSize)
}

// PopulateKeys returns how many records the populate phase inserts.
func (c *WorkloadConfig) PopulateKeys() uint64 {
	if c.PopulateDivisor <= 0 {
		return 0
	}
	return c.TotalKeys() / uint64(c.PopulateDivisor)
}

// ParseDatasetSize parses sizes like "100GB", "1mb" or "4096". The number
// is made of the digits found in s, and defaults to 1 when there are none.
// A "gb" suffix multiplies by 10^9, "mb" by 10^6 and anything else by 1.
// Results saturate at math.MaxUint64.
func ParseDatasetSize(s string) uint64 {
	lower := strings.ToLower(strings.TrimSpace(s))
	multiplier := uint64(1)
	switch {
	case strings.HasSuffix(lower, "gb"):
		multiplier = 1000000000
	case strings.HasSuffix(lower, "mb"):
		multiplier = 1000000
	}
	var digits strings.Builder
	for _, r := range lower {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.ParseUint(digits.String(), 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return math.MaxUint64
		}
		n = 1
	}
	hi, lo := bits.Mul64(n, multiplier)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func (c *WorkloadConfig) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("writes", c.Writes)
	enc.AddInt("reads", c.Reads)
	enc.AddInt("scans", c.Scans)
	enc.AddInt("key_size", c.KeySize)
	enc.AddInt("value_size", c.ValueSize)
	enc.AddString("dataset_size", c.DatasetSize)
	enc.AddUint64("total_keys", c.TotalKeys())
	enc.AddDuration("duration", c.Duration)
	enc.AddUint64("seed", c.Seed)
	enc.AddString("key_distribution", c.KeyDistribution)
	return nil
}
