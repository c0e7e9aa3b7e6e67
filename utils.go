package kvbench

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Properties holds free form engine options, given as `-p name=value`
// on the command line.
type Properties map[string]string

func NewProperties() Properties {
	return make(Properties)
}

func (p Properties) Add(key, value string) {
	p[key] = value
}

func (p Properties) Get(key string) string {
	return p[key]
}

func (p Properties) GetDefault(key string, defaultValue string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return defaultValue
}

func (p Properties) GetInt(key string, defaultValue int64) (int64, error) {
	v, ok := p[key]
	if !ok {
		return defaultValue, nil
	}
	i, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, NewConfigError("properties", key, "invalid integer %q", v)
	}
	return i, nil
}

func (p Properties) GetBool(key string, defaultValue bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, NewConfigError("properties", key, "invalid boolean %q", v)
	}
	return b, nil
}

func (p Properties) Merge(other map[string]string) {
	for k, v := range other {
		p[k] = v
	}
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseProperties parses a list of "name=value" pairs.
func ParseProperties(pairs []string) (Properties, error) {
	p := NewProperties()
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, NewConfigError("properties", pair, "expected name=value")
		}
		p.Add(name, value)
	}
	return p, nil
}

func NanosecondToMicrosecond(nanosecond int64) int64 {
	return nanosecond / 1000
}

func MicrosecondToMillisecond(microsecond int64) float64 {
	return float64(microsecond) / 1000
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
