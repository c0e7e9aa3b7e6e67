package workload

import (
	"sort"
	"strings"

	"github.com/hhkbp2/kvbench"
)

// Mix is the percentage of each operation class.
type Mix struct {
	Writes int
	Reads  int
	Scans  int
}

const (
	PresetWriteHeavy = "write-heavy"
	PresetReadHeavy  = "read-heavy"
	PresetBalanced   = "balanced"
	PresetScanHeavy  = "scan-heavy"
)

var Presets = map[string]Mix{
	PresetWriteHeavy: {Writes: 80, Reads: 20},
	PresetReadHeavy:  {Writes: 20, Reads: 80},
	PresetBalanced:   {Writes: 50, Reads: 50},
	PresetScanHeavy:  {Writes: 10, Reads: 40, Scans: 50},
}

func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply sets the mix of c.
func (m Mix) Apply(c *kvbench.WorkloadConfig) {
	c.Writes = m.Writes
	c.Reads = m.Reads
	c.Scans = m.Scans
}

// Preset returns the default workload with the named mix applied.
func Preset(name string) (*kvbench.WorkloadConfig, error) {
	m, ok := Presets[name]
	if !ok {
		return nil, kvbench.NewConfigError("preset", name, "unknown preset, expected one of %s",
			strings.Join(PresetNames(), ", "))
	}
	c := kvbench.DefaultWorkloadConfig()
	m.Apply(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
