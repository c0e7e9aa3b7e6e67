package workload

import (
	"errors"
	"testing"

	"github.com/hhkbp2/testify/require"

	"github.com/hhkbp2/kvbench"
)

func TestPresets(t *testing.T) {
	cases := []struct {
		name  string
		mix   Mix
		scans bool
	}{
		{PresetWriteHeavy, Mix{80, 20, 0}, false},
		{PresetReadHeavy, Mix{20, 80, 0}, false},
		{PresetBalanced, Mix{50, 50, 0}, false},
		{PresetScanHeavy, Mix{10, 40, 50}, true},
	}
	require.Equal(t, len(cases), len(Presets))
	for _, c := range cases {
		config, err := Preset(c.name)
		require.Nil(t, err, c.name)
		require.Equal(t, c.mix, Mix{config.Writes, config.Reads, config.Scans})
		require.Equal(t, 100, config.Writes+config.Reads+config.Scans)
		require.Equal(t, c.scans, config.Scans > 0)
		require.Equal(t, kvbench.DefaultWorkloadConfig().KeySize, config.KeySize)
	}
}

func TestPresetIsACopy(t *testing.T) {
	a, err := Preset(PresetBalanced)
	require.Nil(t, err)
	a.Writes = 1
	b, err := Preset(PresetBalanced)
	require.Nil(t, err)
	require.Equal(t, 50, b.Writes)
}

func TestUnknownPreset(t *testing.T) {
	_, err := Preset("write-only")
	var cerr *kvbench.ConfigError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, "preset", cerr.Source)
}

func TestPresetNames(t *testing.T) {
	require.Equal(t, []string{PresetBalanced, PresetReadHeavy, PresetScanHeavy, PresetWriteHeavy}, PresetNames())
}
