package kvbench

import (
	"errors"
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestProperties(t *testing.T) {
	k := "key"
	v := "value"
	p := NewProperties()
	p.Add(k, v)
	x := p.Get(k)
	require.Equal(t, v, x)
	x = p.GetDefault(k, "other")
	require.Equal(t, v, x)
	require.Equal(t, "other", p.GetDefault("missing", "other"))
	k1 := "a"
	v1 := "b"
	p2 := map[string]string{k1: v1}
	p.Merge(p2)
	z := p.Get(k1)
	require.Equal(t, v1, z)
	require.Equal(t, []string{"a", "key"}, p.Keys())
}

func TestPropertiesTyped(t *testing.T) {
	p, err := ParseProperties([]string{"n=0x10", "b=true", "bad=zz"})
	require.Nil(t, err)
	n, err := p.GetInt("n", 1)
	require.Nil(t, err)
	require.Equal(t, int64(16), n)
	n, err = p.GetInt("none", 7)
	require.Nil(t, err)
	require.Equal(t, int64(7), n)
	b, err := p.GetBool("b", false)
	require.Nil(t, err)
	require.True(t, b)
	_, err = p.GetInt("bad", 0)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, "bad", cerr.Field)
}

func TestParsePropertiesRejectsMalformed(t *testing.T) {
	_, err := ParseProperties([]string{"novalue"})
	require.NotNil(t, err)
	_, err = ParseProperties([]string{"=v"})
	require.NotNil(t, err)
	p, err := ParseProperties([]string{"dsn=user:pw@tcp(h:1)/db?a=b"})
	require.Nil(t, err)
	require.Equal(t, "user:pw@tcp(h:1)/db?a=b", p.Get("dsn"))
}

func TestToTime(t *testing.T) {
	nanosecond := int64(12345678)
	require.Equal(t, int64(12345), NanosecondToMicrosecond(nanosecond))
	require.Equal(t, 12.345, MicrosecondToMillisecond(12345))
}

func TestRound(t *testing.T) {
	require.Equal(t, 1.23, Round(1.234, 2))
	require.Equal(t, 1.24, Round(1.235001, 2))
	require.Equal(t, 3.0, Round(3, 2))
}

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512 B", FormatBytes(512))
	require.Equal(t, "1.00 KiB", FormatBytes(1024))
	require.Equal(t, "1.50 MiB", FormatBytes(1024*1024*3/2))
}
