package generator

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"strconv"
)

const (
	// The widest decimal rendering of a uint64.
	MaxKeyDigits = 20
	// KeyPadByte left-pads keys up to their fixed width.
	KeyPadByte = '0'
	// ConstantValueByte fills the bulk populate buffer.
	ConstantValueByte = 'v'

	// streamMain and streamValueAt keep the workload stream apart from the
	// per-index value streams.
	streamMain    uint64 = 0
	streamValueAt uint64 = 1 << 63
)

// KeyValueGenerator produces fixed width keys and deterministic values.
//
// Key i is the decimal rendering of i, left-padded with '0' to exactly
// keySize bytes. When keySize is smaller than the rendering, the high-order
// digits are dropped. As long as i < 10^keySize, distinct indices produce
// distinct keys and byte order of keys equals numeric order of indices.
//
// The generator owns its random stream. It is not safe for concurrent use.
type KeyValueGenerator struct {
	keySize   int
	valueSize int
	seed      uint64
	source    *rand.PCG
	rng       *rand.Rand
	constant  []byte
}

func NewKeyValueGenerator(keySize, valueSize int, seed uint64) *KeyValueGenerator {
	source := rand.NewPCG(seed, streamMain)
	return &KeyValueGenerator{
		keySize:   keySize,
		valueSize: valueSize,
		seed:      seed,
		source:    source,
		rng:       rand.New(source),
		constant:  bytes.Repeat([]byte{ConstantValueByte}, valueSize),
	}
}

func (g *KeyValueGenerator) KeySize() int {
	return g.keySize
}

func (g *KeyValueGenerator) ValueSize() int {
	return g.valueSize
}

func (g *KeyValueGenerator) Seed() uint64 {
	return g.seed
}

// Rand returns the workload stream. Generators built on it are reset along
// with the KeyValueGenerator.
func (g *KeyValueGenerator) Rand() *rand.Rand {
	return g.rng
}

// Reset re-seeds the workload stream in place.
func (g *KeyValueGenerator) Reset() {
	g.source.Seed(g.seed, streamMain)
}

func (g *KeyValueGenerator) Key(index uint64) []byte {
	key := make([]byte, g.keySize)
	var buf [MaxKeyDigits]byte
	digits := strconv.AppendUint(buf[:0], index, 10)
	if len(digits) > g.keySize {
		digits = digits[len(digits)-g.keySize:]
	}
	pad := g.keySize - len(digits)
	for i := 0; i < pad; i++ {
		key[i] = KeyPadByte
	}
	copy(key[pad:], digits)
	return key
}

// KeyIndex is the inverse of Key for keys of addressable indices.
func KeyIndex(key []byte) (uint64, error) {
	trimmed := bytes.TrimLeft(key, string(KeyPadByte))
	if len(trimmed) == 0 {
		if len(key) == 0 {
			return 0, NewErrorf("empty key")
		}
		return 0, nil
	}
	i, err := strconv.ParseUint(string(trimmed), 10, 64)
	if err != nil {
		return 0, NewErrorf("invalid key %q: %s", key, err)
	}
	return i, nil
}

// MaxAddressableKeys returns how many distinct indices fit a key width,
// saturating at math.MaxUint64.
func MaxAddressableKeys(keySize int) uint64 {
	if keySize >= MaxKeyDigits {
		return math.MaxUint64
	}
	n := uint64(1)
	for i := 0; i < keySize; i++ {
		n *= 10
	}
	return n
}

// Value draws valueSize bytes from the workload stream.
func (g *KeyValueGenerator) Value() []byte {
	value := make([]byte, g.valueSize)
	fill(g.rng, value)
	return value
}

// ValueAt returns valueSize bytes which only depend on the seed and index.
func (g *KeyValueGenerator) ValueAt(index uint64) []byte {
	value := make([]byte, g.valueSize)
	fill(rand.New(rand.NewPCG(g.seed, streamValueAt|index)), value)
	return value
}

// ConstantValue returns the shared constant-filled buffer. Callers must not
// modify it.
func (g *KeyValueGenerator) ConstantValue() []byte {
	return g.constant
}

func fill(r *rand.Rand, b []byte) {
	var word [8]byte
	for len(b) >= 8 {
		binary.LittleEndian.PutUint64(b, r.Uint64())
		b = b[8:]
	}
	if len(b) > 0 {
		binary.LittleEndian.PutUint64(word[:], r.Uint64())
		copy(b, word[:])
	}
}
