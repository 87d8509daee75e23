package degradation

import (
	"math"
	"math/rand/v2"
	"strings"
)

// Tier is the degradation class an upload is assigned by its roll
type Tier string

const (
	LuckySurvivor  Tier = "LUCKY_SURVIVOR"
	NormalShit     Tier = "NORMAL_SHIT"
	ExtremeNuclear Tier = "EXTREME_NUCLEAR"
	// Unknown is only produced when parsing a label that names no tier
	Unknown Tier = "UNKNOWN"
)

// Roll thresholds, in percent
const (
	ExtremeNuclearBelow = 25.0
	NormalShitBelow     = 50.0
	MaxRoll             = 100.0
)

// Tiers lists the valid tiers from best to worst outcome
var Tiers = []Tier{LuckySurvivor, NormalShit, ExtremeNuclear}

// TierForRoll maps a roll in [0,100) to its tier
func TierForRoll(roll float64) Tier {
	switch {
	case roll < ExtremeNuclearBelow:
		return ExtremeNuclear
	case roll < NormalShitBelow:
		return NormalShit
	default:
		return LuckySurvivor
	}
}

// ParseTier maps a stored label back to a Tier, returning Unknown for anything else
func ParseTier(label string) Tier {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(label))); t {
	case LuckySurvivor, NormalShit, ExtremeNuclear:
		return t
	default:
		return Unknown
	}
}

// String returns the label of the tier
func (t Tier) String() string {
	return string(t)
}

// DisplayName returns the label with underscores replaced by spaces
func (t Tier) DisplayName() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// RollSource draws uniform values from [0,100)
type RollSource interface {
	Roll() float64
}

type randomRollSource struct {
	rng *rand.Rand
}

// NewRandomRollSource returns a RollSource backed by an auto-seeded PCG generator
func NewRandomRollSource() RollSource {
	return &randomRollSource{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeededRollSource returns a deterministic RollSource
func NewSeededRollSource(seed1, seed2 uint64) RollSource {
	return &randomRollSource{
		rng: rand.New(rand.NewPCG(seed1, seed2)),
	}
}

func (s *randomRollSource) Roll() float64 {
	return s.rng.Float64() * MaxRoll
}

// FixedRoll always returns the same roll
type FixedRoll float64

func (f FixedRoll) Roll() float64 {
	return float64(f)
}

// Selector draws a roll and derives the tier from it
type Selector struct {
	source RollSource
}

// NewSelector creates a selector over the given source
func NewSelector(source RollSource) *Selector {
	if source == nil {
		source = NewRandomRollSource()
	}
	return &Selector{source: source}
}

// Select draws a roll and returns the tier it selects together with the roll.
// The roll is truncated to two decimals first, so the value that gets stored
// and displayed selects the same tier when classified again.
func (s *Selector) Select() (Tier, float64) {
	roll := TruncateRoll(s.source.Roll())
	return TierForRoll(roll), roll
}

// TruncateRoll cuts a roll to two decimals, clamped to [0, 99.99]
func TruncateRoll(roll float64) float64 {
	if math.IsNaN(roll) || roll < 0 {
		return 0
	}
	// the epsilon keeps values like 24.99 (stored as 24.98999...) on their own cent
	truncated := math.Floor(roll*100+1e-7) / 100
	if truncated >= MaxRoll {
		return MaxRoll - 0.01
	}
	return truncated
}
