package ranking

import (
	"github.com/jo-hoe/imageroulette/internal/backend/degradation"
	"github.com/jo-hoe/imageroulette/internal/backend/metadata"
)

// DefaultSampleSize is the number of most recent records used to estimate sizes
const DefaultSampleSize = 10

// Stats summarizes a collection of records
type Stats struct {
	Total          int     `json:"total"`
	Visible        int     `json:"visible"`
	Hidden         int     `json:"hidden"`
	LuckySurvivor  int     `json:"luckySurvivor"`
	NormalShit     int     `json:"normalShit"`
	ExtremeNuclear int     `json:"extremeNuclear"`
	AvgSize        float64 `json:"avgSize"`
	TotalSize      float64 `json:"totalSize"`
}

// ComputeStats counts visibility and tiers over all metas. Tiers are derived
// from the roll, not from the stored label.
//
// Sizes are estimated: sampleSizes holds the payload sizes of the most recent
// records, their mean is AvgSize and TotalSize is AvgSize times Total.
func ComputeStats(metas []metadata.Meta, sampleSizes []int) Stats {
	stats := Stats{Total: len(metas)}

	for _, m := range metas {
		if m.Hidden {
			stats.Hidden++
		} else {
			stats.Visible++
		}

		switch m.DerivedTier() {
		case degradation.ExtremeNuclear:
			stats.ExtremeNuclear++
		case degradation.NormalShit:
			stats.NormalShit++
		default:
			stats.LuckySurvivor++
		}
	}

	if len(sampleSizes) > 0 {
		sum := 0
		for _, size := range sampleSizes {
			sum += size
		}
		stats.AvgSize = float64(sum) / float64(len(sampleSizes))
		stats.TotalSize = stats.AvgSize * float64(stats.Total)
	}

	return stats
}
