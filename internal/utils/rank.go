package utils

import "math"

// RankList returns 1-based ranks for count already ordered candidates.
// Ranks saturate at math.MaxUint16 so very long lists still encode.
func RankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := range ranks {
		r := i + 1
		if r > math.MaxUint16 {
			r = math.MaxUint16
		}
		ranks[i] = uint16(r)
	}
	return ranks
}
