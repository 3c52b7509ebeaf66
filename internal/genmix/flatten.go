package genmix

import "github.com/jgoulah/gridmix/pkg/models"

// Flatten converts an interval's list of fuel shares into a fuel -> percentage map.
// If a fuel is listed more than once the later entry wins.
func Flatten(mix []models.FuelShare) map[string]float64 {
	flat := make(map[string]float64, len(mix))
	for _, share := range mix {
		flat[share.Fuel] = share.Perc
	}
	return flat
}

// DuplicateFuels returns the fuel names that appear more than once in mix,
// in order of their second appearance
func DuplicateFuels(mix []models.FuelShare) []string {
	seen := make(map[string]int, len(mix))
	var dups []string
	for _, share := range mix {
		seen[share.Fuel]++
		if seen[share.Fuel] == 2 {
			dups = append(dups, share.Fuel)
		}
	}
	return dups
}
