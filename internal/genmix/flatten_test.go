package genmix

import (
	"testing"

	"github.com/jgoulah/gridmix/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		mix  []models.FuelShare
		want map[string]float64
	}{
		{
			name: "distinct fuels",
			mix: []models.FuelShare{
				{Fuel: "biomass", Perc: 4.2},
				{Fuel: "gas", Perc: 40},
				{Fuel: "wind", Perc: 55.8},
			},
			want: map[string]float64{"biomass": 4.2, "gas": 40, "wind": 55.8},
		},
		{
			name: "later duplicate overwrites earlier",
			mix: []models.FuelShare{
				{Fuel: "gas", Perc: 40},
				{Fuel: "wind", Perc: 50},
				{Fuel: "gas", Perc: 10},
			},
			want: map[string]float64{"gas": 10, "wind": 50},
		},
		{
			name: "empty mix",
			mix:  nil,
			want: map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flatten(tt.mix))
		})
	}
}

func TestFlatten_SizeMatchesDistinctInput(t *testing.T) {
	mix := []models.FuelShare{
		{Fuel: "coal", Perc: 1.5},
		{Fuel: "gas", Perc: 38.1},
		{Fuel: "hydro", Perc: 2},
		{Fuel: "imports", Perc: 8.4},
		{Fuel: "nuclear", Perc: 15},
		{Fuel: "other", Perc: 0},
		{Fuel: "solar", Perc: 3.3},
		{Fuel: "wind", Perc: 31.7},
	}

	flat := Flatten(mix)

	assert.Len(t, flat, len(mix))
	for _, share := range mix {
		assert.Equal(t, share.Perc, flat[share.Fuel], share.Fuel)
	}
}

func TestDuplicateFuels(t *testing.T) {
	mix := []models.FuelShare{
		{Fuel: "gas", Perc: 1},
		{Fuel: "wind", Perc: 2},
		{Fuel: "gas", Perc: 3},
		{Fuel: "gas", Perc: 4},
		{Fuel: "wind", Perc: 5},
	}

	assert.Equal(t, []string{"gas", "wind"}, DuplicateFuels(mix))
	assert.Empty(t, DuplicateFuels(mix[:2]))
}
