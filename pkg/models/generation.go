package models

import "time"

// FuelShare is one fuel's percentage of generation for an interval
type FuelShare struct {
	Fuel string  `json:"fuel"`
	Perc float64 `json:"perc"`
}

// Interval represents a single reporting window (half an hour) of generation mix
type Interval struct {
	From          time.Time
	To            time.Time // Row key in the generation table
	GenerationMix []FuelShare
}
