// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package main

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/tomtom215/fieldwatch/internal/models"
)

// Value ranges of generated readings, [min, max).
const (
	tempMin, tempMax         = 20.0, 30.0
	humidityMin, humidityMax = 40.0, 60.0
	phMin, phMax             = 5.0, 7.0
	soilMin, soilMax         = 10.0, 60.0
)

type generator struct {
	rng  *rand.Rand
	soil bool
	now  func() time.Time
}

func newGenerator(seed uint64, soil bool) *generator {
	return &generator{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		soil: soil,
		now:  time.Now,
	}
}

func (g *generator) next(deviceID string) models.Reading {
	r := models.Reading{
		DeviceID:    deviceID,
		Timestamp:   g.now().UTC().Truncate(time.Millisecond),
		Temperature: g.between(tempMin, tempMax),
		Humidity:    g.between(humidityMin, humidityMax),
		PH:          g.between(phMin, phMax),
	}
	if g.soil {
		v := g.between(soilMin, soilMax)
		r.SoilMoisture = &v
	}
	return r
}

func (g *generator) between(lo, hi float64) float64 {
	v := round2(lo + g.rng.Float64()*(hi-lo))
	// Rounding can land on the exclusive bound.
	if v >= hi {
		v = round2(hi - 0.01)
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
