package test

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/petroworks/go-wellstore/model"
)

var globalSeed atomic.Int64

var logNames = []string{"GR", "RHOB", "NPHI", "DT", "RT", "CALI", "SP", "PEF"}

// RandomNames returns a slice of n random unique well names.
func RandomNames(n int) []string {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))
	names := make([]string, n)
	nameSet := make(map[string]struct{})
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("W-%c%02d-%04d", 'A'+rune(rng.Intn(26)), rng.Intn(100), rng.Intn(10000))
		if _, ok := nameSet[name]; ok {
			i--
			continue
		}
		nameSet[name] = struct{}{}
		names[i] = name
	}
	return names
}

// RandomWell returns a well record with the given name, one dataset and a
// few random logs of depthSamples values each. Numeric values are float64 so
// that a record compares equal to itself after an encode and decode.
func RandomWell(name string, depthSamples int) *model.WellRecord {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))

	depth := make([]any, depthSamples)
	for i := range depth {
		depth[i] = 1000 + float64(i)*0.5
	}
	ds := model.Dataset{
		Name:      "WIRE",
		Type:      "Continuous",
		WellName:  name,
		IndexName: "DEPTH",
		IndexLog:  depth,
		WellLogs:  []model.WellLog{},
		Constants: []model.Constant{
			{Name: "KB", Value: float64(rng.Intn(50)), Tag: "m"},
		},
	}
	nlogs := 1 + rng.Intn(len(logNames))
	for _, ln := range logNames[:nlogs] {
		vals := make([]any, depthSamples)
		for i := range vals {
			vals[i] = float64(rng.Intn(20000)) / 100
		}
		ds.WellLogs = append(ds.WellLogs, model.WellLog{
			Name:          ln,
			Interpolation: "linear",
			LogType:       "float",
			Values:        vals,
			Dataset:       ds.Name,
		})
	}

	return &model.WellRecord{
		Name:     name,
		WellType: "Dev",
		Datasets: []model.Dataset{ds},
	}
}

// RandomWells returns n random well records with unique names.
func RandomWells(n, depthSamples int) []*model.WellRecord {
	recs := make([]*model.WellRecord, n)
	for i, name := range RandomNames(n) {
		recs[i] = RandomWell(name, depthSamples)
	}
	return recs
}
