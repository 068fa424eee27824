package forecast

import (
	"math"

	"github.com/derickschaefer/stockcast/internal/model"
)

// DefaultAnomalyZ is the z-score beyond which a history point is flagged.
const DefaultAnomalyZ = 2.5

// DetectAnomalies flags points whose z-score against the series mean exceeds
// threshold (DefaultAnomalyZ when threshold <= 0). Series shorter than three
// points or with no spread yield none.
func DetectAnomalies(ts model.TimeSeries, threshold float64) []model.Anomaly {
	out := []model.Anomaly{}
	if threshold <= 0 {
		threshold = DefaultAnomalyZ
	}
	v := ts.Values()
	if len(v) < 3 {
		return out
	}
	m := meanF(v)
	sd := popStddev(v, m)
	if sd == 0 || !finite(sd) {
		return out
	}
	for _, p := range ts.Points {
		z := (p.Value - m) / sd
		if math.Abs(z) <= threshold {
			continue
		}
		dir := "spike"
		if z < 0 {
			dir = "drop"
		}
		out = append(out, model.Anomaly{Date: p.Time, Value: p.Value, ZScore: z, Direction: dir})
	}
	return out
}
