package weather

import "math"

// zeroResultant is the resultant length below which the mean direction is
// undefined.
const zeroResultant = 1e-9

// CircularMean returns the mean direction of angles given in degrees
// clockwise from north. The result is in [0, 360).
//
// When the unit vectors cancel out (for example 0 and 180) the direction is
// undefined and 0 is returned. NaN inputs are ignored; if nothing is left the
// result is NaN.
func CircularMean(degrees []float64) float64 {
	var (
		sumSin, sumCos float64
		n              int
		last           float64
	)
	for _, d := range degrees {
		if math.IsNaN(d) {
			continue
		}
		rad := d * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
		last = d
		n++
	}

	switch n {
	case 0:
		return math.NaN()
	case 1:
		return normalizeDegrees(last)
	}

	sinAvg := sumSin / float64(n)
	cosAvg := sumCos / float64(n)
	if math.Hypot(sinAvg, cosAvg) < zeroResultant {
		return 0
	}

	return normalizeDegrees(math.Atan2(sinAvg, cosAvg) * 180 / math.Pi)
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	// -tiny + 360 rounds to 360.
	if d >= 360 {
		d = 0
	}
	return d
}
