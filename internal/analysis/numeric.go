package analysis

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, 0 for no values. When the plain sum
// overflows, values are scaled by their largest magnitude first.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if !math.IsInf(sum, 0) {
		return sum / float64(len(values))
	}
	s := maxAbs(values)
	return s * scaledMean(values, s)
}

// Std returns the sample standard deviation, 0 for fewer than two values.
func Std(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	if !math.IsInf(ss, 0) && !math.IsNaN(ss) {
		return math.Sqrt(ss / float64(n-1))
	}

	s := maxAbs(values)
	sm := scaledMean(values, s)
	ss = 0
	for _, v := range values {
		d := v/s - sm
		ss += d * d
	}
	return Finite(s * math.Sqrt(ss/float64(n-1)))
}

// Skewness returns the adjusted Fisher-Pearson sample skewness, 0 when it is
// undefined (fewer than three values or zero variance).
func Skewness(values []float64) float64 {
	n := float64(len(values))
	if n < 3 {
		return 0
	}
	s := maxAbs(values)
	if s == 0 {
		return 0
	}
	m := scaledMean(values, s)
	var m2, m3 float64
	for _, v := range values {
		d := v/s - m
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	g1 := m3 / math.Pow(m2, 1.5)
	return Finite(g1 * math.Sqrt(n*(n-1)) / (n - 2))
}

// Finite maps NaN and ±Inf to 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func maxAbs(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func scaledMean(values []float64, s float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v / s
	}
	return sum / float64(len(values))
}

// Sorted returns a sorted copy.
func Sorted(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}

// Quantile interpolates linearly between closest ranks of sorted values.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Median returns the middle value, 0 for no values.
func Median(values []float64) float64 {
	return Quantile(Sorted(values), 0.5)
}

// Pearson returns the correlation of two equally long series, 0 when either
// series is constant. Correlation is scale free, so both series are scaled
// by their largest magnitude before summing.
func Pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 || len(x) != len(y) {
		return 0
	}
	sx, sy := maxAbs(x), maxAbs(y)
	if sx == 0 || sy == 0 {
		return 0
	}

	sumX, sumY, sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0, 0.0, 0.0
	for i := range x {
		a, b := x[i]/sx, y[i]/sy
		sumX += a
		sumY += b
		sumXY += a * b
		sumX2 += a * a
		sumY2 += b * b
	}

	num := n*sumXY - sumX*sumY
	den := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	r := Finite(num / den)
	return math.Max(-1, math.Min(1, r))
}

// IQROutliers counts values outside [Q1-1.5*IQR, Q3+1.5*IQR].
func IQROutliers(values []float64) int {
	if len(values) == 0 {
		return 0
	}
	sorted := Sorted(values)
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr
	n := 0
	for _, v := range sorted {
		if v < lo || v > hi {
			n++
		}
	}
	return n
}
