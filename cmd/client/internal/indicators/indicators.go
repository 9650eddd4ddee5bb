// Package indicators computes moving averages over a price series.
package indicators

// SMA returns the simple moving average for every full window of period
// values; the result has len(values)-period+1 entries, or none when the
// series is shorter than period.
func SMA(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA returns the exponential moving average seeded with the first value,
// one entry per input value.
func EMA(values []float64, period int) []float64 {
	if period < 1 || len(values) == 0 {
		return nil
	}
	k := 2 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}
