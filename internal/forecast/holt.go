package forecast

import (
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"MarketConcierge/internal/model"
)

// ModelVersion tags every stored prediction.
const ModelVersion = "v1-holt-linear"

// MinPrices is the shortest history Forecast will fit.
const MinPrices = 10

// gridPoints is the number of values tried per smoothing parameter when
// seeding the optimizer.
const gridPoints = 20

// Holt is additive-trend exponential smoothing without seasonality.
// Zero Alpha or Beta means all parameters are estimated from the data.
type Holt struct {
	Alpha float64
	Beta  float64
}

// params are the smoothing weights and the level and trend in effect
// before the first observation.
type params struct {
	alpha, beta  float64
	level, trend float64
}

// Forecast fits the model to prices and projects days steps ahead.
// It returns nil when fewer than MinPrices prices are supplied.
func (h Holt) Forecast(prices []float64, days int) []float64 {
	if len(prices) < MinPrices || days <= 0 {
		return nil
	}
	var p params
	if h.Alpha == 0 || h.Beta == 0 {
		p = fit(prices)
	} else {
		p = heuristic(prices, h.Alpha, h.Beta)
	}
	level, trend, _ := smooth(prices, p)

	out := make([]float64, days)
	for i := range out {
		out[i] = level + float64(i+1)*trend
	}
	return out
}

// heuristic starts the level on the first price with a trend equal to the
// first difference, so the first observation is predicted exactly.
func heuristic(prices []float64, alpha, beta float64) params {
	d := prices[1] - prices[0]
	return params{alpha: alpha, beta: beta, level: prices[0] - d, trend: d}
}

// grid picks the heuristic start with the smallest squared error.
// Ties keep the first point found.
func grid(prices []float64) params {
	var best params
	bestSSE := math.Inf(1)
	for i := 1; i <= gridPoints; i++ {
		for j := 1; j <= gridPoints; j++ {
			p := heuristic(prices, float64(i)/gridPoints, float64(j)/gridPoints)
			if _, _, sse := smooth(prices, p); sse < bestSSE {
				best, bestSSE = p, sse
			}
		}
	}
	return best
}

// fit estimates alpha, beta and the initial state by minimizing the
// one-step-ahead squared error with Nelder-Mead, seeded from the grid.
// Alpha and beta are searched through a logistic map so they stay in (0, 1).
func fit(prices []float64) params {
	start := grid(prices)
	_, _, startSSE := smooth(prices, start)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			_, _, sse := smooth(prices, decode(x))
			return sse
		},
	}
	res, err := optimize.Minimize(problem, encode(start), nil, &optimize.NelderMead{})
	if err != nil || res == nil || math.IsNaN(res.F) || res.F >= startSSE {
		return start
	}
	return decode(res.X)
}

const edge = 1e-6

func encode(p params) []float64 {
	return []float64{logit(p.alpha), logit(p.beta), p.level, p.trend}
}

func decode(x []float64) params {
	return params{alpha: sigmoid(x[0]), beta: sigmoid(x[1]), level: x[2], trend: x[3]}
}

func logit(v float64) float64 {
	v = math.Min(math.Max(v, edge), 1-edge)
	return math.Log(v / (1 - v))
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// smooth runs the level and trend recursions over every price and returns
// the final state with the sum of squared one-step errors.
func smooth(prices []float64, p params) (level, trend, sse float64) {
	level, trend = p.level, p.trend
	for _, y := range prices {
		e := y - (level + trend)
		sse += e * e
		prev := level
		level = p.alpha*y + (1-p.alpha)*(level+trend)
		trend = p.beta*(level-prev) + (1-p.beta)*trend
	}
	return level, trend, sse
}

// NextBusinessDays returns the n weekdays following last.
func NextBusinessDays(last time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := last
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Points forecasts the next days business days after last and returns
// them as rounded, versioned prediction rows.
func Points(symbol string, last time.Time, prices []float64, days int) []model.ForecastPoint {
	values := Holt{}.Forecast(prices, days)
	if len(values) == 0 {
		return nil
	}
	dates := NextBusinessDays(last, len(values))
	points := make([]model.ForecastPoint, len(values))
	for i, v := range values {
		points[i] = model.ForecastPoint{
			Symbol:       symbol,
			Date:         dates[i],
			Price:        math.Round(v*100) / 100,
			ModelVersion: ModelVersion,
		}
	}
	return points
}
