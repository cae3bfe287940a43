package worker

import "math"

// stepQuantile implements the P-Square algorithm for streaming quantile
// estimation: O(1) per-observation updates and O(1) quantile retrieval,
// without storing observations. Adapted from eventloop/psquare.go
// (pSquareQuantile), renamed to this package's domain: tracking Worker.Step
// latency rather than event-loop tick latency.
//
// Reference: Jain, R. and Chlamtac, I. (1985). "The P^2 Algorithm for Dynamic
// Calculation of Quantiles and Histograms Without Storing Observations".
// Communications of the ACM, 28(10), pp. 1076-1085.
//
// Not safe for concurrent use; owned by the single goroutine driving Step,
// same as every other Worker field.
type stepQuantile struct {
	p  float64
	q  [5]float64
	n  [5]int
	np [5]float64
	dn [5]float64

	initBuffer [5]float64
	count      int
}

func newStepQuantile(p float64) *stepQuantile {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &stepQuantile{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

func (s *stepQuantile) update(x float64) {
	s.count++

	if s.count <= 5 {
		s.initBuffer[s.count-1] = x
		if s.count == 5 {
			s.initialize()
		}
		return
	}

	var k int
	if x < s.q[0] {
		s.q[0] = x
		k = 0
	} else if x >= s.q[4] {
		s.q[4] = x
		k = 3
	} else {
		for k = 0; k < 4; k++ {
			if s.q[k] <= x && x < s.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		s.n[i]++
	}
	for i := 0; i < 5; i++ {
		s.np[i] += s.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := s.np[i] - float64(s.n[i])
		if (d >= 1 && s.n[i+1]-s.n[i] > 1) || (d <= -1 && s.n[i-1]-s.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qPrime := s.parabolic(i, sign)
			if s.q[i-1] < qPrime && qPrime < s.q[i+1] {
				s.q[i] = qPrime
			} else {
				s.q[i] = s.linear(i, sign)
			}
			s.n[i] += sign
		}
	}
}

func (s *stepQuantile) initialize() {
	for i := 1; i < 5; i++ {
		key := s.initBuffer[i]
		j := i - 1
		for j >= 0 && s.initBuffer[j] > key {
			s.initBuffer[j+1] = s.initBuffer[j]
			j--
		}
		s.initBuffer[j+1] = key
	}
	for i := 0; i < 5; i++ {
		s.q[i] = s.initBuffer[i]
		s.n[i] = i
	}
	s.np = [5]float64{0, 2 * s.p, 4 * s.p, 2 + 2*s.p, 4}
}

func (s *stepQuantile) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(s.n[i])
	niPrev := float64(s.n[i-1])
	niNext := float64(s.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (s.q[i+1] - s.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (s.q[i] - s.q[i-1]) / (ni - niPrev)
	return s.q[i] + term1*(term2+term3)
}

func (s *stepQuantile) linear(i, d int) float64 {
	if d == 1 {
		return s.q[i] + (s.q[i+1]-s.q[i])/float64(s.n[i+1]-s.n[i])
	}
	return s.q[i] - (s.q[i]-s.q[i-1])/float64(s.n[i]-s.n[i-1])
}

func (s *stepQuantile) quantile() float64 {
	if s.count == 0 {
		return 0
	}
	if s.count < 5 {
		sorted := make([]float64, s.count)
		copy(sorted, s.initBuffer[:s.count])
		for i := 1; i < s.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(s.count-1) * s.p)
		if index >= s.count {
			index = s.count - 1
		}
		return sorted[index]
	}
	return s.q[2]
}

// stepMetrics tracks the distribution of Worker.Step latencies (in seconds)
// using two stepQuantile estimators (p50, p99), plus running sum/count/max —
// the same fields eventloop's pSquareMultiQuantile tracks for its own tick
// latency, applied here to the worker's step loop instead.
type stepMetrics struct {
	p50, p99 *stepQuantile
	count    int
	sum      float64
	max      float64
}

func newStepMetrics() *stepMetrics {
	return &stepMetrics{
		p50: newStepQuantile(0.5),
		p99: newStepQuantile(0.99),
		max: -math.MaxFloat64,
	}
}

func (m *stepMetrics) observe(seconds float64) {
	m.count++
	m.sum += seconds
	if seconds > m.max {
		m.max = seconds
	}
	m.p50.update(seconds)
	m.p99.update(seconds)
}

// StepMetrics is an immutable snapshot of Worker.Step's latency distribution,
// returned by Worker.Metrics. Durations are in seconds.
type StepMetrics struct {
	Count int
	Mean  float64
	P50   float64
	P99   float64
	Max   float64
}

func (m *stepMetrics) snapshot() StepMetrics {
	mean := 0.0
	max := 0.0
	if m.count > 0 {
		mean = m.sum / float64(m.count)
		max = m.max
	}
	return StepMetrics{
		Count: m.count,
		Mean:  mean,
		P50:   m.p50.quantile(),
		P99:   m.p99.quantile(),
		Max:   max,
	}
}
