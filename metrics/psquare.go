package metrics

import "math"

// quantile implements the P-Square algorithm for streaming quantile
// estimation in O(1) per observation and O(1) retrieval, adapted directly
// from the teacher's eventloop package's pSquareQuantile.
//
// Reference: Jain, R. and Chlamtac, I. (1985). "The P^2 Algorithm for
// Dynamic Calculation of Quantiles and Histograms Without Storing
// Observations". Communications of the ACM, 28(10), pp. 1076-1085.
//
// Not thread-safe; Collector guards access with its own mutex.
type quantile struct {
	p           float64
	q           [5]float64
	n           [5]int
	np          [5]float64
	dn          [5]float64
	initialized bool
	count       int
	initBuffer  [5]float64
}

func newQuantile(p float64) *quantile {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &quantile{p: p, dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1}}
}

func (qt *quantile) Update(x float64) {
	qt.count++
	if qt.count <= 5 {
		qt.initBuffer[qt.count-1] = x
		if qt.count == 5 {
			qt.initialize()
		}
		return
	}

	var k int
	if x < qt.q[0] {
		qt.q[0] = x
		k = 0
	} else if x >= qt.q[4] {
		qt.q[4] = x
		k = 3
	} else {
		for k = 0; k < 4; k++ {
			if qt.q[k] <= x && x < qt.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		qt.n[i]++
	}
	for i := 0; i < 5; i++ {
		qt.np[i] += qt.dn[i]
	}
	for i := 1; i < 4; i++ {
		d := qt.np[i] - float64(qt.n[i])
		if (d >= 1 && qt.n[i+1]-qt.n[i] > 1) || (d <= -1 && qt.n[i-1]-qt.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qPrime := qt.parabolic(i, sign)
			if qt.q[i-1] < qPrime && qPrime < qt.q[i+1] {
				qt.q[i] = qPrime
			} else {
				qt.q[i] = qt.linear(i, sign)
			}
			qt.n[i] += sign
		}
	}
}

func (qt *quantile) initialize() {
	for i := 1; i < 5; i++ {
		key := qt.initBuffer[i]
		j := i - 1
		for j >= 0 && qt.initBuffer[j] > key {
			qt.initBuffer[j+1] = qt.initBuffer[j]
			j--
		}
		qt.initBuffer[j+1] = key
	}
	for i := 0; i < 5; i++ {
		qt.q[i] = qt.initBuffer[i]
		qt.n[i] = i
	}
	qt.np = [5]float64{0, 2 * qt.p, 4 * qt.p, 2 + 2*qt.p, 4}
	qt.initialized = true
}

func (qt *quantile) parabolic(i, d int) float64 {
	df := float64(d)
	ni, niPrev, niNext := float64(qt.n[i]), float64(qt.n[i-1]), float64(qt.n[i+1])
	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (qt.q[i+1] - qt.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (qt.q[i] - qt.q[i-1]) / (ni - niPrev)
	return qt.q[i] + term1*(term2+term3)
}

func (qt *quantile) linear(i, d int) float64 {
	if d == 1 {
		return qt.q[i] + (qt.q[i+1]-qt.q[i])/float64(qt.n[i+1]-qt.n[i])
	}
	return qt.q[i] - (qt.q[i]-qt.q[i-1])/float64(qt.n[i]-qt.n[i-1])
}

func (qt *quantile) Value() float64 {
	if qt.count == 0 {
		return 0
	}
	if qt.count < 5 {
		sorted := qt.initBuffer
		n := qt.count
		for i := 1; i < n; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(n-1) * qt.p)
		if index >= n {
			index = n - 1
		}
		return sorted[index]
	}
	return qt.q[2]
}

// multiQuantile tracks several target quantiles over one observation
// stream plus sum/count/max, adapted from the teacher's
// pSquareMultiQuantile.
type multiQuantile struct {
	estimators []*quantile
	sum        float64
	count      int
	max        float64
}

func newMultiQuantile(percentiles ...float64) *multiQuantile {
	m := &multiQuantile{estimators: make([]*quantile, len(percentiles)), max: -math.MaxFloat64}
	for i, p := range percentiles {
		m.estimators[i] = newQuantile(p)
	}
	return m
}

func (m *multiQuantile) Update(x float64) {
	m.count++
	m.sum += x
	if x > m.max {
		m.max = x
	}
	for _, est := range m.estimators {
		est.Update(x)
	}
}

func (m *multiQuantile) Value(i int) float64 {
	if i < 0 || i >= len(m.estimators) {
		return 0
	}
	return m.estimators[i].Value()
}

func (m *multiQuantile) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

func (m *multiQuantile) Max() float64 {
	if m.count == 0 {
		return 0
	}
	return m.max
}
