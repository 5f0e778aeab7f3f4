package mask

import "math"

// Erode shrinks a row-major binary region with a 4-connected cross, repeated
// iterations times. Pixels outside the array count as part of the region, so
// the array border alone never erodes anything.
func Erode(region []bool, rows, cols, iterations int) []bool {
	cur := make([]bool, len(region))
	copy(cur, region)
	next := make([]bool, len(region))

	at := func(src []bool, i, j int) bool {
		if i < 0 || i >= rows || j < 0 || j >= cols {
			return true
		}
		return src[i*cols+j]
	}

	for it := 0; it < iterations; it++ {
		changed := false
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				k := i*cols + j
				v := cur[k] && at(cur, i-1, j) && at(cur, i+1, j) && at(cur, i, j-1) && at(cur, i, j+1)
				next[k] = v
				if v != cur[k] {
					changed = true
				}
			}
		}
		cur, next = next, cur
		if !changed {
			break
		}
	}
	return cur
}

// DistanceTransform returns, for every pixel of a row-major grid, the exact
// Euclidean distance to the nearest pixel where feature is true. Feature
// pixels get 0; every pixel gets +Inf when there is no feature at all.
//
// Uses the separable lower-envelope algorithm of Felzenszwalb and
// Huttenlocher: squared distances along columns, then along rows.
func DistanceTransform(feature []bool, rows, cols int) []float64 {
	// far exceeds any squared distance on the grid
	far := float64(rows*rows+cols*cols) + 1

	sq := make([]float64, rows*cols)
	for k, f := range feature {
		if !f {
			sq[k] = far
		}
	}

	n := rows
	if cols > n {
		n = cols
	}
	line := make([]float64, n)
	out := make([]float64, n)
	env := newEnvelope(n)

	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			line[i] = sq[i*cols+j]
		}
		env.transform(line[:rows], out[:rows])
		for i := 0; i < rows; i++ {
			sq[i*cols+j] = out[i]
		}
	}
	for i := 0; i < rows; i++ {
		env.transform(sq[i*cols:(i+1)*cols], out[:cols])
		copy(sq[i*cols:(i+1)*cols], out[:cols])
	}

	dist := make([]float64, rows*cols)
	for k, d := range sq {
		if d >= far {
			dist[k] = math.Inf(1)
		} else {
			dist[k] = math.Sqrt(d)
		}
	}
	return dist
}

// envelope holds the scratch space for the 1D squared distance transform.
type envelope struct {
	v []int
	z []float64
}

func newEnvelope(n int) *envelope {
	return &envelope{
		v: make([]int, n),
		z: make([]float64, n+1),
	}
}

// transform computes d[q] = min_p (q-p)² + f[p] over the lower envelope of parabolas.
func (e *envelope) transform(f, d []float64) {
	n := len(f)
	if n == 0 {
		return
	}
	intersect := func(q, p int) float64 {
		fq, fp := f[q]+float64(q*q), f[p]+float64(p*p)
		return (fq - fp) / float64(2*q-2*p)
	}

	k := 0
	e.v[0] = 0
	e.z[0] = math.Inf(-1)
	e.z[1] = math.Inf(1)
	for q := 1; q < n; q++ {
		s := intersect(q, e.v[k])
		for s <= e.z[k] {
			k--
			s = intersect(q, e.v[k])
		}
		k++
		e.v[k] = q
		e.z[k] = s
		e.z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for e.z[k+1] < float64(q) {
			k++
		}
		p := e.v[k]
		d[q] = float64((q-p)*(q-p)) + f[p]
	}
}
