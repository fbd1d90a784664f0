package patch

// weights holds the basis values of one evaluation, 4 per direction for
// B-splines (only the first 2 are used for bilinear patches).
type weights struct {
	bu, du, duu [4]float32
	bv, dv, dvv [4]float32
}

type result struct {
	p, du, dv, duu, dvv, duv float32
}

// bsplineBasis returns the uniform cubic B-spline basis and its first two
// derivatives at t.
func bsplineBasis(t float32) (b, d, dd [4]float32) {
	s := 1 - t
	t2 := t * t
	t3 := t2 * t

	b[0] = s * s * s / 6
	b[1] = (3*t3 - 6*t2 + 4) / 6
	b[2] = (-3*t3 + 3*t2 + 3*t + 1) / 6
	b[3] = t3 / 6

	d[0] = -s * s / 2
	d[1] = 1.5*t2 - 2*t
	d[2] = -1.5*t2 + t + 0.5
	d[3] = t2 / 2

	dd[0] = s
	dd[1] = 3*t - 2
	dd[2] = -3*t + 1
	dd[3] = t
	return b, d, dd
}

func bsplineWeights(u, v float32) weights {
	var w weights
	w.bu, w.du, w.duu = bsplineBasis(u)
	w.bv, w.dv, w.dvv = bsplineBasis(v)
	return w
}

func bilinearWeights(u, v float32) weights {
	var w weights
	w.bu = [4]float32{1 - u, u}
	w.du = [4]float32{-1, 1}
	w.bv = [4]float32{1 - v, v}
	w.dv = [4]float32{-1, 1}
	return w
}

// apply16 evaluates component k of a 4x4 grid stored row-major, rows along
// v and columns along u.
func (w *weights) apply16(cp []float32, k, nf int) result {
	var r result
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			x := cp[(row*4+col)*nf+k]
			r.p += w.bv[row] * w.bu[col] * x
			r.du += w.bv[row] * w.du[col] * x
			r.dv += w.dv[row] * w.bu[col] * x
			r.duu += w.bv[row] * w.duu[col] * x
			r.dvv += w.dvv[row] * w.bu[col] * x
			r.duv += w.dv[row] * w.du[col] * x
		}
	}
	return r
}

// apply4 evaluates component k of a bilinear patch with corners in loop
// order (0,0), (1,0), (1,1), (0,1).
func (w *weights) apply4(cp []float32, k, nf int) result {
	p0 := cp[k]
	p1 := cp[nf+k]
	p2 := cp[2*nf+k]
	p3 := cp[3*nf+k]

	u, v := w.bu[1], w.bv[1]
	return result{
		p:   w.bv[0]*(w.bu[0]*p0+u*p1) + v*(u*p2+w.bu[0]*p3),
		du:  w.bv[0]*(p1-p0) + v*(p2-p3),
		dv:  w.bu[0]*(p3-p0) + u*(p2-p1),
		duv: p0 - p1 + p2 - p3,
	}
}
