package media

import "math"

// Transform is a 2D affine transform applied to a video track:
//
//	x' = A*x + C*y + Tx
//	y' = B*x + D*y + Ty
type Transform struct {
	A, B, C, D, Tx, Ty float64
}

// Identity is the no-op transform.
var Identity = Transform{A: 1, D: 1}

// Rotate90 is the portrait-correcting quarter turn applied to
// concatenated clips.
var Rotate90 = Rotation(math.Pi / 2)

// Rotation returns a rotation by the given angle in radians.
func Rotation(angle float64) Transform {
	sin, cos := math.Sincos(angle)
	return Transform{A: cos, B: sin, C: -sin, D: cos}
}

// Mirror returns the horizontal flip for a clip of the given natural width:
// X is negated, then the frame is shifted back into place by the width.
// Applying it twice restores the original appearance.
func Mirror(width float64) Transform {
	return Transform{A: -1, D: 1, Tx: width}
}

// Mul returns the composition t∘other: other is applied first, then t.
func (t Transform) Mul(other Transform) Transform {
	return Transform{
		A:  t.A*other.A + t.C*other.B,
		B:  t.B*other.A + t.D*other.B,
		C:  t.A*other.C + t.C*other.D,
		D:  t.B*other.C + t.D*other.D,
		Tx: t.A*other.Tx + t.C*other.Ty + t.Tx,
		Ty: t.B*other.Tx + t.D*other.Ty + t.Ty,
	}
}

const transformEpsilon = 1e-9

// Equal reports element-wise equality within a small epsilon.
func (t Transform) Equal(other Transform) bool {
	return math.Abs(t.A-other.A) < transformEpsilon &&
		math.Abs(t.B-other.B) < transformEpsilon &&
		math.Abs(t.C-other.C) < transformEpsilon &&
		math.Abs(t.D-other.D) < transformEpsilon &&
		math.Abs(t.Tx-other.Tx) < transformEpsilon &&
		math.Abs(t.Ty-other.Ty) < transformEpsilon
}

// IsMirrored reports whether the transform flips the X axis.
func (t Transform) IsMirrored() bool {
	return t.A < 0
}
