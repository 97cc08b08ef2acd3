package media

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMirrorIsSelfInverse(t *testing.T) {
	m := Mirror(1080)
	assert.True(t, m.Mul(m).Equal(Identity))
}

func TestMirrorFlipsXAndShiftsBack(t *testing.T) {
	m := Mirror(1080)
	assert.True(t, m.IsMirrored())

	// A point at the left edge maps to the right edge.
	x := m.A*0 + m.C*0 + m.Tx
	assert.InDelta(t, 1080.0, x, 1e-9)

	// A point at the right edge maps to the left edge.
	x = m.A*1080 + m.C*0 + m.Tx
	assert.InDelta(t, 0.0, x, 1e-9)
}

func TestRotate90(t *testing.T) {
	r := Rotate90
	assert.InDelta(t, 0, r.A, 1e-9)
	assert.InDelta(t, 1, r.B, 1e-9)
	assert.InDelta(t, -1, r.C, 1e-9)
	assert.InDelta(t, 0, r.D, 1e-9)
}

func TestFourQuarterTurnsAreIdentity(t *testing.T) {
	r := Rotate90
	full := r.Mul(r).Mul(r).Mul(r)
	assert.True(t, full.Equal(Identity))
}

func TestRotationComposition(t *testing.T) {
	half := Rotation(math.Pi)
	composed := Rotate90.Mul(Rotate90)
	assert.True(t, composed.Equal(half))
}

func TestIdentityIsNotMirrored(t *testing.T) {
	assert.False(t, Identity.IsMirrored())
	assert.False(t, Rotate90.IsMirrored())
}
