package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityAffine(t *testing.T) {
	m := IdentityAffine()
	x, y := m.Apply(12.5, -7.25)
	assert.InDelta(t, 12.5, x, 1e-12)
	assert.InDelta(t, -7.25, y, 1e-12)
}

func TestNewRotation_QuarterTurn(t *testing.T) {
	m := NewRotation(math.Pi / 2)
	x, y := m.Apply(1, 0)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 1, y, 1e-12)
}

func TestNewRotationAbout_FixesCenter(t *testing.T) {
	m := NewRotationAbout(1.234, 50, 80)
	x, y := m.Apply(50, 80)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 80, y, 1e-9)
}

func TestNewScaleAbout_FixesCenter(t *testing.T) {
	m := NewScaleAbout(2.5, 10, 20)
	x, y := m.Apply(10, 20)
	assert.InDelta(t, 10, x, 1e-12)
	assert.InDelta(t, 20, y, 1e-12)

	// A point one unit right of the center moves 2.5 units right.
	x, y = m.Apply(11, 20)
	assert.InDelta(t, 12.5, x, 1e-12)
	assert.InDelta(t, 20, y, 1e-12)
}

func TestCompose_AppliesLeftThenRight(t *testing.T) {
	scale := NewScale(2)
	shift := NewTranslation(10, 0)

	// scale then shift: (1,0) -> (2,0) -> (12,0)
	m := scale.Compose(shift)
	x, y := m.Apply(1, 0)
	assert.InDelta(t, 12, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)

	// shift then scale: (1,0) -> (11,0) -> (22,0)
	m = shift.Compose(scale)
	x, y = m.Apply(1, 0)
	assert.InDelta(t, 22, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)
}

func TestCompose_RotationRoundTrip(t *testing.T) {
	base := AffineMatrix{ScaleX: 1.3, SkewX: 0.2, TranslateX: 40, SkewY: -0.1, ScaleY: 0.9, TranslateY: -12}
	theta := 0.37

	round := base.Compose(NewRotation(theta)).Compose(NewRotation(-theta))

	assert.InDelta(t, base.ScaleX, round.ScaleX, 1e-9)
	assert.InDelta(t, base.SkewX, round.SkewX, 1e-9)
	assert.InDelta(t, base.TranslateX, round.TranslateX, 1e-9)
	assert.InDelta(t, base.SkewY, round.SkewY, 1e-9)
	assert.InDelta(t, base.ScaleY, round.ScaleY, 1e-9)
	assert.InDelta(t, base.TranslateY, round.TranslateY, 1e-9)
}

func TestScaleLinear_LeavesTranslation(t *testing.T) {
	m := AffineMatrix{ScaleX: 1, SkewX: 0.5, TranslateX: 100, SkewY: -0.5, ScaleY: 1, TranslateY: 200}
	scaled := m.ScaleLinear(2)
	assert.InDelta(t, 2.0, scaled.ScaleX, 1e-12)
	assert.InDelta(t, 1.0, scaled.SkewX, 1e-12)
	assert.InDelta(t, 100.0, scaled.TranslateX, 1e-12)
	assert.InDelta(t, 200.0, scaled.TranslateY, 1e-12)
}

func TestInvert_RoundTrip(t *testing.T) {
	m := NewRotationAbout(0.8, 30, 40).Compose(NewScaleAbout(1.7, 10, 10)).Translate(5, -3)
	inv, ok := m.Invert()
	require.True(t, ok)

	x, y := m.Apply(123, 456)
	bx, by := inv.Apply(x, y)
	assert.InDelta(t, 123, bx, 1e-9)
	assert.InDelta(t, 456, by, 1e-9)
}

func TestInvert_Singular(t *testing.T) {
	_, ok := AffineMatrix{}.Invert()
	assert.False(t, ok)
}

func TestApproximateScale(t *testing.T) {
	m := NewRotation(0.4).Compose(NewScale(1.5))
	assert.InDelta(t, 1.5, m.ApproximateScale(), 1e-9)
}

func TestRotationDegrees(t *testing.T) {
	m := NewRotation(math.Pi / 6)
	assert.InDelta(t, 30, m.RotationDegrees(), 1e-9)
}
