package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	a := V(1, 2, 3)
	b := V(4, 6, 3)
	assert.InDelta(t, 5.0, a.Distance(b), 1e-9)
	assert.InDelta(t, 25.0, a.DistanceSq(b), 1e-9)
	assert.Equal(t, 0.0, a.Distance(a))
}

func TestZeroAndArray(t *testing.T) {
	assert.True(t, Vec3{}.IsZero())
	assert.False(t, V(0, 0, 0.1).IsZero())

	v := FromArray([3]float64{1.5, -2, 7})
	assert.Equal(t, V(1.5, -2, 7), v)
	assert.Equal(t, [3]float64{1.5, -2, 7}, v.Array())
}
