package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hoardfarm.ai/internal/geom"
)

func TestActionString(t *testing.T) {
	assert.Equal(t, "LEAVE_INSTANCE", LeaveInstance().String())
	assert.Equal(t, "USE_ITEM(INTUITION)", Use(Intuition).String())
	assert.Equal(t, "ENTER_INSTANCE(slot 1)", EnterInstance(1).String())
	assert.Equal(t, "PATHFIND(1.0,2.0,3.0 ±1.5)", PathTo(geom.V(1, 2, 3), 1.5).String())
}

func TestItemValid(t *testing.T) {
	for _, it := range []Item{Intuition, Concealment, Safety, Magicite} {
		assert.True(t, it.Valid(), it)
	}
	assert.False(t, Item("POTION").Valid())
}
