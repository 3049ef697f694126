package actions

import (
	"fmt"

	"hoardfarm.ai/internal/geom"
)

type Kind string

const (
	KindMoveToHub     Kind = "MOVE_TO_HUB"
	KindEnterInstance Kind = "ENTER_INSTANCE"
	KindLeaveInstance Kind = "LEAVE_INSTANCE"
	KindUseItem       Kind = "USE_ITEM"
	KindPathfind      Kind = "PATHFIND"
)

// Item names a one-shot consumable.
type Item string

const (
	Intuition   Item = "INTUITION"
	Concealment Item = "CONCEALMENT"
	Safety      Item = "SAFETY"
	Magicite    Item = "MAGICITE"
)

func (i Item) Valid() bool {
	switch i {
	case Intuition, Concealment, Safety, Magicite:
		return true
	}
	return false
}

// Action is an opaque unit of work handed to the external task executor.
type Action struct {
	Kind Kind

	// PATHFIND
	Target    geom.Vec3
	Tolerance float64

	// USE_ITEM
	Item Item

	// ENTER_INSTANCE: which save file to load, 0 or 1.
	SaveSlot int
}

func MoveToHub() Action     { return Action{Kind: KindMoveToHub} }
func LeaveInstance() Action { return Action{Kind: KindLeaveInstance} }
func Use(item Item) Action  { return Action{Kind: KindUseItem, Item: item} }

func EnterInstance(slot int) Action {
	return Action{Kind: KindEnterInstance, SaveSlot: slot}
}

func PathTo(target geom.Vec3, tolerance float64) Action {
	return Action{Kind: KindPathfind, Target: target, Tolerance: tolerance}
}

func (a Action) String() string {
	switch a.Kind {
	case KindUseItem:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Item)
	case KindEnterInstance:
		return fmt.Sprintf("%s(slot %d)", a.Kind, a.SaveSlot)
	case KindPathfind:
		return fmt.Sprintf("%s(%.1f,%.1f,%.1f ±%.1f)", a.Kind, a.Target.X, a.Target.Y, a.Target.Z, a.Tolerance)
	default:
		return string(a.Kind)
	}
}
