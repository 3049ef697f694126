package geom

import "math"

// Vec3 is a world-space position. The zero value doubles as "unknown".
type Vec3 struct {
	X, Y, Z float64
}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// FromArray converts the wire form used by the host protocol.
func FromArray(a [3]float64) Vec3 { return Vec3{a[0], a[1], a[2]} }

func (v Vec3) Array() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func (v Vec3) IsZero() bool { return v == Vec3{} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) MagSq() float64 { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }

func (v Vec3) Distance(o Vec3) float64 { return math.Sqrt(v.Sub(o).MagSq()) }

// DistanceSq avoids the sqrt when only ordering matters.
func (v Vec3) DistanceSq(o Vec3) float64 { return v.Sub(o).MagSq() }
