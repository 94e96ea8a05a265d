package math

import "fmt"

// Vec2i is an integer 2D vector, used for region offsets and pixel positions.
type Vec2i struct {
	X, Y int
}

// Add returns v + other.
func (v Vec2i) Add(other Vec2i) Vec2i {
	return Vec2i{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2i) Sub(other Vec2i) Vec2i {
	return Vec2i{v.X - other.X, v.Y - other.Y}
}

// Vec2 converts to a float vector.
func (v Vec2i) Vec2() Vec2 {
	return Vec2{float32(v.X), float32(v.Y)}
}

// InBounds reports whether 0 <= v < max on both axes.
func (v Vec2i) InBounds(max Vec2i) bool {
	return v.X >= 0 && v.Y >= 0 && v.X < max.X && v.Y < max.Y
}

// Less orders vectors by Y, then X.
func (v Vec2i) Less(other Vec2i) bool {
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	return v.X < other.X
}

// String returns the vector as "(x, y)".
func (v Vec2i) String() string {
	return fmt.Sprintf("(%d, %d)", v.X, v.Y)
}
