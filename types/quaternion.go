package types

import "math"

// Quaternion implementation adapted from https://github.com/go-gl/mathgl/blob/master/mgl32/quat.go
type Quat struct {
	V Vec3
	W float32
}

// Create identity quaternion.
func QuatIdent() Quat {
	return Quat{W: 1.0}
}

// Create a quaternion from an axis vector and an angle in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	sin := float32(math.Sin(float64(angle * 0.5)))
	cos := float32(math.Cos(float64(angle * 0.5)))
	return Quat{
		V: axis.Normalize().Mul(sin),
		W: cos,
	}
}

// Create a quaternion from yaw (X), pitch (Y) and roll (Z) angles in degrees.
// Rotations are applied in yaw, pitch, roll order.
func QuatFromEuler(yaw, pitch, roll float32) Quat {
	toRad := float32(math.Pi / 180.0)
	yawQuat := QuatFromAxisAngle(Vec3{1, 0, 0}, yaw*toRad)
	pitchQuat := QuatFromAxisAngle(Vec3{0, 1, 0}, pitch*toRad)
	rollQuat := QuatFromAxisAngle(Vec3{0, 0, 1}, roll*toRad)
	return rollQuat.Mul(pitchQuat.Mul(yawQuat)).Normalize()
}

// Rotates a vector by the rotation this quaternion represents.
func (q1 Quat) Rotate(v Vec3) Vec3 {
	cross := q1.V.Cross(v)
	// v + 2q_w * (q_v x v) + 2q_v x (q_v x v)
	return v.Add(cross.Mul(2 * q1.W)).Add(q1.V.Mul(2).Cross(cross))
}

// Multiplies two quaternions. Multiplication is not commutative.
func (q1 Quat) Mul(q2 Quat) Quat {
	return Quat{
		q1.V.Cross(q2.V).Add(q2.V.Mul(q1.W)).Add(q1.V.Mul(q2.W)),
		q1.W*q2.W - q1.V.Dot(q2.V),
	}
}

// Returns the Length of the quaternion.
func (q1 Quat) Len() float32 {
	return float32(math.Sqrt(float64(q1.W*q1.W + q1.V.Dot(q1.V))))
}

// Normalizes the quaternion, returning its versor (unit quaternion).
func (q1 Quat) Normalize() Quat {
	length := q1.Len()
	if length == 0 {
		return QuatIdent()
	}
	if d := 1 - length; d < floatCmpEpsilon && d > -floatCmpEpsilon {
		return q1
	}

	return Quat{q1.V.Mul(1 / length), q1.W / length}
}

// The inverse of a unit quaternion is its conjugate.
func (q1 Quat) Conjugate() Quat {
	return Quat{q1.V.Mul(-1), q1.W}
}
