package math

// BoundingBox is an axis-aligned box in local mesh space, GPU-uploaded
// verbatim into the resident bounding-box storage buffer that the frustum
// culling compute pass indexes by the mesh id of each instance's batch. Min/Max are padded to 16 bytes
// each (a trailing float32) to match std430 vec3 alignment.
type BoundingBox struct {
	Min    Vec3
	_pad0  float32
	Max    Vec3
	_pad1  float32
}

func NewBoundingBox(min, max Vec3) BoundingBox {
	return BoundingBox{Min: min, Max: max}
}

// Center returns the box midpoint.
func (b BoundingBox) Center() Vec3 {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Extents returns the half-size of the box along each axis.
func (b BoundingBox) Extents() Vec3 {
	return b.Max.Sub(b.Min).MulScalar(0.5)
}

// Plane is a frustum half-space in normal-distance form: a point p is
// inside the plane when normal.Dot(p) + distance >= 0.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// SignedDistanceToCenterExtents evaluates the plane against an
// axis-aligned box given as a center and per-axis extents, using the
// standard "positive vertex" trick: the box is entirely on the negative
// side of the plane only if even its most-favorable corner fails the test.
func (p Plane) SignedDistanceToCenterExtents(center, extents Vec3) float32 {
	r := extents.X*kabs32(p.Normal.X) + extents.Y*kabs32(p.Normal.Y) + extents.Z*kabs32(p.Normal.Z)
	d := p.Normal.Dot(center) + p.Distance
	return d + r
}

func kabs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Frustum holds the six view-frustum half-spaces plus the eight world-space
// corners of the frustum (each corner a vec4). Intersects uses both; the
// compute culling pass's frustum uniform receives only the six planes
// (PlaneVectors), not the corners.
type Frustum struct {
	Left, Right   Plane
	Bottom, Top   Plane
	Near, Far     Plane
	Corners       [8]Vec4
}

// NewFrustumFromViewProjection derives the six frustum planes from a
// combined view-projection matrix using the Gribb/Hartmann plane-extraction
// method, then unprojects the eight NDC cube corners through the inverse
// matrix to recover world-space frustum corners.
func NewFrustumFromViewProjection(viewProjection Mat4) Frustum {
	m := viewProjection.Data

	// Data is stored row-major for the row-vector convention v' = v*M used
	// throughout this package, so the terms the Gribb/Hartmann extraction
	// needs (the ones multiplied against x'/y'/z'/w' of the transformed
	// vector) live down each column, not each row.
	col := func(i int) Vec4 {
		return Vec4{X: m[i], Y: m[i+4], Z: m[i+8], W: m[i+12]}
	}
	r0, r1, r2, r3 := col(0), col(1), col(2), col(3)

	planeFrom := func(a, b Vec4) Plane {
		n := Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
		length := n.Length()
		if length == 0 {
			length = 1
		}
		return Plane{
			Normal:   n.MulScalar(1 / length),
			Distance: (a.W + b.W) / length,
		}
	}
	planeFromSub := func(a, b Vec4) Plane {
		return planeFrom(a, negateVec4(b))
	}

	left := planeFrom(r3, r0)
	right := planeFromSub(r3, r0)
	bottom := planeFrom(r3, r1)
	top := planeFromSub(r3, r1)
	near := planeFrom(r3, r2)
	far := planeFromSub(r3, r2)

	inverse := viewProjection.Inverse()

	var corners [8]Vec4
	for i := 0; i < 8; i++ {
		x := float32(-1.0)
		if i&1 != 0 {
			x = 1.0
		}
		y := float32(-1.0)
		if i&2 != 0 {
			y = 1.0
		}
		z := float32(-1.0)
		if i&4 != 0 {
			z = 1.0
		}
		world := transformClipCorner(inverse, x, y, z)
		corners[i] = Vec4{X: world.X, Y: world.Y, Z: world.Z, W: 0}
	}

	return Frustum{
		Left: left, Right: right,
		Bottom: bottom, Top: top,
		Near: near, Far: far,
		Corners: corners,
	}
}

// transformClipCorner unprojects a clip-space corner (x,y,z,1) through m,
// performing the perspective divide Vec3.Transform skips (it assumes w=1
// stays 1, true only for affine matrices, not an inverse projection).
func transformClipCorner(m Mat4, x, y, z float32) Vec3 {
	d := m.Data
	wx := x*d[0] + y*d[4] + z*d[8] + d[12]
	wy := x*d[1] + y*d[5] + z*d[9] + d[13]
	wz := x*d[2] + y*d[6] + z*d[10] + d[14]
	ww := x*d[3] + y*d[7] + z*d[11] + d[15]
	if ww == 0 {
		ww = 1
	}
	return Vec3{X: wx / ww, Y: wy / ww, Z: wz / ww}
}

func negateVec4(v Vec4) Vec4 {
	return Vec4{X: -v.X, Y: -v.Y, Z: -v.Z, W: -v.W}
}

// Planes returns the six half-spaces in a fixed order convenient for
// iteration (culling loops, tests).
func (f Frustum) Planes() [6]Plane {
	return [6]Plane{f.Left, f.Right, f.Bottom, f.Top, f.Near, f.Far}
}

// Intersects reports whether the given world-space axis-aligned box is at
// least partially inside the frustum. A box is culled when it lies
// entirely on the outside of some plane (the standard conservative test),
// or, as a separating-axis refinement, when the frustum's own eight
// corners all lie outside the box on some axis — this catches boxes that
// pass every plane test individually but still don't actually overlap a
// narrow frustum (e.g. a box diagonally past a frustum's side planes).
func (f Frustum) Intersects(box BoundingBox) bool {
	center := box.Center()
	extents := box.Extents()
	for _, p := range f.Planes() {
		if p.SignedDistanceToCenterExtents(center, extents) < 0 {
			return false
		}
	}

	allAbove := [3]bool{true, true, true}
	allBelow := [3]bool{true, true, true}
	for _, c := range f.Corners {
		if c.X >= box.Min.X {
			allBelow[0] = false
		}
		if c.X <= box.Max.X {
			allAbove[0] = false
		}
		if c.Y >= box.Min.Y {
			allBelow[1] = false
		}
		if c.Y <= box.Max.Y {
			allAbove[1] = false
		}
		if c.Z >= box.Min.Z {
			allBelow[2] = false
		}
		if c.Z <= box.Max.Z {
			allAbove[2] = false
		}
	}
	for axis := 0; axis < 3; axis++ {
		if allAbove[axis] || allBelow[axis] {
			return false
		}
	}
	return true
}

// PlaneVectors packs the six frustum planes as (normal.xyz, distance) vec4s
// in Planes' order, the layout the frustum culling compute uniform expects.
func (f Frustum) PlaneVectors() [6][4]float32 {
	var out [6][4]float32
	for i, p := range f.Planes() {
		out[i] = [4]float32{p.Normal.X, p.Normal.Y, p.Normal.Z, p.Distance}
	}
	return out
}

// TransformBoundingBox returns the world-space AABB enclosing a local box
// after m is applied to all eight of its corners — the conservative
// transform the culling pass uses to turn a mesh's local bounding box into
// a per-instance world-space one before testing it against the frustum.
func TransformBoundingBox(box BoundingBox, m Mat4) BoundingBox {
	var min, max Vec3
	for i := 0; i < 8; i++ {
		x := box.Min.X
		if i&1 != 0 {
			x = box.Max.X
		}
		y := box.Min.Y
		if i&2 != 0 {
			y = box.Max.Y
		}
		z := box.Min.Z
		if i&4 != 0 {
			z = box.Max.Z
		}
		corner := Vec3{X: x, Y: y, Z: z}.Transform(m)
		if i == 0 {
			min, max = corner, corner
			continue
		}
		min = Vec3{X: kmin32(min.X, corner.X), Y: kmin32(min.Y, corner.Y), Z: kmin32(min.Z, corner.Z)}
		max = Vec3{X: kmax32(max.X, corner.X), Y: kmax32(max.Y, corner.Y), Z: kmax32(max.Z, corner.Z)}
	}
	return NewBoundingBox(min, max)
}

func kmin32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func kmax32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
