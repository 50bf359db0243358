package math

import "testing"

func testViewProjection() Mat4 {
	view := NewMat4LookAt(Vec3{X: 0, Y: 0, Z: 0}, Vec3{X: 0, Y: 0, Z: 1}, Vec3{X: 0, Y: 1, Z: 0})
	projection := NewMat4Perspective(DegToRad(90), 1.0, 0.1, 100.0)
	return view.Mul(projection)
}

func TestFrustumIntersectsBoxAhead(t *testing.T) {
	frustum := NewFrustumFromViewProjection(testViewProjection())
	box := NewBoundingBox(Vec3{X: -0.5, Y: -0.5, Z: 4.5}, Vec3{X: 0.5, Y: 0.5, Z: 5.5})
	if !frustum.Intersects(box) {
		t.Fatal("box directly ahead of the camera should intersect the frustum")
	}
}

func TestFrustumRejectsBoxBehind(t *testing.T) {
	frustum := NewFrustumFromViewProjection(testViewProjection())
	box := NewBoundingBox(Vec3{X: -0.5, Y: -0.5, Z: -5.5}, Vec3{X: 0.5, Y: 0.5, Z: -4.5})
	if frustum.Intersects(box) {
		t.Fatal("box entirely behind the camera should not intersect the frustum")
	}
}

func TestFrustumRejectsBoxFarOffToTheSide(t *testing.T) {
	frustum := NewFrustumFromViewProjection(testViewProjection())
	box := NewBoundingBox(Vec3{X: 500, Y: -0.5, Z: 4.5}, Vec3{X: 501, Y: 0.5, Z: 5.5})
	if frustum.Intersects(box) {
		t.Fatal("box far outside the left/right planes should not intersect the frustum")
	}
}

func TestTransformBoundingBoxTranslation(t *testing.T) {
	box := NewBoundingBox(Vec3{X: -1, Y: -1, Z: -1}, Vec3{X: 1, Y: 1, Z: 1})
	m := NewMat4Translation(Vec3{X: 10, Y: 0, Z: 0})
	moved := TransformBoundingBox(box, m)
	if moved.Min != (Vec3{X: 9, Y: -1, Z: -1}) || moved.Max != (Vec3{X: 11, Y: 1, Z: 1}) {
		t.Fatalf("TransformBoundingBox translation = %+v, want min(9,-1,-1) max(11,1,1)", moved)
	}
}

func TestBoundingBoxCenterAndExtents(t *testing.T) {
	box := NewBoundingBox(Vec3{X: -1, Y: -2, Z: -3}, Vec3{X: 1, Y: 2, Z: 3})
	center := box.Center()
	if center != (Vec3{X: 0, Y: 0, Z: 0}) {
		t.Fatalf("center = %+v, want zero", center)
	}
	extents := box.Extents()
	if extents != (Vec3{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("extents = %+v, want (1,2,3)", extents)
	}
}
