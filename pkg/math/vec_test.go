package math

import "testing"

func TestVec3Cross(t *testing.T) {
	got := Vec3{X: 1}.Cross(Vec3{Y: 1})
	if got != (Vec3{Z: 1}) {
		t.Errorf("X x Y = %+v, want Z", got)
	}
	if got := (Vec3{1, 2, 3}).Cross(Vec3{1, 2, 3}); got != (Vec3{}) {
		t.Errorf("parallel vectors should give zero, got %+v", got)
	}
}

func TestVec3Length(t *testing.T) {
	if got := (Vec3{3, 4, 12}).Length(); got != 13 {
		t.Errorf("Length = %f, want 13", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{0, 3, 4}.Normalize()
	if !near(n.Y, 0.6) || !near(n.Z, 0.8) || !near(n.Length(), 1) {
		t.Errorf("got %+v", n)
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero vector should stay zero, got %+v", got)
	}
}

func TestVec3SubMinMax(t *testing.T) {
	a, b := Vec3{1, 5, -2}, Vec3{3, 2, -4}
	tests := []struct {
		name string
		got  Vec3
		want Vec3
	}{
		{"sub", a.Sub(b), Vec3{-2, 3, 2}},
		{"min", a.Min(b), Vec3{1, 2, -4}},
		{"max", a.Max(b), Vec3{3, 5, -2}},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, tt.got, tt.want)
		}
	}
}
