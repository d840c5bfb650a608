package formats

import (
	"errors"
	"testing"
)

type rswFixture struct {
	major, minor uint8
	build        uint32
	gnd          string
	objects      []RSWObject
	quads        int
}

func (w rswFixture) bytes() []byte {
	v := RSWVersion{Major: w.major, Minor: w.minor, BuildNumber: w.build}
	var f fixture
	f.WriteString("GRSW")
	f.put(w.major, w.minor)
	switch {
	case v.AtLeast(2, 5):
		f.put(w.build, uint8(0))
	case v.AtLeast(2, 2):
		f.put(uint8(w.build))
	}

	f.fixed("", 40).fixed(w.gnd, 40)
	if v.AtLeast(1, 4) {
		f.fixed("test.gat", 40)
	}
	f.fixed("", 40)

	if v.AtLeast(1, 3) && !v.AtLeast(2, 6) {
		f.put(float32(-1.5), int32(2), float32(1), float32(2), float32(50), int32(3))
	}
	if v.AtLeast(1, 5) {
		f.put(int32(45), int32(45), [3]float32{1, 1, 1}, [3]float32{0.3, 0.3, 0.3})
		if v.AtLeast(1, 7) {
			f.put(float32(0.5))
		}
	}
	if v.AtLeast(1, 6) {
		f.put(int32(-500), int32(500), int32(-500), int32(500))
	}

	f.put(int32(len(w.objects)))
	for _, obj := range w.objects {
		f.put(int32(obj.Type))
		switch {
		case obj.Model != nil:
			m := obj.Model
			if v.AtLeast(1, 3) {
				f.fixed(m.Name, 40).put(m.AnimType, m.AnimSpeed, m.BlockType)
			}
			if v.AtLeast(2, 6) && w.build >= 162 {
				f.put(uint8(1))
			}
			f.fixed(m.ModelName, 80).fixed(m.NodeName, 80)
			f.put(m.Position, m.Rotation, m.Scale)
		case obj.Light != nil:
			l := obj.Light
			f.fixed(l.Name, 80).put(l.Position, l.Color, l.Range)
		case obj.Sound != nil:
			s := obj.Sound
			f.fixed(s.Name, 80).fixed(s.File, 80)
			f.put(s.Position, s.Volume, s.Width, s.Height, s.Range)
			if v.AtLeast(2, 0) {
				f.put(s.Cycle)
			}
		case obj.Effect != nil:
			e := obj.Effect
			f.fixed(e.Name, 80).put(e.Position, e.EffectID, e.Delay, e.Param)
		}
	}

	for i := 0; i < w.quads; i++ {
		f.put([4]float32{float32(i), 0, 0, 0})
	}
	return f.Bytes()
}

func worldObjects() []RSWObject {
	return []RSWObject{
		{Type: RSWObjectModel, Model: &RSWModel{
			Name:      "house01",
			AnimSpeed: 1,
			ModelName: "내부소품\\집01.rsm",
			Position:  [3]float32{10, -2, 30},
			Rotation:  [3]float32{0, 90, 0},
			Scale:     [3]float32{1, 1, 1},
		}},
		{Type: RSWObjectLight, Light: &RSWLightSource{Name: "lamp", Color: [3]float32{1, 0.5, 0}, Range: 40}},
		{Type: RSWObjectSound, Sound: &RSWSoundSource{Name: "river", File: "river.wav", Volume: 0.8, Cycle: 4}},
		{Type: RSWObjectEffect, Effect: &RSWEffectSource{Name: "smoke", EffectID: 47, Param: [4]float32{1, 2, 3, 4}}},
		{Type: RSWObjectModel, Model: &RSWModel{ModelName: "tree.rsm", Scale: [3]float32{2, 2, 2}}},
	}
}

func worldFixture(major, minor uint8, build uint32) rswFixture {
	return rswFixture{major: major, minor: minor, build: build, gnd: "test.gnd", objects: worldObjects()}
}

func TestParseRSW_MagicValidation(t *testing.T) {
	valid := worldFixture(2, 1, 0).bytes()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid magic", valid, nil},
		{"invalid magic", append([]byte("XXXX"), valid[4:]...), ErrInvalidRSWMagic},
		{"empty data", []byte{}, ErrTruncatedRSWData},
		{"truncated data", []byte{'G', 'R', 'S'}, ErrTruncatedRSWData},
		{"cut in objects", valid[:len(valid)-20], ErrTruncatedRSWData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSW(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRSW_VersionSupport(t *testing.T) {
	tests := []struct {
		name    string
		major   uint8
		minor   uint8
		build   uint32
		wantErr bool
	}{
		{"v1.2", 1, 2, 0, false},
		{"v1.3", 1, 3, 0, false},
		{"v1.4", 1, 4, 0, false},
		{"v1.5", 1, 5, 0, false},
		{"v1.6", 1, 6, 0, false},
		{"v1.9", 1, 9, 0, false},
		{"v2.1", 2, 1, 0, false},
		{"v2.2", 2, 2, 8, false},
		{"v2.4", 2, 4, 8, false},
		{"v2.5", 2, 5, 161, false},
		{"v2.6", 2, 6, 161, false},
		{"v2.6.162", 2, 6, 162, false},
		{"v1.1 unsupported", 1, 1, 0, true},
		{"v0.1 unsupported", 0, 1, 0, true},
		{"v2.7 unsupported", 2, 7, 0, true},
		{"v3.0 unsupported", 3, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsw, err := ParseRSW(worldFixture(tt.major, tt.minor, tt.build).bytes())
			if (err != nil) != tt.wantErr {
				t.Fatalf("version %d.%d: got error=%v, wantErr=%v", tt.major, tt.minor, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			models := rsw.Models()
			if len(rsw.Objects) != 5 || len(models) != 2 {
				t.Fatalf("got %d objects, %d models", len(rsw.Objects), len(models))
			}
			if models[1].ModelName != "tree.rsm" || models[1].Scale != [3]float32{2, 2, 2} {
				t.Errorf("last model = %+v, stream misaligned", models[1])
			}
			if rsw.GndFile != "test.gnd" {
				t.Errorf("GndFile = %q", rsw.GndFile)
			}
		})
	}
}

func TestRSWVersion_String(t *testing.T) {
	tests := []struct {
		version RSWVersion
		want    string
	}{
		{RSWVersion{2, 1, 0}, "2.1"},
		{RSWVersion{2, 6, 197}, "2.6.197"},
		{RSWVersion{1, 9, 0}, "1.9"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.version.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRSWVersion_AtLeast(t *testing.T) {
	tests := []struct {
		version RSWVersion
		major   uint8
		minor   uint8
		want    bool
	}{
		{RSWVersion{2, 1, 0}, 2, 1, true},
		{RSWVersion{2, 1, 0}, 1, 9, true},
		{RSWVersion{2, 1, 0}, 2, 2, false},
		{RSWVersion{2, 1, 0}, 3, 0, false},
		{RSWVersion{1, 9, 0}, 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			if got := tt.version.AtLeast(tt.major, tt.minor); got != tt.want {
				t.Errorf("AtLeast(%d, %d) = %v, want %v", tt.major, tt.minor, got, tt.want)
			}
		})
	}
}

func TestRSWObjectType_String(t *testing.T) {
	tests := []struct {
		objType RSWObjectType
		want    string
	}{
		{RSWObjectModel, "Model"},
		{RSWObjectLight, "Light"},
		{RSWObjectSound, "Sound"},
		{RSWObjectEffect, "Effect"},
		{RSWObjectType(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.objType.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRSW_V21_Structure(t *testing.T) {
	w := worldFixture(2, 1, 0)
	w.quads = 3
	rsw, err := ParseRSW(w.bytes())
	if err != nil {
		t.Fatalf("ParseRSW failed: %v", err)
	}

	if rsw.GatFile != "test.gat" {
		t.Errorf("GatFile = %q", rsw.GatFile)
	}
	if rsw.Water.Level != -1.5 || rsw.Water.AnimSpeed != 3 {
		t.Errorf("Water = %+v", rsw.Water)
	}
	if rsw.Light.Opacity != 0.5 || rsw.Ground.Right != 500 {
		t.Errorf("Light = %+v, Ground = %+v", rsw.Light, rsw.Ground)
	}
	if len(rsw.Quadtree) != 3 || rsw.Quadtree[2][0] != 2 {
		t.Errorf("Quadtree = %v", rsw.Quadtree)
	}

	house := rsw.Models()[0]
	if house.Name != "house01" || house.ModelName != "내부소품\\집01.rsm" {
		t.Errorf("model names = %q, %q", house.Name, house.ModelName)
	}
	if house.Position != [3]float32{10, -2, 30} || house.Rotation[1] != 90 {
		t.Errorf("model placement = %v %v", house.Position, house.Rotation)
	}

	sound := rsw.Objects[2].Sound
	if sound == nil || sound.File != "river.wav" || sound.Cycle != 4 {
		t.Errorf("sound = %+v", sound)
	}
	effect := rsw.Objects[3].Effect
	if effect == nil || effect.EffectID != 47 || effect.Param[3] != 4 {
		t.Errorf("effect = %+v", effect)
	}
}

func TestParseRSW_BuildNumber(t *testing.T) {
	tests := []struct {
		minor uint8
		build uint32
	}{
		{2, 8},
		{5, 161},
		{6, 197},
	}

	for _, tt := range tests {
		rsw, err := ParseRSW(worldFixture(2, tt.minor, tt.build).bytes())
		if err != nil {
			t.Fatalf("2.%d: %v", tt.minor, err)
		}
		if rsw.Version.BuildNumber != tt.build {
			t.Errorf("2.%d: BuildNumber = %d, want %d", tt.minor, rsw.Version.BuildNumber, tt.build)
		}
	}
}

func TestParseRSW_V26_NoWater(t *testing.T) {
	rsw, err := ParseRSW(worldFixture(2, 6, 197).bytes())
	if err != nil {
		t.Fatalf("ParseRSW failed: %v", err)
	}
	if rsw.Water != (RSWWater{}) {
		t.Errorf("Water = %+v, want zero value for 2.6", rsw.Water)
	}
}

func TestParseRSW_UnknownObject(t *testing.T) {
	w := worldFixture(2, 1, 0)
	w.objects = append(w.objects, RSWObject{Type: 9})
	data := w.bytes()
	data = append(data, make([]byte, 200)...)

	_, err := ParseRSW(data)
	if !errors.Is(err, ErrUnknownObjectType) {
		t.Errorf("got %v, want ErrUnknownObjectType", err)
	}
}

func TestRSW_CountByType(t *testing.T) {
	rsw := &RSW{Objects: worldObjects()}

	counts := rsw.CountByType()
	want := map[RSWObjectType]int{RSWObjectModel: 2, RSWObjectLight: 1, RSWObjectSound: 1, RSWObjectEffect: 1}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("counts[%s] = %d, want %d", k, counts[k], v)
		}
	}
}

func TestRSW_Lights(t *testing.T) {
	rsw := &RSW{Objects: worldObjects()}

	lights := rsw.Lights()
	if len(lights) != 1 || lights[0].Name != "lamp" || lights[0].Range != 40 {
		t.Errorf("Lights() = %v", lights)
	}
}
