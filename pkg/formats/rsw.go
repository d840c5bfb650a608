package formats

import (
	"errors"
	"fmt"
	"os"
)

// RSW format errors.
var (
	ErrInvalidRSWMagic       = errors.New("invalid RSW magic: expected 'GRSW'")
	ErrUnsupportedRSWVersion = errors.New("unsupported RSW version")
	ErrTruncatedRSWData      = errors.New("truncated RSW data")
	ErrUnknownObjectType     = errors.New("unknown RSW object type")
)

const (
	rswFileNameSize   = 40
	rswObjectNameSize = 80
	// smallest object record: type plus a light
	rswMinObjectSize = 4 + rswObjectNameSize + 12 + 12 + 4
)

// RSWVersion is the world file version. BuildNumber is set from 2.2.
type RSWVersion struct {
	Major       uint8
	Minor       uint8
	BuildNumber uint32
}

// String returns "Major.Minor" or "Major.Minor.Build".
func (v RSWVersion) String() string {
	if v.BuildNumber > 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.BuildNumber)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSWVersion) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// RSWObjectType identifies the kind of a placed object.
type RSWObjectType int32

const (
	RSWObjectModel  RSWObjectType = 1
	RSWObjectLight  RSWObjectType = 2
	RSWObjectSound  RSWObjectType = 3
	RSWObjectEffect RSWObjectType = 4
)

// String returns a human-readable object type name.
func (t RSWObjectType) String() string {
	switch t {
	case RSWObjectModel:
		return "Model"
	case RSWObjectLight:
		return "Light"
	case RSWObjectSound:
		return "Sound"
	case RSWObjectEffect:
		return "Effect"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// RSWWater holds the water plane settings (1.3 to 2.5).
type RSWWater struct {
	Level      float32
	Type       int32
	WaveHeight float32
	WaveSpeed  float32
	WavePitch  float32
	AnimSpeed  int32
}

// RSWLight holds the global sun settings.
type RSWLight struct {
	Longitude int32
	Latitude  int32
	Diffuse   [3]float32
	Ambient   [3]float32
	Opacity   float32
}

// RSWGround holds the ground view bounds.
type RSWGround struct {
	Top, Bottom, Left, Right int32
}

// RSWModel places an RSM model in the world. Rotation is in degrees.
type RSWModel struct {
	Name      string
	AnimType  int32
	AnimSpeed float32
	BlockType int32
	ModelName string
	NodeName  string
	Position  [3]float32
	Rotation  [3]float32
	Scale     [3]float32
}

// RSWLightSource is a point light.
type RSWLightSource struct {
	Name     string
	Position [3]float32
	Color    [3]float32
	Range    float32
}

// RSWSoundSource is a positioned sound emitter.
type RSWSoundSource struct {
	Name     string
	File     string
	Position [3]float32
	Volume   float32
	Width    int32
	Height   int32
	Range    float32
	Cycle    float32 // 2.0+
}

// RSWEffectSource is a positioned visual effect.
type RSWEffectSource struct {
	Name     string
	Position [3]float32
	EffectID int32
	Delay    float32
	Param    [4]float32
}

// RSWObject is one placed object; exactly one pointer matching Type is set.
type RSWObject struct {
	Type   RSWObjectType
	Model  *RSWModel
	Light  *RSWLightSource
	Sound  *RSWSoundSource
	Effect *RSWEffectSource
}

// RSW is a parsed world file.
type RSW struct {
	Version  RSWVersion
	IniFile  string
	GndFile  string
	GatFile  string
	SrcFile  string
	Water    RSWWater
	Light    RSWLight
	Ground   RSWGround
	Objects  []RSWObject
	Quadtree [][4]float32
}

// ParseRSW parses a world file in versions 1.2 to 2.6.
func ParseRSW(data []byte) (*RSW, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSWData
	}
	if string(data[:4]) != "GRSW" {
		return nil, ErrInvalidRSWMagic
	}

	rsw := &RSW{Version: RSWVersion{Major: data[4], Minor: data[5]}}
	v := &rsw.Version
	if v.Major < 1 || v.Major > 2 || (v.Major == 1 && v.Minor < 2) || (v.Major == 2 && v.Minor > 6) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSWVersion, v)
	}

	r := newReader(data, ErrTruncatedRSWData)
	r.skip(6, "header")
	switch {
	case v.AtLeast(2, 5):
		v.BuildNumber = r.u32("build number")
		r.skip(1, "render flag")
	case v.AtLeast(2, 2):
		v.BuildNumber = uint32(r.u8("build number"))
	}

	rsw.IniFile = r.fixedString(rswFileNameSize, "ini file")
	rsw.GndFile = r.fixedString(rswFileNameSize, "gnd file")
	if v.AtLeast(1, 4) {
		rsw.GatFile = r.fixedString(rswFileNameSize, "gat file")
	}
	rsw.SrcFile = r.fixedString(rswFileNameSize, "src file")

	if v.AtLeast(1, 3) && !v.AtLeast(2, 6) {
		w := &rsw.Water
		w.Level = r.f32("water level")
		w.Type = r.i32("water type")
		w.WaveHeight = r.f32("wave height")
		w.WaveSpeed = r.f32("wave speed")
		w.WavePitch = r.f32("wave pitch")
		w.AnimSpeed = r.i32("water animation speed")
	}

	if v.AtLeast(1, 5) {
		l := &rsw.Light
		l.Longitude = r.i32("light longitude")
		l.Latitude = r.i32("light latitude")
		l.Diffuse = r.vec3("diffuse")
		l.Ambient = r.vec3("ambient")
		if v.AtLeast(1, 7) {
			l.Opacity = r.f32("shadow opacity")
		}
	}

	if v.AtLeast(1, 6) {
		g := &rsw.Ground
		g.Top = r.i32("ground top")
		g.Bottom = r.i32("ground bottom")
		g.Left = r.i32("ground left")
		g.Right = r.i32("ground right")
	}

	n := r.count(rswMinObjectSize, "object")
	if r.err != nil {
		return nil, r.err
	}
	rsw.Objects = make([]RSWObject, 0, n)
	for i := 0; i < n; i++ {
		obj, err := parseRSWObject(r, *v)
		if err != nil {
			return nil, fmt.Errorf("parsing object %d: %w", i, err)
		}
		rsw.Objects = append(rsw.Objects, obj)
	}

	if v.AtLeast(2, 1) {
		for r.remaining() >= 16 {
			rsw.Quadtree = append(rsw.Quadtree, r.vec4("quadtree node"))
		}
	}
	return rsw, nil
}

func parseRSWObject(r *reader, v RSWVersion) (RSWObject, error) {
	obj := RSWObject{Type: RSWObjectType(r.i32("object type"))}
	if r.err != nil {
		return obj, r.err
	}

	switch obj.Type {
	case RSWObjectModel:
		m := &RSWModel{}
		if v.AtLeast(1, 3) {
			m.Name = r.fixedString(rswFileNameSize, "model name")
			m.AnimType = r.i32("animation type")
			m.AnimSpeed = r.f32("animation speed")
			m.BlockType = r.i32("block type")
		}
		if v.AtLeast(2, 6) && v.BuildNumber >= 162 {
			r.skip(1, "collision flag")
		}
		m.ModelName = r.fixedString(rswObjectNameSize, "model file")
		m.NodeName = r.fixedString(rswObjectNameSize, "node name")
		m.Position = r.vec3("model position")
		m.Rotation = r.vec3("model rotation")
		m.Scale = r.vec3("model scale")
		obj.Model = m
	case RSWObjectLight:
		l := &RSWLightSource{}
		l.Name = r.fixedString(rswObjectNameSize, "light name")
		l.Position = r.vec3("light position")
		l.Color = r.vec3("light color")
		l.Range = r.f32("light range")
		obj.Light = l
	case RSWObjectSound:
		s := &RSWSoundSource{}
		s.Name = r.fixedString(rswObjectNameSize, "sound name")
		s.File = r.fixedString(rswObjectNameSize, "sound file")
		s.Position = r.vec3("sound position")
		s.Volume = r.f32("sound volume")
		s.Width = r.i32("sound width")
		s.Height = r.i32("sound height")
		s.Range = r.f32("sound range")
		if v.AtLeast(2, 0) {
			s.Cycle = r.f32("sound cycle")
		}
		obj.Sound = s
	case RSWObjectEffect:
		e := &RSWEffectSource{}
		e.Name = r.fixedString(rswObjectNameSize, "effect name")
		e.Position = r.vec3("effect position")
		e.EffectID = r.i32("effect id")
		e.Delay = r.f32("effect delay")
		e.Param = r.vec4("effect parameters")
		obj.Effect = e
	default:
		return obj, fmt.Errorf("%w: %d", ErrUnknownObjectType, obj.Type)
	}
	return obj, r.err
}

// ParseRSWFile parses an RSW file from disk.
func ParseRSWFile(path string) (*RSW, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSW file: %w", err)
	}
	return ParseRSW(data)
}

// CountByType returns the number of objects of each type.
func (w *RSW) CountByType() map[RSWObjectType]int {
	counts := make(map[RSWObjectType]int)
	for _, obj := range w.Objects {
		counts[obj.Type]++
	}
	return counts
}

// Models returns the placed models in file order.
func (w *RSW) Models() []*RSWModel {
	var models []*RSWModel
	for _, obj := range w.Objects {
		if obj.Model != nil {
			models = append(models, obj.Model)
		}
	}
	return models
}

// Lights returns the point lights in file order.
func (w *RSW) Lights() []*RSWLightSource {
	var lights []*RSWLightSource
	for _, obj := range w.Objects {
		if obj.Light != nil {
			lights = append(lights, obj.Light)
		}
	}
	return lights
}
