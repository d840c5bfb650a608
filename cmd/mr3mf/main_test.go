package main

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-3mf/internal/assets"
	"github.com/Faultbox/midgard-3mf/pkg/formats"
	"github.com/Faultbox/midgard-3mf/pkg/formats/formatstest"
	"github.com/Faultbox/midgard-3mf/pkg/opc"
)

const quadSTL = `solid quad
facet normal 0 0 1
  outer loop
    vertex 0 0 0
    vertex 1 0 0
    vertex 1 1 0
  endloop
endfacet
facet normal 0 0 1
  outer loop
    vertex 0 0 0
    vertex 1 1 0
    vertex 0 1 0
  endloop
endfacet
endsolid quad
`

// sandbox gives each test its own working and config directories.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Chdir(dir)
	return dir
}

type result struct {
	app    *app
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	a := &app{}
	cmd := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return result{app: a, stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func readModel(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	model := ""
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name != opc.ModelPath {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		model = string(data)
	}
	assert.Equal(t, []string{opc.ContentTypesPath, opc.RelationshipsPath, opc.ModelPath}, names)
	return model
}

func writeMap(t *testing.T, root string) {
	t.Helper()
	n := formats.RSMNode{
		Name:       "trunk",
		Matrix:     [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Scale:      [3]float32{1, 1, 1},
		TextureIDs: []int32{0},
		Vertices:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}},
		Faces:      []formats.RSMFace{{VertexIDs: [3]uint16{0, 1, 2}}},
	}
	writeFile(t, filepath.Join(root, "data", "model", "tree.rsm"), formatstest.RSM(&formats.RSM{
		Version:   formats.RSMVersion{Major: 1, Minor: 5},
		Alpha:     1,
		Textures:  []string{"bark.bmp"},
		RootNodes: []string{"trunk"},
		Nodes:     []formats.RSMNode{n},
	}))

	writeFile(t, filepath.Join(root, "data", "test.gnd"), formatstest.GND(&formats.GND{
		Version:  formats.GNDVersion{Major: 1, Minor: 7},
		Width:    1,
		Height:   1,
		Zoom:     10,
		Textures: []string{"grass.bmp"},
		Surfaces: []formats.GNDSurface{{TextureID: 0}},
		Tiles:    []formats.GNDTile{{TopSurface: 0, FrontSurface: -1, RightSurface: -1}},
	}))

	w := &formats.RSW{
		Version: formats.RSWVersion{Major: 2, Minor: 1},
		GndFile: "test.gnd",
	}
	for i := range 2 {
		w.Objects = append(w.Objects, formats.RSWObject{
			Type: formats.RSWObjectModel,
			Model: &formats.RSWModel{
				ModelName: "tree.rsm",
				Position:  [3]float32{float32(i) * 5, 0, 0},
				Scale:     [3]float32{1, 1, 1},
			},
		})
	}
	writeFile(t, filepath.Join(root, "data", "test.rsw"), formatstest.RSW(w))
}

func TestExport_STL(t *testing.T) {
	dir := sandbox(t)
	writeFile(t, filepath.Join(dir, "quad.stl"), []byte(quadSTL))

	res := run(t, "export", "quad.stl", "-o", "out/quad.3mf", "--unit", "inch")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Wrote out/quad.3mf")

	model := readModel(t, filepath.Join(dir, "out", "quad.3mf"))
	assert.Contains(t, model, `unit="inch"`)
	assert.Equal(t, 2, strings.Count(model, "<triangle "))
	assert.Equal(t, 4, strings.Count(model, "<vertex "))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestExport_MapDefaultOutput(t *testing.T) {
	dir := sandbox(t)
	writeMap(t, dir)

	res := run(t, "export", filepath.Join(dir, "data", "test.rsw"), "--submeshes")
	require.NoError(t, res.err, res.stderr)

	model := readModel(t, filepath.Join(dir, "test.3mf"))
	assert.Contains(t, model, "<components>")
	assert.Contains(t, model, `<base name="grass.bmp"`)
	assert.Contains(t, model, `<base name="bark.bmp"`)
	assert.Equal(t, 2, strings.Count(model, "<component "))
}

func TestExport_FromDataDir(t *testing.T) {
	dir := sandbox(t)
	writeMap(t, filepath.Join(dir, "client"))

	res := run(t, "export", "data/model/tree.rsm", "--data", filepath.Join(dir, "client"), "-o", "tree.3mf")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, 1, strings.Count(readModel(t, filepath.Join(dir, "tree.3mf")), "<triangle "))
}

func TestExport_NothingToExport(t *testing.T) {
	dir := sandbox(t)
	writeFile(t, filepath.Join(dir, "empty.stl"), []byte("solid empty\nendsolid empty\n"))

	res := run(t, "export", "empty.stl")
	require.ErrorIs(t, res.err, errNothingToExport)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".3mf", filepath.Ext(e.Name()))
		assert.False(t, strings.HasPrefix(e.Name(), ".mr3mf-"), e.Name())
	}
}

func TestExport_Errors(t *testing.T) {
	sandbox(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing input", []string{"export", "nowhere.rsm"}, "not found"},
		{"no input", []string{"export"}, "accepts 1 arg"},
		{"bad unit", []string{"export", "x.stl", "--unit", "cubit"}, "invalid config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.want)
		})
	}
}

func TestExport_MetricsFile(t *testing.T) {
	dir := sandbox(t)
	writeFile(t, filepath.Join(dir, "quad.stl"), []byte(quadSTL))

	res := run(t, "export", "quad.stl", "--metrics-file", "metrics/mr3mf.prom")
	require.NoError(t, res.err, res.stderr)

	data, err := os.ReadFile(filepath.Join(dir, "metrics", "mr3mf.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `mr3mf_exports_total{status="ok"} 1`)
	assert.Contains(t, string(data), "mr3mf_triangles_total 2")
}

func TestInspect_Map(t *testing.T) {
	dir := sandbox(t)
	writeMap(t, dir)

	res := run(t, "inspect", "data/test.rsw")
	require.NoError(t, res.err, res.stderr)

	out := res.stdout
	assert.Contains(t, out, "Scene:     test\n")
	assert.Contains(t, out, "Meshes:    1\n")
	assert.Contains(t, out, "Instances: 2\n")
	assert.Contains(t, out, "Objects:   3\n")
	assert.Contains(t, out, "grass.bmp")
	assert.Contains(t, out, "bark.bmp")

	lines := strings.Split(out, "\n")
	var rows []string
	for _, l := range lines {
		fields := strings.Fields(l)
		if len(fields) > 1 && (fields[0] == "test" || fields[0] == "tree") {
			rows = append(rows, fields[0]+" "+fields[1])
		}
	}
	assert.Equal(t, []string{"test 1", "tree 2"}, rows)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := sandbox(t)
	path := filepath.Join(dir, "mr3mf.toml")

	res := run(t, "config", "init", path)
	require.NoError(t, res.err)
	assert.FileExists(t, path)

	res = run(t, "config", "init", path)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "already exists")

	res = run(t, "config", "init", path, "--force")
	require.NoError(t, res.err)

	res = run(t, "config", "show", "--config", path, "--unit", "meter")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "unit: meter")
	assert.Contains(t, res.stdout, "debounce: 250ms")
}

func TestConfigInit_DefaultLocation(t *testing.T) {
	dir := sandbox(t)

	res := run(t, "config", "init")
	require.NoError(t, res.err)
	assert.FileExists(t, filepath.Join(dir, ".config", "mr3mf", "mr3mf.yaml"))
}

func TestGRF_OpenErrors(t *testing.T) {
	dir := sandbox(t)
	writeFile(t, filepath.Join(dir, "bad.grf"), []byte("not an archive at all, just text"))

	for _, sub := range []string{"info", "list"} {
		res := run(t, "grf", sub, "missing.grf")
		assert.ErrorIs(t, res.err, os.ErrNotExist, sub)

		res = run(t, "grf", sub, "bad.grf")
		assert.Error(t, res.err, sub)
	}
}

func TestSplitDataRoot(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		path     string
		wantRoot string
		wantName string
	}{
		{filepath.FromSlash("/ro/data/prontera.rsw"), filepath.FromSlash("/ro"), "data/prontera.rsw"},
		{filepath.FromSlash("/ro/Data/model/a/tree.rsm"), filepath.FromSlash("/ro"), "Data/model/a/tree.rsm"},
		{filepath.FromSlash("/data/data/x.gnd"), filepath.FromSlash("/data"), "data/x.gnd"},
		{filepath.FromSlash("/data/x.gnd"), sep, "data/x.gnd"},
		{filepath.FromSlash("/models/quad.stl"), filepath.FromSlash("/models"), "quad.stl"},
		{filepath.FromSlash("/ro/data"), filepath.FromSlash("/ro"), "data"},
	}
	for _, tt := range tests {
		root, name := splitDataRoot(tt.path)
		if root != tt.wantRoot || name != tt.wantName {
			t.Errorf("splitDataRoot(%q) = %q, %q; want %q, %q", tt.path, root, name, tt.wantRoot, tt.wantName)
		}
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := map[string]string{
		"data/prontera.rsw":       "prontera.3mf",
		`data\model\tree.RSM`:     "tree.3mf",
		"quad.stl":                "quad.3mf",
		"data/model/no-extension": "no-extension.3mf",
	}
	for in, want := range tests {
		if got := defaultOutput(in); got != want {
			t.Errorf("defaultOutput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWatchedFiles(t *testing.T) {
	dir := t.TempDir()
	rsw := filepath.Join(dir, "test.rsw")
	writeFile(t, rsw, nil)
	writeFile(t, filepath.Join(dir, "test.gnd"), nil)

	assert.Equal(t, []string{rsw, filepath.Join(dir, "test.gnd")}, watchedFiles(input{Name: "test.rsw", Disk: rsw}))
	assert.Empty(t, watchedFiles(input{Name: "data/test.rsw"}))

	stl := filepath.Join(dir, "quad.stl")
	assert.Equal(t, []string{stl}, watchedFiles(input{Name: "quad.stl", Disk: stl}))
}

func TestResolveInput_Archive(t *testing.T) {
	m := assets.NewManager(nil)
	defer m.Close()
	m.AddFS("mem", fstest.MapFS{"data/model/tree.rsm": {Data: []byte("x")}})

	in, err := resolveInput(m, "data/model/tree.rsm")
	require.NoError(t, err)
	assert.Equal(t, input{Name: "data/model/tree.rsm"}, in)

	_, err = resolveInput(m, "data/model/rock.rsm")
	assert.Error(t, err)
}
