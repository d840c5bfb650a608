package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-3mf/internal/scene"
	"github.com/Faultbox/midgard-3mf/pkg/export"
	"github.com/Faultbox/midgard-3mf/pkg/geometry"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <input>",
		Short: "Print the meshes, instances and textures of an input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(a.cfg.Data, a.log)
			if err != nil {
				return err
			}
			defer m.Close()

			in, err := resolveInput(m, args[0])
			if err != nil {
				return err
			}
			s, err := scene.LoadFile(cmd.Context(), m, in.Name, loadOptions(a.cfg, a.log)...)
			if err != nil {
				return err
			}
			opts, err := a.cfg.ExportOptions()
			if err != nil {
				return err
			}
			doc, err := export.New(opts).ToDocument(s.Scene)
			if err != nil {
				return err
			}
			objects := 0
			if doc != nil {
				objects = len(doc.Model.Resources.Objects)
			}
			return printScene(cmd.OutOrStdout(), s, objects)
		},
	}
}

func printScene(w io.Writer, s *scene.Scene, objects int) error {
	vertices, triangles := s.Counts()
	fmt.Fprintf(w, "Scene:     %s\n", s.Name)
	fmt.Fprintf(w, "Meshes:    %d\n", len(s.Meshes))
	fmt.Fprintf(w, "Instances: %d\n", len(s.Instances))
	fmt.Fprintf(w, "Vertices:  %d\n", vertices)
	fmt.Fprintf(w, "Triangles: %d\n", triangles)
	fmt.Fprintf(w, "Objects:   %d\n", objects)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MESH\tPLACED\tVERTICES\tTRIANGLES\tPARTS\tSIZE")
	for _, row := range meshRows(s) {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n",
			row.name, row.placed, row.vertices, row.triangles, row.parts, row.size)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Textures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Textures:")
		for i, tex := range s.Textures {
			fmt.Fprintf(w, "  %3d  %s\n", i, tex)
		}
	}
	return nil
}

type meshRow struct {
	name      string
	placed    int
	vertices  int
	triangles int
	parts     int
	size      string
}

// meshRows lists directly placed meshes first, then instance sources by
// name. Placed counts every placement of the mesh.
func meshRows(s *scene.Scene) []meshRow {
	placed := make(map[geometry.Mesh]int)
	var order []geometry.Mesh
	for _, m := range s.Meshes {
		if placed[m] == 0 {
			order = append(order, m)
		}
		placed[m]++
	}
	var sources []geometry.Mesh
	for _, inst := range s.Instances {
		src := inst.SourceMesh()
		if _, ok := placed[src]; !ok {
			sources = append(sources, src)
		}
		placed[src]++
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Name() < sources[j].Name()
	})
	order = append(order, sources...)

	rows := make([]meshRow, 0, len(order))
	for _, m := range order {
		positions := m.VerticesData(geometry.PositionKind)
		size := "-"
		if lo, hi, ok := geometry.Bounds(positions); ok {
			size = fmt.Sprintf("%.1f x %.1f x %.1f", hi.X-lo.X, hi.Y-lo.Y, hi.Z-lo.Z)
		}
		rows = append(rows, meshRow{
			name:      m.Name(),
			placed:    placed[m],
			vertices:  len(positions) / 3,
			triangles: len(m.Indices()) / 3,
			parts:     len(m.SubMeshes()),
			size:      size,
		})
	}
	return rows
}
