package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-3mf/pkg/formats"
	"github.com/Faultbox/midgard-3mf/pkg/grf"
)

func newGRFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grf",
		Short: "Inspect and extract GRF archives",
		Example: `  mr3mf grf info data.grf
  mr3mf grf list data.grf "*.rsm"
  mr3mf grf extract data.grf data/prontera.rsw ./output
  mr3mf grf search data.grf prontera`,
	}
	cmd.AddCommand(newGRFInfoCmd(), newGRFListCmd(), newGRFExtractCmd(), newGRFSearchCmd())
	return cmd
}

func newGRFInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.grf>",
		Short: "Show archive information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := grf.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()
			printArchiveInfo(cmd.OutOrStdout(), args[0], archive)
			return nil
		},
	}
}

type extStat struct {
	ext   string
	count int
}

func printArchiveInfo(w io.Writer, name string, archive *grf.Archive) {
	files := archive.List()

	extCount := make(map[string]int)
	kinds := make(map[formats.Kind]int)
	var packed, unpacked uint64
	for _, f := range files {
		ext := strings.ToLower(path.Ext(f))
		if ext == "" {
			ext = "(no ext)"
		}
		extCount[ext]++
		kinds[formats.KindOf(f)]++
		if e, ok := archive.Entry(f); ok {
			packed += uint64(e.CompressedSize)
			unpacked += uint64(e.UncompressedSize)
		}
	}

	fmt.Fprintf(w, "Archive:  %s\n", name)
	fmt.Fprintf(w, "Version:  0x%x\n", archive.Header().Version)
	fmt.Fprintf(w, "Files:    %d\n", len(files))
	fmt.Fprintf(w, "Size:     %.2f MB (%.2f MB packed)\n",
		float64(unpacked)/(1024*1024), float64(packed)/(1024*1024))
	fmt.Fprintf(w, "Exportable: %d models, %d grounds, %d maps\n",
		kinds[formats.KindRSM], kinds[formats.KindGND], kinds[formats.KindRSW])
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Files by type:")

	stats := make([]extStat, 0, len(extCount))
	for ext, count := range extCount {
		stats = append(stats, extStat{ext, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].ext < stats[j].ext
	})
	for _, s := range stats {
		fmt.Fprintf(w, "  %-10s %d\n", s.ext, s.count)
	}
}

func newGRFListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "list <file.grf> [pattern]",
		Aliases: []string{"ls"},
		Short:   "List files, optionally filtered by a glob or substring",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := grf.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			pattern := ""
			if len(args) > 1 {
				pattern = strings.ToLower(args[1])
			}
			count := 0
			for _, f := range archive.List() {
				if pattern != "" && !matchName(pattern, f) && !strings.Contains(f, pattern) {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), f)
				count++
				if limit > 0 && count >= limit {
					break
				}
			}
			if pattern != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n(%d files matched)\n", count)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit output to N files (0 = all)")
	return cmd
}

func newGRFSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "search <file.grf> <text>",
		Aliases: []string{"find"},
		Short:   "Search file paths for a substring",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := grf.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			text := strings.ToLower(args[1])
			count := 0
			for _, f := range archive.List() {
				if !strings.Contains(f, text) {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), f)
				count++
				if limit > 0 && count >= limit {
					fmt.Fprintf(cmd.ErrOrStderr(), "\n(showing first %d matches, use -n 0 for all)\n", limit)
					return nil
				}
			}
			if count == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No files found")
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n(%d files found)\n", count)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Limit results (0 = all)")
	return cmd
}

func newGRFExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "extract <file.grf> <path|pattern> [output_dir]",
		Aliases: []string{"x"},
		Short:   "Extract one file, or every file whose name matches a glob",
		Args:    cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := grf.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			outputDir := "."
			if len(args) > 2 {
				outputDir = args[2]
			}
			if strings.ContainsAny(args[1], "*?[") {
				return extractPattern(cmd, archive, strings.ToLower(args[1]), outputDir)
			}

			data, err := archive.ReadFile(args[1])
			if err != nil {
				return err
			}
			out := filepath.Join(outputDir, path.Base(strings.ReplaceAll(args[1], "\\", "/")))
			if err := writeExtracted(out, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted: %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
}

// extractPattern keeps the archive directory structure below outputDir.
// Files that fail are reported and skipped.
func extractPattern(cmd *cobra.Command, archive *grf.Archive, pattern, outputDir string) error {
	extracted, failed := 0, 0
	for _, f := range archive.List() {
		if !matchName(pattern, f) {
			continue
		}
		data, err := archive.ReadFile(f)
		if err == nil {
			out := filepath.Join(outputDir, filepath.FromSlash(f))
			if err = writeExtracted(out, data); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Extracted: %s\n", out)
				extracted++
				continue
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Error extracting %s: %v\n", f, err)
		failed++
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "\nExtracted %d files\n", extracted)
	if failed > 0 {
		return fmt.Errorf("%d files could not be extracted", failed)
	}
	return nil
}

// matchName matches a lower-case glob against the base name of f.
func matchName(pattern, f string) bool {
	ok, _ := path.Match(pattern, path.Base(f))
	return ok
}

func writeExtracted(out string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}
