package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"songrank/internal/config"
	"songrank/internal/ranking"
	"songrank/internal/services"
	"songrank/internal/tabular"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var toStdout bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the selected ranking as " + tabular.Filename,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, false, func(ws *workspace) error {
				l, err := loadListing(cmd, ws, offline)
				if err != nil {
					return err
				}
				if toStdout {
					return tabular.Write(cmd.OutOrStdout(), ranking.Renumbered(l.entries))
				}

				target := ws.cfg.Paths.ExportDir
				if strings.TrimSpace(dir) != "" {
					if target, err = config.ExpandPath(dir); err != nil {
						return fmt.Errorf("resolve export directory: %w", err)
					}
				}
				path, err := writeExport(target, l)
				if err != nil {
					return err
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{
						"ranking": l.slug,
						"path":    path,
						"rows":    len(l.entries),
						"stale":   l.stale,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries of %s to %s\n", len(l.entries), l.slug, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to write into (defaults to paths.export_dir)")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the table to stdout instead of a file")
	cmd.Flags().BoolVar(&offline, "offline", false, "Export the cached copy without contacting the backend")
	return cmd
}

// writeExport replaces dir/songs.csv through a temporary file so a failed
// write never leaves a truncated export behind.
func writeExport(dir string, l listing) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".songs-*.csv")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tabular.Write(tmp, ranking.Renumbered(l.entries)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	path := filepath.Join(dir, tabular.Filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move export into place: %w", err)
	}
	return path, nil
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Replace the selected ranking with a CSV file",
		Long: "Replace the selected ranking with the rows of a CSV file in the export\n" +
			"format. The file is checked before anything is uploaded.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve import file: %w", err)
			}
			data, err := readImport(path)
			if err != nil {
				return err
			}
			return ctx.mutate(cmd, func(ws *workspace) (string, error) {
				summary, err := ws.engine.Import(cmd.Context(), filepath.Base(path), data)
				if summary.Rows == 0 && err != nil {
					return "", err
				}
				return fmt.Sprintf("Imported %d rows into %s", summary.Rows, ws.engine.Ranking()), err
			})
		},
	}
}

func readImport(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "cli", "import", "open import file", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, tabular.MaxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	if len(data) > tabular.MaxImportBytes {
		return nil, services.Wrap(services.ErrValidation, "cli", "import", path, tabular.ErrTooLarge)
	}
	return data, nil
}
