package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/codeq/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Summarize languages and risky modules across files",
	Long: `Count files per language and flag modules whose names or contents
suggest sensitive code (auth, secrets, shell execution, raw SQL).

Directories are walked recursively; hidden directories are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringP("format", "f", formatText, "output format: text, json")
}

func runScan(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := validFormat(format, formatText, formatJSON); err != nil {
		return err
	}

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	return writeScan(cmd.OutOrStdout(), scan.Scan(paths), format)
}

// expandPaths replaces directories by the regular files below them.
// Arguments that do not exist are kept so they still get path reasons.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}
