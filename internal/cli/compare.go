package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/codeq/internal/diff"
	"github.com/sprite-ai/codeq/internal/tui"
)

var compareCmd = &cobra.Command{
	Use:   "compare [a b]",
	Short: "Compare two versions of the same code",
	Long: `Analyze two versions side by side and decide which one is better:
lower risk wins, then lower cyclomatic complexity, then the better Big-O.

The versions can be two files, one file of a unified patch, or a file in
the working tree against a git revision.

Examples:
  codeq compare old.py new.py
  codeq compare --patch fix.patch --file search.py
  git diff | codeq compare --patch - --file search.py
  codeq compare --git HEAD~1 search.py
  codeq compare -i old.py new.py         # interactive viewer`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringP("language", "l", "", "language override for both versions")
	compareCmd.Flags().StringP("format", "f", formatText, "output format: text, json, markdown, pretty")
	compareCmd.Flags().StringP("patch", "p", "", "unified patch to take both versions from (- for stdin)")
	compareCmd.Flags().String("file", "", "file within the patch (defaults to the first)")
	compareCmd.Flags().String("git", "", "compare the file argument against this git revision")
	compareCmd.Flags().BoolP("interactive", "i", false, "open the comparison viewer")
}

type versions struct {
	nameA, nameB string
	codeA, codeB string
}

func runCompare(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := validFormat(format, reportFormats...); err != nil {
		return err
	}
	language, _ := cmd.Flags().GetString("language")

	v, err := loadVersions(cmd, args)
	if err != nil {
		return err
	}

	c := current.analyzer.Compare(cmd.Context(), v.codeA, v.codeB, language)

	interactive, _ := cmd.Flags().GetBool("interactive")
	if interactive {
		if !isTerminal(os.Stdout) {
			return fmt.Errorf("--interactive needs a terminal")
		}
		return tui.Run(tui.Input{
			NameA:      v.nameA,
			NameB:      v.nameB,
			CodeA:      v.codeA,
			CodeB:      v.codeB,
			Language:   language,
			Comparison: c,
		})
	}

	if err := writeComparison(cmd.OutOrStdout(), c, v.nameA, v.nameB, format); err != nil {
		return err
	}
	if c.Failed() {
		return &ExitError{Code: 2}
	}
	return nil
}

func loadVersions(cmd *cobra.Command, args []string) (versions, error) {
	patchPath, _ := cmd.Flags().GetString("patch")
	rev, _ := cmd.Flags().GetString("git")

	switch {
	case patchPath != "":
		if len(args) > 0 {
			return versions{}, fmt.Errorf("--patch takes no file arguments")
		}
		file, _ := cmd.Flags().GetString("file")
		return versionsFromPatch(cmd, patchPath, file)

	case rev != "":
		if len(args) != 1 {
			return versions{}, fmt.Errorf("--git needs exactly one file argument")
		}
		return versionsFromGit(rev, args[0])

	default:
		if len(args) != 2 {
			return versions{}, fmt.Errorf("compare needs two files, --patch or --git")
		}
		a, err := readInput(cmd, args[0])
		if err != nil {
			return versions{}, err
		}
		b, err := readInput(cmd, args[1])
		if err != nil {
			return versions{}, err
		}
		return versions{nameA: displayName(args[0]), nameB: displayName(args[1]), codeA: a, codeB: b}, nil
	}
}

func versionsFromPatch(cmd *cobra.Command, patchPath, file string) (versions, error) {
	raw, err := readInput(cmd, patchPath)
	if err != nil {
		return versions{}, err
	}
	patch, err := diff.ParsePatch(raw)
	if err != nil {
		return versions{}, err
	}
	if len(patch.Files) == 0 {
		return versions{}, fmt.Errorf("patch contains no files")
	}

	f := patch.Files[0]
	if file != "" {
		var ok bool
		if f, ok = patch.Find(file); !ok {
			return versions{}, fmt.Errorf("file %s not found in patch", file)
		}
	}
	if f.IsBinary {
		return versions{}, fmt.Errorf("%s is a binary file", f.Name())
	}

	nameA, nameB := f.OldName, f.NewName
	if nameA == "" {
		nameA = "/dev/null"
	}
	if nameB == "" {
		nameB = "/dev/null"
	}
	return versions{nameA: nameA, nameB: nameB, codeA: f.Before, codeB: f.After}, nil
}

// versionsFromGit compares rev:path with the working tree copy of path.
func versionsFromGit(rev, path string) (versions, error) {
	repoDir, err := gitRepoRoot()
	if err != nil {
		return versions{}, fmt.Errorf("not in a git repository (or git not installed): %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return versions{}, err
	}
	raw, err := diff.GitFileDiff(repoDir, rev, abs)
	if err != nil {
		return versions{}, err
	}

	after, err := os.ReadFile(abs)
	if err != nil {
		return versions{}, fmt.Errorf("reading %s: %w", path, err)
	}

	before := string(after)
	if strings.TrimSpace(raw) != "" {
		patch, err := diff.ParsePatch(raw)
		if err != nil {
			return versions{}, err
		}
		if len(patch.Files) > 0 {
			before = patch.Files[0].Before
		}
	}
	return versions{nameA: rev + ":" + path, nameB: path, codeA: before, codeB: string(after)}, nil
}

func gitRepoRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
