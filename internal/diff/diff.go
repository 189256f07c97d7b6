// Package diff compares two versions of a snippet line by line and turns
// unified patches into before/after texts.
package diff

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/sprite-ai/codeq/internal/analysis"
	"github.com/sprite-ai/codeq/internal/model"
)

const basicSummary = "Basic diff calculated."

// Lines reports the lines of b missing from a (added) and the lines of a
// missing from b (removed). Order and duplicates follow the source text.
// There is no alignment, so Changed is always empty.
func Lines(a, b string) model.LineDiff {
	aLines := analysis.SplitLines(a)
	bLines := analysis.SplitLines(b)

	added := missingFrom(bLines, toSet(aLines))
	removed := missingFrom(aLines, toSet(bLines))

	return model.LineDiff{
		Added:     added,
		Removed:   removed,
		Changed:   []string{},
		RiskScore: len(added) + len(removed),
		Summary:   basicSummary,
	}
}

func toSet(lines []string) map[string]bool {
	set := make(map[string]bool, len(lines))
	for _, l := range lines {
		set[l] = true
	}
	return set
}

func missingFrom(lines []string, other map[string]bool) []string {
	out := []string{}
	for _, l := range lines {
		if !other[l] {
			out = append(out, l)
		}
	}
	return out
}

// File is one file of a parsed patch, reconstructed from its hunks.
type File struct {
	OldName      string
	NewName      string
	IsNew        bool
	IsDeleted    bool
	IsRenamed    bool
	IsBinary     bool
	Before       string
	After        string
	AddedLines   int
	DeletedLines int
}

// Name returns the display name for the file.
func (f *File) Name() string {
	if f.IsRenamed {
		return fmt.Sprintf("%s → %s", f.OldName, f.NewName)
	}
	if f.IsDeleted {
		return f.OldName
	}
	if f.NewName != "" {
		return f.NewName
	}
	return f.OldName
}

// Patch holds every file of a unified diff.
type Patch struct {
	Files []*File
}

// Find returns the file whose old or new name is name.
func (p *Patch) Find(name string) (*File, bool) {
	for _, f := range p.Files {
		if f.NewName == name || f.OldName == name {
			return f, true
		}
	}
	return nil, false
}

// ParsePatch reads a unified diff. Before and After contain only the lines
// the hunks cover, so a patch with little context yields partial texts.
func ParsePatch(raw string) (*Patch, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}

	p := &Patch{}
	for _, f := range parsed {
		pf := &File{
			OldName:   f.OldName,
			NewName:   f.NewName,
			IsNew:     f.IsNew,
			IsDeleted: f.IsDelete,
			IsRenamed: f.IsRename,
			IsBinary:  f.IsBinary,
		}

		var before, after strings.Builder
		for _, frag := range f.TextFragments {
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpContext:
					before.WriteString(line.Line)
					after.WriteString(line.Line)
				case gitdiff.OpDelete:
					before.WriteString(line.Line)
					pf.DeletedLines++
				case gitdiff.OpAdd:
					after.WriteString(line.Line)
					pf.AddedLines++
				}
			}
		}
		pf.Before = before.String()
		pf.After = after.String()

		p.Files = append(p.Files, pf)
	}
	return p, nil
}

// GitDiff runs `git diff` with the given arguments and returns the raw output.
func GitDiff(repoDir string, args ...string) (string, error) {
	cmdArgs := append([]string{"diff", "--no-color"}, args...)
	cmd := exec.Command("git", cmdArgs...)
	cmd.Dir = repoDir
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return string(out), nil
}

// GitFileDiff returns the full-context diff of one file against rev, so
// that ParsePatch reconstructs both complete versions.
func GitFileDiff(repoDir, rev, path string) (string, error) {
	return GitDiff(repoDir, "--unified=1000000", rev, "--", path)
}
