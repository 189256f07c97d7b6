package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/codeq/internal/assist"
)

var explainCmd = &cobra.Command{
	Use:   "explain [file|-]",
	Short: "Ask the AI backend to explain a snippet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, format, err := assistInput(cmd, args)
		if err != nil {
			return err
		}
		e := current.assistant.Explain(cmd.Context(), code)
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), e)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", e.Overview)
		writeList(&b, "Key points", e.KeyPoints)
		writeList(&b, "Potential risks", e.PotentialRisks)
		writeFlags(&b, e.Flags)
		_, err = io.WriteString(cmd.OutOrStdout(), b.String())
		return err
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [file|-]",
	Short: "Ask the AI backend for improvement suggestions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, format, err := assistInput(cmd, args)
		if err != nil {
			return err
		}
		s := current.assistant.Suggest(cmd.Context(), code)
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), s)
		}

		var b strings.Builder
		if len(s.Improvements) == 0 {
			b.WriteString("No suggestions.\n")
		}
		for i, imp := range s.Improvements {
			fmt.Fprintf(&b, "%d. %s [%s risk]\n", i+1, imp.Title, imp.Risk)
			if imp.Why != "" {
				fmt.Fprintf(&b, "   why: %s\n", imp.Why)
			}
			if imp.How != "" {
				fmt.Fprintf(&b, "   how: %s\n", imp.How)
			}
		}
		writeFlags(&b, s.Flags)
		_, err = io.WriteString(cmd.OutOrStdout(), b.String())
		return err
	},
}

var autofixCmd = &cobra.Command{
	Use:   "autofix [file|-]",
	Short: "Ask the AI backend for a minimal fix",
	Long: `Ask the AI backend for a minimal, behavior-preserving fix. The fixed
code is printed on stdout; with --write the file is replaced instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAutofix,
}

var chatCmd = &cobra.Command{
	Use:   "chat <file|-> <question>",
	Short: "Ask a question about a snippet",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := validFormat(format, formatText, formatJSON); err != nil {
			return err
		}
		code, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		question := strings.Join(args[1:], " ")

		ans := current.assistant.AskAboutCode(cmd.Context(), code, question)
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), ans)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", ans.Answer)
		writeList(&b, "Next steps", ans.NextSteps)
		writeList(&b, "References", ans.References)
		writeFlags(&b, ans.Flags)
		_, err = io.WriteString(cmd.OutOrStdout(), b.String())
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{explainCmd, suggestCmd, autofixCmd, chatCmd} {
		c.Flags().StringP("format", "f", formatText, "output format: text, json")
	}
	autofixCmd.Flags().Bool("write", false, "overwrite the input file with the fixed code")
}

func runAutofix(cmd *cobra.Command, args []string) error {
	code, format, err := assistInput(cmd, args)
	if err != nil {
		return err
	}
	arg := argOrStdin(args)
	write, _ := cmd.Flags().GetBool("write")
	if write && arg == "-" {
		return fmt.Errorf("--write needs a file argument")
	}

	fix := current.assistant.Autofix(cmd.Context(), code)
	if write && !fix.Stubbed && !fix.ParseError {
		if err := writeFileKeepMode(arg, fix.FixedCode); err != nil {
			return err
		}
	}

	if format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), fix)
	}

	// Fixed code on stdout, the summary on stderr.
	if !write {
		out := fix.FixedCode
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		if _, err := io.WriteString(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}

	var b strings.Builder
	writeList(&b, "Summary", fix.DiffSummary)
	if len(fix.Changes) > 0 {
		b.WriteString("\nChanges:\n")
		for _, c := range fix.Changes {
			if c.Title == "" && c.Description == "" {
				continue
			}
			fmt.Fprintf(&b, "  - %s: %s\n", c.Title, c.Description)
		}
	}
	fmt.Fprintf(&b, "\n+%d -%d lines\n", len(fix.Diff.Added), len(fix.Diff.Removed))
	writeFlags(&b, fix.Flags)
	_, err = io.WriteString(cmd.ErrOrStderr(), b.String())
	return err
}

// writeFileKeepMode replaces path with content, keeping its permissions.
func writeFileKeepMode(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func assistInput(cmd *cobra.Command, args []string) (code, format string, err error) {
	format, _ = cmd.Flags().GetString("format")
	if err := validFormat(format, formatText, formatJSON); err != nil {
		return "", "", err
	}
	code, err = readInput(cmd, argOrStdin(args))
	return code, format, err
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}

func writeFlags(b *strings.Builder, f assist.Flags) {
	switch {
	case f.Stubbed:
		b.WriteString("\n(no AI backend available; showing placeholder output)\n")
	case f.ParseError:
		b.WriteString("\n(the AI reply could not be parsed)\n")
	}
}
