package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/usecase"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed)
	labelColor  = color.New(color.Bold)
)

func printIndexResult(w io.Writer, result *usecase.IndexResult) {
	_, _ = headerColor.Fprintln(w, "Index result")
	_, _ = okColor.Fprintf(w, "  processed: %d\n", result.Processed)
	_, _ = warnColor.Fprintf(w, "  skipped:   %d\n", result.Skipped)
	_, _ = errColor.Fprintf(w, "  errors:    %d\n", result.Errors)
	for _, d := range result.ErrorDetails {
		_, _ = errColor.Fprintf(w, "    note %d: %s\n", d.NoteID, d.Message)
	}
}

func printEnsureResult(w io.Writer, noteID model.NoteID, result *usecase.EnsureResult) {
	_, _ = headerColor.Fprintf(w, "Embedding of note %d\n", noteID)
	status := okColor.Sprint("generated")
	if result.Skipped {
		status = warnColor.Sprint("cached")
	}
	_, _ = fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("status:"), status)
	_, _ = fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("model:"), result.Model)
	_, _ = fmt.Fprintf(w, "  %s %d\n", labelColor.Sprint("dimensions:"), result.Dimensions)
	_, _ = fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("content_hash:"), result.ContentHash)
}

func printRetrieveResult(w io.Writer, result *usecase.RetrieveResult) {
	if len(result.Cases) == 0 {
		_, _ = warnColor.Fprintln(w, "No similar cases found")
		return
	}

	for i, c := range result.Cases {
		_, _ = headerColor.Fprintf(w, "#%d note %d (%s) similarity %.3f\n", i+1, c.NoteID, c.DocumentType, c.Similarity)
		printField(w, "Presentation", c.Presentation)
		printList(w, "Key findings", c.KeyFindings)
		printList(w, "Workup", c.WorkupPerformed)
		printField(w, "Outcome", c.Outcome)
		if c.LessonsLearned != nil {
			printField(w, "Lessons learned", *c.LessonsLearned)
		}
		if c.FunctionalStatus != nil {
			status := string(c.FunctionalStatus.Kind)
			if c.FunctionalStatus.Detail != "" {
				status += " (" + c.FunctionalStatus.Detail + ")"
			}
			printField(w, "Functional status", status)
		}
		_, _ = fmt.Fprintln(w)
	}

	if s := result.SynthesizedInsights; s != nil {
		_, _ = headerColor.Fprintln(w, "Synthesized insights")
		printList(w, "Common patterns", s.CommonPatterns)
		printList(w, "Typical workup", s.TypicalWorkup)
		printList(w, "Pitfalls", s.Pitfalls)
	}
}

func printField(w io.Writer, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint(label+":"), value)
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "  %s\n", labelColor.Sprint(label+":"))
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "    - %s\n", item)
	}
}

type migrationStep struct {
	collection  string
	operation   string
	description string
	destructive bool
}

func printMigrationPlan(w io.Writer, steps []migrationStep, dryRun bool) {
	if len(steps) == 0 {
		_, _ = okColor.Fprintln(w, "Indexes are up to date")
		return
	}

	title := "Applying migration plan"
	if dryRun {
		title = "Migration plan (dry run)"
	}
	_, _ = headerColor.Fprintln(w, title)
	for _, s := range steps {
		c := okColor
		if s.destructive {
			c = errColor
		}
		_, _ = c.Fprintf(w, "  [%s] %s: %s\n", s.operation, s.collection, s.description)
	}
}
