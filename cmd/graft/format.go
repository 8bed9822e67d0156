package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// formatRoundsText formats CLIRound results as aligned columns.
func formatRoundsText(w io.Writer, rounds []CLIRound) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tERRORS\tWARNINGS\tINPUT")
	for _, r := range rounds {
		status := "ok"
		if r.Failed {
			status = "failed"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), status, r.Errors, r.Warnings, shortHash(r.InputHash))
	}
	tw.Flush()
}

// formatManifestsText formats CLIManifest results as aligned columns.
func formatManifestsText(w io.Writer, ms []CLIManifest) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "PATH\tHASH")
	for _, m := range ms {
		fmt.Fprintf(tw, "%s\t%s\n", m.Path, shortHash(m.Hash))
	}
	tw.Flush()
}

// formatComponentsText formats CLIComponent results as aligned columns.
func formatComponentsText(w io.Writer, cs []CLIComponent) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tPATH\tKIND\tSCOPES")
	for _, c := range cs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Path, c.Kind, strings.Join(c.Scopes, ","))
	}
	tw.Flush()
}

// formatBindingsText formats CLIBinding results as aligned columns.
// References show the ID of the node they point at.
func formatBindingsText(w io.Writer, bs []CLIBinding) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tCOMPONENT\tKEY\tKIND\tSCOPE\tDECLARATION")
	for _, b := range bs {
		decl := b.Declaration
		if b.TargetID != nil {
			decl = fmt.Sprintf("-> #%d", *b.TargetID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Component, b.Key, b.Kind, b.Scope, decl)
	}
	tw.Flush()
}

// formatDependenciesText formats CLIDependency results as aligned columns.
func formatDependenciesText(w io.Writer, ds []CLIDependency) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "KEY\tREQUEST\tELEMENT\tTARGET")
	for _, d := range ds {
		target := "-"
		if d.TargetID != nil {
			target = fmt.Sprintf("#%d", *d.TargetID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Key, d.RequestKind, d.Element, target)
	}
	tw.Flush()
}

// formatStrategiesText formats CLIStrategy results as aligned columns.
func formatStrategiesText(w io.Writer, ss []CLIStrategy) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "COMPONENT\tKEY\tFACTORY\tCACHING\tACCESS\tREQUESTS")
	for _, s := range ss {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.Component, s.Key, s.Factory, s.Caching, s.Access, s.Requests)
	}
	tw.Flush()
}

// formatDiagnosticsText writes one diagnostic per paragraph, the message
// first and the request chain indented below it.
func formatDiagnosticsText(w io.Writer, ds []CLIDiagnostic) {
	for i, d := range ds {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%s] %s %s: %s\n", d.Severity, d.Kind, d.Component, d.Message)
		for _, step := range d.Chain {
			fmt.Fprintf(w, "    at %s\n", step)
		}
	}
}

// formatGraphText formats a CLIDependencyGraph as an indented node list
// followed by its edges.
func formatGraphText(w io.Writer, g CLIDependencyGraph) {
	fmt.Fprintf(w, "Root: #%d (depth %d)\n", g.Root, g.MaxDepth)
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "%s%s [%s] #%d\n", strings.Repeat("  ", n.Depth), n.Binding.Key, n.Binding.Component, n.Binding.ID)
	}
	if len(g.Edges) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "FROM\tTO\tREQUEST\tELEMENT")
	for _, e := range g.Edges {
		fmt.Fprintf(tw, "#%d\t#%d\t%s\t%s\n", e.FromID, e.ToID, e.RequestKind, e.Element)
	}
	tw.Flush()
}

// formatChangesText formats CLIChange results as aligned columns.
func formatChangesText(w io.Writer, cs []CLIChange) {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "CHANGE\tCOMPONENT\tKEY")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Change, c.Component, c.Key)
	}
	tw.Flush()
}

// formatResolveText formats the resolve summary as readable text.
func formatResolveText(w io.Writer, s CLIResolveSummary) {
	status := "ok"
	switch {
	case s.Round.Failed:
		status = "failed"
	case s.Skipped:
		status = "unchanged"
	}
	fmt.Fprintf(w, "Round %d: %s\n", s.Round.ID, status)
	fmt.Fprintf(w, "Components: %d\n", s.Components)
	fmt.Fprintf(w, "Manifests: %d\n", len(s.Manifests))
	fmt.Fprintf(w, "Errors: %d, Warnings: %d\n", s.Round.Errors, s.Round.Warnings)
	if len(s.Diagnostics) > 0 {
		fmt.Fprintln(w)
		formatDiagnosticsText(w, s.Diagnostics)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIRound:
		formatRoundsText(w, v)
	case []CLIManifest:
		formatManifestsText(w, v)
	case []CLIComponent:
		formatComponentsText(w, v)
	case []CLIBinding:
		formatBindingsText(w, v)
	case []CLIDependency:
		formatDependenciesText(w, v)
	case []CLIStrategy:
		formatStrategiesText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLIChange:
		formatChangesText(w, v)
	case CLIDependencyGraph:
		formatGraphText(w, v)
	case CLIResolveSummary:
		formatResolveText(w, v)
	case nil:
		// No output for nil results (e.g. a transitive query on an unknown binding).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIRound:
		return len(r)
	case []CLIManifest:
		return len(r)
	case []CLIComponent:
		return len(r)
	case []CLIBinding:
		return len(r)
	case []CLIDependency:
		return len(r)
	case []CLIStrategy:
		return len(r)
	case []CLIDiagnostic:
		return len(r)
	case []CLIChange:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
