package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/pipeline-builder/pkg/analysis/api"
	"github.com/ritzau/pipeline-builder/pkg/analysis/remote"
	"github.com/ritzau/pipeline-builder/pkg/cycles"
)

// Verdict is the one-line conclusion of an analysis
func Verdict(res *api.Result) string {
	if res.IsDAG {
		return "Your pipeline is valid! It forms a proper DAG with no cycles."
	}
	return "Warning: Your pipeline contains cycles and is not a valid DAG."
}

// AnalysisMessage is the plain-text summary shown to the user after a submission
func AnalysisMessage(res *api.Result) string {
	var b strings.Builder
	b.WriteString("Pipeline Analysis Results:\n\n")
	fmt.Fprintf(&b, "Number of Nodes: %d\n", res.NumNodes)
	fmt.Fprintf(&b, "Number of Edges: %d\n", res.NumEdges)
	fmt.Fprintf(&b, "Is DAG (Directed Acyclic Graph): %s\n\n", yesNo(res.IsDAG))
	b.WriteString(Verdict(res))
	return b.String()
}

// SubmitErrorMessage is the plain-text notice for a failed submission
func SubmitErrorMessage(endpoint string, err error) string {
	msg := fmt.Sprintf("Error submitting pipeline: %v", err)

	var serr *remote.StatusError
	switch {
	case errors.As(err, &serr):
		// The service answered; no advice needed
	case errors.Is(err, remote.ErrUnreachable), errors.Is(err, remote.ErrEmptyEndpoint):
		msg += fmt.Sprintf("\n\nMake sure the analysis service is running on %s", endpoint)
	}
	return msg
}

// PrintAnalysisReport prints a coloured report of an analysis.
// found lists cycle members when the caller computed them; it may be nil.
func PrintAnalysisReport(w io.Writer, analyzer string, res *api.Result, found []cycles.Cycle) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Pipeline Analysis Results")
	bold.Fprintln(w, "=========================")
	fmt.Fprintf(w, "Analyzer: %s\n", analyzer)
	fmt.Fprintf(w, "Nodes: %d\n", res.NumNodes)
	fmt.Fprintf(w, "Edges: %d\n", res.NumEdges)

	if res.IsDAG {
		green.Fprintf(w, "Is DAG: %s\n", yesNo(true))
	} else {
		red.Fprintf(w, "Is DAG: %s\n", yesNo(false))
	}
	fmt.Fprintln(w)

	if len(found) > 0 {
		red.Fprintln(w, "CYCLES:")
		for _, c := range found {
			yellow.Fprintf(w, "  %s\n", strings.Join(c.Nodes, " -> "))
		}
		cyan.Fprintln(w, "  Remove one edge from each cycle to make the pipeline runnable")
		fmt.Fprintln(w)
	}

	if res.IsDAG {
		green.Fprintf(w, "✓ %s\n", Verdict(res))
	} else {
		yellow.Fprintf(w, "⚠ %s\n", Verdict(res))
	}
}

// PrintSubmitError prints a failed submission
func PrintSubmitError(w io.Writer, endpoint string, err error) {
	color.New(color.FgRed).Fprintln(w, SubmitErrorMessage(endpoint, err))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
