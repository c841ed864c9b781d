package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/vango-dev/vstore/pkg/tree"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	dim     = color.New(color.FgHiBlack).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
)

// Print writes a human-readable report to w.
func Print(w io.Writer, r *Report) {
	fmt.Fprintf(w, "%s %s %s\n", bold("scenario"), cyan(r.Name),
		dim(fmt.Sprintf("(%d bindings, %d steps)", len(r.Bindings), len(r.Steps))))
	for _, e := range r.Mount {
		printEvent(w, e)
	}

	for _, s := range r.Steps {
		fmt.Fprintf(w, "\n%s %s %s\n", bold(fmt.Sprintf("step %d", s.Index+1)), s.Step, dim(fmt.Sprintf("v%d", s.Version)))
		if s.Err != nil {
			fmt.Fprintf(w, "  %s %s\n", red("✗"), s.Err)
			continue
		}
		if len(s.Events) == 0 {
			fmt.Fprintf(w, "  %s\n", dim("no binding rendered"))
		}
		for _, e := range s.Events {
			printEvent(w, e)
		}
	}

	fmt.Fprintf(w, "\n%s", bold("renders"))
	for _, b := range r.Bindings {
		fmt.Fprintf(w, " %s=%d", b.Name, r.Renders[b.Name])
	}
	fmt.Fprintln(w)
	if len(r.Pending) > 0 {
		p := append([]string(nil), r.Pending...)
		sort.Strings(p)
		fmt.Fprintf(w, "%s %s\n", yellow("still pending:"), strings.Join(p, ", "))
	}
}

func printEvent(w io.Writer, e Event) {
	var mark string
	switch e.Kind {
	case EventMount:
		mark = dim("•")
	case EventPending:
		mark = yellow("…")
	case EventReady:
		mark = magenta("✓")
	default:
		mark = green("✓")
	}
	fmt.Fprintf(w, "  %s %-8s %-12s %-7s %s %s\n",
		mark, e.Binding, dim(e.Protocol), string(e.Kind), dim(fmt.Sprintf("v%d", e.Version)), values(e.Values))
}

func values(vs []Value) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.Path+"="+compact(v.Node))
	}
	return strings.Join(parts, " ")
}

func compact(n *tree.Node) string {
	b, err := json.Marshal(n)
	if err != nil {
		return n.Kind().String()
	}
	return string(b)
}
