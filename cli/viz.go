// ABOUTME: Visualization CLI commands
// ABOUTME: Prints the pipeline graph as DOT or SVG and the text dashboard
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/viz"
)

// VizCommand renders the pipeline. Formats: dashboard (default), dot, svg.
func VizCommand(ctx context.Context, sess *listview.Session, logger *log.Logger, out io.Writer, args []string) error {
	fs := newFlagSet("viz", out)
	format := fs.StringP("format", "f", "dashboard", "Output format: dashboard, dot, or svg")
	output := fs.StringP("output", "o", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var data []byte
	switch *format {
	case "dashboard":
		stats := viz.GenerateDashboardStats(sess.List().Records(), sess.Catalog().Labels(), time.Now())
		data = []byte(viz.RenderDashboard(stats))
	case "dot", "svg":
		gvFormat := graphviz.XDOT
		if *format == "svg" {
			gvFormat = graphviz.SVG
		}
		generator := viz.NewGraphGenerator(sess.Catalog().Labels(), logger)
		graph, err := generator.GeneratePipelineGraph(ctx, sess.List().Records(), gvFormat)
		if err != nil {
			return fmt.Errorf("failed to generate graph: %w", err)
		}
		data = graph
	default:
		return fmt.Errorf("unknown format %q (want dashboard, dot, or svg)", *format)
	}

	if *output != "" {
		if err := os.WriteFile(*output, data, 0644); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "✓ Wrote %s\n", *output)
		return nil
	}

	_, err := out.Write(data)
	return err
}
