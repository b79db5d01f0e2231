// ABOUTME: Graphviz rendering of the prospect pipeline
// ABOUTME: Status stages form a chain; each live prospect hangs off its current stage
package viz

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/prospekt/models"
)

// GraphGenerator renders prospects grouped by status.
type GraphGenerator struct {
	labels []string
	logger *log.Logger
}

// NewGraphGenerator orders stages by labels; statuses outside labels follow in first-seen order.
func NewGraphGenerator(labels []string, logger *log.Logger) *GraphGenerator {
	if logger == nil {
		logger = log.Default()
	}
	return &GraphGenerator{labels: slices.Clone(labels), logger: logger.WithPrefix("viz")}
}

// GeneratePipelineGraph renders records in the given format (graphviz.XDOT for DOT source).
// Archived records are left out.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context, records []models.Prospect, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			g.logger.Warn("closing graphviz", "err", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			g.logger.Warn("closing graph", "err", err)
		}
	}()

	graph.SetLabel("Prospect Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	stages := g.stages(records)
	stageNodes := make(map[string]*cgraph.Node, len(stages))
	var prev *cgraph.Node
	for i, stage := range stages {
		node, err := graph.CreateNodeByName(fmt.Sprintf("stage_%d", i))
		if err != nil {
			return nil, fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(stageLabel(stage))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor("lightblue")
		stageNodes[stage] = node

		if prev != nil {
			edge, err := graph.CreateEdgeByName(fmt.Sprintf("flow_%d", i), prev, node)
			if err != nil {
				return nil, fmt.Errorf("failed to create flow edge: %w", err)
			}
			edge.SetStyle("dashed")
		}
		prev = node
	}

	for _, p := range records {
		if p.Archived {
			continue
		}
		node, err := graph.CreateNodeByName("prospect_" + p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create prospect node: %w", err)
		}
		label := p.Company
		if p.ContactPerson != "" {
			label += "\n" + p.ContactPerson
		}
		node.SetLabel(label)
		node.SetShape("ellipse")
		node.SetStyle("filled")
		node.SetFillColor("lightgreen")

		edge, err := graph.CreateEdgeByName("in_"+p.ID, node, stageNodes[p.Status])
		if err != nil {
			return nil, fmt.Errorf("failed to create status edge: %w", err)
		}
		edge.SetDir("none")
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.Bytes(), nil
}

// stages returns the known labels followed by any other status carried by a live record.
func (g *GraphGenerator) stages(records []models.Prospect) []string {
	stages := slices.Clone(g.labels)
	for _, p := range records {
		if !p.Archived && !slices.Contains(stages, p.Status) {
			stages = append(stages, p.Status)
		}
	}
	return stages
}

func stageLabel(stage string) string {
	if stage == "" {
		return "(no status)"
	}
	return stage
}
