package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
)

func TestGetVisualizationJSON(t *testing.T) {
	f := newEngineFixture(t)

	graph, err := f.engine.GetVisualization(context.Background(), "")
	if err != nil {
		t.Fatalf("GetVisualization failed: %v", err)
	}
	if graph.Format != VizFormatJSON {
		t.Errorf("format = %s, want json", graph.Format)
	}
	if len(graph.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(graph.Nodes))
	}
	// 按 sequence 排序
	if graph.Nodes[0].Code != "DRAFT" || graph.Nodes[2].Code != "APPROVED" {
		t.Errorf("nodes out of order: %v, %v", graph.Nodes[0].Code, graph.Nodes[2].Code)
	}
	// APPROVED 无后继，应标记为终态
	if !graph.Nodes[2].IsTerminal {
		t.Error("APPROVED must be terminal")
	}
	if graph.Nodes[0].IsTerminal {
		t.Error("DRAFT must not be terminal")
	}
	if len(graph.Edges) != 3 {
		t.Errorf("edges = %d, want 3", len(graph.Edges))
	}
	if graph.Text != "" {
		t.Error("json format must not carry rendered text")
	}
}

func TestGetVisualizationFlagsDuplicateEdges(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	// 与 tr-reject 相同 (from,to,action) 的重复边
	f.transitions.Create(ctx, &entity.WorkflowTransition{
		ID: "tr-reject-dup", FromStageID: "st-review", ToStageID: "st-draft",
		Action: entity.StageActionReject,
	})

	graph, err := f.engine.GetVisualization(ctx, VizFormatJSON)
	if err != nil {
		t.Fatalf("GetVisualization failed: %v", err)
	}
	var first, dup *VizEdge
	for i := range graph.Edges {
		switch graph.Edges[i].ID {
		case "tr-reject":
			first = &graph.Edges[i]
		case "tr-reject-dup":
			dup = &graph.Edges[i]
		}
	}
	if first == nil || dup == nil {
		t.Fatal("both edges must be present")
	}
	if first.Duplicate {
		t.Error("first edge must not be flagged duplicate")
	}
	if !dup.Duplicate {
		t.Error("second identical edge must be flagged duplicate")
	}
}

func TestGetVisualizationMermaid(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.stages.Create(ctx, stageFixture("st-archived", "ARCHIVED", 4,
		[]string{entity.StageActionComplete}, nil, nil))
	f.transitions.Create(ctx, &entity.WorkflowTransition{
		ID: "tr-auto", FromStageID: "st-approved", ToStageID: "st-archived", AutoTransition: true,
	})

	graph, err := f.engine.GetVisualization(ctx, VizFormatMermaid)
	if err != nil {
		t.Fatalf("GetVisualization failed: %v", err)
	}
	if !strings.HasPrefix(graph.Text, "stateDiagram-v2") {
		t.Errorf("unexpected mermaid header: %q", graph.Text)
	}
	if !strings.Contains(graph.Text, "DRAFT --> REVIEW: submit") {
		t.Errorf("missing submit edge:\n%s", graph.Text)
	}
	if !strings.Contains(graph.Text, "APPROVED --> ARCHIVED: (auto)") {
		t.Errorf("auto edge must be labelled:\n%s", graph.Text)
	}
}

func TestGetVisualizationGraphviz(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.stages.Create(ctx, stageFixture("st-archived", "ARCHIVED", 4,
		[]string{entity.StageActionComplete}, nil, nil))
	f.transitions.Create(ctx, &entity.WorkflowTransition{
		ID: "tr-auto", FromStageID: "st-approved", ToStageID: "st-archived", AutoTransition: true,
	})

	graph, err := f.engine.GetVisualization(ctx, VizFormatGraphviz)
	if err != nil {
		t.Fatalf("GetVisualization failed: %v", err)
	}
	if !strings.HasPrefix(graph.Text, "digraph workflow {") {
		t.Errorf("unexpected graphviz header: %q", graph.Text)
	}
	if !strings.Contains(graph.Text, "shape=doublecircle") {
		t.Error("terminal stages must render as doublecircle")
	}
	if !strings.Contains(graph.Text, "style=dashed") {
		t.Error("auto edges must render dashed")
	}
}

func TestGetVisualizationRejectsUnknownFormat(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.GetVisualization(context.Background(), "svg")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}
