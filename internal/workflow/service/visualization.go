package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// 可视化导出格式
const (
	VizFormatJSON     = "json"
	VizFormatMermaid  = "mermaid"
	VizFormatGraphviz = "graphviz"
)

// VizNode 可视化节点
type VizNode struct {
	ID             string   `json:"id"`
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Sequence       int      `json:"sequence"`
	AllowedActions []string `json:"allowed_actions"`
	IsActive       bool     `json:"is_active"`
	IsTerminal     bool     `json:"is_terminal"`
}

// VizEdge 可视化边
type VizEdge struct {
	ID             string `json:"id"`
	FromCode       string `json:"from_code"`
	ToCode         string `json:"to_code"`
	Action         string `json:"action"`
	AutoTransition bool   `json:"auto_transition"`
	Duplicate      bool   `json:"duplicate"` // 同 (from,to,action) 的后续重复边
}

// VizGraph 阶段/迁移图（纯数据变换，无状态）
type VizGraph struct {
	Format string    `json:"format"`
	Nodes  []VizNode `json:"nodes"`
	Edges  []VizEdge `json:"edges"`
	Text   string    `json:"text,omitempty"` // mermaid/graphviz 文本
}

// GetVisualization 导出阶段/迁移图
func (s *WorkflowService) GetVisualization(ctx context.Context, format string) (*VizGraph, error) {
	switch format {
	case "", VizFormatJSON:
		format = VizFormatJSON
	case VizFormatMermaid, VizFormatGraphviz:
	default:
		return nil, NewValidationError("format", "must be one of json/mermaid/graphviz")
	}

	stages, err := s.stages.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询阶段失败: %w", err)
	}
	transitions, err := s.transitions.Find(ctx, TransitionFilter{})
	if err != nil {
		return nil, fmt.Errorf("查询迁移规则失败: %w", err)
	}

	sort.Slice(stages, func(i, j int) bool { return stages[i].Sequence < stages[j].Sequence })

	codeByID := map[string]string{}
	graph := &VizGraph{Format: format}
	for _, st := range stages {
		codeByID[st.ID] = st.Code
		graph.Nodes = append(graph.Nodes, VizNode{
			ID:             st.ID,
			Code:           st.Code,
			Name:           st.Name,
			Sequence:       st.Sequence,
			AllowedActions: st.AllowedActions,
			IsActive:       st.IsActive,
			IsTerminal:     st.IsTerminal(),
		})
	}

	seen := map[string]bool{}
	for _, t := range transitions {
		key := t.FromStageID + "|" + t.ToStageID + "|" + t.Action
		graph.Edges = append(graph.Edges, VizEdge{
			ID:             t.ID,
			FromCode:       codeByID[t.FromStageID],
			ToCode:         codeByID[t.ToStageID],
			Action:         t.Action,
			AutoTransition: t.AutoTransition,
			Duplicate:      seen[key],
		})
		seen[key] = true
	}

	switch format {
	case VizFormatMermaid:
		graph.Text = renderMermaid(graph)
	case VizFormatGraphviz:
		graph.Text = renderGraphviz(graph)
	}
	return graph, nil
}

func renderMermaid(g *VizGraph) string {
	var b strings.Builder
	b.WriteString("stateDiagram-v2\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "    %s: %s\n", n.Code, n.Name)
	}
	for _, e := range g.Edges {
		label := e.Action
		if e.AutoTransition {
			label += " (auto)"
		}
		fmt.Fprintf(&b, "    %s --> %s: %s\n", e.FromCode, e.ToCode, strings.TrimSpace(label))
	}
	return b.String()
}

func renderGraphviz(g *VizGraph) string {
	var b strings.Builder
	b.WriteString("digraph workflow {\n    rankdir=LR;\n")
	for _, n := range g.Nodes {
		shape := "box"
		if n.IsTerminal {
			shape = "doublecircle"
		}
		fmt.Fprintf(&b, "    %s [label=\"%s\\n%s\" shape=%s];\n", n.Code, n.Code, n.Name, shape)
	}
	for _, e := range g.Edges {
		style := ""
		if e.AutoTransition {
			style = " style=dashed"
		}
		fmt.Fprintf(&b, "    %s -> %s [label=\"%s\"%s];\n", e.FromCode, e.ToCode, e.Action, style)
	}
	b.WriteString("}\n")
	return b.String()
}
