package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/TFMV/parity/pkg/engine"
	"github.com/TFMV/parity/pkg/errors"
	"github.com/TFMV/parity/pkg/plan"
)

// explainNode mirrors the shape of DuckDB's EXPLAIN (FORMAT json) output.
// Fields beyond the operator name and the child list are ignored.
type explainNode struct {
	Name     string        `json:"name"`
	Children []explainNode `json:"children"`
}

// capturePlan asks DuckDB for the physical plan it chose and tags every
// operator accelerated or reference. Tagging happens here, at the engine
// boundary, before the tree is handed out.
func (e *Engine) capturePlan(ctx context.Context, conn *sql.Conn, query string, cfg *engine.Config) (*plan.Node, error) {
	rows, err := conn.QueryContext(ctx, "EXPLAIN (FORMAT json) "+query)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodePlanCaptureFailed, "explain %q", query)
	}
	defer rows.Close()

	var payload string
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, errors.CodePlanCaptureFailed, "scan explain output")
		}
		if key == "physical_plan" {
			payload = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodePlanCaptureFailed, "read explain output")
	}
	if payload == "" {
		return nil, errors.Newf(errors.CodePlanCaptureFailed, "no physical plan for %q", query)
	}

	root, err := parsePhysicalPlan(payload, cfg, e.accelerated)
	if err != nil {
		return nil, err
	}
	e.logger.Trace().Str("plan", plan.Render(root)).Msg("plan captured")
	return root, nil
}

// parsePhysicalPlan decodes the EXPLAIN payload into a tagged plan tree. The
// payload is either a single root object or an array of roots; multiple roots
// are joined under a synthetic RESULT_COLLECTOR.
func parsePhysicalPlan(payload string, cfg *engine.Config, accelerated map[string]struct{}) (*plan.Node, error) {
	var roots []explainNode
	if err := json.Unmarshal([]byte(payload), &roots); err != nil {
		var single explainNode
		if err2 := json.Unmarshal([]byte(payload), &single); err2 != nil {
			return nil, errors.Wrap(err, errors.CodePlanCaptureFailed, "decode physical plan")
		}
		roots = []explainNode{single}
	}

	switch len(roots) {
	case 0:
		return nil, errors.New(errors.CodePlanCaptureFailed, "empty physical plan")
	case 1:
		return buildNode(roots[0], cfg, accelerated), nil
	default:
		children := make([]*plan.Node, len(roots))
		for i, r := range roots {
			children[i] = buildNode(r, cfg, accelerated)
		}
		name := "RESULT_COLLECTOR"
		return plan.NewNode(name, isAccelerated(name, cfg, accelerated), children...), nil
	}
}

func buildNode(n explainNode, cfg *engine.Config, accelerated map[string]struct{}) *plan.Node {
	name := canonicalName(n.Name)
	children := make([]*plan.Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = buildNode(c, cfg, accelerated)
	}
	return plan.NewNode(name, isAccelerated(name, cfg, accelerated), children...)
}

// isAccelerated is the classification rule: the run must have acceleration
// enabled, the operator must be in the coverage table, and it must not be in
// the forced-disable set.
func isAccelerated(name string, cfg *engine.Config, accelerated map[string]struct{}) bool {
	if cfg == nil || !cfg.Acceleration {
		return false
	}
	if cfg.Disabled(name) {
		return false
	}
	_, ok := accelerated[name]
	return ok
}

// canonicalName normalizes DuckDB's operator spelling. The ascii renderer
// pads names with spaces and some versions use spaces instead of underscores.
func canonicalName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "_")
}
