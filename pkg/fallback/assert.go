// Package fallback asserts that an accelerated run's physical plan matches the
// expected partition of accelerated and reference-path operators.
package fallback

import (
	"sort"
	"strings"

	"github.com/TFMV/parity/pkg/errors"
	"github.com/TFMV/parity/pkg/plan"
)

// AssertFallback checks that every reference-path operator in the plan is in
// the allowed set. An empty allowed set means the plan must be 100%
// accelerated. On failure the returned error carries the full annotated plan
// dump so the unexpected operator is visible at a glance.
func AssertFallback(root *plan.Node, allowed []string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}

	c := plan.Classify(root)
	var extra []string
	for _, name := range c.ReferenceNames() {
		if _, ok := allowedSet[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)

	return errors.Newf(errors.CodeFallbackViolation,
		"operators unexpectedly on the reference path: %s", strings.Join(extra, ", ")).
		WithDetail("extra_operators", extra).
		WithDetail("allowed_operators", allowed).
		WithDetail("plan", plan.Render(root))
}

// AssertNoUnexpectedAcceleration checks that the named operator was forced off
// the accelerated path. It guards scenarios exercising a deliberately
// unsupported type: silently running accelerated with wrong semantics is worse
// than falling back.
func AssertNoUnexpectedAcceleration(root *plan.Node, operator string) error {
	c := plan.Classify(root)
	for _, name := range c.ReferenceNames() {
		if name == operator {
			return nil
		}
	}

	return errors.Newf(errors.CodeUnexpectedAcceleration,
		"operator %s expected on the reference path but ran accelerated", operator).
		WithDetail("operator", operator).
		WithDetail("plan", plan.Render(root))
}
