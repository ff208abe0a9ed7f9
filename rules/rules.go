// Package rules evaluates configured business-rule boosts written in CEL.
//
// Each rule pairs a boolean expression with an additive boost. Expressions see
// two variables:
//
//	candidate  map with text, kind, rating, location, featured, plan,
//	           priority, promo, member_id and distance_km (-1 when unknown)
//	query      map with text, intent and city
//
// Example:
//
//	candidate.kind == "member" && candidate.rating > 4.8
package rules

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/poiesic/suggestit/core"
)

// ErrNotBoolean is returned when a rule expression does not yield a bool.
var ErrNotBoolean = errors.New("rule expression must return bool")

// Rule is one configured boost.
type Rule struct {
	Name  string  `yaml:"name" json:"name"`
	Expr  string  `yaml:"expr" json:"expr"`
	Boost float64 `yaml:"boost" json:"boost"`
}

// Input is what a rule can observe about one candidate.
type Input struct {
	Candidate  *core.Candidate
	DistanceKm *float64
	Query      string
	Intent     string
	City       string
}

type compiled struct {
	rule    Rule
	program cel.Program
}

// Engine holds compiled rules. It is safe for concurrent use.
type Engine struct {
	rules  []compiled
	logger *slog.Logger
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("candidate", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("query", cel.MapType(cel.StringType, cel.StringType)),
	)
}

// Compile type-checks every rule. A rule without a name is named after its
// position.
func Compile(rules []Rule, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	e := &Engine{logger: logger.With("component", "rules")}
	for i, r := range rules {
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule_%d", i)
		}
		ast, issues := env.Compile(r.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %s: %w, got %s", r.Name, ErrNotBoolean, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		e.rules = append(e.rules, compiled{rule: r, program: prg})
	}
	return e, nil
}

// Len returns the number of compiled rules.
func (e *Engine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Apply sums the boosts of every rule that holds for in and reports each
// fired rule by name. A rule that fails to evaluate does not fire.
func (e *Engine) Apply(in Input) (float64, map[string]float64) {
	if e.Len() == 0 {
		return 0, nil
	}

	activation := map[string]any{
		"candidate": candidateVars(in),
		"query": map[string]string{
			"text":   in.Query,
			"intent": in.Intent,
			"city":   in.City,
		},
	}

	var total float64
	var fired map[string]float64
	for _, c := range e.rules {
		out, _, err := c.program.Eval(activation)
		if err != nil {
			e.logger.Debug("rule evaluation failed", "rule", c.rule.Name, "err", err)
			continue
		}
		if ok, _ := out.Value().(bool); !ok {
			continue
		}
		if fired == nil {
			fired = make(map[string]float64)
		}
		fired[c.rule.Name] = c.rule.Boost
		total += c.rule.Boost
	}
	return total, fired
}

func candidateVars(in Input) map[string]any {
	c := in.Candidate
	vars := map[string]any{
		"text":        c.Text,
		"kind":        string(c.Kind),
		"rating":      c.Rating,
		"location":    c.Location,
		"featured":    false,
		"plan":        "",
		"priority":    0.0,
		"promo":       "",
		"member_id":   "",
		"distance_km": -1.0,
	}
	if in.DistanceKm != nil {
		vars["distance_km"] = *in.DistanceKm
	}
	if m := c.Member; m != nil {
		vars["featured"] = m.Featured
		vars["plan"] = string(m.Plan)
		vars["priority"] = m.PriorityScore
		vars["promo"] = m.PromoBadge
		vars["member_id"] = m.MemberID
	}
	return vars
}
