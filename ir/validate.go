package ir

import (
	"fmt"
	"strings"
)

// VerifyError reports structural problems found by Verify.
type VerifyError struct {
	Module   string
	Problems []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("module %s is broken: %s", e.Module, strings.Join(e.Problems, "; "))
}

// Verify checks the module for structural validity: linkage values,
// declaration/definition consistency, and symbol resolution of every
// materialized body. Deferred bodies are not decoded; their references are
// checked once materialized.
func Verify(m *Module) error {
	var problems []string

	seen := map[string]bool{}
	for _, g := range m.Globals {
		if g.Name == "" {
			problems = append(problems, "global with empty name")
			continue
		}
		if seen[g.Name] {
			problems = append(problems, fmt.Sprintf("duplicate global %s", g.Name))
		}
		seen[g.Name] = true

		if !g.Linkage.Valid() {
			problems = append(problems, fmt.Sprintf("global %s: invalid linkage", g.Name))
		}
		if g.IsDeclaration() && g.Linkage.IsLocal() {
			problems = append(problems, fmt.Sprintf("global %s: declaration cannot be internal", g.Name))
		}
		if g.IsDeclaration() && g.Body != nil {
			problems = append(problems, fmt.Sprintf("global %s: declaration with body", g.Name))
		}

		if !g.Materialized() || g.Body == nil {
			continue
		}
		for _, in := range g.Body.Instrs {
			switch in.Op {
			case OpConst, OpRet:
			case OpRef, OpCall:
				target := m.Global(in.Sym)
				if target == nil {
					problems = append(problems, fmt.Sprintf("global %s: unresolved reference %s", g.Name, in.Sym))
					continue
				}
				if in.Op == OpCall && target.Kind != KindFunc {
					problems = append(problems, fmt.Sprintf("global %s: call target %s is not a function", g.Name, in.Sym))
				}
				if in.Op == OpRef && target.Kind != KindVar {
					problems = append(problems, fmt.Sprintf("global %s: ref target %s is not a variable", g.Name, in.Sym))
				}
			default:
				problems = append(problems, fmt.Sprintf("global %s: unknown opcode %d", g.Name, in.Op))
			}
		}
	}

	for key := range m.Meta {
		if key == "" {
			problems = append(problems, "empty metadata key")
		}
	}

	if len(problems) > 0 {
		return &VerifyError{Module: m.Name, Problems: problems}
	}
	return nil
}
