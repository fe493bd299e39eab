// -----------------------------------------------------------------------
// Parenthetical boundary test - citations inside "(quoting X v. Y, ...)"
// must never join the outer case's cluster
// -----------------------------------------------------------------------

package cluster

import "github.com/ternarybob/shepard/internal/models"

// parenSeparated walks the characters strictly between two spans with a
// paren-depth counter. The citations are separated when the depth ever
// goes negative (the walk left an enclosing parenthetical), when the final
// depth is nonzero (it entered one and stayed), or when a complete nested
// parenthetical was crossed.
func parenSeparated(text string, a, b models.Span) bool {
	lo, hi := a.End, b.Start
	if b.Start < a.Start {
		lo, hi = b.End, a.Start
	}
	if lo >= hi {
		return false
	}

	depth := 0
	crossedNested := false
	for i := lo; i < hi; i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return true
			}
			if depth == 0 {
				crossedNested = true
			}
		}
	}
	return depth != 0 || crossedNested
}
