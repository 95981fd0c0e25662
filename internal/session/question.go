package session

import (
	"fmt"

	"github.com/examind/proctor/internal/model"
)

// QuestionKey derives the stable identifier used for answers, marks and
// the visited set. Questions carry a server-assigned ID when one exists;
// otherwise the key falls back to the question's position. The same
// question/position pairing always yields the same key, so keys survive
// a reload as long as the test definition itself is unchanged.
func QuestionKey(q model.Question, index int) string {
	if q.ID != "" {
		return q.ID
	}
	return fmt.Sprintf("q-%d", index)
}

// selectOption applies one option pick to the current selection for a
// question. Single-arity questions replace the selection; multi-arity
// questions toggle the option in or out of the set. Order of first
// selection is preserved for multi.
func selectOption(current []string, option string, arity model.SelectionArity) []string {
	if arity != model.ArityMulti {
		return []string{option}
	}
	for i, o := range current {
		if o == option {
			return append(append([]string{}, current[:i]...), current[i+1:]...)
		}
	}
	out := make([]string, 0, len(current)+1)
	out = append(out, current...)
	return append(out, option)
}
