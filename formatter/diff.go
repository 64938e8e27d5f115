package formatter

import (
	"github.com/pmezard/go-difflib/difflib"
)

const diffContext = 3

// UnifiedDiff renders the difference between the original and preprocessed
// content of name. It returns an empty string when both are identical.
func UnifiedDiff(name string, before, after []byte) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  diffContext,
	}
	return difflib.GetUnifiedDiffString(diff)
}
