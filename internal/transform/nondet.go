package transform

import "regexp"

// NondeterminismNormalizer turns branches and loops guarded by an integer
// nondeterministic value into the boolean form the analysis expects:
//
//	if (__VERIFIER_nondet_int()) x = 1;   =>   if (__VERIFIER_nondet__Bool()) x = 1;
//
// Nothing but the guard is touched. In particular no comment is inserted on the
// line, since witness validation matches findings by line and column.
type NondeterminismNormalizer struct {
	guards []keywordPattern
}

type keywordPattern struct {
	keyword string
	pattern *regexp.Regexp
}

// NewNondeterminismNormalizer returns a normalizer for if and while guards.
func NewNondeterminismNormalizer() *NondeterminismNormalizer {
	return &NondeterminismNormalizer{
		guards: []keywordPattern{
			{"if", regexp.MustCompile(`^(\s*)if\s*\(\s*__VERIFIER_nondet_(?:int|uint)\(\s*\)\s*\)(.*)\n?$`)},
			{"while", regexp.MustCompile(`^(\s*)while\s*\(\s*__VERIFIER_nondet_(?:int|uint)\(\s*\)\s*\)(.*)\n?$`)},
		},
	}
}

func (n *NondeterminismNormalizer) Run(inputPath, outputPath string) error {
	return rewriteLines(inputPath, outputPath, n.rewrite)
}

func (n *NondeterminismNormalizer) rewrite(_ int, line string) (string, bool) {
	for _, g := range n.guards {
		if m := g.pattern.FindStringSubmatch(line); m != nil {
			return m[1] + g.keyword + " (__VERIFIER_nondet__Bool())" + m[2] + "\n", true
		}
	}
	return "", false
}
