package transform

import "regexp"

// KeywordStripper comments out a leading inline or __inline keyword, which
// some compiler front-ends reject on declarations they otherwise accept.
//
//	  inline int foo(void) {   =>   /*inline */ int foo(void) {
type KeywordStripper struct {
	pattern        *regexp.Regexp
	preserveIndent bool
}

// NewKeywordStripper returns a stripper; preserveIndent keeps the leading
// whitespace of rewritten lines.
func NewKeywordStripper(preserveIndent bool) *KeywordStripper {
	return &KeywordStripper{
		pattern:        regexp.MustCompile(`^(\s*)(__inline|inline)\s+(.*)\n?$`),
		preserveIndent: preserveIndent,
	}
}

func (k *KeywordStripper) Run(inputPath, outputPath string) error {
	return rewriteLines(inputPath, outputPath, k.rewrite)
}

// rewrite drops the leading whitespace unless preserveIndent is set. The
// separating whitespace may be the line terminator itself, so a keyword alone
// on its line is rewritten too.
func (k *KeywordStripper) rewrite(_ int, line string) (string, bool) {
	m := k.pattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	indent := ""
	if k.preserveIndent {
		indent = m[1]
	}
	return indent + "/*" + m[2] + " */ " + m[3] + "\n", true
}
