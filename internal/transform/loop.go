package transform

import (
	"regexp"
	"strconv"
)

// UnboundedLoopBounder replaces constant-true loop guards with a volatile
// variable so tools see a real condition instead of a literal:
//
//	while (1) {   =>   volatile _Bool inf_true7 = 1; while(inf_true7) {
//
// The suffix is the 0-based line index in the file being rewritten, which keeps
// the generated names unique within one output file.
type UnboundedLoopBounder struct {
	headers []*regexp.Regexp
}

// NewUnboundedLoopBounder returns a bounder for while(1), while(true) and
// while(TRUE) headers.
func NewUnboundedLoopBounder() *UnboundedLoopBounder {
	return &UnboundedLoopBounder{
		headers: []*regexp.Regexp{
			regexp.MustCompile(`^(\s*)while\s*\(\s*1\s*\)(.*)\n?$`),
			regexp.MustCompile(`^(\s*)while\s*\(\s*true\s*\)(.*)\n?$`),
			regexp.MustCompile(`^(\s*)while\s*\(\s*TRUE\s*\)(.*)\n?$`),
		},
	}
}

// Run numbers lines from zero on every call, so repeated runs over the same
// input produce identical names.
func (u *UnboundedLoopBounder) Run(inputPath, outputPath string) error {
	return rewriteLines(inputPath, outputPath, u.rewrite)
}

func (u *UnboundedLoopBounder) rewrite(index int, line string) (string, bool) {
	for _, re := range u.headers {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		guard := "inf_true" + strconv.Itoa(index)
		return m[1] + "volatile _Bool " + guard + " = 1; while(" + guard + ")" + m[2] + "\n", true
	}
	return "", false
}
