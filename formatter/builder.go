package formatter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	tt "github.com/gnolang/vprep/internal/types"
)

const tabWidth = 8

var (
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	removedStyle = color.New(color.FgRed)
	addedStyle   = color.New(color.FgGreen)
	summaryStyle = color.New(color.FgGreen, color.Bold)
	noStyle      = color.New(color.FgWhite)
)

// GenerateChangeReport renders every rewritten line of result as a block
// showing the line before and after the transform that changed it.
func GenerateChangeReport(result *tt.Result) string {
	if !result.Changed() {
		return ""
	}

	maxLineNumWidth := 0
	for _, c := range result.Changes {
		maxLineNumWidth = max(maxLineNumWidth, len(fmt.Sprintf("%d", c.Line)))
	}
	padding := strings.Repeat(" ", maxLineNumWidth+1)

	var builder strings.Builder
	for _, c := range result.Changes {
		builder.WriteString(header(c.Transform, result.Input, c.Line, maxLineNumWidth))
		builder.WriteString(lineStyle.Sprintf("%s|\n", padding))

		lineNum := fmt.Sprintf("%*d", maxLineNumWidth, c.Line)
		builder.WriteString(lineStyle.Sprintf("%s ", lineNum))
		builder.WriteString(removedStyle.Sprintf("- %s\n", expandTabs(c.Before)))
		builder.WriteString(lineStyle.Sprintf("%s ", lineNum))
		builder.WriteString(addedStyle.Sprintf("+ %s\n", expandTabs(c.After)))

		builder.WriteString(lineStyle.Sprintf("%s|\n\n", padding))
	}
	return builder.String()
}

func header(transform, filename string, line, maxLineNumWidth int) string {
	var s string
	s = ruleStyle.Sprint("rewrite: ") + noStyle.Sprintf("%s\n", transform)
	s += lineStyle.Sprintf("%s--> ", strings.Repeat(" ", maxLineNumWidth))
	s += fileStyle.Sprintf("%s:%d\n", filename, line)
	return s
}

// GenerateSummary renders a one-line summary of a whole run.
func GenerateSummary(results []*tt.Result) string {
	var files, changed, lines, cached int
	for _, r := range results {
		if r == nil {
			continue
		}
		files++
		lines += len(r.Changes)
		if r.Changed() {
			changed++
		}
		if r.Cached {
			cached++
		}
	}

	s := fmt.Sprintf("preprocessed %d %s, rewrote %d %s in %d %s",
		files, plural(files, "file"), lines, plural(lines, "line"), changed, plural(changed, "file"))
	if cached > 0 {
		s += fmt.Sprintf(" (%d from cache)", cached)
	}
	return summaryStyle.Sprint(s)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func expandTabs(line string) string {
	var expanded strings.Builder
	column := 0
	for _, ch := range line {
		if ch == '\t' {
			spaceCount := tabWidth - (column % tabWidth)
			expanded.WriteString(strings.Repeat(" ", spaceCount))
			column += spaceCount
		} else {
			expanded.WriteRune(ch)
			column++
		}
	}
	return expanded.String()
}
