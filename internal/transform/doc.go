// Package transform implements the line rewrite passes applied to C sources
// before they reach the verification tools.
//
// Every pass is a Transform: it reads one file line by line and writes exactly
// one output line per input line, either rewritten or verbatim. Matching is
// shallow on purpose. A pattern only ever looks at a single physical line, so
// constructs split across lines are left alone.
package transform
