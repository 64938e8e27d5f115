package transform

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownTransform = errors.New("unknown transform")

// Options carries the settings a transform may need at construction time.
type Options struct {
	// PreserveInlineIndent keeps the leading whitespace of lines rewritten by
	// the keyword stripper. The stripper historically drops it.
	PreserveInlineIndent bool
}

type constructor func(Options) Transform

// Entry describes a registered transform.
type Entry struct {
	Name        string
	Description string
	New         constructor
}

const (
	StripInline        = "strip-inline"
	NormalizeNondet    = "normalize-nondet"
	BoundInfiniteLoops = "bound-infinite-loops"
)

// DefaultPipeline is the order the passes are applied in when the
// configuration does not name any.
var DefaultPipeline = []string{
	StripInline,
	NormalizeNondet,
	BoundInfiniteLoops,
}

var allTransforms = map[string]Entry{
	StripInline: {
		Name:        StripInline,
		Description: "comment out a leading inline/__inline keyword",
		New: func(o Options) Transform {
			return NewKeywordStripper(o.PreserveInlineIndent)
		},
	},
	NormalizeNondet: {
		Name:        NormalizeNondet,
		Description: "rewrite if/while guarded by __VERIFIER_nondet_int/uint() to __VERIFIER_nondet__Bool()",
		New: func(Options) Transform {
			return NewNondeterminismNormalizer()
		},
	},
	BoundInfiniteLoops: {
		Name:        BoundInfiniteLoops,
		Description: "replace while(1)/while(true)/while(TRUE) with a volatile guard variable",
		New: func(Options) Transform {
			return NewUnboundedLoopBounder()
		},
	},
}

// Lookup returns the registry entry for name.
func Lookup(name string) (Entry, bool) {
	e, ok := allTransforms[name]
	return e, ok
}

// New builds the transform registered under name.
func New(name string, opts Options) (Transform, error) {
	e, ok := allTransforms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, name)
	}
	return e.New(opts), nil
}

// Names returns all registered names in sorted order.
func Names() []string {
	names := make([]string, 0, len(allTransforms))
	for name := range allTransforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
