package types

// Config represents the preprocessing configuration loaded from .vprep.yaml.
type Config struct {
	Name                 string   `yaml:"name"`
	Transforms           []string `yaml:"transforms"`
	Extensions           []string `yaml:"extensions"`
	Suffix               string   `yaml:"suffix"`
	OutputDir            string   `yaml:"output_dir"`
	InPlace              bool     `yaml:"in_place"`
	KeepIntermediate     bool     `yaml:"keep_intermediate"`
	PreserveInlineIndent bool     `yaml:"preserve_inline_indent"`
	CacheDir             string   `yaml:"cache_dir"`
	Jobs                 int      `yaml:"jobs"`
}

// Change is a single line rewritten by one pipeline stage.
// Line is 1-based, like editor and witness positions.
type Change struct {
	Transform string `json:"transform"`
	Line      int    `json:"line"`
	Before    string `json:"before"`
	After     string `json:"after"`
}

// Result describes one input file run through the pipeline.
type Result struct {
	Input   string   `json:"input"`
	Output  string   `json:"output"`
	Stages  []string `json:"stages"`
	Lines   int      `json:"lines"`
	Changes []Change `json:"changes,omitempty"`
	Cached  bool     `json:"cached,omitempty"`
}

// Changed reports whether any stage rewrote at least one line.
func (r *Result) Changed() bool {
	return r != nil && len(r.Changes) > 0
}
