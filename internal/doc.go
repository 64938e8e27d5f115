// Package internal provides the preprocessing engine behind vprep.
//
// Engine chains an ordered list of line transforms over a single C source
// file. Each stage reads the previous stage's output and writes a temporary
// file next to the final destination, so a run with the same input and
// output path is safe. The last temporary file is renamed onto the output
// once every stage has succeeded and the line count is unchanged.
//
// Cache remembers finished runs keyed by input path, transform signature and
// content hashes, letting repeated runs over an unchanged tree skip work.
//
// Watcher observes directories with fsnotify and re-runs the engine whenever a
// source file is written or created.
//
// Usage:
//
//	engine, err := internal.NewEngine(transform.DefaultPipeline, transform.Options{}, logger)
//	if err != nil {
//	    // handle error
//	}
//	result, err := engine.Run("harness.c", "harness.prep.c")
package internal
