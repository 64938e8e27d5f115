package transform

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrNotRegularFile is returned (inside an *fs.PathError) when the input of a
// transform is a directory or another non-regular file.
var ErrNotRegularFile = errors.New("not a regular file")

// Transform rewrites the file at inputPath into outputPath.
//
// Run creates or truncates outputPath and writes one line for every line of
// inputPath, in order. I/O errors are returned as-is; a failed call may leave
// a partially written output which the caller must discard.
type Transform interface {
	Run(inputPath, outputPath string) error
}

// rewriteFunc inspects one line and returns its replacement when the line
// matches. line ends with "\n" unless it is the unterminated last line of the
// input, and a replacement always ends with "\n". index is the 0-based
// position of the line within the current run.
type rewriteFunc func(index int, line string) (string, bool)

// rewriteLines drives a single pass over inputPath. Every line terminator is
// written as "\n"; an unterminated last line that is not rewritten stays
// unterminated.
func rewriteLines(inputPath, outputPath string, rewrite rewriteFunc) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return &fs.PathError{Op: "open", Path: inputPath, Err: ErrNotRegularFile}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}

	if err := copyLines(in, out, rewrite); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyLines(in io.Reader, out io.Writer, rewrite rewriteFunc) error {
	w := bufio.NewWriter(out)
	index := 0
	err := EachLine(in, func(line string, terminated bool) error {
		if terminated {
			line += "\n"
		}
		if replaced, ok := rewrite(index, line); ok {
			line = replaced
		}
		index++
		_, err := w.WriteString(line)
		return err
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

// EachLine calls fn for every line of r, without its terminator. "\n", "\r\n"
// and a lone "\r" all end a line; terminated is false only for a last line
// that has none.
func EachLine(r io.Reader, fn func(line string, terminated bool) error) error {
	br := bufio.NewReader(r)
	for {
		chunk, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return readErr
		}

		body, terminated := strings.CutSuffix(chunk, "\n")
		if terminated {
			body = strings.TrimSuffix(body, "\r")
		}
		parts := strings.Split(body, "\r")
		for i, part := range parts {
			last := i == len(parts)-1
			if last && !terminated && part == "" {
				break
			}
			if err := fn(part, !last || terminated); err != nil {
				return err
			}
		}

		if readErr == io.EOF {
			return nil
		}
	}
}
