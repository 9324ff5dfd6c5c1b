package recorder

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

const (
	sourceUnavailable = "// source code unavailable"
	maxCallerFrames   = 64
	maxTreeDepth      = 1000
)

type sourceSnippet struct {
	code string
	line int
}

var unavailableSnippet = sourceSnippet{code: sourceUnavailable, line: -1}

type sourceFile struct {
	content []byte
	tree    *sitter.Tree
}

// sourceExtractor finds the test source file that a call came from, and the text of the It
// call that encloses a given line of it. Files are read and parsed at most once.
type sourceExtractor struct {
	patterns []string
	logger   *slog.Logger
	files    map[string]*sourceFile
	lock     sync.Mutex
}

func newSourceExtractor(patterns []string, logger *slog.Logger) *sourceExtractor {
	return &sourceExtractor{
		patterns: patterns,
		logger:   logger,
		files:    make(map[string]*sourceFile),
	}
}

// extract returns the It call expression that the nearest test source frame is part of.
// skip is the number of frames above extract's caller to ignore.
func (e *sourceExtractor) extract(skip int) sourceSnippet {
	frame, ok := e.callerFrame(skip + 1)
	if !ok {
		e.logger.Debug("no test source frame found for It call")
		return unavailableSnippet
	}
	f := e.load(frame.File)
	if f == nil {
		return unavailableSnippet
	}
	if s, ok := findItCall(f, frame.Line); ok {
		return s
	}
	if s, ok := scanBraces(f.content, frame.Line); ok {
		return s
	}
	e.logger.Debug("could not locate It call in test source", "file", frame.File, "line", frame.Line)
	return unavailableSnippet
}

// callerLine returns the line number of the nearest test source frame, or -1.
func (e *sourceExtractor) callerLine(skip int) int {
	if frame, ok := e.callerFrame(skip + 1); ok {
		return frame.Line
	}
	return -1
}

func (e *sourceExtractor) callerFrame(skip int) (runtime.Frame, bool) {
	pcs := make([]uintptr, maxCallerFrames)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && e.matches(frame.File) {
			return frame, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func (e *sourceExtractor) matches(file string) bool {
	path := strings.TrimPrefix(filepath.ToSlash(file), "/")
	for _, pattern := range e.patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// load returns the cached contents and syntax tree of a file, or nil if it can't be read.
// A file that failed to parse is still returned, with a nil tree.
func (e *sourceExtractor) load(path string) *sourceFile {
	e.lock.Lock()
	defer e.lock.Unlock()

	if f, ok := e.files[path]; ok {
		return f
	}
	content, err := os.ReadFile(path)
	if err != nil {
		e.logger.Debug("could not read test source", "file", path, "error", err)
		e.files[path] = nil
		return nil
	}
	f := &sourceFile{content: content}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())
	if tree, err := parser.ParseCtx(context.Background(), nil, content); err == nil {
		f.tree = tree
	} else {
		e.logger.Debug("could not parse test source", "file", path, "error", err)
	}
	e.files[path] = f
	return f
}

// findItCall returns the innermost call to It (either a plain function or a method) whose
// span includes the line.
func findItCall(f *sourceFile, line int) (sourceSnippet, bool) {
	if f.tree == nil || line < 1 {
		return sourceSnippet{}, false
	}
	row := uint32(line - 1)
	var found *sitter.Node
	walkTree(f.tree.RootNode(), 0, func(node *sitter.Node) bool {
		if node.StartPoint().Row > row || node.EndPoint().Row < row {
			return false
		}
		if node.Type() == "call_expression" && isItCall(node, f.content) {
			found = node
		}
		return true
	})
	if found == nil {
		return sourceSnippet{}, false
	}
	return sourceSnippet{
		code: found.Content(f.content),
		line: int(found.StartPoint().Row) + 1,
	}, true
}

func isItCall(node *sitter.Node, content []byte) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return false
	}
	switch fn.Type() {
	case "identifier":
		return fn.Content(content) == "It"
	case "selector_expression":
		field := fn.ChildByFieldName("field")
		return field != nil && field.Content(content) == "It"
	}
	return false
}

func walkTree(node *sitter.Node, depth int, visit func(*sitter.Node) bool) {
	if depth > maxTreeDepth || !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(i), depth+1, visit)
	}
}

// scanBraces finds the nearest line at or before the given one that contains "It(", and
// returns the text from there until the braces opened after it are balanced again.
func scanBraces(content []byte, line int) (sourceSnippet, bool) {
	lines := strings.Split(string(bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))), "\n")
	if line < 1 || line > len(lines) {
		return sourceSnippet{}, false
	}
	start := -1
	for i := line - 1; i >= 0; i-- {
		if strings.Contains(lines[i], "It(") {
			start = i
			break
		}
	}
	if start < 0 {
		return sourceSnippet{}, false
	}
	depth, opened := 0, false
	for i := start; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		if strings.Contains(lines[i], "{") {
			opened = true
		}
		if opened && depth <= 0 {
			return sourceSnippet{
				code: strings.Join(lines[start:i+1], "\n"),
				line: start + 1,
			}, true
		}
	}
	return sourceSnippet{}, false
}
