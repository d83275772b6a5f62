// Package lp1 parses and applies the LP1 patch format: a plain-text patch
// envelope carrying one or more per-file operation blocks. The format is
// line-oriented on purpose so a model can emit it without escaping rules:
//
//	*** Begin Patch
//	*** File: path/to/file.go
//	@@ op=replace start=5 end=7
//	new line 5
//	new line 6
//	*** File: path/to/new.go
//	@@ op=create
//	package main
//	*** End Patch
package lp1

import (
	"fmt"
	"strconv"
	"strings"
)

// OpKind enumerates the operations a file block may contain.
type OpKind int

const (
	OpReplace OpKind = iota
	OpInsertAfter
	OpInsertBefore
	OpErase
	OpCreateFile
)

// Op is one patch operation within a file block. StartLine/EndLine are
// 1-indexed and inclusive; Text is the replacement/inserted content (split
// on "\n" by the caller as needed).
type Op struct {
	Kind      OpKind
	StartLine int
	EndLine   int
	Text      string
}

// FilePatch is every operation targeting one file, in the order they
// appeared in the patch.
type FilePatch struct {
	Path string
	Ops  []Op
}

// ParsePatch parses a full LP1 patch envelope into per-file blocks.
func ParsePatch(patch string) ([]FilePatch, error) {
	lines := strings.Split(strings.TrimRight(patch, "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "*** Begin Patch" {
		return nil, fmt.Errorf("lp1: patch must start with '*** Begin Patch'")
	}

	var files []FilePatch
	var current *FilePatch
	var pendingOp *Op
	var textLines []string

	flushOp := func() {
		if pendingOp != nil {
			pendingOp.Text = strings.Join(textLines, "\n")
			current.Ops = append(current.Ops, *pendingOp)
			pendingOp = nil
			textLines = nil
		}
	}
	flushFile := func() {
		flushOp()
		if current != nil {
			files = append(files, *current)
			current = nil
		}
	}

	for _, raw := range lines[1:] {
		line := raw
		switch {
		case strings.TrimSpace(line) == "*** End Patch":
			flushFile()
		case strings.HasPrefix(line, "*** File: "):
			flushFile()
			path := strings.TrimSpace(strings.TrimPrefix(line, "*** File: "))
			current = &FilePatch{Path: path}
		case strings.HasPrefix(line, "@@ "):
			if current == nil {
				return nil, fmt.Errorf("lp1: '@@' directive with no preceding '*** File:' header")
			}
			flushOp()
			op, err := parseOpHeader(line)
			if err != nil {
				return nil, err
			}
			pendingOp = op
		default:
			if pendingOp != nil {
				textLines = append(textLines, line)
			}
		}
	}
	flushFile()

	if len(files) == 0 {
		return nil, fmt.Errorf("lp1: patch contains no file blocks")
	}
	return files, nil
}

func parseOpHeader(line string) (*Op, error) {
	fields := strings.Fields(strings.TrimPrefix(line, "@@ "))
	params := map[string]string{}
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		params[k] = v
	}

	var kind OpKind
	switch params["op"] {
	case "replace":
		kind = OpReplace
	case "insert_after":
		kind = OpInsertAfter
	case "insert_before":
		kind = OpInsertBefore
	case "erase":
		kind = OpErase
	case "create":
		kind = OpCreateFile
	default:
		return nil, fmt.Errorf("lp1: unknown op %q", params["op"])
	}

	op := &Op{Kind: kind}
	if kind == OpCreateFile {
		return op, nil
	}

	start, err := strconv.Atoi(params["start"])
	if err != nil {
		return nil, fmt.Errorf("lp1: op %q requires an integer start= field", params["op"])
	}
	op.StartLine = start
	op.EndLine = start
	if end, ok := params["end"]; ok {
		e, err := strconv.Atoi(end)
		if err != nil {
			return nil, fmt.Errorf("lp1: op %q has a non-integer end= field", params["op"])
		}
		op.EndLine = e
	}
	if op.Kind == OpErase {
		// erase carries no text; any body lines are ignored.
	}
	return op, nil
}

// ApplyOps applies ops (in order) to original's lines and returns the
// resulting file content. Match-based ops (replace/insert/erase) fail if
// original is empty and the op is not OpCreateFile.
func ApplyOps(original []byte, ops []Op) ([]byte, error) {
	hasCreate := false
	for _, op := range ops {
		if op.Kind == OpCreateFile {
			hasCreate = true
		}
	}
	if hasCreate {
		if len(ops) != 1 {
			return nil, fmt.Errorf("lp1: create op must be the only op for a file")
		}
		return []byte(ops[0].Text), nil
	}
	if len(original) == 0 {
		return nil, fmt.Errorf("lp1: match-based op applied to a non-existent file")
	}

	trailingNewline := strings.HasSuffix(string(original), "\n")
	lines := strings.Split(strings.TrimSuffix(string(original), "\n"), "\n")

	// Apply from the bottom up so earlier line numbers remain valid as the
	// slice shrinks/grows.
	sortedOps := append([]Op(nil), ops...)
	for i := 0; i < len(sortedOps); i++ {
		for j := i + 1; j < len(sortedOps); j++ {
			if sortedOps[j].StartLine > sortedOps[i].StartLine {
				sortedOps[i], sortedOps[j] = sortedOps[j], sortedOps[i]
			}
		}
	}

	for _, op := range sortedOps {
		start := op.StartLine - 1
		end := op.EndLine
		if start < 0 || end > len(lines) || start > end {
			return nil, fmt.Errorf("lp1: op range %d-%d out of bounds for %d lines", op.StartLine, op.EndLine, len(lines))
		}
		switch op.Kind {
		case OpReplace:
			replacement := strings.Split(op.Text, "\n")
			lines = append(lines[:start], append(replacement, lines[end:]...)...)
		case OpInsertAfter:
			insertion := strings.Split(op.Text, "\n")
			lines = append(lines[:end], append(insertion, lines[end:]...)...)
		case OpInsertBefore:
			insertion := strings.Split(op.Text, "\n")
			lines = append(lines[:start], append(insertion, lines[start:]...)...)
		case OpErase:
			lines = append(lines[:start], lines[end:]...)
		}
	}

	out := strings.Join(lines, "\n")
	if trailingNewline {
		out += "\n"
	}
	return []byte(out), nil
}
