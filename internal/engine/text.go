package engine

import (
	"bytes"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// splitBOM separates a leading UTF-8 byte order mark from the content.
func splitBOM(src []byte) (bom, body []byte) {
	if bytes.HasPrefix(src, utf8BOM) {
		return utf8BOM, src[len(utf8BOM):]
	}
	return nil, src
}

// normalizeLineEndings canonicalizes every line break to "\n" and then
// expands them to lineBreak when it is "\r\n".
func normalizeLineEndings(src []byte, lineBreak string) []byte {
	out := bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	if lineBreak == "\r\n" {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n"))
	}
	return out
}

const diffContext = 3

// unifiedDiff renders a line diff of before and after with a few lines of
// context around each change.
func unifiedDiff(path string, before, after []byte) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	sb.WriteString("--- " + path + "\n")
	sb.WriteString("+++ " + path + "\n")
	for i, d := range diffs {
		text := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writeLines(&sb, "-", text)
		case diffmatchpatch.DiffInsert:
			writeLines(&sb, "+", text)
		case diffmatchpatch.DiffEqual:
			writeContext(&sb, text, i > 0, i < len(diffs)-1)
		}
	}
	return sb.String()
}

// writeContext prints unchanged lines, keeping diffContext lines next to
// the change before (after is true) and the change after (before is true).
func writeContext(sb *strings.Builder, lines []string, after, before bool) {
	switch {
	case after && before && len(lines) > 2*diffContext:
		writeLines(sb, " ", lines[:diffContext])
		sb.WriteString("@@\n")
		writeLines(sb, " ", lines[len(lines)-diffContext:])
	case after && before:
		writeLines(sb, " ", lines)
	case after:
		writeLines(sb, " ", lines[:min(len(lines), diffContext)])
	case before:
		if len(lines) > diffContext {
			sb.WriteString("@@\n")
			lines = lines[len(lines)-diffContext:]
		}
		writeLines(sb, " ", lines)
	}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return strings.Split(text, "\n")
}

func writeLines(sb *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		sb.WriteString(prefix + l + "\n")
	}
}
