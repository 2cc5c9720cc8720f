package syntax

// LineSpan widens [start, end) to whole lines when nothing but horizontal
// whitespace shares those lines with the span. The widened span includes the
// trailing line break. Otherwise the span is returned unchanged.
func LineSpan(src []byte, start, end int) (int, int) {
	ls := start
	for ls > 0 && isBlank(src[ls-1]) {
		ls--
	}
	if ls > 0 && src[ls-1] != '\n' {
		return start, end
	}
	le := end
	for le < len(src) && isBlank(src[le]) {
		le++
	}
	switch {
	case le == len(src):
	case src[le] == '\n':
		le++
	case src[le] == '\r' && le+1 < len(src) && src[le+1] == '\n':
		le += 2
	default:
		return start, end
	}
	return ls, le
}

// LineIndent returns the leading whitespace of the line containing offset.
func LineIndent(src []byte, offset int) string {
	ls := offset
	for ls > 0 && src[ls-1] != '\n' {
		ls--
	}
	le := ls
	for le < len(src) && isBlank(src[le]) {
		le++
	}
	return string(src[ls:le])
}

// SkipBlank returns the first offset at or after off that is not a space or tab.
func SkipBlank(src []byte, off int) int {
	for off < len(src) && isBlank(src[off]) {
		off++
	}
	return off
}

// LineBreak returns the line terminator used in src, "\r\n" or "\n".
func LineBreak(src []byte) string {
	for i, b := range src {
		if b == '\n' {
			if i > 0 && src[i-1] == '\r' {
				return "\r\n"
			}
			return "\n"
		}
	}
	return "\n"
}

func isBlank(b byte) bool { return b == ' ' || b == '\t' }
