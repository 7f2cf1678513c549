package markdown

import "strings"

// escapeText backslash-escapes every character that could start or end an
// inline construct. A trailing '!' is escaped because the next node may be
// a link and "![[" would read back as an embed. The colon of "://" is
// escaped so that text never reads back as a bare URL.
func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '*', '_', '~', '`', '[', ']', '$', '<':
			b.WriteByte('\\')
		case '!':
			if i == len(s)-1 {
				b.WriteByte('\\')
			}
		case ':':
			if strings.HasPrefix(s[i+1:], "//") {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeLineStart escapes the first character of line when a block parser
// would otherwise take the line for the start of a block.
func escapeLineStart(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i == len(line) {
		return line
	}
	switch line[i] {
	case '#', '>', '-', '+', '=', '|', ':':
		return line[:i] + `\` + line[i:]
	}
	j := i
	for j < len(line) && line[j] >= '0' && line[j] <= '9' {
		j++
	}
	if j > i && j < len(line) && (line[j] == '.' || line[j] == ')') {
		return line[:j] + `\` + line[j:]
	}
	return line
}

// escapeLines applies escapeLineStart to every line of s.
func escapeLines(s string) string {
	if !strings.Contains(s, "\n") {
		return escapeLineStart(s)
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = escapeLineStart(l)
	}
	return strings.Join(lines, "\n")
}

func isASCIIPunct(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') || (c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}

// unescape removes the backslash from every escaped ASCII punctuation
// character. Other backslashes are kept.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isASCIIPunct(s[i+1]) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// escapeSrc escapes a link destination so it contains no space or paren.
func escapeSrc(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '(', ')', ' ', '"':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// unescapeAll removes one level of backslash escaping of any character.
func unescapeAll(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func escapeTitle(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// escapeCell escapes the pipes of an exported cell. A backslash before a
// pipe always escapes it, whatever precedes the backslash.
func escapeCell(cell string) string {
	return strings.ReplaceAll(cell, "|", `\|`)
}

// splitRow splits a table row on unescaped pipes, dropping the optional
// outer pipes, and turns every "\|" in a cell into a pipe.
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "|") {
		line = line[1:]
	}
	if strings.HasSuffix(line, "|") && !escapedAt(line, len(line)-1) {
		line = line[:len(line)-1]
	}
	var (
		cells []string
		cur   strings.Builder
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == '|' {
			cur.WriteByte('|')
			i++
			continue
		}
		if c == '|' {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	return append(cells, strings.TrimSpace(cur.String()))
}

// escapedAt reports whether the pipe at s[i] is escaped.
func escapedAt(s string, i int) bool {
	return i > 0 && s[i-1] == '\\'
}

// hasUnescapedPipe reports whether line contains a column separator.
func hasUnescapedPipe(line string) bool {
	for i := 0; i < len(line); i++ {
		if line[i] == '|' && !escapedAt(line, i) {
			return true
		}
	}
	return false
}
