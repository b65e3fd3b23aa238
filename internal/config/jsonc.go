package config

// scan states for StripComments.
const (
	scanCode = iota
	scanString
	scanLineComment
	scanBlockComment
)

// StripComments removes // line and /* */ block comments from JSONC input.
// String literals pass through untouched, escape sequences included, so a
// "//" inside a value never starts a comment. Line comments keep their
// trailing newline; parse errors stay on the right line.
func StripComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	state := scanCode

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case scanCode:
			switch {
			case c == '"':
				state = scanString
				out = append(out, c)
			case c == '/' && next == '/':
				state = scanLineComment
				i++
			case c == '/' && next == '*':
				state = scanBlockComment
				i++
			default:
				out = append(out, c)
			}

		case scanString:
			out = append(out, c)
			switch c {
			case '\\':
				if next != 0 {
					out = append(out, next)
					i++
				}
			case '"':
				state = scanCode
			}

		case scanLineComment:
			if c == '\n' {
				state = scanCode
				out = append(out, c)
			}

		case scanBlockComment:
			if c == '*' && next == '/' {
				state = scanCode
				i++
			}
		}
	}

	return out
}
