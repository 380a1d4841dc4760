package markup

// scanTagEnd scans an opening tag starting at pos, which must point just past the tag
// name, and returns the offset just past its closing '>'. Quoted attribute values are
// skipped, so a '>' inside a value does not end the tag.
// Returns -1 if the tag is not terminated.
func scanTagEnd(text string, pos int) int {
	for pos < len(text) {
		// Skip whitespace
		for pos < len(text) && isAttrSpace(text[pos]) {
			pos++
		}

		if pos >= len(text) {
			break
		}
		if text[pos] == '>' {
			return pos + 1
		}
		if text[pos] == '/' {
			pos++
			continue
		}

		// Find attribute name end
		for pos < len(text) && text[pos] != '=' && !isAttrSpace(text[pos]) && text[pos] != '>' && text[pos] != '/' {
			pos++
		}

		// Skip any whitespace before '='
		for pos < len(text) && isAttrSpace(text[pos]) {
			pos++
		}

		if pos >= len(text) || text[pos] != '=' {
			// Attribute without value
			continue
		}
		pos++ // skip '='

		for pos < len(text) && isAttrSpace(text[pos]) {
			pos++
		}

		if pos >= len(text) {
			break
		}

		if quote := text[pos]; quote == '"' || quote == '\'' {
			pos++
			for pos < len(text) && text[pos] != quote {
				pos++
			}
			if pos >= len(text) {
				return -1
			}
			pos++ // skip closing quote
		} else {
			// Unquoted value
			for pos < len(text) && !isAttrSpace(text[pos]) && text[pos] != '>' {
				pos++
			}
		}
	}

	return -1
}

func isAttrSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
