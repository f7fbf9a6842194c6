package store

import (
	"encoding/json"
	"errors"
)

// DecodeLegacy rewrites a value persisted as a Ruby Hash#inspect string
// ({"id"=>"x", "giftType"=>nil}) into JSON. Outside string literals "=>"
// becomes ":" and the bare word nil becomes null. Inside them the inspect-only
// escapes \# and \e are turned into their JSON equivalents.
//
// Values in this form were written by an older agent release. Once no stored
// snapshot or credential predates the JSON format this file can be removed.
func DecodeLegacy(stored []byte) ([]byte, error) {
	out := make([]byte, 0, len(stored))
	inString := false

	for i := 0; i < len(stored); i++ {
		c := stored[i]

		if inString {
			switch c {
			case '\\':
				if i+1 >= len(stored) {
					return nil, errors.New("dangling escape at end of value")
				}
				i++
				switch next := stored[i]; next {
				case '#':
					out = append(out, '#')
				case 'e':
					out = append(out, `\u001b`...)
				default:
					out = append(out, '\\', next)
				}
			case '"':
				inString = false
				out = append(out, c)
			default:
				out = append(out, c)
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '=' && i+1 < len(stored) && stored[i+1] == '>':
			out = append(out, ':')
			i++
		case c == 'n' && isBareWord(stored, i, "nil"):
			out = append(out, "null"...)
			i += len("nil") - 1
		default:
			out = append(out, c)
		}
	}

	if inString {
		return nil, errors.New("unterminated string literal")
	}
	if !json.Valid(out) {
		return nil, errors.New("normalized value is not valid JSON")
	}
	return out, nil
}

func isBareWord(data []byte, at int, word string) bool {
	end := at + len(word)
	if end > len(data) || string(data[at:end]) != word {
		return false
	}
	if at > 0 && isWordByte(data[at-1]) {
		return false
	}
	if end < len(data) && isWordByte(data[end]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
