// Package textutil derives filesystem-safe names for output archives and
// staging directories.
package textutil

import "unicode"

// SafeName makes a derived volume or archive name usable as a single path
// component. Separators and drive markers become dashes so a title like
// "One/Piece" cannot nest directories, characters that are invalid on common
// filesystems are dropped, and whitespace runs collapse to a single space
// with no leading or trailing remainder.
func SafeName(name string) string {
	var b []rune
	pendingSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case r == '/' || r == '\\' || r == ':' || r == '*':
			r = '-'
		case r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			continue
		case unicode.IsControl(r):
			continue
		}
		if pendingSpace && len(b) > 0 {
			b = append(b, ' ')
		}
		pendingSpace = false
		b = append(b, r)
	}
	return string(b)
}
