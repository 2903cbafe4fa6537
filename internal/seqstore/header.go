package seqstore

import "strings"

type headerKind int

const (
	notHeader headerKind = iota
	validHeader
	shortHeader // ">tag|" prefix but no second pipe
)

// parseHeader recognises ">tag|ACCESSION|..." where tag is one or more
// lowercase ASCII letters and ACCESSION is one or more word characters.
// A ">tag|" line with no second pipe at all is reported as shortHeader;
// anything else is notHeader.
func parseHeader(line string) (string, headerKind) {
	const (
		stStart = iota
		stTag
		stTagMore
		stAccession
	)

	state := stStart
	accStart := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch state {
		case stStart:
			if c != '>' {
				return "", notHeader
			}
			state = stTag
		case stTag:
			if !isLower(c) {
				return "", notHeader
			}
			state = stTagMore
		case stTagMore:
			switch {
			case isLower(c):
			case c == '|':
				state = stAccession
				accStart = i + 1
			default:
				return "", notHeader
			}
		case stAccession:
			switch {
			case isWord(c):
			case c == '|':
				if i == accStart {
					return "", notHeader
				}
				return line[accStart:i], validHeader
			default:
				if strings.IndexByte(line[i:], '|') < 0 {
					return "", shortHeader
				}
				return "", notHeader
			}
		}
	}
	if state == stAccession {
		return "", shortHeader
	}
	return "", notHeader
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func isWord(c byte) bool {
	return c == '_' || isLower(c) || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
