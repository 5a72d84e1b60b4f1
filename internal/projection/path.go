// Package projection extracts caller-selected fields from decoded JSON values.
package projection

import (
	"strconv"
	"strings"
)

// Token is a single segment of a parsed field path.
// Indexed tokens look up Key and then take element Index of the result.
type Token struct {
	Key     string
	Index   int
	Indexed bool
}

// Path is a parsed field path.
//
// Examples:
//   - "name" -> [{Key: "name"}]
//   - "main.temp" -> [{Key: "main"}, {Key: "temp"}]
//   - "weather[0].description" -> [{Key: "weather", Index: 0, Indexed: true}, {Key: "description"}]
type Path struct {
	raw    string
	tokens []Token
}

// ParsePath parses a dotted field path. It never fails: a segment that is
// not a plain key or a well-formed key[index] is kept verbatim as a plain
// key and will simply not resolve against ordinary data.
func ParsePath(raw string) Path {
	p := &pathParser{input: raw}
	return Path{raw: raw, tokens: p.parse()}
}

// String returns the path as it was given.
func (p Path) String() string {
	return p.raw
}

// Tokens returns a copy of the parsed tokens.
func (p Path) Tokens() []Token {
	out := make([]Token, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// Resolve walks data along the path. The second return value is false when
// any segment fails to resolve: a missing key, keying into a non-object,
// indexing a non-array or an index out of range.
func (p Path) Resolve(data interface{}) (interface{}, bool) {
	return resolve(data, p.tokens)
}

func resolve(current interface{}, tokens []Token) (interface{}, bool) {
	if len(tokens) == 0 {
		return current, true
	}
	next, ok := step(current, tokens[0])
	if !ok {
		return nil, false
	}
	return resolve(next, tokens[1:])
}

// step resolves one token against the current value.
func step(current interface{}, tok Token) (interface{}, bool) {
	obj, ok := current.(map[string]interface{})
	if !ok {
		return nil, false
	}
	val, ok := obj[tok.Key]
	if !ok {
		return nil, false
	}
	if !tok.Indexed {
		return val, true
	}
	arr, ok := val.([]interface{})
	if !ok || tok.Index >= len(arr) {
		return nil, false
	}
	return arr[tok.Index], true
}

// pathParser splits a path into segments on '.' and parses each segment.
type pathParser struct {
	input string
	pos   int
}

func (p *pathParser) parse() []Token {
	tokens := make([]Token, 0, strings.Count(p.input, ".")+1)
	for {
		tokens = append(tokens, p.segment())
		if p.pos >= len(p.input) {
			return tokens
		}
		p.pos++ // '.'
	}
}

func (p *pathParser) segment() Token {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '.' {
		p.pos++
	}
	return parseSegment(p.input[start:p.pos])
}

// parseSegment recognizes "name[index]"; anything else is a plain key.
func parseSegment(seg string) Token {
	open := strings.IndexByte(seg, '[')
	if open <= 0 || !strings.HasSuffix(seg, "]") {
		return Token{Key: seg}
	}
	index, ok := parseIndex(seg[open+1 : len(seg)-1])
	if !ok {
		return Token{Key: seg}
	}
	return Token{Key: seg[:open], Index: index, Indexed: true}
}

func parseIndex(digits string) (int, bool) {
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}
