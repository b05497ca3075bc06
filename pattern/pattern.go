// Package pattern compiles textual byte signatures such as
// "8B 45 ?? 89 4?" and finds them in captured memory.
package pattern

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "pattern"))

// ErrInvalidToken is matched by every *InvalidTokenError.
var ErrInvalidToken = errors.New("invalid pattern token")

// InvalidTokenError reports the first malformed token in a pattern source.
type InvalidTokenError struct {
	Index  int    // position of the token in the source, -1 when the source has no tokens
	Token  string // the offending token
	Reason string
}

func (e *InvalidTokenError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid pattern: %s", e.Reason)
	}
	return fmt.Sprintf("invalid pattern token %d %q: %s", e.Index, e.Token, e.Reason)
}

func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

// MatchRule decides which bits of a memory byte an Element constrains.
type MatchRule uint8

const (
	Exact           MatchRule = iota // all 8 bits
	HighNibbleFixed                  // high 4 bits, low nibble is a wildcard
	LowNibbleFixed                   // low 4 bits, high nibble is a wildcard
	Ignore                           // no bits
)

func (r MatchRule) String() string {
	switch r {
	case Exact:
		return "Exact"
	case HighNibbleFixed:
		return "HighNibbleFixed"
	case LowNibbleFixed:
		return "LowNibbleFixed"
	case Ignore:
		return "Ignore"
	default:
		return fmt.Sprintf("MatchRule(%d)", uint8(r))
	}
}

// Mask returns the bits of a memory byte that r compares.
func (r MatchRule) Mask() byte {
	switch r {
	case Exact:
		return 0xFF
	case HighNibbleFixed:
		return 0xF0
	case LowNibbleFixed:
		return 0x0F
	default:
		return 0x00
	}
}

// Element is one compiled token. Value is already masked for Rule.
type Element struct {
	Value byte
	Rule  MatchRule
}

// Match reports whether memory byte m satisfies the element.
func (e Element) Match(m byte) bool {
	return m&e.Rule.Mask() == e.Value
}

func (e Element) String() string {
	switch e.Rule {
	case Exact:
		return fmt.Sprintf("%02X", e.Value)
	case HighNibbleFixed:
		return fmt.Sprintf("%X?", e.Value>>4)
	case LowNibbleFixed:
		return fmt.Sprintf("?%X", e.Value)
	default:
		return "??"
	}
}

// Pattern is a compiled, immutable byte signature.
type Pattern struct {
	elements     []Element
	searchOffset int
}

// Compile parses source into a Pattern. Tokens are separated by whitespace
// and are one of:
//
//	8B    exact byte
//	4?    high nibble fixed
//	?4    low nibble fixed
//	?? ** ? *   any byte
//
// searchOffset shifts where the pattern is compared relative to the
// position Find reports.
func Compile(searchOffset uint, source string) (*Pattern, error) {
	tokens := strings.Fields(source)
	if len(tokens) == 0 {
		return nil, &InvalidTokenError{Index: -1, Reason: "pattern is empty"}
	}

	elements := make([]Element, 0, len(tokens))
	for i, tok := range tokens {
		el, reason := compileToken(tok)
		if reason != "" {
			return nil, &InvalidTokenError{Index: i, Token: tok, Reason: reason}
		}
		elements = append(elements, el)
	}

	log.Debugln("Compiled pattern with", len(elements), "elements")

	// no buffer is longer than MaxInt, so larger offsets never match either
	off := math.MaxInt
	if searchOffset < math.MaxInt {
		off = int(searchOffset)
	}

	return &Pattern{
		elements:     elements,
		searchOffset: off,
	}, nil
}

// MustCompile is like Compile but panics on error. For patterns known at build time.
func MustCompile(searchOffset uint, source string) *Pattern {
	p, err := Compile(searchOffset, source)
	if err != nil {
		panic(err)
	}
	return p
}

func compileToken(tok string) (Element, string) {
	switch len(tok) {
	case 1:
		if isWildcard(tok[0]) {
			return Element{Value: 0x00, Rule: Ignore}, ""
		}
		return Element{}, "single-character token must be a wildcard"
	case 2:
		hi, lo := tok[0], tok[1]
		switch {
		case isWildcard(hi) && isWildcard(lo):
			return Element{Value: 0x00, Rule: Ignore}, ""
		case isWildcard(hi):
			n, ok := hexNibble(lo)
			if !ok {
				return Element{}, "not a hex nibble"
			}
			return Element{Value: n, Rule: LowNibbleFixed}, ""
		case isWildcard(lo):
			n, ok := hexNibble(hi)
			if !ok {
				return Element{}, "not a hex nibble"
			}
			return Element{Value: n << 4, Rule: HighNibbleFixed}, ""
		default:
			h, ok1 := hexNibble(hi)
			l, ok2 := hexNibble(lo)
			if !ok1 || !ok2 {
				return Element{}, "not a hex byte"
			}
			return Element{Value: h<<4 | l, Rule: Exact}, ""
		}
	default:
		return Element{}, "token must be 1 or 2 characters"
	}
}

func isWildcard(c byte) bool {
	return c == '?' || c == '*'
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// String re-serializes the pattern in canonical token form.
func (p *Pattern) String() string {
	var sb strings.Builder
	for i, e := range p.elements {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.String())
	}
	return sb.String()
}

// Elements returns a copy of the compiled elements.
func (p *Pattern) Elements() []Element {
	out := make([]Element, len(p.elements))
	copy(out, p.elements)
	return out
}

func (p *Pattern) Len() int {
	return len(p.elements)
}

func (p *Pattern) SearchOffset() int {
	return p.searchOffset
}

// Bytes returns the pattern as parallel value and mask slices, the form
// a masked compare (m & mask == value) consumes.
func (p *Pattern) Bytes() (values, masks []byte) {
	values = make([]byte, len(p.elements))
	masks = make([]byte, len(p.elements))
	for i, e := range p.elements {
		values[i] = e.Value
		masks[i] = e.Rule.Mask()
	}
	return values, masks
}
