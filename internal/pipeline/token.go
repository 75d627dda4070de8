// Package pipeline implements the path command engine: parsing of
// <Cmd:...> tokens embedded in object ids, the GroupBy/Show normalization
// rule, and evaluation of command pipelines over provider listings.
package pipeline

import "strings"

// Commands that may appear in a path token.
const (
	CmdGroupBy    = "GroupBy"
	CmdShow       = "Show"
	CmdShowMy     = "ShowMy"
	CmdSearch     = "Search"
	CmdOpenAction = "OpenAction"
)

// Token is one parsed <Cmd:Prop[:Value]> path segment.
type Token struct {
	Cmd      string
	Prop     string
	Value    string
	HasProp  bool
	HasValue bool
}

// String renders the token back to its path segment form.
func (t Token) String() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(t.Cmd)
	if t.HasProp {
		b.WriteByte(':')
		b.WriteString(t.Prop)
	}
	if t.HasValue {
		b.WriteByte(':')
		b.WriteString(t.Value)
	}
	b.WriteByte('>')
	return b.String()
}

// IsTokenSegment reports whether a path segment has command token syntax.
func IsTokenSegment(seg string) bool {
	return len(seg) > 2 && strings.HasPrefix(seg, "<") && strings.HasSuffix(seg, ">")
}

// ParseToken parses a <...> path segment. The value part may itself contain
// colons.
func ParseToken(seg string) (Token, bool) {
	if !IsTokenSegment(seg) {
		return Token{}, false
	}
	parts := strings.SplitN(seg[1:len(seg)-1], ":", 3)
	t := Token{Cmd: parts[0]}
	if len(parts) >= 2 {
		t.Prop = parts[1]
		t.HasProp = true
	}
	if len(parts) == 3 {
		t.Value = parts[2]
		t.HasValue = true
	}
	return t, true
}

// ParsePath splits an object id into its base path and trailing command
// tokens. Tokens are peeled from the right; the returned slice is in
// left-to-right path order. The base keeps its leading slash when the id
// was rooted, and an empty base becomes "/".
func ParsePath(id string) (string, []Token) {
	rooted := strings.HasPrefix(id, "/")
	base := strings.TrimLeft(id, "/")
	var tokens []Token
	for strings.HasSuffix(base, ">") {
		var seg string
		if i := strings.LastIndex(base, "/<"); i >= 0 {
			seg = base[i+1:]
			base = base[:i]
		} else if strings.HasPrefix(base, "<") {
			seg = base
			base = ""
		} else {
			break
		}
		tok, ok := ParseToken(seg)
		if !ok {
			break
		}
		tokens = append([]Token{tok}, tokens...)
	}
	if base == "" {
		base = "/"
	} else if rooted {
		base = "/" + base
	}
	return base, tokens
}

// Normalize collapses each adjacent <GroupBy:P>,<Show:P:V> pair into just
// <Show:P:V>. Entering a synthesized group and then filtering on the same
// property is a drill-through: the grouping step must disappear so later
// operators apply to leaf objects again.
func Normalize(tokens []Token) []Token {
	if len(tokens) == 0 {
		return tokens
	}
	out := make([]Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Cmd == CmdGroupBy && i+1 < len(tokens) {
			next := tokens[i+1]
			if next.Cmd == CmdShow && next.HasValue && next.Prop == t.Prop {
				out = append(out, next)
				i++
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
