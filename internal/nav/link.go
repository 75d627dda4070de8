package nav

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/pipeline"
)

// HumanizeTitle rewrites a command-token crumb into readable form:
// "Group by P" for <GroupBy:P>, "Show P = V" for <Show:P:V>. Anything else
// keeps the fallback title.
func HumanizeTitle(id, fallback string) string {
	seg := lastSegment(id)
	tok, ok := pipeline.ParseToken(seg)
	if !ok {
		return fallback
	}
	switch tok.Cmd {
	case pipeline.CmdGroupBy:
		if tok.HasProp {
			return "Group by " + tok.Prop
		}
	case pipeline.CmdShow:
		if tok.HasProp && tok.HasValue {
			return "Show " + tok.Prop + " = " + tok.Value
		}
	}
	return fallback
}

// NavigateToPath walks a deep link from scratch. The first [host:port]
// token replaces the session root; later ones push synthetic crumbs at the
// new provider's root. Command tokens extend the current remote id, plain
// segments match children by id suffix or title, and a trailing
// [openaction] or <OpenAction> fires the last matched object's openaction.
// Traversal stops quietly at the first segment that doesn't resolve.
func (s *Session) NavigateToPath(link string) {
	segments := splitLink(link)
	sawEndpoint := false
	var lastObject *model.Object

	for i, seg := range segments {
		switch {
		case isOpenActionSegment(seg):
			if i == len(segments)-1 && lastObject != nil {
				s.PerformOpenAction(lastObject)
			}
			return
		case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
			host, port, ok := parseEndpointToken(seg)
			if !ok {
				return
			}
			if !sawEndpoint {
				// First endpoint replaces the root.
				rootName := s.loadEndpoint(host, port)
				s.stack = []Entry{{Title: rootName, Host: host, Port: port, RemoteID: "/"}}
				s.refresh()
				sawEndpoint = true
			} else {
				s.pushEndpoint(host, port)
			}
			lastObject = nil
		case pipeline.IsTokenSegment(seg):
			cur := s.Current()
			remote := cur.RemoteID
			if remote == "/" || remote == "" {
				remote = "/" + seg
			} else {
				remote = remote + "/" + seg
			}
			s.stack = append(s.stack, Entry{
				ID:       remote,
				Title:    HumanizeTitle(remote, seg),
				Host:     cur.Host,
				Port:     cur.Port,
				RemoteID: remote,
			})
			s.refresh()
			lastObject = nil
		default:
			child := s.matchChild(seg)
			if child == nil {
				return
			}
			lastObject = child
			// Only enterable children advance the stack; a matched leaf
			// stays put so a trailing [openaction] can still fire on it.
			if child.Objects > 0 || hasEndpointSwitch(child) {
				s.Activate(child)
			}
		}
	}
}

// matchChild finds a child of the current listing whose id ends with the
// segment or whose title equals it.
func (s *Session) matchChild(seg string) *model.Object {
	for _, o := range s.objects {
		if strings.HasSuffix(o.ID, "/"+seg) || o.Title == seg {
			return o
		}
	}
	return nil
}

func hasEndpointSwitch(o *model.Object) bool {
	_, _, ok := endpointSwitch(o)
	return ok
}

// BuildDeepLink serializes the current nav state to the minimal link that
// reproduces it: the root endpoint, then per crumb an endpoint token only
// when it changed, a command token when the remote id ends in one, else the
// crumb's title (or last id segment).
func (s *Session) BuildDeepLink() string {
	var b strings.Builder
	root := s.stack[0]
	fmt.Fprintf(&b, "/[%s:%d]", root.Host, root.Port)
	prevHost, prevPort := root.Host, root.Port

	for _, e := range s.stack[1:] {
		if e.Host != prevHost || e.Port != prevPort {
			fmt.Fprintf(&b, "/[%s:%d]", e.Host, e.Port)
			prevHost, prevPort = e.Host, e.Port
			if e.RemoteID == "/" || e.RemoteID == "" {
				continue
			}
		}
		seg := lastSegment(e.RemoteID)
		if pipeline.IsTokenSegment(seg) {
			b.WriteString("/" + seg)
			continue
		}
		if e.Title != "" {
			b.WriteString("/" + e.Title)
			continue
		}
		if seg != "" {
			b.WriteString("/" + seg)
		}
	}
	return b.String()
}

// splitLink breaks a deep link on "/" without splitting inside <...> or
// [...] tokens.
func splitLink(link string) []string {
	var segments []string
	var cur strings.Builder
	depth := 0
	for _, r := range link {
		switch r {
		case '<', '[':
			depth++
			cur.WriteRune(r)
		case '>', ']':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case '/':
			if depth > 0 {
				cur.WriteRune(r)
				continue
			}
			if cur.Len() > 0 {
				segments = append(segments, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		segments = append(segments, cur.String())
	}
	return segments
}

func isOpenActionSegment(seg string) bool {
	return seg == "[openaction]" || seg == "<OpenAction>"
}

// parseEndpointToken decodes "[host:port]".
func parseEndpointToken(seg string) (string, int, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(seg, "["), "]")
	host, portStr, err := net.SplitHostPort(inner)
	if err != nil {
		return "", 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return "", 0, false
	}
	return host, port, true
}

func lastSegment(id string) string {
	segs := splitLink(id)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}
