package pipeline

import (
	"strings"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

// DefaultGroupIcon is used for synthesized group objects unless a provider
// overrides it.
const DefaultGroupIcon = "./resources/Group.png"

// Lister produces the typed listing at a base path.
type Lister func(base string) ([]*model.Object, error)

// Options configure pipeline evaluation for one provider.
type Options struct {
	// AllowedGroupFields whitelists GroupBy properties. nil allows all;
	// a property outside the set yields an empty result, never an error.
	AllowedGroupFields map[string]bool

	// GroupIcon is the icon filename for synthesized group objects.
	GroupIcon string

	// ShowMyProperty maps <ShowMy:USER> to a Show filter on this property.
	// Empty rejects ShowMy tokens.
	ShowMyProperty string

	// ShowMyValue optionally rewrites the ShowMy argument (user scrambling
	// and the like). nil is identity.
	ShowMyValue func(user string) string

	// SyncSearch enables single-token <Search:...> filtering over the base
	// listing using the object search predicate.
	SyncSearch bool
}

// Evaluate resolves an object id carrying zero or more command tokens
// against the listing function. Semantic errors (bad composition, unknown
// GroupBy property) yield an empty, non-error result.
func Evaluate(id string, list Lister, opts Options) ([]*model.Object, error) {
	base, tokens := ParsePath(id)
	tokens = mapShowMy(tokens, opts)
	tokens = Normalize(tokens)

	objs, err := list(base)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return objs, nil
	}

	// Search composes with nothing in this protocol version.
	for i, t := range tokens {
		if t.Cmd != CmdSearch {
			continue
		}
		if len(tokens) != 1 || !opts.SyncSearch {
			return []*model.Object{}, nil
		}
		prop, value := searchArgs(tokens[i])
		return filterSearch(objs, prop, value), nil
	}

	// Intermediate tokens must all be Show filters.
	for _, t := range tokens[:len(tokens)-1] {
		if t.Cmd != CmdShow || !t.HasValue {
			return []*model.Object{}, nil
		}
		objs = filterShow(objs, t.Prop, t.Value)
	}

	last := tokens[len(tokens)-1]
	switch {
	case last.Cmd == CmdShow && last.HasValue:
		return filterShow(objs, last.Prop, last.Value), nil
	case last.Cmd == CmdGroupBy && last.HasProp:
		if opts.AllowedGroupFields != nil && !opts.AllowedGroupFields[last.Prop] {
			return []*model.Object{}, nil
		}
		prefix := groupIDPrefix(base, tokens[:len(tokens)-1])
		icon := opts.GroupIcon
		if icon == "" {
			icon = DefaultGroupIcon
		}
		return groupBy(objs, last.Prop, prefix, icon), nil
	default:
		return []*model.Object{}, nil
	}
}

// mapShowMy rewrites <ShowMy:USER> tokens into the provider's "mine"
// filter before normalization.
func mapShowMy(tokens []Token, opts Options) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Cmd == CmdShowMy && t.HasProp && opts.ShowMyProperty != "" {
			user := t.Prop
			if opts.ShowMyValue != nil {
				user = opts.ShowMyValue(user)
			}
			out = append(out, Token{Cmd: CmdShow, Prop: opts.ShowMyProperty, HasProp: true, Value: user, HasValue: true})
			continue
		}
		out = append(out, t)
	}
	return out
}

// searchArgs extracts the predicate from a Search token. Accepted forms are
// <Search:prop:string>, <Search:string>, and the legacy <Search:yes|no:string>
// where the first argument was a recursion flag and matching ran over every
// property.
func searchArgs(t Token) (prop, value string) {
	if t.HasValue {
		if t.Prop == "yes" || t.Prop == "no" {
			return "all", t.Value
		}
		return t.Prop, t.Value
	}
	return "all", t.Prop
}

func filterShow(objs []*model.Object, prop, value string) []*model.Object {
	out := make([]*model.Object, 0, len(objs))
	for _, o := range objs {
		v, ok := o.Prop(prop)
		if !ok {
			continue
		}
		s, ok := model.Stringify(v)
		if !ok {
			continue
		}
		if s == value {
			out = append(out, o)
		}
	}
	return out
}

func filterSearch(objs []*model.Object, prop, value string) []*model.Object {
	out := make([]*model.Object, 0, len(objs))
	for _, o := range objs {
		if o.Search(prop, value) {
			out = append(out, o)
		}
	}
	return out
}

// groupIDPrefix rebuilds the group id prefix: the base path followed by the
// pipeline tokens preceding the trailing GroupBy.
func groupIDPrefix(base string, prior []Token) string {
	prefix := base
	for _, t := range prior {
		prefix = strings.TrimSuffix(prefix, "/") + "/" + t.String()
	}
	return prefix
}

// groupBy synthesizes one WPGroup per distinct non-null stringified value,
// in first-seen order. Group ids encode the pipeline suffix so they
// round-trip through GetObjects.
func groupBy(objs []*model.Object, prop, prefix, icon string) []*model.Object {
	var order []string
	counts := make(map[string]int)
	for _, o := range objs {
		v, ok := o.Prop(prop)
		if !ok {
			continue
		}
		s, ok := model.Stringify(v)
		if !ok {
			continue
		}
		if _, seen := counts[s]; !seen {
			order = append(order, s)
		}
		counts[s]++
	}
	groups := make([]*model.Object, 0, len(order))
	for _, value := range order {
		id := strings.TrimSuffix(prefix, "/") + "/<" + CmdShow + ":" + prop + ":" + value + ">"
		if strings.HasPrefix(id, "//") {
			id = id[1:]
		}
		groups = append(groups, model.New(model.ClassGroup, id, value, icon, counts[value]))
	}
	return groups
}
