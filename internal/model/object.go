// Package model holds the typed object model shared by providers and the
// browser. Objects travel as JSON dicts with a "class" tag; every key that
// is not part of the core quintuple is kept as an extra so grouping and
// filtering over arbitrary properties keeps working for classes this code
// has never heard of.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Known object classes.
const (
	ClassObject         = "WPObject"
	ClassGroup          = "WPGroup"
	ClassSlurmPartition = "WPSlurmPartition"
	ClassSlurmJob       = "WPSlurmJob"
	ClassLmodDependency = "WPLmodDependency"
	ClassLmodSoftware   = "WPLmodSoftware"
	ClassSearchHandle   = "WPLmodSearchHandle"
	ClassSearchProgress = "WPLmodSearchProgress"
	ClassDirectory      = "WPDirectory"
	ClassFile           = "WPFile"
	ClassNocoTable      = "WPNocoTable"
	ClassNocoRecord     = "WPNocoRecord"
	ClassAccount        = "WPAccount"
)

var knownClasses = map[string]bool{
	ClassObject:         true,
	ClassGroup:          true,
	ClassSlurmPartition: true,
	ClassSlurmJob:       true,
	ClassLmodDependency: true,
	ClassLmodSoftware:   true,
	ClassSearchHandle:   true,
	ClassSearchProgress: true,
	ClassDirectory:      true,
	ClassFile:           true,
	ClassNocoTable:      true,
	ClassNocoRecord:     true,
	ClassAccount:        true,
}

// KnownClass reports whether class is in the registry. Unknown classes are
// still carried as generic objects; this only informs UI affordances.
func KnownClass(class string) bool {
	return knownClasses[class]
}

// Object is the wire object. Extras keep their insertion order so that
// serialization round-trips the way providers emitted them.
type Object struct {
	Class   string
	ID      string
	Title   string
	Icon    *string // nil serializes as JSON null
	Objects int

	extraKeys []string
	extras    map[string]any
}

// New constructs an object with the core quintuple. icon may be empty for a
// null icon.
func New(class, id, title, icon string, objects int) *Object {
	o := &Object{Class: class, ID: id, Title: title, Objects: objects}
	if icon != "" {
		o.Icon = &icon
	}
	return o
}

// SetExtra records an extra property, preserving first-insertion order.
func (o *Object) SetExtra(key string, value any) *Object {
	if o.extras == nil {
		o.extras = make(map[string]any)
	}
	if _, exists := o.extras[key]; !exists {
		o.extraKeys = append(o.extraKeys, key)
	}
	o.extras[key] = value
	return o
}

// Extra returns the named extra property.
func (o *Object) Extra(key string) (any, bool) {
	v, ok := o.extras[key]
	return v, ok
}

// ExtraKeys returns extra property names in insertion order.
func (o *Object) ExtraKeys() []string {
	return append([]string(nil), o.extraKeys...)
}

// Prop looks up a property by name across the core fields and extras.
// A nil icon reports as present with a nil value.
func (o *Object) Prop(name string) (any, bool) {
	switch name {
	case "class":
		return o.Class, true
	case "id":
		return o.ID, true
	case "title":
		return o.Title, true
	case "icon":
		if o.Icon == nil {
			return nil, true
		}
		return *o.Icon, true
	case "objects":
		return o.Objects, true
	}
	return o.Extra(name)
}

// Dict returns the full property map: core quintuple plus extras.
func (o *Object) Dict() map[string]any {
	d := make(map[string]any, 5+len(o.extraKeys))
	d["class"] = o.Class
	d["id"] = o.ID
	d["title"] = o.Title
	if o.Icon != nil {
		d["icon"] = *o.Icon
	} else {
		d["icon"] = nil
	}
	d["objects"] = o.Objects
	for _, k := range o.extraKeys {
		d[k] = o.extras[k]
	}
	return d
}

// DictKeys returns all property names in serialization order.
func (o *Object) DictKeys() []string {
	keys := []string{"class", "id", "title", "icon", "objects"}
	return append(keys, o.extraKeys...)
}

// Search reports whether value matches this object. With prop "all" every
// stringified property is checked; otherwise only the named one. Matching is
// a case-insensitive substring test.
func (o *Object) Search(prop, value string) bool {
	needle := strings.ToLower(value)
	if prop == "all" {
		for _, k := range o.DictKeys() {
			v, _ := o.Prop(k)
			s, ok := Stringify(v)
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(s), needle) {
				return true
			}
		}
		return false
	}
	v, ok := o.Prop(prop)
	if !ok {
		return false
	}
	s, ok := Stringify(v)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), needle)
}

// Clone returns a deep-enough copy; extra values are shared (they are never
// mutated after construction).
func (o *Object) Clone() *Object {
	c := &Object{Class: o.Class, ID: o.ID, Title: o.Title, Objects: o.Objects}
	if o.Icon != nil {
		icon := *o.Icon
		c.Icon = &icon
	}
	for _, k := range o.extraKeys {
		c.SetExtra(k, o.extras[k])
	}
	return c
}

// MarshalJSON emits class, id, title, icon, objects and then the extras in
// insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(v)
		return nil
	}
	if err := writeField("class", o.Class); err != nil {
		return nil, err
	}
	if err := writeField("id", o.ID); err != nil {
		return nil, err
	}
	if err := writeField("title", o.Title); err != nil {
		return nil, err
	}
	if err := writeField("icon", o.Icon); err != nil {
		return nil, err
	}
	if err := writeField("objects", o.Objects); err != nil {
		return nil, err
	}
	for _, k := range o.extraKeys {
		if err := writeField(k, o.extras[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the wire dict, keeping unknown keys as extras in
// document order and numbers as json.Number so numeric values round-trip
// with their original rendering.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("object: expected JSON object, got %v", tok)
	}
	*o = Object{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("object: bad key token %v", keyTok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		switch key {
		case "class":
			o.Class, _ = val.(string)
		case "id":
			o.ID, _ = val.(string)
		case "title":
			o.Title, _ = val.(string)
		case "icon":
			if s, ok := val.(string); ok {
				o.Icon = &s
			} else {
				o.Icon = nil
			}
		case "objects":
			o.Objects = ToInt(val)
		default:
			o.SetExtra(key, val)
		}
	}
	// Consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// ToInt coerces the numeric shapes JSON decoding produces into an int.
func ToInt(v any) int {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// DecodeList converts a decoded "objects" array into typed objects. Entries
// that are not JSON objects are skipped.
func DecodeList(raw []json.RawMessage) []*Object {
	out := make([]*Object, 0, len(raw))
	for _, r := range raw {
		var o Object
		if err := json.Unmarshal(r, &o); err != nil {
			continue
		}
		out = append(out, &o)
	}
	return out
}
