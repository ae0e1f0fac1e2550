// ABOUTME: Field masking applied to documents before they are snapshotted
// ABOUTME: A Mask either includes fields, excludes fields, or keeps everything

package version

import "github.com/nainya/docversions/pkg/document"

type maskKind uint8

const (
	maskNone maskKind = iota
	maskInclude
	maskExclude
)

// Mask projects a document onto a field subset. The zero value keeps every field.
type Mask struct {
	kind   maskKind
	fields []string
}

// NoMask keeps every field
var NoMask = Mask{}

// Include keeps only the named fields
func Include(fields ...string) Mask {
	return Mask{kind: maskInclude, fields: append([]string{}, fields...)}
}

// Exclude drops the named fields
func Exclude(fields ...string) Mask {
	return Mask{kind: maskExclude, fields: append([]string{}, fields...)}
}

// MaskFromLists builds a Mask from optional include and exclude lists.
// A nil list is absent; supplying both is a configuration error.
func MaskFromLists(include, exclude []string) (Mask, error) {
	var m Mask
	switch {
	case include != nil && exclude != nil:
		return Mask{}, &ConfigError{Field: "mask", Message: "you may only supply an excludeMask or an includeMask"}
	case include != nil:
		m = Include(include...)
	case exclude != nil:
		m = Exclude(exclude...)
	}
	return m, m.validate()
}

func (m Mask) validate() error {
	for _, f := range m.fields {
		if f == "" {
			return &ConfigError{Field: "mask", Message: "field names must not be empty"}
		}
	}
	return nil
}

// Fields returns the masked field names
func (m Mask) Fields() []string {
	return append([]string{}, m.fields...)
}

// String names the variant
func (m Mask) String() string {
	switch m.kind {
	case maskInclude:
		return "include"
	case maskExclude:
		return "exclude"
	default:
		return "none"
	}
}

// Apply returns the masked shallow copy of doc, or nil when no field is left
func (m Mask) Apply(doc document.Document) document.Document {
	var out document.Document

	switch m.kind {
	case maskInclude:
		out = make(document.Document, len(m.fields))
		for _, f := range m.fields {
			if v, ok := doc[f]; ok {
				out[f] = v
			}
		}
	case maskExclude:
		out = doc.Clone()
		for _, f := range m.fields {
			delete(out, f)
		}
	default:
		out = doc.Clone()
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
