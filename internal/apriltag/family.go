package apriltag

import (
	"fmt"
	"strings"
	"unicode"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// AllFamiliesToken is the family specification string that selects every
// family in the native registry.
const AllFamiliesToken = "all"

type familyKind int

const (
	familyDelimited familyKind = iota
	familyAll
	familyList
)

// FamilySpec selects the tag families a Detector registers. It is one of
// three variants: every registered family (AllFamilies), an explicit list of
// names (FamilyNames) or a delimited string such as "tag36h11 tag25h9"
// (FamilyString). The zero value is an empty delimited string and selects
// nothing.
type FamilySpec struct {
	kind  familyKind
	names []string
	text  string
}

// AllFamilies selects every family the native library reports.
func AllFamilies() FamilySpec {
	return FamilySpec{kind: familyAll}
}

// FamilyNames selects the given families, in order.
func FamilyNames(names ...string) FamilySpec {
	return FamilySpec{kind: familyList, names: append([]string(nil), names...)}
}

// FamilyString parses text as a list of family names separated by any run of
// non-word characters. The literal "all" selects every family.
func FamilyString(text string) FamilySpec {
	if text == AllFamiliesToken {
		return AllFamilies()
	}
	return FamilySpec{kind: familyDelimited, text: text}
}

// IsAll reports whether s selects every registry family.
func (s FamilySpec) IsAll() bool {
	return s.kind == familyAll
}

// Resolve turns s into a concrete list of family names. available is
// the native registry listing and is only consulted for AllFamilies.
// Duplicates are dropped; the first occurrence keeps its position.
func (s FamilySpec) Resolve(available []string) []string {
	var names []string
	switch s.kind {
	case familyAll:
		names = available
	case familyList:
		names = s.names
	default:
		names = splitFamilies(s.text)
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func (s FamilySpec) String() string {
	switch s.kind {
	case familyAll:
		return AllFamiliesToken
	case familyList:
		return strings.Join(s.names, ",")
	default:
		return s.text
	}
}

// splitFamilies splits on runs of characters that are not letters, digits or
// underscores and drops empty fields.
func splitFamilies(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

// UnmarshalYAML accepts either a scalar ("all" or a delimited string) or a
// sequence of names.
func (s *FamilySpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var text string
		if err := value.Decode(&text); err != nil {
			return err
		}
		*s = FamilyString(text)
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		*s = FamilyNames(names...)
		return nil
	default:
		return fmt.Errorf("families: expected string or list, got %s", nodeKind(value.Kind))
	}
}

// MarshalYAML writes lists as sequences and everything else as a string.
func (s FamilySpec) MarshalYAML() (interface{}, error) {
	if s.kind == familyList {
		return s.names, nil
	}
	return s.String(), nil
}

// UnmarshalJSON accepts either a JSON string or an array of strings.
func (s *FamilySpec) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*s = FamilyString(v)
	case []interface{}:
		names := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return fmt.Errorf("families: list entries must be strings, got %T", item)
			}
			names = append(names, name)
		}
		*s = FamilyNames(names...)
	case nil:
		*s = FamilySpec{}
	default:
		return fmt.Errorf("families: expected string or array, got %T", raw)
	}
	return nil
}

// MarshalJSON mirrors MarshalYAML.
func (s FamilySpec) MarshalJSON() ([]byte, error) {
	if s.kind == familyList {
		return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(s.names)
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(s.String())
}

func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "unknown node"
	}
}
