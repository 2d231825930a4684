// Package mapping holds the static wire <-> semantic translation tables of
// the surface. Tables are loaded once and never mutated afterwards.
package mapping

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Element types known to the surface engine.
const (
	TypeSwitch     = "switch"
	TypeFader      = "fader"
	TypeFaderTouch = "fader_touch"
	TypeEncoder    = "encoder"
	TypeJogWheel   = "jogwheel"
)

const (
	keyValues    = "values"
	keyOutValues = "outvalues"
)

var ErrNoSuchID = errors.New("mapping: no such identifier")

type Element struct {
	Type     string
	Semantic string
}

// Tables is the parsed form of the surface mapping file plus the action map.
type Tables struct {
	ids       map[string]Element
	values    map[string]map[string]string
	outValues map[string]map[string]string
	reverse   map[string]reverseEntry
	actions   map[string]string
}

type reverseEntry struct {
	Type string
	Raw  []byte
}

// Raw is the on-disk shape: element type -> wire id -> semantic id, with the
// "values" and "outvalues" keys holding nested code tables.
type Raw map[string]map[string]any

func New(raw Raw, actions map[string]string) (*Tables, error) {
	t := &Tables{
		ids:       map[string]Element{},
		values:    map[string]map[string]string{},
		outValues: map[string]map[string]string{},
		reverse:   map[string]reverseEntry{},
		actions:   map[string]string{},
	}

	types := make([]string, 0, len(raw))
	for typ := range raw {
		types = append(types, typ)
	}
	sort.Strings(types)

	for _, typ := range types {
		for key, v := range raw[typ] {
			switch key {
			case keyValues, keyOutValues:
				nested, err := stringTable(v)
				if err != nil {
					return nil, fmt.Errorf("mapping: %s.%s: %w", typ, key, err)
				}
				if key == keyValues {
					t.values[typ] = normalizeKeys(nested)
				} else {
					t.outValues[typ] = nested
				}
				continue
			}

			semantic, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("mapping: %s.%s: want string, got %T", typ, key, v)
			}
			id := NormalizeID(key)
			b, err := ParseID(id)
			if err != nil {
				return nil, fmt.Errorf("mapping: %s.%s: %w", typ, key, err)
			}
			if len(b) == 0 || len(b) > 2 {
				return nil, fmt.Errorf("mapping: %s.%s: identifier must be 1 or 2 bytes", typ, key)
			}
			if prev, dup := t.ids[id]; dup {
				return nil, fmt.Errorf("mapping: %s.%s: already mapped as %s.%s", typ, key, prev.Type, prev.Semantic)
			}
			t.ids[id] = Element{Type: typ, Semantic: semantic}
			if semantic != "" {
				t.reverse[typ+"/"+semantic] = reverseEntry{Type: typ, Raw: b}
			}
		}
	}

	for k, v := range actions {
		t.actions[k] = v
	}
	return t, nil
}

// Resolve looks up the element addressed by a raw message, trying a one-byte
// key first, then a two-byte key. It returns the element and the payload
// bytes that follow the key.
func (t *Tables) Resolve(msg []byte) (Element, []byte, bool) {
	for n := 1; n <= 2 && n <= len(msg); n++ {
		if el, ok := t.ids[FormatID(msg[:n])]; ok {
			return el, msg[n:], true
		}
	}
	return Element{}, nil, false
}

// Value translates payload bytes through the type's value-map. The second
// result is false when the type has no value-map or the code is unknown.
func (t *Tables) Value(typ string, payload []byte) (string, bool) {
	vm, ok := t.values[typ]
	if !ok {
		return "", false
	}
	name, ok := vm[FormatID(payload)]
	return name, ok
}

func (t *Tables) HasValues(typ string) bool {
	_, ok := t.values[typ]
	return ok
}

// OutValue returns the wire code for a named output state of an element type.
func (t *Tables) OutValue(typ, name string) ([]byte, bool) {
	ov, ok := t.outValues[typ]
	if !ok {
		return nil, false
	}
	code, ok := ov[name]
	if !ok {
		return nil, false
	}
	b, err := ParseID(code)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Reverse returns the raw identifier of a semantic id of the given type.
func (t *Tables) Reverse(typ, semantic string) ([]byte, error) {
	e, ok := t.reverse[typ+"/"+semantic]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNoSuchID, typ, semantic)
	}
	out := make([]byte, len(e.Raw))
	copy(out, e.Raw)
	return out, nil
}

// Action returns the application action bound to a semantic id. An empty
// result means no action.
func (t *Tables) Action(semantic string) string {
	return t.actions[semantic]
}

func (t *Tables) Len() int {
	return len(t.ids)
}

func NormalizeID(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func FormatID(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = hex.EncodeToString([]byte{c})
	}
	return strings.Join(parts, " ")
}

func ParseID(s string) ([]byte, error) {
	return hex.DecodeString(strings.ReplaceAll(NormalizeID(s), " ", ""))
}

func stringTable(v any) (map[string]string, error) {
	out := map[string]string{}
	switch m := v.(type) {
	case map[string]any:
		for k, x := range m {
			s, ok := x.(string)
			if !ok {
				return nil, fmt.Errorf("entry %q: want string, got %T", k, x)
			}
			out[k] = s
		}
	case map[string]string:
		for k, s := range m {
			out[k] = s
		}
	default:
		return nil, fmt.Errorf("want table, got %T", v)
	}
	return out, nil
}

func normalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[NormalizeID(k)] = v
	}
	return out
}

// Load reads the surface table and the action map from disk. Files ending in
// .yaml or .yml are parsed as YAML, anything else as JSON.
func Load(tablePath, actionsPath string) (*Tables, error) {
	var raw Raw
	if err := decodeFile(tablePath, &raw); err != nil {
		return nil, err
	}
	actions := map[string]string{}
	if actionsPath != "" {
		if err := decodeFile(actionsPath, &actions); err != nil {
			return nil, err
		}
	}
	return New(raw, actions)
}

func decodeFile(path string, v any) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("mapping: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(buf, v)
	default:
		err = json.Unmarshal(buf, v)
	}
	if err != nil {
		return fmt.Errorf("mapping: parse %s: %w", path, err)
	}
	return nil
}
