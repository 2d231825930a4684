package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefault(t *testing.T) *Tables {
	t.Helper()
	tbl, err := Load("../../config/xtouch_mapping.json", "../../config/eos_actions.json")
	require.NoError(t, err)
	return tbl
}

func TestResolveOneByteKey(t *testing.T) {
	tbl := loadDefault(t)

	el, payload, ok := tbl.Resolve([]byte{0xE2, 0x00, 0x40})
	require.True(t, ok)
	assert.Equal(t, Element{Type: TypeFader, Semantic: "3"}, el)
	assert.Equal(t, []byte{0x00, 0x40}, payload)
}

func TestResolveTwoByteKey(t *testing.T) {
	tbl := loadDefault(t)

	el, payload, ok := tbl.Resolve([]byte{0x90, 0x34, 0x7F})
	require.True(t, ok)
	assert.Equal(t, Element{Type: TypeSwitch, Semantic: "LIVE"}, el)
	assert.Equal(t, []byte{0x7F}, payload)

	name, ok := tbl.Value(el.Type, payload)
	assert.True(t, ok)
	assert.Equal(t, "Pressed", name)
}

func TestResolveUnknown(t *testing.T) {
	tbl := loadDefault(t)

	_, _, ok := tbl.Resolve([]byte{0xA0, 0x01, 0x02})
	assert.False(t, ok)
	_, _, ok = tbl.Resolve(nil)
	assert.False(t, ok)
}

func TestValueWithoutMap(t *testing.T) {
	tbl := loadDefault(t)

	assert.False(t, tbl.HasValues(TypeFader))
	_, ok := tbl.Value(TypeFader, []byte{0x00, 0x40})
	assert.False(t, ok)
}

func TestReverseAndOutValue(t *testing.T) {
	tbl := loadDefault(t)

	raw, err := tbl.Reverse(TypeSwitch, "fader_page_3")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x38}, raw)

	raw, err = tbl.Reverse(TypeFader, "8")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE7}, raw)

	_, err = tbl.Reverse(TypeSwitch, "nope")
	assert.ErrorIs(t, err, ErrNoSuchID)

	code, ok := tbl.OutValue(TypeSwitch, "Flashing")
	assert.True(t, ok)
	assert.Equal(t, []byte{0x01}, code)
	_, ok = tbl.OutValue(TypeFader, "On")
	assert.False(t, ok)
}

func TestActions(t *testing.T) {
	tbl := loadDefault(t)

	assert.Equal(t, "live", tbl.Action("LIVE"))
	assert.Equal(t, "fader_page_next", tbl.Action("fader_bank_right"))
	assert.Equal(t, "", tbl.Action("select_1"))
	assert.Equal(t, "", tbl.Action("not-there"))
}

func TestLoadYAML(t *testing.T) {
	tbl, err := Load("testdata/surface.yaml", "testdata/actions.yaml")
	require.NoError(t, err)

	el, payload, ok := tbl.Resolve([]byte{0xE0, 0x10, 0x20})
	require.True(t, ok)
	assert.Equal(t, "1", el.Semantic)
	assert.Len(t, payload, 2)

	el, payload, ok = tbl.Resolve([]byte{0x90, 0x68, 0x7F})
	require.True(t, ok)
	assert.Equal(t, TypeFaderTouch, el.Type)
	name, _ := tbl.Value(el.Type, payload)
	assert.Equal(t, "Pressed", name)

	assert.Equal(t, "live", tbl.Action("LIVE"))

	_, err = tbl.Reverse(TypeSwitch, "")
	assert.ErrorIs(t, err, ErrNoSuchID)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("testdata/missing.json", "")
	assert.Error(t, err)

	_, err = Load("testdata/bad_values.json", "")
	assert.ErrorContains(t, err, "switch.values")

	dir := t.TempDir()
	path := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"switch": {"90 34": "A"}, "fader_touch": {"90 34": "B"}}`), 0o644))
	_, err = Load(path, "")
	assert.ErrorContains(t, err, "already mapped")

	path = filepath.Join(dir, "long.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"switch": {"90 34 7f": "A"}}`), 0o644))
	_, err = Load(path, "")
	assert.ErrorContains(t, err, "1 or 2 bytes")
}

func TestFormatParseID(t *testing.T) {
	assert.Equal(t, "90 0a", FormatID([]byte{0x90, 0x0A}))
	b, err := ParseID(" 90  0A ")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x0A}, b)
	assert.Equal(t, "e0", NormalizeID("E0"))
}
