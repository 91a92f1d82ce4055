package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHeader struct {
	Base
	Name  string `persist:"Name"`
	Value string `persist:"Value"`
}

type testMessage struct {
	Base
	Code     int               `persist:"StatusCode"`
	Headers  map[string]string `persist:"Headers"`
	Tags     []string          `persist:"Tags"`
	Header   *testHeader       `persist:"Header"`
	Secure   bool
	Ratio    float64 `persist:"Ratio"`
	Hidden   string  `persist:"-"`
	internal string
}

func TestFields_DeclarationOrder(t *testing.T) {
	fields := Fields(&testMessage{})

	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"StatusCode", "Headers", "Tags", "Header", "Secure", "Ratio"}, keys)
	assert.Equal(t, "Code", fields[0].Name)
}

func TestContents_NilBecomesUnknown(t *testing.T) {
	msg := &testMessage{Code: 200}

	contents := Contents(msg)
	require.Len(t, contents, 6)
	assert.Equal(t, Entry{Key: "StatusCode", Value: 200}, contents[0])
	assert.Equal(t, Unknown, contents[1].Value)
	assert.Equal(t, Unknown, contents[2].Value)
	assert.Equal(t, Unknown, contents[3].Value)
	for _, e := range contents {
		assert.NotNil(t, e.Value, "key %s", e.Key)
	}
}

func TestContents_NestedPersistable(t *testing.T) {
	h := &testHeader{Name: "Accept"}
	msg := &testMessage{Header: h}

	contents := Contents(msg)
	assert.Same(t, h, contents[3].Value)
}

func TestContents_ExtrasFollowDeclaredFields(t *testing.T) {
	msg := &testMessage{}
	require.NoError(t, SetField(msg, "Reason", "OK"))
	require.NoError(t, SetField(msg, "reason", "Fine"))

	contents := Contents(msg)
	last := contents[len(contents)-1]
	assert.Equal(t, Entry{Key: "Reason", Value: "Fine"}, last)
	assert.Len(t, contents, 7)
}

type providedContents struct {
	Base
}

func (providedContents) PersistContents() []Entry {
	return []Entry{{Key: "A", Value: "1"}, {Key: "B", Value: nil}}
}

func TestContents_Provider(t *testing.T) {
	assert.Equal(t, []Entry{{Key: "A", Value: "1"}, {Key: "B", Value: nil}}, Contents(&providedContents{}))
}

func TestSetField_Conversions(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		check func(t *testing.T, m *testMessage)
	}{
		{"string to int", "StatusCode", "404", func(t *testing.T, m *testMessage) { assert.Equal(t, 404, m.Code) }},
		{"json number to int", "statuscode", json.Number("201"), func(t *testing.T, m *testMessage) { assert.Equal(t, 201, m.Code) }},
		{"float to int", "StatusCode", float64(500), func(t *testing.T, m *testMessage) { assert.Equal(t, 500, m.Code) }},
		{"json string to map", "Headers", `{"Content-Type":"application/json"}`, func(t *testing.T, m *testMessage) {
			assert.Equal(t, map[string]string{"Content-Type": "application/json"}, m.Headers)
		}},
		{"object to map", "Headers", map[string]any{"A": "b"}, func(t *testing.T, m *testMessage) {
			assert.Equal(t, map[string]string{"A": "b"}, m.Headers)
		}},
		{"array to slice", "Tags", []any{"x", "y"}, func(t *testing.T, m *testMessage) {
			assert.Equal(t, []string{"x", "y"}, m.Tags)
		}},
		{"json array text to slice", "Tags", `["x", "y"]`, func(t *testing.T, m *testMessage) {
			assert.Equal(t, []string{"x", "y"}, m.Tags)
		}},
		{"string to bool", "Secure", "true", func(t *testing.T, m *testMessage) { assert.True(t, m.Secure) }},
		{"string to float", "Ratio", "0.25", func(t *testing.T, m *testMessage) { assert.Equal(t, 0.25, m.Ratio) }},
		{"persistable to pointer", "Header", &testHeader{Name: "X"}, func(t *testing.T, m *testMessage) {
			require.NotNil(t, m.Header)
			assert.Equal(t, "X", m.Header.Name)
		}},
		{"unknown sentinel leaves zero", "Tags", Unknown, func(t *testing.T, m *testMessage) { assert.Nil(t, m.Tags) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &testMessage{}
			require.NoError(t, SetField(msg, tt.key, tt.value))
			tt.check(t, msg)
		})
	}
}

func TestSetField_InvalidConversion(t *testing.T) {
	err := SetField(&testMessage{}, "StatusCode", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "testMessage.StatusCode")
}

func TestSetField_NilObject(t *testing.T) {
	var msg *testMessage
	err := SetField(msg, "StatusCode", 1)
	assert.True(t, IsValidation(err))
}

func TestValidate(t *testing.T) {
	var nilMsg *testMessage
	assert.True(t, IsValidation(Validate(nilMsg)))
	assert.True(t, IsValidation(Validate(nil)))

	msg := &testMessage{}
	assert.NoError(t, Validate(msg))

	msg.SetEnabled(false)
	err := Validate(msg)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "testMessage")
}

func TestBase_Parent(t *testing.T) {
	parent := &testMessage{}
	child := &testHeader{}
	assert.Nil(t, child.Parent())
	child.SetParent(parent)
	assert.Same(t, parent, child.Parent())
	assert.True(t, child.Enabled())
}

func TestEqual(t *testing.T) {
	a := &testMessage{Code: 200, Tags: []string{"a"}, Header: &testHeader{Name: "N"}}
	b := &testMessage{Code: 200, Tags: []string{"a"}, Header: &testHeader{Name: "N"}}
	b.Header.SetParent(b)
	assert.True(t, Equal(a, b))

	b.Header.Value = "changed"
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(a, nil))
	assert.True(t, Equal(nil, nil))
}

func TestDump(t *testing.T) {
	msg := &testMessage{Code: 200, Header: &testHeader{Name: "Content-Type", Value: "application/json"}}

	out := Dump(msg, 8)
	assert.Contains(t, out, "testMessage\n")
	assert.Contains(t, out, "  StatusCode: 200\n")
	assert.Contains(t, out, "  Header\n")
	assert.Contains(t, out, "    Value: applicat...\n")
}
