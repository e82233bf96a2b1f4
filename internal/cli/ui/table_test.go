package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"ID", "Name", "Level"}, &TableOptions{NoColor: true})
	table.AddRow("10702", "ModelBuilt", "info")
	table.AddRow("10600", "ShadowPropertyCreated")
	table.Render()

	want := "" +
		"ID     Name                   Level\n" +
		"─────  ─────────────────────  ─────\n" +
		"10702  ModelBuilt             info\n" +
		"10600  ShadowPropertyCreated  \n"
	assert.Equal(t, want, buf.String())
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, nil, nil)
	table.AddRow("ignored")
	table.Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable_Render(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Entity types", "4")
	kv.AddRow("Digest", "abc")
	kv.Render()

	assert.Equal(t, "Entity types: 4\nDigest:       abc\n", buf.String())
}
