package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyKeepsMemberOrder(t *testing.T) {
	in := `{"m-number":"M1","zeta":"1","alpha":[2,3],"mid":{"b":1,"a":2}}`

	var p Property
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	assert.Equal(t, "M1", p.MNumber)
	require.Len(t, p.Fields, 3)
	assert.Equal(t, "zeta", p.Fields[0].Name)
	assert.Equal(t, "alpha", p.Fields[1].Name)
	assert.Equal(t, "mid", p.Fields[2].Name)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"m-number":"M1","zeta":"1","alpha":[2,3],"mid":{"a":2,"b":1}}`, string(out))
}

func TestPropertyNumericMNumber(t *testing.T) {
	var p Property
	require.NoError(t, json.Unmarshal([]byte(`{"m-number":4711,"x":"y"}`), &p))
	assert.Equal(t, "4711", p.MNumber)
}

func TestPropertyRejectsNonObject(t *testing.T) {
	var p Property
	assert.Error(t, json.Unmarshal([]byte(`["m-number"]`), &p))
}

func TestPropertyCanonicalIgnoresOrder(t *testing.T) {
	var a, b, c Property
	require.NoError(t, json.Unmarshal([]byte(`{"m-number":"M1","x":"1","y":2}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"y":2,"x":"1","m-number":"M1"}`), &b))
	require.NoError(t, json.Unmarshal([]byte(`{"m-number":"M1","x":"1","y":"2"}`), &c))

	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.NotEqual(t, a.Canonical(), c.Canonical(), "number 2 and string \"2\" must differ")
}

func TestPropertyFormat(t *testing.T) {
	var p Property
	require.NoError(t, json.Unmarshal([]byte(`{"m-number":"M1","color":"red","sizes":["S","M"],"n":3}`), &p))
	assert.Equal(t, "color: red | sizes: S,M | n: 3", p.Format())
}

func TestGroupHelpers(t *testing.T) {
	g := Group{
		TM: "A", GLN: "B", GTIN: "C",
		TicsData: []TicsEntry{
			{TICS: "1", Properties: []Property{{MNumber: "M1"}}},
			{TICS: "2", CSV: []CsvEvent{{EventNo: "9"}}},
		},
	}
	assert.False(t, g.HasMatch())
	assert.Equal(t, 1, g.PropertyCount())
	assert.Equal(t, 1, g.EventCount())
	require.NotNil(t, g.Entry("2"))
	assert.Nil(t, g.Entry("3"))
	assert.Equal(t, "A|B|C", g.Key().String())

	g.TicsData[1].Properties = []Property{{MNumber: "M2"}}
	assert.True(t, g.HasMatch())
}
