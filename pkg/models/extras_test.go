package models_test

import (
	"encoding/json"
	"testing"

	"github.com/kiranshivaraju/salesboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtras_MarshalPreservesOrder(t *testing.T) {
	var e models.Extras
	e.Set("zeta", "1")
	e.Set("alpha", "2")
	e.Set("zeta", "3")

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"3","alpha":"2"}`, string(data))

	v, ok := e.Get("alpha")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = e.Get("missing")
	assert.False(t, ok)
}

func TestExtras_MarshalEmpty(t *testing.T) {
	data, err := json.Marshal(models.Sale{}.Extra)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestExtras_UnmarshalKeepsNonStringValues(t *testing.T) {
	var e models.Extras
	require.NoError(t, json.Unmarshal([]byte(`{"b":"x","a":12,"c":true,"d":null}`), &e))

	assert.Equal(t, models.Extras{
		{Key: "b", Value: "x"},
		{Key: "a", Value: "12"},
		{Key: "c", Value: "true"},
		{Key: "d", Value: ""},
	}, e)
}

func TestExtras_UnmarshalRejectsArray(t *testing.T) {
	var e models.Extras
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &e))
}
