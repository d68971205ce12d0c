package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyMatcher_ExactBeforePartial(t *testing.T) {
	headers := NewHeaders([]string{"Item Price", "Price"})
	row := []string{"9.99", "5"}

	m, ok := FuzzyMatcher{}.Match([]string{"unit_price", "price"}, headers, row)
	require.True(t, ok)
	assert.True(t, m.Exact)
	assert.Equal(t, "Price", m.Header.Name)
	assert.Equal(t, "5", m.Value)
}

func TestFuzzyMatcher_PartialFallback(t *testing.T) {
	headers := NewHeaders([]string{"Item Price", "Qty"})
	row := []string{"9.99", "2"}

	m, ok := FuzzyMatcher{}.Match([]string{"unit_price", "price"}, headers, row)
	require.True(t, ok)
	assert.False(t, m.Exact)
	assert.Equal(t, "Item Price", m.Header.Name)
	assert.Equal(t, "price", m.Alias)
	assert.Equal(t, "9.99", m.Value)
}

func TestFuzzyMatcher_SkipsEmptyValues(t *testing.T) {
	headers := NewHeaders([]string{"price", "Unit Price"})
	row := []string{"", "3"}

	m, ok := FuzzyMatcher{}.Match([]string{"price"}, headers, row)
	require.True(t, ok)
	assert.Equal(t, "Unit Price", m.Header.Name)
	assert.False(t, m.Exact)
}

func TestFuzzyMatcher_AliasOrderWins(t *testing.T) {
	headers := NewHeaders([]string{"qty", "quantity"})
	row := []string{"1", "2"}

	m, ok := FuzzyMatcher{}.Match([]string{"quantity", "qty"}, headers, row)
	require.True(t, ok)
	assert.Equal(t, "2", m.Value)
}

func TestFuzzyMatcher_NoMatch(t *testing.T) {
	headers := NewHeaders([]string{"", "Notes"})
	row := []string{"x", "y"}

	_, ok := FuzzyMatcher{}.Match([]string{"gender", "sex"}, headers, row)
	assert.False(t, ok)
}

func TestFuzzyMatcher_IgnoresPunctuationOnlyKeys(t *testing.T) {
	headers := NewHeaders([]string{"#", "--", "Gender"})
	row := []string{"1", "2", "F"}

	m, ok := FuzzyMatcher{}.Match([]string{"gender"}, headers, row)
	require.True(t, ok)
	assert.Equal(t, "Gender", m.Header.Name)

	_, ok = FuzzyMatcher{}.Match([]string{"city"}, headers, row)
	assert.False(t, ok)

	_, ok = FuzzyMatcher{}.Match([]string{"%"}, NewHeaders([]string{"Notes"}), []string{"x"})
	assert.False(t, ok)
}
