package generic

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestOrderedMap(t *testing.T) {
	assert := assert_.New(t)

	var m OrderedMap[string, string]
	assert.Equal(0, m.Len())
	_, found := m.Get("a")
	assert.False(found)

	m.Set("b", "1")
	m.Set("a", "2")
	m.Set("b", "3")
	assert.Equal(2, m.Len())
	assert.Equal([]string{"b", "a"}, m.Keys())
	v, found := m.Get("b")
	assert.True(found)
	assert.Equal("3", v)

	var visited []string
	m.Each(func(k, v string) {
		visited = append(visited, k+"="+v)
	})
	assert.Equal([]string{"b=3", "a=2"}, visited)
}

func TestOrderedMap_Clone(t *testing.T) {
	assert := assert_.New(t)

	var m OrderedMap[string, int]
	m.Set("x", 1)
	c := m.Clone()
	c.Set("x", 2)
	c.Set("y", 3)

	v, _ := m.Get("x")
	assert.Equal(1, v)
	assert.Equal([]string{"x"}, m.Keys())
	assert.Equal([]string{"x", "y"}, c.Keys())

	// Mutating the returned keys must not affect the map
	keys := c.Keys()
	keys[0] = "z"
	assert.Equal([]string{"x", "y"}, c.Keys())
}

func TestOrderedMap_Merge(t *testing.T) {
	assert := assert_.New(t)

	var base, extra OrderedMap[string, string]
	base.Set("Authorization", "LOW a:b")
	base.Set("x-archive-meta-title", "old")
	extra.Set("x-archive-meta-title", "new")
	extra.Set("x-archive-meta-date", "2024-05-10")

	merged := base.Merge(extra)
	assert.Equal([]string{"Authorization", "x-archive-meta-title", "x-archive-meta-date"}, merged.Keys())
	title, _ := merged.Get("x-archive-meta-title")
	assert.Equal("new", title)

	// Inputs are untouched
	title, _ = base.Get("x-archive-meta-title")
	assert.Equal("old", title)
	assert.Equal(2, base.Len())
	assert.Equal(2, extra.Len())

	// Merging into an empty map
	var empty OrderedMap[string, string]
	assert.Equal(extra.Keys(), empty.Merge(extra).Keys())
	assert.Equal(0, empty.Len())
}
