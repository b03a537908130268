package progress

import (
	"bytes"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestBars(t *testing.T) {
	assert := assert_.New(t)
	var buf bytes.Buffer
	bars := NewBars(&buf, "uploading")
	update := bars.Func()

	update(5, 10)
	first := bars.bar
	assert.NotNil(first)
	assert.Contains(buf.String(), "uploading")

	update(10, 10)
	assert.Same(first, bars.bar)

	// Next file in the batch
	update(3, 10)
	assert.NotSame(first, bars.bar)

	second := bars.bar
	update(4, 20)
	assert.NotSame(second, bars.bar)
}

func TestBarsUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	update := NewBars(&buf, "downloading").Func()
	assert_.NotPanics(t, func() {
		update(100, -1)
		update(200, -1)
	})
}
