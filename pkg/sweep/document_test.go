package sweep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/sweep/pkg/sweep"
)

func TestDocument(t *testing.T) {
	t.Parallel()

	d := sweep.NewDocument(
		sweep.Entry{Key: "a", Value: sweep.Scalar(1)},
		sweep.Entry{Key: "b", Value: sweep.List(2, 3)},
	)

	assert.Equal(t, []string{"a", "b"}, d.Keys())
	assert.Equal(t, 2, d.Len())
	assert.True(t, d.Has("a"))
	assert.False(t, d.Has("c"))

	v, ok := d.Get("b")
	assert.True(t, ok)
	assert.Equal(t, []any{int64(2), int64(3)}, v.Scalars())

	_, ok = d.Get("c")
	assert.False(t, ok)
}

func TestDocument_SetKeepsPosition(t *testing.T) {
	t.Parallel()

	d := sweep.NewDocument(
		sweep.Entry{Key: "a", Value: sweep.Scalar(1)},
		sweep.Entry{Key: "b", Value: sweep.Scalar(2)},
	)

	d.Set("a", sweep.Scalar(10))
	d.Set("c", sweep.Scalar(3))

	assert.Equal(t, []string{"a", "b", "c"}, d.Keys())

	v, _ := d.Get("a")
	assert.Equal(t, int64(10), v.Scalar())
}

func TestDocument_SetDefault(t *testing.T) {
	t.Parallel()

	d := sweep.NewDocument(
		sweep.Entry{Key: "a", Value: sweep.Scalar(1)},
	)

	d.SetDefault("a", sweep.Scalar(10))
	d.SetDefault("b", sweep.Scalar(2))

	v, _ := d.Get("a")
	assert.Equal(t, int64(1), v.Scalar())

	v, _ = d.Get("b")
	assert.Equal(t, int64(2), v.Scalar())
}
