package sweep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/sweep/pkg/sweep"
)

func TestValue(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		value       sweep.Value
		wantScalars []any
		wantList    bool
	}{
		"scalar": {
			value:       sweep.Scalar("x"),
			wantScalars: []any{"x"},
			wantList:    false,
		},
		"scalar normalizes int": {
			value:       sweep.Scalar(8),
			wantScalars: []any{int64(8)},
			wantList:    false,
		},
		"scalar normalizes float32": {
			value:       sweep.Scalar(float32(0.5)),
			wantScalars: []any{float64(0.5)},
			wantList:    false,
		},
		"list": {
			value:       sweep.List(8, 16),
			wantScalars: []any{int64(8), int64(16)},
			wantList:    true,
		},
		"single-element list stays a list": {
			value:       sweep.List("x"),
			wantScalars: []any{"x"},
			wantList:    true,
		},
		"empty list": {
			value:       sweep.List(),
			wantScalars: []any{},
			wantList:    true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.wantScalars, tc.value.Scalars())
			assert.Equal(t, tc.wantList, tc.value.IsList())
		})
	}
}

func TestRunConfig_EqualValues(t *testing.T) {
	t.Parallel()

	rc := sweep.RunConfig{
		"data_name":  "mnist",
		"batch_size": int64(8),
		"lr":         0.1,
		sweep.MetaKey: map[string]any{
			"refresh_interval": int64(60),
		},
	}

	tcs := map[string]struct {
		other sweep.RunConfig
		want  bool
	}{
		"identical minus metadata": {
			other: sweep.RunConfig{"data_name": "mnist", "batch_size": int64(8), "lr": 0.1},
			want:  true,
		},
		"extra columns on the record are ignored": {
			other: sweep.RunConfig{"data_name": "mnist", "batch_size": int64(8), "lr": 0.1, "accuracy": 0.93},
			want:  true,
		},
		"numeric types are interchangeable": {
			other: sweep.RunConfig{"data_name": "mnist", "batch_size": float64(8), "lr": 0.1},
			want:  true,
		},
		"missing key": {
			other: sweep.RunConfig{"data_name": "mnist", "batch_size": int64(8)},
			want:  false,
		},
		"different value": {
			other: sweep.RunConfig{"data_name": "mnist", "batch_size": int64(16), "lr": 0.1},
			want:  false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, rc.EqualValues(tc.other))
		})
	}
}
