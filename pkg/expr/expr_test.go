package expr_test

import (
	"testing"

	"github.com/google/cel-go/cel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/sweep/pkg/expr"
)

func TestEnvironment_Compile(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment(
		cel.Variable("config", cel.MapType(cel.StringType, cel.DynType)),
	)

	tcs := map[string]struct {
		expression string
		input      map[string]any
		want       bool
		wantErr    bool
	}{
		"comparison": {
			expression: `config.batch_size == 16`,
			input:      map[string]any{"config": map[string]any{"batch_size": int64(16)}},
			want:       true,
		},
		"string function": {
			expression: `config.data_name.startsWith("mnist")`,
			input:      map[string]any{"config": map[string]any{"data_name": "mnist-aug"}},
			want:       true,
		},
		"extension function": {
			expression: `math.greatest(config.epochs, 10) == 10`,
			input:      map[string]any{"config": map[string]any{"epochs": int64(5)}},
			want:       true,
		},
		"false result": {
			expression: `config.epochs > 100`,
			input:      map[string]any{"config": map[string]any{"epochs": int64(5)}},
			want:       false,
		},
		"missing key": {
			expression: `config.lr == 0.1`,
			input:      map[string]any{"config": map[string]any{}},
			wantErr:    true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			program, err := env.Compile(tc.expression)
			require.NoError(t, err)

			got, err := expr.EvalBool(program, tc.input)
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnvironment_CompileError(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment()

	_, err := env.Compile(`1 +`)
	require.Error(t, err)
	assert.ErrorContains(t, err, "compile expression")
}

func TestEvalBool_NonBool(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment()

	program, err := env.Compile(`1 + 1`)
	require.NoError(t, err)

	_, err = expr.EvalBool(program, map[string]any{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "expected bool")
}
