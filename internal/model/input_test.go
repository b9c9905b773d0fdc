package model

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInputShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    any
		invalid bool
	}{
		{"object", `{"Glucose": 100}`, ObjectInput{}, false},
		{"array", `[1, 2, 3]`, ArrayInput{}, false},
		{"empty object", `{}`, ObjectInput{}, false},
		{"string", `"hello"`, nil, true},
		{"number", `42`, nil, true},
		{"bool", `true`, nil, true},
		{"null", `null`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseInput([]byte(tt.body))
			if tt.invalid {
				assert.True(t, errors.Is(err, ErrInvalidInput))
				assert.Nil(t, in)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, in)
		})
	}
}

func TestParseInputNotJSON(t *testing.T) {
	for _, body := range []string{``, `{"Glucose":`, `not json`} {
		_, err := ParseInput([]byte(body))
		require.Error(t, err, body)

		var perr *ProcessingError
		assert.True(t, errors.As(err, &perr), body)
		assert.False(t, errors.Is(err, ErrInvalidInput), body)
	}
}

func TestParseInputRejectsTrailingData(t *testing.T) {
	for _, body := range []string{`{"Glucose": 180} trailing-garbage`, `[1, 2] [3]`, `{} }`} {
		_, err := ParseInput([]byte(body))
		require.Error(t, err, body)

		var perr *ProcessingError
		assert.True(t, errors.As(err, &perr), body)
		assert.Contains(t, err.Error(), "unexpected data after top-level value", body)
	}

	_, err := ParseInput([]byte("{\"Glucose\": 180}\n  "))
	assert.NoError(t, err)
}

func TestVectorObjectOrder(t *testing.T) {
	in := mustParse(t, `{"Age": 8, "Pregnancies": 1, "BMI": 6, "Glucose": 2, "Unknown": 99}`)

	x, err := Vector(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 0, 0, 0, 6, 0, 8}, x)
}

func TestVectorArrayIsPositional(t *testing.T) {
	x, err := Vector(mustParse(t, `[3, 1, 2]`))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, x)
}

func TestVectorCoercion(t *testing.T) {
	x, err := Vector(ArrayInput{"1.5", " 2 ", true, false, nil, 7})
	require.NoError(t, err)
	require.Len(t, x, 6)
	assert.Equal(t, []float64{1.5, 2, 1, 0}, x[:4])
	assert.True(t, math.IsNaN(x[4]))
	assert.Equal(t, 7.0, x[5])
}

func TestVectorNilInput(t *testing.T) {
	_, err := Vector(nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
