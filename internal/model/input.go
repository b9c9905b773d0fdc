package model

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Input is a decoded request body. It is either an ObjectInput or an
// ArrayInput; the shape is resolved once in ParseInput.
type Input interface {
	values() []namedValue
}

// ObjectInput maps feature names to raw values. Missing names default to 0.
type ObjectInput map[string]any

// ArrayInput holds raw values in feature order. Its length is not checked
// here; a mismatch surfaces as a processing error.
type ArrayInput []any

type namedValue struct {
	name  string
	value any
}

func (in ObjectInput) values() []namedValue {
	out := make([]namedValue, len(FeatureNames))
	for i, name := range FeatureNames {
		v, ok := in[name]
		if !ok {
			v = 0
		}
		out[i] = namedValue{name: name, value: v}
	}
	return out
}

func (in ArrayInput) values() []namedValue {
	out := make([]namedValue, len(in))
	for i, v := range in {
		out[i] = namedValue{name: "[" + strconv.Itoa(i) + "]", value: v}
	}
	return out
}

// ParseInput decodes a JSON body. A body that is not JSON is a processing
// error; valid JSON that is neither an object nor an array is
// ErrInvalidInput.
func ParseInput(body []byte) (Input, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, processingErr(errors.Wrap(err, "failed to decode request body"))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, processingErr(errors.New("failed to decode request body: unexpected data after top-level value"))
	}

	switch v := raw.(type) {
	case map[string]any:
		return ObjectInput(v), nil
	case []any:
		return ArrayInput(v), nil
	default:
		return nil, ErrInvalidInput
	}
}

// Vector coerces the input to float64 in feature order. JSON null becomes
// NaN and is rejected later by the dimension checks.
func Vector(in Input) ([]float64, error) {
	if in == nil {
		return nil, ErrInvalidInput
	}

	vals := in.values()
	out := make([]float64, len(vals))
	for i, nv := range vals {
		f, err := toFloat(nv.value)
		if err != nil {
			return nil, processingErr(errors.Wrapf(err, "could not convert %s to float", nv.name))
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return math.NaN(), nil
	case string:
		return cast.ToFloat64E(strings.TrimSpace(t))
	case map[string]any, []any:
		return 0, errors.New("setting an array element with a sequence")
	default:
		return cast.ToFloat64E(t)
	}
}

func checkFinite(x []float64) error {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("input X contains NaN or infinity")
		}
	}
	return nil
}
