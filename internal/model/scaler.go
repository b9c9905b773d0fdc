package model

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Scaler normalizes a raw feature vector before inference.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
	NumFeatures() int
	Kind() string
}

type scalerFile struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean"`
	Min   []float64 `json:"min"`
	Scale []float64 `json:"scale"`
}

// LoadScaler reads a scaler exported as JSON.
func LoadScaler(path string) (Scaler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scaler")
	}

	var f scalerFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse scaler")
	}

	switch f.Kind {
	case "standard", "":
		return NewStandardScaler(f.Mean, f.Scale)
	case "minmax":
		return NewMinMaxScaler(f.Min, f.Scale)
	default:
		return nil, errors.Errorf("unsupported scaler kind %q", f.Kind)
	}
}

// StandardScaler computes (x - mean) / scale.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 {
		return nil, errors.New("standard scaler: mean is empty")
	}
	if len(mean) != len(scale) {
		return nil, errors.Errorf("standard scaler: mean has %d values, scale has %d", len(mean), len(scale))
	}
	return &StandardScaler{mean: mean, scale: nonZero(scale)}, nil
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if err := checkDims(x, len(s.mean), "StandardScaler"); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.mean[i]) / s.scale[i]
	}
	return out, nil
}

func (s *StandardScaler) NumFeatures() int { return len(s.mean) }
func (s *StandardScaler) Kind() string     { return "standard" }

// MinMaxScaler computes x*scale + min, matching sklearn's fitted attributes.
type MinMaxScaler struct {
	offset []float64
	scale  []float64
}

func NewMinMaxScaler(offset, scale []float64) (*MinMaxScaler, error) {
	if len(offset) == 0 {
		return nil, errors.New("minmax scaler: min is empty")
	}
	if len(offset) != len(scale) {
		return nil, errors.Errorf("minmax scaler: min has %d values, scale has %d", len(offset), len(scale))
	}
	return &MinMaxScaler{offset: offset, scale: scale}, nil
}

func (s *MinMaxScaler) Transform(x []float64) ([]float64, error) {
	if err := checkDims(x, len(s.offset), "MinMaxScaler"); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*s.scale[i] + s.offset[i]
	}
	return out, nil
}

func (s *MinMaxScaler) NumFeatures() int { return len(s.offset) }
func (s *MinMaxScaler) Kind() string     { return "minmax" }

// nonZero replaces zero entries with 1 so constant features pass through.
func nonZero(scale []float64) []float64 {
	out := make([]float64, len(scale))
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		out[i] = v
	}
	return out
}

func checkDims(x []float64, want int, name string) error {
	if len(x) != want {
		return errors.Errorf("X has %d features, but %s is expecting %d features as input", len(x), name, want)
	}
	return checkFinite(x)
}
