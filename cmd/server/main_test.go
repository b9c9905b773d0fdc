package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifacts(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	scaler := filepath.Join(dir, "scaler.json")
	require.NoError(t, os.WriteFile(scaler, []byte(`{
		"kind": "standard",
		"mean": [3.8, 120.9, 69.1, 20.5, 79.8, 32.0, 0.47, 33.2],
		"scale": [3.4, 32.0, 19.4, 16.0, 115.2, 7.9, 0.33, 11.8]
	}`), 0o600))

	classifier := filepath.Join(dir, "classifier.json")
	require.NoError(t, os.WriteFile(classifier, []byte(`{
		"kind": "logistic_regression",
		"coef": [0.4, 1.1, -0.25, 0.05, -0.15, 0.7, 0.3, 0.2],
		"intercept": -0.85
	}`), 0o600))

	return scaler, classifier
}

func TestPredictCommand(t *testing.T) {
	scaler, classifier := writeArtifacts(t)

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	err := app.Run([]string{name, "--scaler", scaler, "--classifier", classifier,
		"predict", `{"Glucose": 180, "BMI": 35.2, "Age": 50}`})
	require.NoError(t, err)

	var result struct {
		Prediction  int      `json:"prediction"`
		Probability *float64 `json:"probability"`
		Label       string   `json:"label"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 1, result.Prediction)
	require.NotNil(t, result.Probability)
	assert.Equal(t, "Diabetic - High Risk", result.Label)
}

func TestPredictCommandMissingArtifacts(t *testing.T) {
	dir := t.TempDir()

	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{name,
		"--scaler", filepath.Join(dir, "nope.json"),
		"--classifier", filepath.Join(dir, "nope.json"),
		"predict", `{}`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize model server")
}

func TestPredictCommandInvalidInput(t *testing.T) {
	scaler, classifier := writeArtifacts(t)

	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{name, "--scaler", scaler, "--classifier", classifier, "predict", `"text"`})
	require.Error(t, err)
	assert.Equal(t, "Invalid input format", err.Error())
}

func TestInvalidLogLevelRejected(t *testing.T) {
	scaler, classifier := writeArtifacts(t)

	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{name, "--log-level", "loud", "--scaler", scaler, "--classifier", classifier, "predict", `{}`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
