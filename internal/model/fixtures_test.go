package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testMean  = []float64{3.8, 120.9, 69.1, 20.5, 79.8, 32.0, 0.47, 33.2}
	testScale = []float64{3.4, 32.0, 19.4, 16.0, 115.2, 7.9, 0.33, 11.8}
	testCoef  = []float64{0.4, 1.1, -0.25, 0.05, -0.15, 0.7, 0.3, 0.2}
)

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func writeArtifacts(t *testing.T, scaler, classifier any) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		ScalerPath:     writeJSON(t, dir, "scaler.json", scaler),
		ClassifierPath: writeJSON(t, dir, "classifier.json", classifier),
	}
}

func standardScalerJSON() map[string]any {
	return map[string]any{"kind": "standard", "mean": testMean, "scale": testScale}
}

func logisticJSON() map[string]any {
	return map[string]any{"kind": "logistic_regression", "coef": testCoef, "intercept": -0.85}
}

func newTestServer(t *testing.T, scaler, classifier any) *Server {
	t.Helper()
	s, err := NewServer(writeArtifacts(t, scaler, classifier))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func mustParse(t *testing.T, body string) Input {
	t.Helper()
	in, err := ParseInput([]byte(body))
	require.NoError(t, err)
	return in
}
