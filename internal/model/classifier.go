package model

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Classifier maps a scaled feature vector to a discrete class.
type Classifier interface {
	Predict(x []float64) (int, error)
	NumFeatures() int
	Kind() string
}

// ProbabilityClassifier is implemented by classifiers that can report the
// probability of the positive class.
type ProbabilityClassifier interface {
	Classifier
	PredictProba(x []float64) (float64, error)
}

type ClassifierOptions struct {
	// ONNXLibraryPath points at the onnxruntime shared library. Empty uses
	// the platform default.
	ONNXLibraryPath string
}

type classifierFile struct {
	Kind    string `json:"kind"`
	Classes []int  `json:"classes"`

	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`

	Theta      [][]float64 `json:"theta"`
	Var        [][]float64 `json:"var"`
	ClassPrior []float64   `json:"class_prior"`

	Path            string `json:"path"`
	InputName       string `json:"input_name"`
	LabelName       string `json:"label_name"`
	ProbabilityName string `json:"probability_name"`
	NumFeatures     int    `json:"n_features"`
}

// LoadClassifier reads a classifier description exported as JSON.
func LoadClassifier(path string, opts ClassifierOptions) (Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read classifier")
	}

	var f classifierFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse classifier")
	}

	classes := f.Classes
	if len(classes) == 0 {
		classes = []int{0, 1}
	}
	if len(classes) != 2 {
		return nil, errors.Errorf("expected 2 classes, got %d", len(classes))
	}

	switch f.Kind {
	case "logistic_regression":
		return NewLogisticRegression(f.Coef, f.Intercept, classes)
	case "gaussian_nb":
		return NewGaussianNB(f.Theta, f.Var, f.ClassPrior, classes)
	case "linear_svc":
		return NewLinearSVC(f.Coef, f.Intercept, classes)
	case "onnx":
		modelPath := f.Path
		if !filepath.IsAbs(modelPath) {
			modelPath = filepath.Join(filepath.Dir(path), modelPath)
		}
		return NewONNXClassifier(ONNXConfig{
			ModelPath:       modelPath,
			LibraryPath:     opts.ONNXLibraryPath,
			InputName:       f.InputName,
			LabelName:       f.LabelName,
			ProbabilityName: f.ProbabilityName,
			NumFeatures:     f.NumFeatures,
			Classes:         classes,
		})
	default:
		return nil, errors.Errorf("unsupported classifier kind %q", f.Kind)
	}
}

type linearModel struct {
	coef      []float64
	intercept float64
	classes   []int
}

func newLinearModel(coef []float64, intercept float64, classes []int) (linearModel, error) {
	if len(coef) == 0 {
		return linearModel{}, errors.New("coef is empty")
	}
	return linearModel{coef: coef, intercept: intercept, classes: classes}, nil
}

func (m linearModel) decision(x []float64, name string) (float64, error) {
	if err := checkDims(x, len(m.coef), name); err != nil {
		return 0, err
	}
	z := m.intercept
	for i, w := range m.coef {
		z += w * x[i]
	}
	return z, nil
}

func (m linearModel) classFor(z float64) int {
	if z > 0 {
		return m.classes[1]
	}
	return m.classes[0]
}

// LogisticRegression is a binary logistic model.
type LogisticRegression struct {
	linearModel
}

func NewLogisticRegression(coef []float64, intercept float64, classes []int) (*LogisticRegression, error) {
	lm, err := newLinearModel(coef, intercept, classes)
	if err != nil {
		return nil, errors.Wrap(err, "logistic regression")
	}
	return &LogisticRegression{lm}, nil
}

func (m *LogisticRegression) Predict(x []float64) (int, error) {
	z, err := m.decision(x, "LogisticRegression")
	if err != nil {
		return 0, err
	}
	return m.classFor(z), nil
}

func (m *LogisticRegression) PredictProba(x []float64) (float64, error) {
	z, err := m.decision(x, "LogisticRegression")
	if err != nil {
		return 0, err
	}
	return sigmoid(z), nil
}

func (m *LogisticRegression) NumFeatures() int { return len(m.coef) }
func (m *LogisticRegression) Kind() string     { return "logistic_regression" }

// LinearSVC only exposes a decision function, so it has no probability.
type LinearSVC struct {
	linearModel
}

func NewLinearSVC(coef []float64, intercept float64, classes []int) (*LinearSVC, error) {
	lm, err := newLinearModel(coef, intercept, classes)
	if err != nil {
		return nil, errors.Wrap(err, "linear svc")
	}
	return &LinearSVC{lm}, nil
}

func (m *LinearSVC) Predict(x []float64) (int, error) {
	z, err := m.decision(x, "LinearSVC")
	if err != nil {
		return 0, err
	}
	return m.classFor(z), nil
}

func (m *LinearSVC) NumFeatures() int { return len(m.coef) }
func (m *LinearSVC) Kind() string     { return "linear_svc" }

// GaussianNB is a two class Gaussian naive Bayes model.
type GaussianNB struct {
	theta   [][]float64
	sigma   [][]float64
	logPrio []float64
	classes []int
}

func NewGaussianNB(theta, variance [][]float64, prior []float64, classes []int) (*GaussianNB, error) {
	if len(theta) != 2 || len(variance) != 2 || len(prior) != 2 {
		return nil, errors.New("gaussian nb: theta, var and class_prior need one entry per class")
	}
	n := len(theta[0])
	if n == 0 {
		return nil, errors.New("gaussian nb: theta is empty")
	}
	logPrio := make([]float64, 2)
	for c := 0; c < 2; c++ {
		if len(theta[c]) != n || len(variance[c]) != n {
			return nil, errors.Errorf("gaussian nb: class %d has mismatched dimensions", c)
		}
		for _, v := range variance[c] {
			if v <= 0 {
				return nil, errors.Errorf("gaussian nb: class %d has non-positive variance", c)
			}
		}
		if prior[c] <= 0 {
			return nil, errors.Errorf("gaussian nb: class %d has non-positive prior", c)
		}
		logPrio[c] = math.Log(prior[c])
	}
	return &GaussianNB{theta: theta, sigma: variance, logPrio: logPrio, classes: classes}, nil
}

func (m *GaussianNB) jointLogLikelihood(x []float64) ([2]float64, error) {
	var jll [2]float64
	if err := checkDims(x, len(m.theta[0]), "GaussianNB"); err != nil {
		return jll, err
	}
	for c := 0; c < 2; c++ {
		ll := m.logPrio[c]
		for i, v := range x {
			d := v - m.theta[c][i]
			ll -= 0.5 * math.Log(2*math.Pi*m.sigma[c][i])
			ll -= 0.5 * d * d / m.sigma[c][i]
		}
		jll[c] = ll
	}
	return jll, nil
}

func (m *GaussianNB) Predict(x []float64) (int, error) {
	jll, err := m.jointLogLikelihood(x)
	if err != nil {
		return 0, err
	}
	if jll[1] > jll[0] {
		return m.classes[1], nil
	}
	return m.classes[0], nil
}

func (m *GaussianNB) PredictProba(x []float64) (float64, error) {
	jll, err := m.jointLogLikelihood(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(jll[1] - jll[0]), nil
}

func (m *GaussianNB) NumFeatures() int { return len(m.theta[0]) }
func (m *GaussianNB) Kind() string     { return "gaussian_nb" }

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
