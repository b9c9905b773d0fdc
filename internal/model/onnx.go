package model

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

type ONNXConfig struct {
	ModelPath       string
	LibraryPath     string
	InputName       string
	LabelName       string
	ProbabilityName string
	NumFeatures     int
	Classes         []int
}

// ONNXClassifier runs a classifier exported to ONNX (zipmap disabled, so
// probabilities come back as a plain [1, 2] float tensor).
//
// Tensors are bound to the session once, so runs are serialized.
type ONNXClassifier struct {
	mu          sync.Mutex
	session     *ort.AdvancedSession
	inputTensor *ort.Tensor[float32]
	labelTensor *ort.Tensor[int64]
	probaTensor *ort.Tensor[float32]
	numFeatures int
}

type onnxProbabilityClassifier struct {
	*ONNXClassifier
}

// NewONNXClassifier creates the session. The returned classifier
// implements ProbabilityClassifier only when a probability output is named.
func NewONNXClassifier(cfg ONNXConfig) (Classifier, error) {
	if cfg.NumFeatures <= 0 {
		return nil, errors.New("onnx classifier: n_features must be positive")
	}
	if cfg.InputName == "" {
		cfg.InputName = "input"
	}
	if cfg.LabelName == "" {
		cfg.LabelName = "label"
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX environment")
	}

	c := &ONNXClassifier{numFeatures: cfg.NumFeatures}
	fail := func(err error, msg string) (Classifier, error) {
		c.Close()
		return nil, errors.Wrap(err, msg)
	}

	var err error
	c.inputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.NumFeatures)))
	if err != nil {
		return fail(err, "failed to create input tensor")
	}
	c.labelTensor, err = ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return fail(err, "failed to create label tensor")
	}

	outputNames := []string{cfg.LabelName}
	outputs := []ort.ArbitraryTensor{c.labelTensor}
	if cfg.ProbabilityName != "" {
		c.probaTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(cfg.Classes))))
		if err != nil {
			return fail(err, "failed to create probability tensor")
		}
		outputNames = append(outputNames, cfg.ProbabilityName)
		outputs = append(outputs, c.probaTensor)
	}

	c.session, err = ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, outputNames,
		[]ort.ArbitraryTensor{c.inputTensor}, outputs,
		nil)
	if err != nil {
		return fail(err, "failed to create ONNX session")
	}

	if c.probaTensor != nil {
		return &onnxProbabilityClassifier{c}, nil
	}
	return c, nil
}

func (c *ONNXClassifier) run(x []float64) (int, []float32, error) {
	if err := checkDims(x, c.numFeatures, "ONNXClassifier"); err != nil {
		return 0, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	in := c.inputTensor.GetData()
	for i, v := range x {
		in[i] = float32(v)
	}
	if err := c.session.Run(); err != nil {
		return 0, nil, errors.Wrap(err, "inference failed")
	}

	label := int(c.labelTensor.GetData()[0])
	var proba []float32
	if c.probaTensor != nil {
		proba = append(proba, c.probaTensor.GetData()...)
	}
	return label, proba, nil
}

func (c *ONNXClassifier) Predict(x []float64) (int, error) {
	label, _, err := c.run(x)
	return label, err
}

func (c *onnxProbabilityClassifier) PredictProba(x []float64) (float64, error) {
	_, proba, err := c.run(x)
	if err != nil {
		return 0, err
	}
	if len(proba) < 2 {
		return 0, errors.Errorf("expected 2 probabilities, got %d", len(proba))
	}
	return float64(proba[1]), nil
}

func (c *ONNXClassifier) NumFeatures() int { return c.numFeatures }
func (c *ONNXClassifier) Kind() string     { return "onnx" }

func (c *ONNXClassifier) Close() error {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.labelTensor != nil {
		c.labelTensor.Destroy()
	}
	if c.probaTensor != nil {
		c.probaTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	return ort.DestroyEnvironment()
}
