package model

import (
	"context"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Server holds the scaler and classifier loaded at startup. It is never
// mutated afterwards and is safe for concurrent use.
type Server struct {
	scaler     Scaler
	classifier Classifier
	proba      ProbabilityClassifier
	Metadata   Metadata
}

type Paths struct {
	ScalerPath      string
	ClassifierPath  string
	ONNXLibraryPath string
}

// NewServer loads both artifacts from disk.
func NewServer(paths Paths) (*Server, error) {
	scaler, err := LoadScaler(paths.ScalerPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load scaler from %s", paths.ScalerPath)
	}

	classifier, err := LoadClassifier(paths.ClassifierPath, ClassifierOptions{
		ONNXLibraryPath: paths.ONNXLibraryPath,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load classifier from %s", paths.ClassifierPath)
	}

	s, err := New(scaler, classifier)
	if err != nil {
		closeClassifier(classifier)
		return nil, err
	}
	return s, nil
}

// New pairs an already constructed scaler and classifier.
func New(scaler Scaler, classifier Classifier) (*Server, error) {
	if scaler == nil || classifier == nil {
		return nil, errors.New("scaler and classifier are required")
	}
	if scaler.NumFeatures() != classifier.NumFeatures() {
		return nil, errors.Errorf("scaler expects %d features, classifier expects %d",
			scaler.NumFeatures(), classifier.NumFeatures())
	}

	proba, _ := classifier.(ProbabilityClassifier)
	return &Server{
		scaler:     scaler,
		classifier: classifier,
		proba:      proba,
		Metadata: Metadata{
			ScalerKind:     scaler.Kind(),
			ClassifierKind: classifier.Kind(),
			NumFeatures:    scaler.NumFeatures(),
			HasProbability: proba != nil,
		},
	}, nil
}

// Predict scores one input. Any failure past the shape check is returned
// as a *ProcessingError.
func (s *Server) Predict(ctx context.Context, in Input) (*PredictionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, processingErr(errors.WithStack(err))
	}

	x, err := Vector(in)
	if err != nil {
		return nil, err
	}

	scaled, err := s.scaler.Transform(x)
	if err != nil {
		return nil, processingErr(err)
	}

	var probability *float64
	if s.proba != nil {
		p, err := s.proba.PredictProba(scaled)
		if err != nil {
			return nil, processingErr(err)
		}
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, processingErr(errors.Errorf("classifier returned a non-finite probability %v", p))
		}
		probability = &p
	}

	prediction, err := s.classifier.Predict(scaled)
	if err != nil {
		return nil, processingErr(err)
	}

	return &PredictionResponse{
		Prediction:  prediction,
		Probability: probability,
		Label:       RiskLabel(probability, prediction),
	}, nil
}

func (s *Server) Close() {
	closeClassifier(s.classifier)
}

func closeClassifier(c Classifier) {
	if closer, ok := c.(io.Closer); ok {
		closer.Close()
	}
}
