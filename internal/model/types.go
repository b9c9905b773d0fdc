package model

// FeatureNames is the column order the scaler and classifier were fit on.
var FeatureNames = []string{
	"Pregnancies",
	"Glucose",
	"BloodPressure",
	"SkinThickness",
	"Insulin",
	"BMI",
	"DiabetesPedigreeFunction",
	"Age",
}

const (
	LabelHighRisk    = "Diabetic - High Risk"
	LabelBorderline  = "Borderline"
	LabelNonDiabetic = "Non-Diabetic"
	LabelDiabetic    = "Diabetic"

	thresholdHigh       = 0.6
	thresholdBorderline = 0.4
)

// Metadata describes the loaded artifacts.
type Metadata struct {
	ScalerKind     string `json:"scaler_kind"`
	ClassifierKind string `json:"classifier_kind"`
	NumFeatures    int    `json:"n_features"`
	HasProbability bool   `json:"has_probability"`
}

type PredictionResponse struct {
	Prediction  int      `json:"prediction"`
	Probability *float64 `json:"probability"`
	Label       string   `json:"label"`
}

// RiskLabel buckets the class-1 probability into a human readable label.
// Without a probability it falls back to the discrete class.
func RiskLabel(probability *float64, prediction int) string {
	if probability == nil {
		if prediction == 1 {
			return LabelDiabetic
		}
		return LabelNonDiabetic
	}

	switch p := *probability; {
	case p >= thresholdHigh:
		return LabelHighRisk
	case p >= thresholdBorderline:
		return LabelBorderline
	default:
		return LabelNonDiabetic
	}
}
