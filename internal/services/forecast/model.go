package forecast

// Family identifies a candidate regression family. The set is closed; report
// consumers rely on these exact names.
type Family string

const (
	FamilyRandomForest     Family = "random_forest"
	FamilyGradientBoosting Family = "gradient_boosting"
	FamilyLinear           Family = "linear_regression"
	FamilyPoissonGLM       Family = "poisson_glm"
)

// Model is a fitted regressor. Fit artifacts are request-scoped: they are
// held for the duration of one forecast run and never serialized or cached.
type Model interface {
	Family() Family
	// Predict scores one row laid out in FeatureNames order.
	Predict(x []float64) float64
	// Importances returns normalized per-feature importance keyed by
	// FeatureNames, or nil for families that have none.
	Importances() map[string]float64
}
