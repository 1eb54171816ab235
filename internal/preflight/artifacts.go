package preflight

import (
	"fmt"

	"exohunt/internal/classifier"
	"exohunt/internal/fileutil"
	"exohunt/internal/store"
)

// CheckModel loads the classifier artifact. A missing or incompatible model
// is reported but does not block a run; records are labelled N/A instead.
func CheckModel(path string) Result {
	const name = "Classifier"

	if !fileutil.Exists(path) {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s not found (run exohunt train)", path)}
	}
	model, err := classifier.Load(path)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: err.Error()}
	}
	return Result{
		Name:     name,
		Passed:   true,
		Optional: true,
		Detail: fmt.Sprintf("%d trees, classes %v, accuracy %.2f",
			len(model.Forest.Trees), model.Classes, model.Metadata.Accuracy),
	}
}

// CheckIndex opens the processed index, creating it if needed.
func CheckIndex(path string) Result {
	const name = "Processed index"

	s, err := store.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer s.Close()
	return Result{Name: name, Passed: true, Detail: path}
}
