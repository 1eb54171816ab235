// Package classifier trains and applies the exoplanet / false-positive
// classifier: mean imputation, a standard scaler and a random forest of CART
// trees. The fitted pipeline and its feature schema are persisted together as
// one JSON artifact.
package classifier
