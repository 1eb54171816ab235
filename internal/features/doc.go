// Package features defines the feature record written for every analysed
// light curve and the ordered classification schema shared by training and
// inference.
package features
