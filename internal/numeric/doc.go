// Package numeric holds the small numerical building blocks the stiffness
// metrics are assembled from: a weighted matrix norm written once over
// [mat.Matrix], a length-preserving finite-difference derivative, a
// compensated sum and thin eigenvalue helpers around gonum.
package numeric
