// Package stiffness estimates local stiffness of an ODE trajectory.
//
// Four metrics are provided:
//
//   - [Index]: Shampine's stiffness index over a sampled trajectory
//   - [Indicator]: Söderlind's indicator, the mid-point of the spectrum of
//     the symmetric part of the Jacobian; negative means stiff
//   - [Ratio]: max|λ| / min|λ| over the nonzero eigenvalues
//   - [CEMA]: the chemical explosive mode, the eigenvalue of largest real part
//
// All functions are pure and never modify their inputs.
package stiffness
