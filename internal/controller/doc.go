// Package controller integrates a trajectory with two solver families and
// switches between them from a local stiffness signal.
//
// After every accepted step of length Dt the controller evaluates the
// stiffness indicator and a monitor component (temperature for
// autoignition) on the new state and applies a hysteresis policy:
//
//	Stiff    → NonStiff  when indicator > threshold and monitor < monitor threshold
//	NonStiff → Stiff     when indicator ≤ threshold or  monitor ≥ monitor threshold
//
// A switch discards the active solver and builds a fresh one of the other
// family, seeded with the last accepted (t, y) and the same parameters.
// Nothing is interpolated across a switch.
//
// The controller is sequential; each step depends on the previous state.
package controller
