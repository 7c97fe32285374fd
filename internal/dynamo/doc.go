// Package dynamo provides the core primitives shared by the stiffness
// metrics, the CSP engine and the adaptive controller:
//
//   - [State]: ordered state vector (temperature, then species)
//   - [Params]: positional right-hand-side parameters
//   - [Provider]: derivative and Jacobian evaluation, dy/dt = f(t, y; p)
//   - [Counter]: explicit evaluation counter around a Provider
//   - [StepError]: step/time context around a failed integration step
//
// # Example
//
//	prov := physics.NewVanDerPol()
//	y := dynamo.State{2, 0}
//	dy := prov.Derive(0, y, dynamo.Params{1000})
//	jac := prov.Jacobian(0, y, dynamo.Params{1000})
//
// # Thread Safety
//
// Providers in this module are stateless and safe for concurrent use.
// A [Counter] is not; give every solver its own.
package dynamo
