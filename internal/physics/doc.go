// Package physics provides right-hand-side providers for the stiffness
// analysis and the adaptive controller.
//
// Each model implements [dynamo.Provider] with an analytic Jacobian:
//
//   - [VanDerPol]: relaxation oscillator, stiff for large η
//   - [Autoignition]: single-step Arrhenius ignition, temperature first
//   - [CSPTest]: model problem with ε-separated timescales
//   - [Lorenz]: non-stiff reference attractor
//
// Models also expose named parameters through GetParams/SetParam so the
// configuration layer can override constants by name, and DefaultState /
// DefaultParams for runs without an explicit initial condition.
//
//	prov := physics.NewVanDerPol()
//	jac := prov.Jacobian(0, prov.DefaultState(), prov.DefaultParams())
package physics
