package dynamo

import "errors"

// Domain errors shared by the numeric packages.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/provider/matrix dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrNonSquare indicates a Jacobian that is not N×N.
	ErrNonSquare = errors.New("dynamo: matrix is not square")

	// ErrEigenFailed indicates the eigendecomposition did not converge.
	ErrEigenFailed = errors.New("dynamo: eigen decomposition failed")

	// ErrTooFewSamples indicates a trajectory too short for finite differencing.
	ErrTooFewSamples = errors.New("dynamo: too few samples for finite differencing")

	// ErrNonUniformStep indicates sample times that are not evenly spaced.
	ErrNonUniformStep = errors.New("dynamo: sample times are not uniformly spaced")

	// ErrSolverFailed indicates an opaque solver could not complete a step.
	ErrSolverFailed = errors.New("dynamo: solver failed to converge")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrContextCanceled indicates the run was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)
