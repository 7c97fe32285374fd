// Package csp implements Computational Singular Perturbation analysis of a
// Jacobian: a real biorthogonal basis of CSP vectors and covectors sorted by
// timescale, the count of exhausted fast modes, the slow-manifold projector
// and the radical-correction tensor.
//
// Every call allocates its own buffers; nothing is retained between calls,
// so the functions are safe for concurrent use.
//
//	proj, err := csp.Analyze(prov, t, y, p, csp.DefaultTolerances())
//	if err != nil {
//	    return err
//	}
//	slow := csp.Project(proj.Qs, prov.Derive(t, y, p))
package csp
