package numeric

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// Square returns the order of m or ErrNonSquare.
func Square(m mat.Matrix) (int, error) {
	r, c := m.Dims()
	if r != c {
		return 0, fmt.Errorf("%d×%d: %w", r, c, dynamo.ErrNonSquare)
	}
	return r, nil
}

// Eigenvalues of a general square matrix.
func Eigenvalues(m mat.Matrix) ([]complex128, error) {
	if _, err := Square(m); err != nil {
		return nil, err
	}
	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenNone); !ok {
		return nil, dynamo.ErrEigenFailed
	}
	return eig.Values(nil), nil
}

// SymmetricPart returns (m + mᵀ)/2.
func SymmetricPart(m mat.Matrix) (*mat.SymDense, error) {
	n, err := Square(m)
	if err != nil {
		return nil, err
	}
	h := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			h.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return h, nil
}

// SymEigenvalues returns the real eigenvalues of s in ascending order.
func SymEigenvalues(s mat.Symmetric) ([]float64, error) {
	var es mat.EigenSym
	if ok := es.Factorize(s, false); !ok {
		return nil, dynamo.ErrEigenFailed
	}
	return es.Values(nil), nil
}

// SpectralRadius is max |λ| over the eigenvalues of m.
func SpectralRadius(m mat.Matrix) (float64, error) {
	vals, err := Eigenvalues(m)
	if err != nil {
		return 0, err
	}
	rho := 0.0
	for _, v := range vals {
		rho = math.Max(rho, cmplx.Abs(v))
	}
	return rho, nil
}
