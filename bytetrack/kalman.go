package bytetrack

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// The motion state is an 8 element vector (x, y, a, h, vx, vy, va, vh)
// holding the box center, aspect ratio, height and their velocities.  A
// measurement is the 4 element (x, y, a, h) observation of a detection.

// kalmanFilter is a constant velocity Kalman filter over box motion
// state, shared by all tracks of one tracker.
type kalmanFilter struct {
	stdPos float64
	stdVel float64
	// motionMat is the 8x8 constant velocity transition matrix
	motionMat *mat.Dense
	// updateMat is the 4x8 projection from state to measurement space
	updateMat *mat.Dense
}

func newKalmanFilter() *kalmanFilter {

	motion := mat.NewDense(8, 8, nil)

	for i := 0; i < 8; i++ {
		motion.Set(i, i, 1)
	}

	for i := 0; i < 4; i++ {
		motion.Set(i, 4+i, 1)
	}

	update := mat.NewDense(4, 8, nil)

	for i := 0; i < 4; i++ {
		update.Set(i, i, 1)
	}

	return &kalmanFilter{
		stdPos:    1.0 / 20,
		stdVel:    1.0 / 160,
		motionMat: motion,
		updateMat: update,
	}
}

// initiate creates the state mean and covariance from an unassociated
// measurement.
func (kf *kalmanFilter) initiate(meas [4]float64) (*mat.VecDense, *mat.Dense) {

	mean := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		mean.SetVec(i, meas[i])
	}

	std := [8]float64{
		2 * kf.stdPos * meas[3],
		2 * kf.stdPos * meas[3],
		1e-2,
		2 * kf.stdPos * meas[3],
		10 * kf.stdVel * meas[3],
		10 * kf.stdVel * meas[3],
		1e-5,
		10 * kf.stdVel * meas[3],
	}

	cov := mat.NewDense(8, 8, nil)

	for i, v := range std {
		cov.Set(i, i, v*v)
	}

	return mean, cov
}

// predict advances the state mean and covariance one frame.
func (kf *kalmanFilter) predict(mean *mat.VecDense, cov *mat.Dense) {

	h := mean.AtVec(3)

	std := [8]float64{
		kf.stdPos * h,
		kf.stdPos * h,
		1e-2,
		kf.stdPos * h,
		kf.stdVel * h,
		kf.stdVel * h,
		1e-5,
		kf.stdVel * h,
	}

	motionCov := mat.NewDense(8, 8, nil)

	for i, v := range std {
		motionCov.Set(i, i, v*v)
	}

	mean.MulVec(kf.motionMat, mean)

	var next mat.Dense
	next.Mul(kf.motionMat, cov)
	next.Mul(&next, kf.motionMat.T())
	next.Add(&next, motionCov)

	cov.Copy(&next)
}

// project maps the state into measurement space, returning the projected
// mean and innovation covariance.
func (kf *kalmanFilter) project(mean *mat.VecDense,
	cov *mat.Dense) (*mat.VecDense, *mat.SymDense) {

	h := mean.AtVec(3)

	std := [4]float64{
		kf.stdPos * h,
		kf.stdPos * h,
		1e-1,
		kf.stdPos * h,
	}

	projMean := mat.NewVecDense(4, nil)
	projMean.MulVec(kf.updateMat, mean)

	var tmp mat.Dense
	tmp.Mul(kf.updateMat, cov)
	tmp.Mul(&tmp, kf.updateMat.T())

	projCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			v := (tmp.At(i, j) + tmp.At(j, i)) / 2
			if i == j {
				v += std[i] * std[i]
			}
			projCov.SetSym(i, j, v)
		}
	}

	return projMean, projCov
}

// correct folds a measurement into the state mean and covariance.
func (kf *kalmanFilter) correct(mean *mat.VecDense, cov *mat.Dense,
	meas [4]float64) error {

	projMean, projCov := kf.project(mean, cov)

	var chol mat.Cholesky

	if ok := chol.Factorize(projCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// B = cov * H^T, the Kalman gain K solves S K^T = B^T
	var b mat.Dense
	b.Mul(cov, kf.updateMat.T())

	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, b.T()); err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	innovation := mat.NewVecDense(4, nil)

	for i := 0; i < 4; i++ {
		innovation.SetVec(i, meas[i]-projMean.AtVec(i))
	}

	var delta mat.VecDense
	delta.MulVec(gainT.T(), innovation)
	mean.AddVec(mean, &delta)

	// cov = cov - K S K^T
	var ksk mat.Dense
	ksk.Mul(gainT.T(), projCov)
	ksk.Mul(&ksk, &gainT)

	cov.Sub(cov, &ksk)

	return nil
}
