package controller_test

import (
	"context"
	"errors"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/controller"
	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/integrators"
	"github.com/san-kum/stiffsim/internal/logging"
	"github.com/san-kum/stiffsim/internal/physics"
)

// ramp is y' = 1 in every component.
type ramp struct{ n int }

func (r ramp) Dim() int { return r.n }

func (r ramp) Derive(_ float64, y dynamo.State, _ dynamo.Params) dynamo.State {
	out := make(dynamo.State, len(y))
	for i := range out {
		out[i] = 1
	}
	return out
}

func (r ramp) Jacobian(float64, dynamo.State, dynamo.Params) *mat.Dense {
	return mat.NewDense(r.n, r.n, nil)
}

type seed struct {
	family string
	t      float64
	y      dynamo.State
	params dynamo.Params
}

// recorder wraps real factories and remembers how each solver was seeded.
type recorder struct {
	seeds  []seed
	failAt int // Advance call (1-based, across all solvers) that fails; 0 never
	calls  int
}

type recordingSolver struct {
	integrators.Solver
	rec    *recorder
	family string
	params dynamo.Params
	failed bool
}

func (r *recorder) factory(name string, inner integrators.Factory) integrators.Factory {
	return func(prov dynamo.Provider, tol integrators.Tolerances) integrators.Solver {
		return &recordingSolver{Solver: inner(prov, tol), rec: r, family: name}
	}
}

func (s *recordingSolver) SetParams(p dynamo.Params) {
	s.params = p.Clone()
	s.Solver.SetParams(p)
}

func (s *recordingSolver) SetInitialValue(y0 dynamo.State, t0 float64) error {
	s.rec.seeds = append(s.rec.seeds, seed{family: s.family, t: t0, y: y0.Clone(), params: s.params})
	return s.Solver.SetInitialValue(y0, t0)
}

func (s *recordingSolver) Advance(dt float64) (float64, dynamo.State, error) {
	s.rec.calls++
	if s.rec.calls == s.rec.failAt {
		s.failed = true
		return s.Time(), s.State(), fmt.Errorf("%w: scripted", dynamo.ErrSolverFailed)
	}
	return s.Solver.Advance(dt)
}

func (s *recordingSolver) Successful() bool { return !s.failed && s.Solver.Successful() }

// script replays indicator values in order; the monitor is read from a
// parallel slice.
func script(indicators, monitors []float64) controller.Probe {
	i := 0
	return func(float64, dynamo.State) (float64, float64, error) {
		defer func() { i++ }()
		if i >= len(indicators) {
			return indicators[len(indicators)-1], monitors[len(monitors)-1], nil
		}
		return indicators[i], monitors[i], nil
	}
}

type collector struct{ samples []controller.Sample }

func (c *collector) OnStep(s controller.Sample) { c.samples = append(c.samples, s) }

var _ = Describe("Policy", func() {
	p := controller.Policy{IndicatorThreshold: 0, MonitorThreshold: 1500}

	DescribeTable("Next",
		func(from controller.Mode, ind, mon float64, want controller.Mode) {
			Expect(p.Next(from, ind, mon)).To(Equal(want))
		},
		Entry("stiff stays on negative indicator", controller.Stiff, -3.0, 1000.0, controller.Stiff),
		Entry("stiff stays at threshold", controller.Stiff, 0.0, 1000.0, controller.Stiff),
		Entry("stiff stays when monitor is high", controller.Stiff, 5.0, 1500.0, controller.Stiff),
		Entry("stiff leaves when both predicates hold", controller.Stiff, 5.0, 1000.0, controller.NonStiff),
		Entry("nonstiff stays when both are clear", controller.NonStiff, 5.0, 1000.0, controller.NonStiff),
		Entry("nonstiff returns at threshold", controller.NonStiff, 0.0, 1000.0, controller.Stiff),
		Entry("nonstiff returns on high monitor", controller.NonStiff, 5.0, 1500.0, controller.Stiff),
	)

	It("parses modes", func() {
		m, err := controller.ParseMode("nonstiff")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(controller.NonStiff))
		Expect(m.String()).To(Equal("nonstiff"))

		_, err = controller.ParseMode("implicit")
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})
})

var _ = Describe("Controller", func() {
	var (
		rec *recorder
		cfg controller.Config
		ctx context.Context
	)

	build := func(opts ...controller.Option) *controller.Controller {
		opts = append([]controller.Option{controller.WithLogger(logging.Discard())}, opts...)
		c, err := controller.New(ramp{n: 2}, dynamo.Params{7},
			rec.factory("stiff", integrators.NewRK4),
			rec.factory("nonstiff", integrators.NewEuler),
			cfg, opts...)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	BeforeEach(func() {
		rec = &recorder{}
		ctx = context.Background()
		cfg = controller.Config{
			Dt:     0.1,
			TStart: 0,
			TStop:  1,
			Y0:     dynamo.State{0, 0},
			Policy: controller.Policy{IndicatorThreshold: 0, MonitorThreshold: 100, MonitorIndex: 1},
		}
	})

	It("records the initial state and every accepted step", func() {
		res, err := build(controller.WithProbe(script([]float64{-1}, []float64{0}))).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Len()).To(Equal(11))
		Expect(res.Times[0]).To(Equal(0.0))
		Expect(res.Times[10]).To(BeNumerically("~", 1.0, 1e-12))
		Expect(res.States[10][0]).To(BeNumerically("~", 1.0, 1e-12))
		Expect(res.Switches).To(BeEmpty())
		Expect(res.Modes).To(HaveEach(controller.Stiff))
		Expect(rec.seeds).To(HaveLen(1))
	})

	It("switches exactly once per threshold crossing", func() {
		// index 0 is the initial probe, then one value per step
		inds := []float64{-1, -1, -1, 2, 3, 4, -2, -3, 5, 5, 5}
		mons := make([]float64, len(inds))
		res, err := build(controller.WithProbe(script(inds, mons))).Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Switches).To(HaveLen(3))
		Expect(res.Switches[0].Step).To(Equal(3))
		Expect(res.Switches[0].To).To(Equal(controller.NonStiff))
		Expect(res.Switches[1].Step).To(Equal(6))
		Expect(res.Switches[1].To).To(Equal(controller.Stiff))
		Expect(res.Switches[2].Step).To(Equal(8))

		// Modes[k] is the family that produced step k.
		Expect(res.Modes[3]).To(Equal(controller.Stiff))
		Expect(res.Modes[4]).To(Equal(controller.NonStiff))
		Expect(res.Modes[7]).To(Equal(controller.Stiff))
		Expect(res.Modes[9]).To(Equal(controller.NonStiff))
	})

	It("returns to stiff when the monitor crosses its limit", func() {
		inds := []float64{1, 1, 1, 1, 1}
		mons := []float64{0, 0, 50, 150, 150}
		res, err := build(controller.WithProbe(script(inds, mons))).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Switches).To(HaveLen(2))
		Expect(res.Switches[0].To).To(Equal(controller.NonStiff))
		Expect(res.Switches[1].Step).To(Equal(3))
		Expect(res.Switches[1].To).To(Equal(controller.Stiff))
	})

	It("seeds every new solver with the last accepted state and the same params", func() {
		inds := []float64{-1, 1, -1, 1, -1}
		mons := make([]float64, len(inds))
		res, err := build(controller.WithProbe(script(inds, mons))).Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.seeds).To(HaveLen(1 + len(res.Switches)))
		for i, sw := range res.Switches {
			s := rec.seeds[i+1]
			Expect(s.t).To(Equal(res.Times[sw.Step]))
			Expect(s.y).To(Equal(res.States[sw.Step]))
			Expect(s.params).To(Equal(dynamo.Params{7}))
			Expect(s.family).To(Equal(sw.To.String()))
		}
	})

	It("notifies observers", func() {
		obs := &collector{}
		_, err := build(controller.WithProbe(script([]float64{-1}, []float64{0})), controller.WithObserver(obs)).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.samples).To(HaveLen(10))
		Expect(obs.samples[0].Work).To(Equal(4))
	})

	It("returns the partial result when a solver fails", func() {
		rec.failAt = 4
		res, err := build(controller.WithProbe(script([]float64{-1}, []float64{0}))).Run(ctx)
		Expect(err).To(MatchError(dynamo.ErrSolverFailed))

		var stepErr *dynamo.StepError
		Expect(errors.As(err, &stepErr)).To(BeTrue())
		Expect(stepErr.Step).To(Equal(4))
		Expect(stepErr.Time).To(BeNumerically("~", 0.3, 1e-12))
		Expect(res.Len()).To(Equal(4))
	})

	It("keeps an accepted step whose evaluation fails", func() {
		calls := 0
		probe := func(float64, dynamo.State) (float64, float64, error) {
			calls++
			if calls == 3 {
				return 0, 0, dynamo.ErrEigenFailed
			}
			return -1, 0, nil
		}
		c := build(controller.WithProbe(probe))
		res, err := c.Run(ctx)
		Expect(err).To(MatchError(dynamo.ErrEigenFailed))

		Expect(res.Len()).To(Equal(3))
		Expect(res.Times[2]).To(BeNumerically("~", 0.2, 1e-12))
		Expect(res.Times[2]).To(Equal(c.Time()))
		Expect(res.States[2][0]).To(BeNumerically("~", 0.2, 1e-12))
		Expect(math.IsNaN(res.Indicators[2])).To(BeTrue())
		Expect(math.IsNaN(res.Monitors[2])).To(BeTrue())
		Expect(res.Work[2]).To(Equal(4))
	})

	It("does not advance a solver that is no longer successful", func() {
		rec.failAt = 2
		c := build(controller.WithProbe(script([]float64{-1}, []float64{0})))
		_, err := c.Step(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Step(ctx)
		Expect(err).To(MatchError(dynamo.ErrSolverFailed))
		Expect(rec.calls).To(Equal(2))

		_, err = c.Step(ctx)
		Expect(err).To(MatchError(dynamo.ErrSolverFailed))
		Expect(rec.calls).To(Equal(2))
		Expect(c.Time()).To(BeNumerically("~", 0.1, 1e-12))
	})

	It("stops on a canceled context", func() {
		c := build(controller.WithProbe(script([]float64{-1}, []float64{0})))
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Step(canceled)
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	DescribeTable("rejects invalid configuration",
		func(mutate func(*controller.Config), want error) {
			mutate(&cfg)
			_, err := controller.New(ramp{n: 2}, nil, integrators.NewRK4, integrators.NewEuler, cfg)
			Expect(err).To(MatchError(want))
		},
		Entry("zero dt", func(c *controller.Config) { c.Dt = 0 }, dynamo.ErrParameterBounds),
		Entry("empty interval", func(c *controller.Config) { c.TStop = c.TStart }, dynamo.ErrParameterBounds),
		Entry("wrong state size", func(c *controller.Config) { c.Y0 = dynamo.State{1} }, dynamo.ErrDimensionMismatch),
		Entry("monitor out of range", func(c *controller.Config) { c.Policy.MonitorIndex = 2 }, dynamo.ErrDimensionMismatch),
	)
})

var _ = Describe("Van der Pol", func() {
	It("stays stiff while the indicator is negative", func() {
		vdp := physics.NewVanDerPol()
		cfg := controller.Config{
			Dt:          1e-3,
			TStop:       2e-2,
			Y0:          vdp.DefaultState(),
			InitialMode: controller.Stiff,
			Policy:      controller.DefaultPolicy(),
			Tolerances:  integrators.DefaultTolerances(),
		}
		c, err := controller.New(vdp, dynamo.Params{1000}, integrators.NewBDF, integrators.NewDopri5, cfg,
			controller.WithLogger(logging.Discard()))
		Expect(err).NotTo(HaveOccurred())

		res, err := c.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Len()).To(Equal(21))
		Expect(res.Switches).To(BeEmpty())
		for i, ind := range res.Indicators {
			Expect(ind).To(BeNumerically("<", 0), "sample %d", i)
			Expect(res.States[i].IsValid()).To(BeTrue())
		}
		Expect(res.TotalWork()).To(BeNumerically(">", 0))
	})

	It("hands a non-stiff stretch to the explicit family", func() {
		vdp := physics.NewVanDerPol()
		cfg := controller.Config{
			Dt:          1e-2,
			TStop:       0.1,
			Y0:          dynamo.State{0.5, 0.1},
			InitialMode: controller.Stiff,
			Policy:      controller.DefaultPolicy(),
			Tolerances:  integrators.DefaultTolerances(),
		}
		// η = 1 keeps |x| < 1 a growing, non-stiff region.
		c, err := controller.New(vdp, dynamo.Params{1}, integrators.NewBDF, integrators.NewDopri5, cfg,
			controller.WithLogger(logging.Discard()))
		Expect(err).NotTo(HaveOccurred())

		res, err := c.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Switches).NotTo(BeEmpty())
		Expect(res.Switches[0].To).To(Equal(controller.NonStiff))
		Expect(c.Solver()).To(Equal("dopri5"))
	})
})
