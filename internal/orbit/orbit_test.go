package orbit_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynmap/internal/dynamo"
	"github.com/san-kum/dynmap/internal/models"
	"github.com/san-kum/dynmap/internal/orbit"
)

var errBoom = errors.New("boom")

func diagonal() *dynamo.Map[*models.Linear] {
	l, err := models.NewLinear(mat.NewDiagDense(2, []float64{2, 0.5}))
	Expect(err).NotTo(HaveOccurred())
	m, err := l.Map()
	Expect(err).NotTo(HaveOccurred())
	return m
}

// doubling fails once its input reaches limit.
func doubling(limit float64) *dynamo.Map[struct{}] {
	fw := func(x0 mat.Vector, x1 *mat.VecDense, _ struct{}) error {
		if x0.AtVec(0) >= limit {
			return errBoom
		}
		x1.ScaleVec(2, x0)
		return nil
	}
	m, err := dynamo.NewMap(1, fw, nil, struct{}{})
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Orbit", func() {
	Describe("New", func() {
		It("stores length+1 points starting at the exact initial condition", func() {
			x0 := mat.NewVecDense(2, []float64{0.123456789, 0.987654321})
			o, err := orbit.New(diagonal(), 1, orbit.Forward, 10, x0)
			Expect(err).NotTo(HaveOccurred())
			Expect(o.Len()).To(Equal(10))
			Expect(o.Points()).To(HaveLen(11))

			p0, err := o.Point(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(p0).To(Equal(dynamo.State{0.123456789, 0.987654321}))
		})

		It("applies the map order times per point", func() {
			o, err := orbit.New(diagonal(), 2, orbit.Forward, 3, mat.NewVecDense(2, []float64{1, 1}))
			Expect(err).NotTo(HaveOccurred())

			x, _ := o.Component(3, 0)
			y, _ := o.Component(3, 1)
			Expect(x).To(Equal(64.0))
			Expect(y).To(BeNumerically("~", 1.0/64, 1e-15))
		})

		It("holds only the initial condition for length zero", func() {
			o, err := orbit.New(diagonal(), 1, orbit.Forward, 0, mat.NewVecDense(2, []float64{3, 4}))
			Expect(err).NotTo(HaveOccurred())
			Expect(o.Points()).To(Equal([]dynamo.State{{3, 4}}))
		})

		It("retraces a forward orbit when run backward", func() {
			m, err := models.NewChirikov().Map()
			Expect(err).NotTo(HaveOccurred())

			fw, err := orbit.New(m, 1, orbit.Forward, 5, mat.NewVecDense(2, []float64{0.1, 0.3}))
			Expect(err).NotTo(HaveOccurred())
			last, _ := fw.Point(5)

			bw, err := orbit.New(m, 1, orbit.Backward, 5, last.Vec())
			Expect(err).NotTo(HaveOccurred())
			Expect(bw.Direction()).To(Equal(orbit.Backward))

			for i := 0; i <= 5; i++ {
				want, _ := fw.Point(5 - i)
				got, _ := bw.Point(i)
				for j := range want {
					Expect(got[j]).To(BeNumerically("~", want[j], 1e-9))
				}
			}
		})

		It("reports the point whose generation failed", func() {
			_, err := orbit.New(doubling(2), 1, orbit.Forward, 5, mat.NewVecDense(1, []float64{1}))
			Expect(err).To(HaveOccurred())

			var gerr *orbit.GenerationError
			Expect(errors.As(err, &gerr)).To(BeTrue())
			Expect(gerr.Point).To(Equal(2))
			Expect(errors.Is(err, errBoom)).To(BeTrue())
		})

		It("rejects a missing backward map", func() {
			_, err := orbit.New(doubling(100), 1, orbit.Backward, 3, mat.NewVecDense(1, []float64{1}))
			Expect(errors.Is(err, dynamo.ErrNoBackward)).To(BeTrue())
		})

		It("validates its arguments", func() {
			x0 := mat.NewVecDense(2, []float64{1, 1})
			_, err := orbit.New(diagonal(), 1, orbit.Forward, -1, x0)
			Expect(errors.Is(err, orbit.ErrInvalidLength)).To(BeTrue())

			_, err = orbit.New(diagonal(), -1, orbit.Forward, 1, x0)
			Expect(errors.Is(err, dynamo.ErrInvalidOrder)).To(BeTrue())

			_, err = orbit.New(diagonal(), 1, orbit.Forward, 1, mat.NewVecDense(3, nil))
			Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())

			_, err = orbit.New(diagonal(), 1, orbit.Forward, 3, nil)
			Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())
		})
	})

	Describe("Component", func() {
		var o *orbit.Orbit

		BeforeEach(func() {
			var err error
			o, err = orbit.New(diagonal(), 1, orbit.Forward, 4, mat.NewVecDense(2, []float64{1, 1}))
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns stored coordinates", func() {
			v, err := o.Component(4, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(16.0))
		})

		DescribeTable("yields NaN out of range",
			func(point, comp int) {
				v, err := o.Component(point, comp)
				Expect(math.IsNaN(v)).To(BeTrue())
				Expect(errors.Is(err, orbit.ErrOutOfRange)).To(BeTrue())
			},
			Entry("point past the end", 5, 0),
			Entry("negative point", -1, 0),
			Entry("component past the dimension", 0, 2),
			Entry("negative component", 0, -1),
		)

		It("extracts a coordinate series", func() {
			xs, err := o.Series(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(xs).To(Equal([]float64{1, 2, 4, 8, 16}))

			_, err = o.Series(2)
			Expect(errors.Is(err, orbit.ErrOutOfRange)).To(BeTrue())
		})
	})

	Describe("text format", func() {
		var o *orbit.Orbit

		BeforeEach(func() {
			var err error
			o, err = orbit.New(diagonal(), 1, orbit.Forward, 2, mat.NewVecDense(2, []float64{1, 1}))
			Expect(err).NotTo(HaveOccurred())
		})

		const body = "1.000000e+00  1.000000e+00  \n" +
			"2.000000e+00  5.000000e-01  \n" +
			"4.000000e+00  2.500000e-01  \n"

		It("saves without a trailing blank line", func() {
			var buf bytes.Buffer
			Expect(o.Save(&buf)).To(Succeed())
			Expect(buf.String()).To(Equal(body))
		})

		It("appends with a trailing blank line", func() {
			var buf bytes.Buffer
			Expect(o.Append(&buf)).To(Succeed())
			Expect(o.Append(&buf)).To(Succeed())
			Expect(buf.String()).To(Equal(body + "\n" + body + "\n"))
		})

		It("reads back what it saved to six significant digits", func() {
			m, err := models.NewStandard().Map()
			Expect(err).NotTo(HaveOccurred())
			src, err := orbit.New(m, 1, orbit.Forward, 50, mat.NewVecDense(2, []float64{0.5, 0.5}))
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			Expect(src.Save(&buf)).To(Succeed())

			got, err := orbit.Read(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0]).To(HaveLen(51))
			for i, want := range src.Points() {
				for j := range want {
					tol := 1e-6 * math.Max(1, math.Abs(want[j]))
					Expect(got[0][i][j]).To(BeNumerically("~", want[j], tol))
				}
			}
		})

		It("splits appended orbits on blank lines", func() {
			path := filepath.Join(GinkgoT().TempDir(), "orbits.dat")
			Expect(orbit.AppendFile(path, []*orbit.Orbit{o, o, o})).To(Succeed())

			got, err := orbit.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(3))
			Expect(got[2][2]).To(Equal(dynamo.State{4, 0.25}))
		})

		It("writes a single orbit file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "orbit.dat")
			Expect(orbit.SaveFile(path, o)).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(body))
		})

		It("rejects malformed input", func() {
			_, err := orbit.Read(strings.NewReader("1 2\n3 x\n"))
			Expect(errors.Is(err, orbit.ErrMalformed)).To(BeTrue())

			_, err = orbit.Read(strings.NewReader("1 2\n3\n"))
			Expect(errors.Is(err, orbit.ErrMalformed)).To(BeTrue())
		})
	})

	Describe("SVG", func() {
		It("draws one dot per point", func() {
			o, err := orbit.New(diagonal(), 1, orbit.Forward, 9, mat.NewVecDense(2, []float64{1, 1}))
			Expect(err).NotTo(HaveOccurred())

			svg, err := o.SVG(0, 1, 200, 100, "#00ff00")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(svg, "<circle")).To(Equal(10))
			Expect(svg).To(HavePrefix("<?xml"))
			Expect(svg).To(HaveSuffix("</svg>"))

			_, err = o.SVG(0, 5, 200, 100, "#00ff00")
			Expect(errors.Is(err, orbit.ErrOutOfRange)).To(BeTrue())
		})
	})

	Describe("Ensemble", func() {
		var (
			sys dynamo.System
			x0s []dynamo.State
		)

		BeforeEach(func() {
			var err error
			sys, err = models.NewStandard().Map()
			Expect(err).NotTo(HaveOccurred())
			x0s = nil
			for i := 0; i < 9; i++ {
				x0s = append(x0s, dynamo.State{0.1 * float64(i), 0.5})
			}
		})

		It("matches sequential generation in input order", func() {
			e := orbit.NewEnsemble(sys, 1, orbit.Forward, 100)
			e.SetWorkers(4)
			got, err := e.Run(context.Background(), x0s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(len(x0s)))

			for i, x0 := range x0s {
				want, err := orbit.New(sys, 1, orbit.Forward, 100, x0.Vec())
				Expect(err).NotTo(HaveOccurred())
				Expect(got[i].Points()).To(Equal(want.Points()))
			}
		})

		It("stops on a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := orbit.NewEnsemble(sys, 1, orbit.Forward, 10).Run(ctx, x0s)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})

		It("surfaces member failures", func() {
			e := orbit.NewEnsemble(doubling(4), 1, orbit.Forward, 3)
			_, err := e.Run(context.Background(), []dynamo.State{{0.1}, {1}})
			Expect(errors.Is(err, errBoom)).To(BeTrue())
		})

		It("stops the other workers after a member fails", func() {
			var (
				failed    atomic.Bool
				lateCalls atomic.Int64
			)
			fw := func(x0 mat.Vector, x1 *mat.VecDense, _ struct{}) error {
				if failed.Load() {
					lateCalls.Add(1)
				}
				if x0.AtVec(0) < 0 {
					failed.Store(true)
					return errBoom
				}
				x1.CopyVec(x0)
				return nil
			}
			m, err := dynamo.NewMap(1, fw, nil, struct{}{})
			Expect(err).NotTo(HaveOccurred())

			starts := []dynamo.State{{-1}}
			for i := 1; i < 50; i++ {
				starts = append(starts, dynamo.State{1})
			}
			e := orbit.NewEnsemble(m, 1, orbit.Forward, 1000)
			e.SetWorkers(2)

			_, err = e.Run(context.Background(), starts)
			Expect(errors.Is(err, errBoom)).To(BeTrue())

			var gerr *orbit.GenerationError
			Expect(errors.As(err, &gerr)).To(BeTrue())
			Expect(gerr.Point).To(Equal(1))
			Expect(lateCalls.Load()).To(BeNumerically("<", 1000))
		})

				It("handles an empty ensemble", func() {
			got, err := orbit.NewEnsemble(sys, 1, orbit.Forward, 10).Run(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})
})
