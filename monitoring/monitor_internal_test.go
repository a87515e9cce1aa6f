package monitoring

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/gorilla/mux"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vitalsim/vitalsim/sim"
	"github.com/vitalsim/vitalsim/vitals"
)

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
		s *sim.Simulation
	)

	BeforeEach(func() {
		s = sim.MakeBuilder().
			WithNumAgents(50).
			WithTimeline(2000, 2005, 1).
			Build()
		s.RegisterModule(vitals.NewBirths(sim.Pars{"birth_rate": 0}))
		s.Init()

		m = NewMonitor()
		m.RegisterSimulation(s)
	})

	It("should create a progress bar covering all timesteps", func() {
		Expect(m.progressBars).To(HaveLen(1))
		Expect(m.progressBars[0].Name).To(Equal("Timesteps"))
		Expect(m.progressBars[0].Total).To(Equal(uint64(s.NumSteps())))
	})

	It("should advance the progress bar as the simulation steps", func() {
		s.Step()
		s.Step()

		Expect(m.progressBars[0].Finished).To(Equal(uint64(2)))
		Expect(m.progressBars[0].InProgress).To(Equal(uint64(0)))
	})

	It("should remove completed progress bars", func() {
		bar := m.CreateProgressBar("Extra", 10)
		Expect(m.progressBars).To(HaveLen(2))

		m.CompleteProgressBar(bar)

		Expect(m.progressBars).To(HaveLen(1))
	})

	It("should report the current time", func() {
		s.Step()

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/now", nil)
		m.now(w, r)

		rsp := struct {
			TI  int     `json:"ti"`
			Now float64 `json:"now"`
		}{}
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.TI).To(Equal(1))
		Expect(rsp.Now).To(Equal(2001.0))
	})

	It("should list registered modules", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/list_modules", nil)
		m.listModules(w, r)

		Expect(w.Body.String()).To(Equal(`["births"]`))
	})

	It("should report population status", func() {
		s.Step()

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/population", nil)
		m.populationStatus(w, r)

		rsp := populationRsp{}
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.NumAgents).To(Equal(50))
		Expect(rsp.NumAlive).To(Equal(50))
		Expect(rsp.TI).To(Equal(1))
	})

	It("should report a module-level result series", func() {
		s.Step()
		s.Step()

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/result/births/new", nil)
		r = mux.SetURLVars(r, map[string]string{
			"module": "births",
			"name":   "new",
		})
		m.reportResult(w, r)

		var values []float64
		Expect(json.Unmarshal(w.Body.Bytes(), &values)).To(Succeed())
		Expect(values).To(Equal([]float64{0, 0}))
	})

	It("should report a simulation-level result series", func() {
		s.Step()

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/result/sim/n_alive", nil)
		r = mux.SetURLVars(r, map[string]string{
			"module": "sim",
			"name":   "n_alive",
		})
		m.reportResult(w, r)

		var values []float64
		Expect(json.Unmarshal(w.Body.Bytes(), &values)).To(Succeed())
		Expect(values).To(Equal([]float64{50}))
	})

	It("should return 404 for unknown modules", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/module/nosuch", nil)
		r = mux.SetURLVars(r, map[string]string{"name": "nosuch"})
		m.listModuleDetails(w, r)

		Expect(w.Code).To(Equal(404))
	})

	It("should pause and continue a running simulation", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/pause", nil)
		m.pauseSimulation(w, r)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			Expect(s.Run()).To(Succeed())
			close(done)
		}()

		// Run takes the pause lock before each step, so nothing moves.
		Consistently(done).ShouldNot(BeClosed())
		Expect(m.progressBars[0].Finished).To(Equal(uint64(0)))

		w = httptest.NewRecorder()
		r = httptest.NewRequest("GET", "/api/continue", nil)
		m.continueSimulation(w, r)

		Eventually(done).Should(BeClosed())
		Expect(m.progressBars[0].Finished).To(Equal(uint64(s.NumSteps())))
	})

	It("should serialize progress bars as JSON", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/progress", nil)
		m.listProgressBars(w, r)

		var bars []map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
	})
})
