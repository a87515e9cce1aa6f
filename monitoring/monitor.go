// Package monitoring turns a running simulation into a small web server
// so that it can be paused, resumed, and inspected from the outside.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/vitalsim/vitalsim/sim"
)

// Monitor turns a simulation into a server and allows external
// monitoring and controlling of the simulation.
type Monitor struct {
	simulation *sim.Simulation
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulation registers the simulation under monitoring and hooks
// a step-progress bar to it.
func (m *Monitor) RegisterSimulation(s *sim.Simulation) {
	m.simulation = s

	bar := m.CreateProgressBar("Timesteps", uint64(s.NumSteps()))
	s.AcceptHook(stepProgressHook{bar: bar})
}

type stepProgressHook struct {
	bar *ProgressBar
}

func (h stepProgressHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosBeforeStep:
		h.bar.IncrementInProgress(1)
	case sim.HookPosAfterStep:
		h.bar.MoveInProgressToFinished(1)
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars)-1)
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// StartServer starts the monitor as a web server and returns the URL it
// listens on.
func (m *Monitor) StartServer() string {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseSimulation)
	r.HandleFunc("/api/continue", m.continueSimulation)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/run", m.run)
	r.HandleFunc("/api/list_modules", m.listModules)
	r.HandleFunc("/api/module/{name}", m.listModuleDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/population", m.populationStatus)
	r.HandleFunc("/api/result/{module}/{name}", m.reportResult)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) pauseSimulation(w http.ResponseWriter, _ *http.Request) {
	m.simulation.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueSimulation(w http.ResponseWriter, _ *http.Request) {
	m.simulation.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"ti\":%d,\"now\":%.10f}",
		m.simulation.TI(), float64(m.simulation.Now()))
}

func (m *Monitor) run(_ http.ResponseWriter, _ *http.Request) {
	go func() {
		err := m.simulation.Run()
		if err != nil {
			panic(err)
		}
	}()
}

func (m *Monitor) listModules(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, mod := range m.simulation.Modules() {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "\"%s\"", mod.Name())
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) listModuleDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	module := m.findModuleOr404(w, name)
	if module == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(module)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	ModuleName string `json:"module_name,omitempty"`
	FieldName  string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		dieOnErr(err)
	}

	fields := strings.Split(req.FieldName, ".")

	module := m.findModuleOr404(w, req.ModuleName)
	if module == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(module)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(fields)
	dieOnErr(err)

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type populationRsp struct {
	NumAgents int     `json:"n_agents"`
	NumAlive  int     `json:"n_alive"`
	TI        int     `json:"ti"`
	Now       float64 `json:"now"`
}

func (m *Monitor) populationStatus(w http.ResponseWriter, _ *http.Request) {
	people := m.simulation.People()

	rsp := populationRsp{
		NumAgents: people.NumAgents(),
		NumAlive:  people.NumAlive(),
		TI:        m.simulation.TI(),
		Now:       float64(m.simulation.Now()),
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) reportResult(w http.ResponseWriter, r *http.Request) {
	moduleName := mux.Vars(r)["module"]
	resultName := mux.Vars(r)["name"]

	var results *sim.Results
	if moduleName == "sim" {
		results = m.simulation.Results()
	} else {
		module := m.findModuleOr404(w, moduleName)
		if module == nil {
			return
		}
		results = module.Results()
	}

	res := results.Get(resultName)

	// Only the steps already taken carry data.
	values := res.Values[:m.simulation.TI()]
	bytes, err := json.Marshal(values)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) findModuleOr404(
	w http.ResponseWriter,
	name string,
) sim.Module {
	var module sim.Module
	for _, mod := range m.simulation.Modules() {
		if mod.Name() == name {
			module = mod
		}
	}

	if module == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Module not found"))
		dieOnErr(err)
	}

	return module
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	bytes, err := json.Marshal(m.progressBars)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
