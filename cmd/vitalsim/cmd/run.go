package cmd

import (
	"log"
	"os"
	"strconv"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/vitalsim/vitalsim/datarecording"
	"github.com/vitalsim/vitalsim/monitoring"
	"github.com/vitalsim/vitalsim/sim"
	"github.com/vitalsim/vitalsim/vitals"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a demographic simulation.",
	Long: "`run` builds a population, attaches the births, deaths, and " +
		"pregnancy modules, steps through the timeline, and records the " +
		"result series.",
	Run: runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("n-agents", 10000, "Initial number of agents")
	runCmd.Flags().Float64("start", 2000, "First simulated year")
	runCmd.Flags().Float64("stop", 2030, "Last simulated year")
	runCmd.Flags().Float64("dt", 1, "Timestep in years")
	runCmd.Flags().Uint64("seed", 1, "Random seed")
	runCmd.Flags().Float64("pop-scale", 1,
		"Number of real people represented by one agent")
	runCmd.Flags().Float64("birth-rate", 30,
		"Crude birth rate per 1000 per year")
	runCmd.Flags().Float64("death-rate", 20,
		"Crude death rate per 1000 per year")
	runCmd.Flags().Float64("fertility-rate", 0,
		"Fertility rate per 1000 eligible females per year; "+
			"0 disables the pregnancy module")
	runCmd.Flags().Bool("lite", false,
		"Use the reduced pregnancy model")
	runCmd.Flags().String("output", "",
		"Output database name; empty picks a unique name")
	runCmd.Flags().Bool("monitor", false,
		"Serve a monitoring API and open it in a browser")
	runCmd.Flags().Int("port", 0, "Monitoring port; 0 picks a free port")
}

func runSimulation(cmd *cobra.Command, _ []string) {
	s := sim.MakeBuilder().
		WithNumAgents(intOpt(cmd, "n-agents", "VITALSIM_N_AGENTS")).
		WithTimeline(
			sim.Years(floatOpt(cmd, "start", "VITALSIM_START")),
			sim.Years(floatOpt(cmd, "stop", "VITALSIM_STOP")),
			sim.Years(floatOpt(cmd, "dt", "VITALSIM_DT"))).
		WithSeed(uint64(intOpt(cmd, "seed", "VITALSIM_SEED"))).
		WithPopScale(floatOpt(cmd, "pop-scale", "VITALSIM_POP_SCALE")).
		Build()

	registerModules(cmd, s)

	s.Init()

	if mustBool(cmd, "monitor") {
		monitor := monitoring.NewMonitor()
		monitor.WithPortNumber(intOpt(cmd, "port", "VITALSIM_PORT"))
		monitor.RegisterSimulation(s)

		url := monitor.StartServer()
		if err := browser.OpenURL(url); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	err := s.Run()
	if err != nil {
		log.Panic(err)
	}

	rec := datarecording.New(stringOpt(cmd, "output", "VITALSIM_OUTPUT"))
	datarecording.RecordSimulation(rec, s)
}

func registerModules(cmd *cobra.Command, s *sim.Simulation) {
	s.RegisterModule(vitals.NewBirths(sim.Pars{
		"birth_rate": floatOpt(cmd, "birth-rate", "VITALSIM_BIRTH_RATE"),
	}))
	s.RegisterModule(vitals.NewDeaths(sim.Pars{
		"death_rate": floatOpt(cmd, "death-rate", "VITALSIM_DEATH_RATE"),
	}))

	fertility := floatOpt(cmd, "fertility-rate", "VITALSIM_FERTILITY_RATE")
	if fertility <= 0 {
		return
	}

	if mustBool(cmd, "lite") {
		s.RegisterModule(vitals.NewPregnancyLite(sim.Pars{
			"fertility_rate": fertility,
		}))
	} else {
		s.RegisterModule(vitals.NewPregnancy(sim.Pars{
			"fertility_rate": fertility,
		}))
	}
}

// Flags win over the environment; the environment wins over defaults.

func floatOpt(cmd *cobra.Command, flag, env string) float64 {
	if !cmd.Flags().Changed(flag) {
		if v, ok := os.LookupEnv(env); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				log.Panicf("environment variable %s is not a number: %q", env, v)
			}
			return f
		}
	}

	f, err := cmd.Flags().GetFloat64(flag)
	if err != nil {
		log.Panic(err)
	}

	return f
}

func intOpt(cmd *cobra.Command, flag, env string) int {
	if !cmd.Flags().Changed(flag) {
		if v, ok := os.LookupEnv(env); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				log.Panicf("environment variable %s is not an integer: %q", env, v)
			}
			return i
		}
	}

	switch flag {
	case "seed":
		u, err := cmd.Flags().GetUint64(flag)
		if err != nil {
			log.Panic(err)
		}
		return int(u)
	default:
		i, err := cmd.Flags().GetInt(flag)
		if err != nil {
			log.Panic(err)
		}
		return i
	}
}

func stringOpt(cmd *cobra.Command, flag, env string) string {
	if !cmd.Flags().Changed(flag) {
		if v, ok := os.LookupEnv(env); ok {
			return v
		}
	}

	s, err := cmd.Flags().GetString(flag)
	if err != nil {
		log.Panic(err)
	}

	return s
}

func mustBool(cmd *cobra.Command, flag string) bool {
	b, err := cmd.Flags().GetBool(flag)
	if err != nil {
		log.Panic(err)
	}

	return b
}
