// Command dpcontroller drives one route through the hybrid-automaton leg
// planner, solving and forward-simulating each leg in turn.
package main

import (
	"fmt"
	"os"

	"github.com/dp-flightctl/hybriddp/internal/config"
	"github.com/dp-flightctl/hybriddp/internal/disturbance"
	"github.com/dp-flightctl/hybriddp/internal/leg"
	"github.com/dp-flightctl/hybriddp/internal/observer"
	"github.com/dp-flightctl/hybriddp/internal/route"
	"github.com/dp-flightctl/hybriddp/internal/solver"
	"github.com/dp-flightctl/hybriddp/internal/stats"
	"github.com/dp-flightctl/hybriddp/internal/telemetry"
	"github.com/dp-flightctl/hybriddp/internal/telemetry/liveview"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := telemetry.Default()

	cfg, err := config.Load(args)
	if err != nil {
		log.Errorf("config: %v", err)
		return -1
	}

	routePoints, err := route.ParsePointsFile(cfg.RouteFile)
	if err != nil {
		log.Errorf("route: %v", err)
		return -1
	}
	rt, err := route.NewRoute(routePoints)
	if err != nil {
		log.Errorf("route: %v", err)
		return -1
	}

	obstacles, err := route.ParsePointsFile(cfg.CollisionCloudFile)
	if err != nil {
		log.Errorf("obstacles: %v", err)
		return -1
	}

	numDisturbances := 1
	if cfg.DisturbanceOn {
		numDisturbances = len(disturbance.Table)
	}
	params := solver.DefaultParams()
	params.Stages = cfg.NumberOfStages
	params.CollisionCostFactor = cfg.CollisionCostFactor
	params.NumDisturbances = numDisturbances
	params.EnableNormFixPoint = cfg.EnableNormFixPoint
	params.EnableInitialFixPoint = cfg.EnableInitialFixPoint

	recorder := stats.NewMemory()

	hooks := observer.Hooks{
		OnPhase: func(e observer.PhaseEvent) {
			log.Infof("leg transition: %s -> %s at %v", e.FromPhase, e.ToPhase, e.State)
		},
		OnInvariant: func(e observer.InvariantViolation) {
			log.Warnf("invariant violated at %v", e.State)
		},
	}

	if cfg.LiveViewAddr != "" {
		viewHooks, steps, phases := liveview.Hooks(256)
		srv := liveview.NewServer(cfg.LiveViewAddr, steps, phases)
		go func() {
			if err := srv.Serve(); err != nil {
				log.Errorf("liveview: %v", err)
			}
		}()
		logPhase, logInvariant := hooks.OnPhase, hooks.OnInvariant
		hooks = observer.Hooks{
			OnStep: viewHooks.OnStep,
			OnPhase: func(e observer.PhaseEvent) {
				viewHooks.OnPhase(e)
				logPhase(e)
			},
			OnInvariant: logInvariant,
		}
		log.Infof("liveview: serving on %s", cfg.LiveViewAddr)
	}

	var source disturbance.Source = disturbance.Zero{}
	if cfg.DisturbanceOn && cfg.ApplyDisturbance {
		source = disturbance.NewDefault(1, cfg.DisturbanceChangeFactor)
	}

	d := leg.New(rt, obstacles, leg.Options{
		Params:                   params,
		ApplyDisturbance:         cfg.ApplyDisturbance,
		UseSingleStageController: cfg.UseSingleStageController,
		Disturbance:              source,
		Hooks:                    hooks,
		Recorder:                 recorder,
		Log:                      log,
	})

	for d.Phase() != leg.Done {
		if err := d.Tick(); err != nil {
			log.Errorf("tick: %v", err)
			return -1
		}
	}

	solves, lastTerminal, lastStages := recorder.Snapshot()
	fmt.Printf("done: %d leg solves, last terminal=%d stages=%d\n", solves, lastTerminal, lastStages)
	return 0
}
