// Package agent runs one game session: the hello handshake, then one
// decision step per observation, answered with the commands for that step.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chippydip/go-sc2ai/api"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nstehr/vimy/vimy-sc2/combat"
	"github.com/nstehr/vimy/vimy-sc2/config"
	"github.com/nstehr/vimy/vimy-sc2/ipc"
	"github.com/nstehr/vimy/vimy-sc2/metrics"
	"github.com/nstehr/vimy/vimy-sc2/model"
	"github.com/nstehr/vimy/vimy-sc2/objective"
	"github.com/nstehr/vimy/vimy-sc2/orders"
	"github.com/nstehr/vimy/vimy-sc2/squad"
	"github.com/nstehr/vimy/vimy-sc2/strategy"
	"github.com/nstehr/vimy/vimy-sc2/world"
)

var errNoHello = errors.New("observation before hello")

// Options configure a session. Zero values fall back to defaults.
type Options struct {
	Tuning   *config.Tuning
	Doctrine strategy.Doctrine
	Metrics  *metrics.Metrics // nil disables metrics
	Logger   *slog.Logger
}

// Session owns the decision-making for a single player.
type Session struct {
	ID      uuid.UUID
	Player  uint32
	Race    api.Race
	opts    Options
	log     *slog.Logger
	tracer  trace.Tracer
	terrain *model.TerrainGrid

	bank      *world.Bank
	snap      *world.Snapshot
	place     *world.GridPlacement
	picker    *world.NearestPicker
	intel     *world.Intel
	squads    *squad.Manager
	sched     *objective.Scheduler
	tactician *combat.Tactician
	plan      *strategy.Plan
	buffer    *orders.Buffer

	prev      *stateSnapshot
	prevLoop  uint32
	prevStats squad.Stats
}

func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tuning == nil {
		tu := config.Default()
		opts.Tuning = &tu
	}
	if opts.Doctrine.Name == "" {
		opts.Doctrine = strategy.DefaultDoctrine()
	}
	id := uuid.New()
	return &Session{
		ID:     id,
		opts:   opts,
		log:    opts.Logger.With("session", id.String()),
		tracer: otel.Tracer("github.com/nstehr/vimy/vimy-sc2/agent"),
	}
}

// Register wires the session's handlers into c.
func (s *Session) Register(c *ipc.Connection) {
	c.RegisterHandler(ipc.TypeHello, s.HandleHello)
	c.RegisterHandler(ipc.TypeObservation, s.HandleObservation)
}

// HandleHello completes the handshake and builds the decision pipeline for
// the announced race.
func (s *Session) HandleHello(_ context.Context, env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := json.Unmarshal(env.Data, &hello); err != nil {
		return nil, fmt.Errorf("unmarshal hello: %w", err)
	}
	s.Start(hello)

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", Session: s.ID.String()})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// Start (re)builds the pipeline. A repeated hello starts the game over.
func (s *Session) Start(hello ipc.HelloMessage) {
	s.Player = hello.Player
	s.Race = hello.Race
	s.log = s.opts.Logger.With("session", s.ID.String(), "player", hello.Player)
	s.terrain = hello.Terrain.Pathing()

	tu := *s.opts.Tuning
	s.bank = world.NewBank()
	s.snap = world.NewSnapshot()
	s.place = world.NewGridPlacement()
	s.intel = world.NewIntel()
	s.squads = squad.NewManager(tu.Squad, s.log.With("component", "squads"))
	s.picker = world.NewNearestPicker(s.squads.CommittedPriority)
	s.buffer = orders.NewBuffer(tu.Orders.ResendAfter, tu.Orders.PosTolerance)
	s.sched = objective.NewScheduler(objective.Deps{
		Units:     s.snap,
		Economy:   s.bank,
		Placement: s.place,
		Picker:    s.picker,
		Orders:    s.buffer,
		Squads:    s.squads,
	}, tu.Scheduler, s.log.With("component", "scheduler"))
	s.tactician = combat.NewTactician(tu.Combat, s.squads, s.buffer, s.log.With("component", "combat"))
	s.plan = strategy.CompileDoctrine(s.opts.Doctrine, hello.Race, strategy.Deps{
		Scheduler: s.sched,
		Squads:    s.squads,
		Units:     s.snap,
		Intel:     s.intel,
	}, s.log.With("component", "strategy"))
	s.prev, s.prevLoop, s.prevStats = nil, 0, squad.Stats{}

	s.log.Info("player identified",
		"race", hello.Race,
		"map", hello.MapName,
		"size", fmt.Sprintf("%dx%d", hello.MapWidth, hello.MapHeight),
		"terrain", s.terrain != nil,
		"doctrine", s.opts.Doctrine.Name,
	)
}

// HandleObservation runs one step and replies with its commands. A failed
// step still gets a reply so the game keeps moving.
func (s *Session) HandleObservation(ctx context.Context, env ipc.Envelope) (*ipc.Envelope, error) {
	var gs ipc.ObservationMessage
	if err := json.Unmarshal(env.Data, &gs); err != nil {
		return nil, fmt.Errorf("unmarshal observation: %w", err)
	}
	batches, err := s.Step(ctx, &gs)
	if err != nil {
		s.log.Error("step failed", "loop", gs.Loop, "error", err)
	}
	reply, err := ipc.NewActions(gs.Loop, batches)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// Step runs the decision pipeline on one observation and returns the
// commands to send. Each stage recovers its own panics, so a fault in one
// stage is reported in the returned error while the later stages and the
// flush still run.
func (s *Session) Step(ctx context.Context, gs *model.GameState) ([]orders.Batch, error) {
	if s.plan == nil {
		return nil, errNoHello
	}
	ctx, span := s.tracer.Start(ctx, "step", trace.WithAttributes(attribute.Int64("loop", int64(gs.Loop))))
	defer span.End()
	start := time.Now()

	var errs []error
	run := func(stage string, fn func() error) {
		if err := guard(stage, fn); err != nil {
			s.log.Error("step stage failed", "stage", stage, "loop", gs.Loop, "error", err)
			errs = append(errs, err)
		}
	}

	var f *model.Frame
	run("frame", func() error {
		f = model.NewFrame(gs, s.terrain, s.prevLoop)
		return nil
	})
	if f == nil {
		err := fmt.Errorf("step %d: %w", gs.Loop, errors.Join(errs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.prevLoop = gs.Loop

	run("world", func() error {
		s.bank.Reset(f)
		s.snap.Update(f)
		s.place.Update(f)
		s.picker.Update(f)
		s.intel.Update(f)
		return nil
	})

	var events []strategy.Event
	run("events", func() error {
		cur := takeSnapshot(f, s.intel, s.prev)
		events = detectEvents(f, s.intel, &cur, s.prev)
		s.prev = &cur
		for _, e := range events {
			s.log.Info("game event", "kind", e.Kind, "time", fmt.Sprintf("%.1f", e.Time), "detail", e.Detail)
		}
		return nil
	})

	run("plan", func() error { s.plan.Update(f, events); return nil })
	run("squads", func() error { s.squads.Step(f); return nil })
	run("scheduler", func() error { s.sched.Step(f); return nil })
	run("combat", func() error { return s.tactician.Step(ctx, f) })

	var batches []orders.Batch
	run("flush", func() error {
		batches = s.buffer.Flush(f.Time, f.Alive)
		return nil
	})

	counts := s.sched.Counts()
	squads := s.squads.Squads()
	span.SetAttributes(
		attribute.Int("squads", len(squads)),
		attribute.Int("objectives.current", counts["current"]),
		attribute.Int("events", len(events)),
		attribute.Int("batches", len(batches)),
	)
	if m := s.opts.Metrics; m != nil {
		m.SetObjectives(counts)
		m.SetSquads(squads)
		stats := s.squads.Stats()
		m.AddSquadStats(s.prevStats, stats)
		s.prevStats = stats
		m.CountCommands(batches)
		m.StepDuration.Observe(time.Since(start).Seconds())
	}

	s.log.Debug("step done",
		"loop", gs.Loop,
		"minerals", gs.Player.Minerals,
		"supply", fmt.Sprintf("%d/%d", gs.Player.FoodUsed, gs.Player.FoodCap),
		"units", len(gs.Units),
		"enemies", len(gs.Enemies),
		"objectives", counts,
		"squads", len(squads),
		"batches", len(batches),
	)

	if len(errs) > 0 {
		err := fmt.Errorf("step %d: %w", gs.Loop, errors.Join(errs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return batches, err
	}
	return batches, nil
}

// guard runs fn and turns a panic into an error naming the stage.
func guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", stage, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}
