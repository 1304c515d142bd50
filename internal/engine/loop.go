package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Engine paces a Simulation against the wall clock. The simulation is
// strictly single threaded, so the engine owns it: the loop advances
// it tick by tick, and everything outside the loop (HTTP handlers,
// savers) reaches it through Do, which runs between ticks.
type Engine struct {
	Sim *Simulation

	mu      sync.Mutex
	speed   float64
	running bool

	subs     map[int]chan Event
	nextSub  int
	sentTick uint64
}

// NewEngine wraps the simulation at speed 1, not yet running. The
// event watermark starts at the current tick so a loaded world does
// not replay its history to the first subscriber.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:      sim,
		speed:    1,
		subs:     map[int]chan Event{},
		sentTick: sim.Tick,
	}
}

// Run drives the simulation until Stop. Each pass advances the world
// by one tick of sim time, then sleeps off the rest of the wall
// interval, shrunk by the speed multiplier. Speed zero pauses the
// loop without stopping it.
func (e *Engine) Run() {
	e.mu.Lock()
	e.running = true
	tick := e.Sim.Tick
	e.mu.Unlock()
	slog.Info("engine started", "tick", tick, "speed", e.Speed())

	for e.Running() {
		speed := e.Speed()
		if speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.step()

		elapsed := time.Since(start)
		target := time.Duration(float64(time.Second) * e.Sim.P.Time.TickSeconds / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("engine stopped", "tick", e.Sim.Tick)
}

// Stop halts the loop after the current tick finishes.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// Running reports whether the loop is live.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Speed returns the current multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the multiplier. Zero pauses.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	e.speed = v
	e.mu.Unlock()
}

// Do runs fn with exclusive access to the simulation, between ticks.
// fn must not call back into the engine.
func (e *Engine) Do(fn func(*Simulation)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.Sim)
}

func (e *Engine) step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Sim.Advance(e.Sim.P.Time.TickSeconds)
	e.fanOutLocked()
}

// Inject records an operator-authored event, stamped with the current
// tick, and streams it without waiting for the next tick.
func (e *Engine) Inject(category, description string) Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev := Event{Tick: e.Sim.Tick, Description: description, Category: category}
	e.Sim.Events = append(e.Sim.Events, ev)
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Subscribe opens a live event feed primed with up to backlog recent
// events. Slow consumers lose events rather than stall the tick.
func (e *Engine) Subscribe(backlog int) (int, <-chan Event, []Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	ch := make(chan Event, 64)
	e.subs[e.nextSub] = ch
	var past []Event
	if backlog > 0 {
		past = append(past, e.Sim.RecentEvents(backlog)...)
	}
	return e.nextSub, ch, past
}

// Unsubscribe closes the feed.
func (e *Engine) Unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ch, ok := e.subs[id]; ok {
		delete(e.subs, id)
		close(ch)
	}
}

// fanOutLocked pushes every event newer than the watermark to all
// subscribers. Events are appended in tick order, so the fresh ones
// form a suffix.
func (e *Engine) fanOutLocked() {
	evs := e.Sim.Events
	i := len(evs)
	for i > 0 && evs[i-1].Tick > e.sentTick {
		i--
	}
	for _, ev := range evs[i:] {
		for _, ch := range e.subs {
			select {
			case ch <- ev:
			default:
			}
		}
	}
	e.sentTick = e.Sim.Tick
}
