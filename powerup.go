package main

import (
	"math"
	"math/rand"
)

// PowerUpType identifies the power-up
type PowerUpType string

const (
	PowerMultiBall  PowerUpType = "multi_ball"
	PowerSpeedBoost PowerUpType = "speed_boost"
	PowerPaddleGrow PowerUpType = "paddle_grow"
)

const (
	PickupLifetime   = 12.0  // seconds uncollected before expiry
	PickupSizeFrac   = 0.035 // pickup box edge / canvas width
	PickupMarginFrac = 0.15  // spawn inset from each court edge
	SpawnChance      = 0.004 // per-tick spawn probability
	MaxPickups       = 5

	SpeedBoostDuration = 8.0
	SpeedBoostFactor   = 2.0
	PaddleGrowDuration = 8.0
	PaddleGrowFactor   = 2.0
	// Restore divides by 1.5, not 2: grown paddles keep a sliver of the
	// bonus after expiry. Intentional, do not "fix".
	PaddleGrowRestore = 1.5

	MultiBallSplitAngle = math.Pi / 12 // +-15 degrees off the primary heading
)

// powerUpWeights is the rarity table for the weighted type draw
var powerUpWeights = []struct {
	Type   PowerUpType
	Weight int
}{
	{PowerMultiBall, 20},
	{PowerSpeedBoost, 40},
	{PowerPaddleGrow, 40},
}

// Pickup is a spawned, not-yet-collected power-up box
type Pickup struct {
	ID   string
	Type PowerUpType
	X, Y float64 // top-left corner
	W, H float64
	Life float64 // seconds remaining
}

// ActiveEffect is a power-up currently modifying a player's paddle or the
// ball set. Remaining < 0 means unbounded (multi_ball).
type ActiveEffect struct {
	ID        string
	Type      PowerUpType
	Slot      int
	Remaining float64
	BallIDs   []string // extra balls owned by this effect (multi_ball)
}

// PowerUpEngine runs once per tick for active rooms with power-ups enabled.
// All methods are called under the room's lock.
type PowerUpEngine struct {
	rng     *rand.Rand
	pickups []*Pickup
	effects map[int]*ActiveEffect // slot -> effect; one per player
}

func NewPowerUpEngine(rng *rand.Rand) *PowerUpEngine {
	return &PowerUpEngine{
		rng:     rng,
		effects: make(map[int]*ActiveEffect),
	}
}

// Update runs one power-up tick: maybe spawn, collect, expire
func (pe *PowerUpEngine) Update(r *Room, dt float64) {
	pe.maybeSpawn(r)
	pe.collect(r)
	pe.sweep(r, dt)
}

// maybeSpawn rolls the spawn dice. No spawns before the first point of the
// match, and never more than MaxPickups on the court.
func (pe *PowerUpEngine) maybeSpawn(r *Room) {
	if r.score[0] == 0 && r.score[1] == 0 {
		return
	}
	if len(pe.pickups) >= MaxPickups {
		return
	}
	if pe.rng.Float64() >= SpawnChance {
		return
	}

	size := PickupSizeFrac * r.court.W
	marginX := PickupMarginFrac * r.court.W
	marginY := PickupMarginFrac * r.court.H
	p := &Pickup{
		ID:   GenerateID(4),
		Type: pe.drawType(),
		X:    marginX + pe.rng.Float64()*(r.court.W-2*marginX-size),
		Y:    marginY + pe.rng.Float64()*(r.court.H-2*marginY-size),
		W:    size,
		H:    size,
		Life: PickupLifetime,
	}
	pe.pickups = append(pe.pickups, p)
	r.emit(MsgPowerUpSpawned, pickupState(p))
}

// drawType samples the rarity table
func (pe *PowerUpEngine) drawType() PowerUpType {
	total := 0
	for _, w := range powerUpWeights {
		total += w.Weight
	}
	roll := pe.rng.Intn(total)
	for _, w := range powerUpWeights {
		roll -= w.Weight
		if roll < 0 {
			return w.Type
		}
	}
	return powerUpWeights[len(powerUpWeights)-1].Type
}

// collect checks the primary ball against every pickup. The collector is
// whoever last hit the ball; a player already holding an effect cannot
// collect another.
func (pe *PowerUpEngine) collect(r *Room) {
	radius := r.court.BallRadius()
	for i := 0; i < len(pe.pickups); i++ {
		p := pe.pickups[i]
		if !circleOverlapsRect(r.ball.X, r.ball.Y, radius, p.X, p.Y, p.W, p.H) {
			continue
		}
		slot := CollectorForBall(r.ball)
		if pe.effects[slot] != nil {
			continue
		}
		pe.pickups = append(pe.pickups[:i], pe.pickups[i+1:]...)
		i--
		r.emit(MsgPowerUpCollected, PowerUpCollectedMsg{ID: p.ID, Type: string(p.Type), Player: slot})
		pe.apply(r, p, slot)
		r.analytics.Track(EvtPowerUpCollected, r.slots[slot-1].UserID, r.ID, string(p.Type))
	}
}

// apply activates a collected pickup for the given slot
func (pe *PowerUpEngine) apply(r *Room, p *Pickup, slot int) {
	eff := &ActiveEffect{ID: p.ID, Type: p.Type, Slot: slot}

	switch p.Type {
	case PowerMultiBall:
		eff.Remaining = -1
		for _, angle := range []float64{MultiBallSplitAngle, -MultiBallSplitAngle} {
			dx, dy := RotateVelocity(r.ball.DX, r.ball.DY, angle)
			b := &Ball{ID: GenerateID(3), X: r.ball.X, Y: r.ball.Y, DX: dx, DY: dy, Owner: slot}
			r.extraBalls = append(r.extraBalls, b)
			eff.BallIDs = append(eff.BallIDs, b.ID)
			r.emit(MsgExtraBallSpawned, ballState(b))
		}
	case PowerSpeedBoost:
		eff.Remaining = SpeedBoostDuration
		pad := r.paddles[slot-1]
		pad.Speed *= SpeedBoostFactor
		r.emit(MsgPaddleSpeedChanged, PaddleChangedMsg{Player: slot, Paddle: paddleState(pad)})
	case PowerPaddleGrow:
		eff.Remaining = PaddleGrowDuration
		pad := r.paddles[slot-1]
		pad.H *= PaddleGrowFactor
		pad.Y = Clamp(pad.Y, 0, r.court.H-pad.H)
		r.emit(MsgPaddleSizeChanged, PaddleChangedMsg{Player: slot, Paddle: paddleState(pad)})
	}
	pe.effects[slot] = eff
}

// sweep expires pickups and bounded effects
func (pe *PowerUpEngine) sweep(r *Room, dt float64) {
	for i := 0; i < len(pe.pickups); i++ {
		p := pe.pickups[i]
		p.Life -= dt
		if p.Life <= 0 {
			pe.pickups = append(pe.pickups[:i], pe.pickups[i+1:]...)
			i--
			r.emit(MsgPowerUpExpired, IDMsg{ID: p.ID})
		}
	}
	for slot, eff := range pe.effects {
		if eff.Remaining < 0 {
			continue // multi_ball runs until cleared
		}
		eff.Remaining -= dt
		if eff.Remaining <= 0 {
			pe.deactivate(r, eff)
			delete(pe.effects, slot)
			r.emit(MsgPowerUpEnded, IDMsg{ID: eff.ID})
		}
	}
}

// deactivate runs the type-specific removal
func (pe *PowerUpEngine) deactivate(r *Room, eff *ActiveEffect) {
	switch eff.Type {
	case PowerSpeedBoost:
		pad := r.paddles[eff.Slot-1]
		pad.Speed /= SpeedBoostFactor
		r.emit(MsgPaddleSpeedChanged, PaddleChangedMsg{Player: eff.Slot, Paddle: paddleState(pad)})
	case PowerPaddleGrow:
		pad := r.paddles[eff.Slot-1]
		pad.H /= PaddleGrowRestore
		r.emit(MsgPaddleSizeChanged, PaddleChangedMsg{Player: eff.Slot, Paddle: paddleState(pad)})
	case PowerMultiBall:
		for _, id := range eff.BallIDs {
			r.removeExtraBall(id)
		}
	}
}

// ClearAll force-clears every pickup and active effect, used on each score.
// The room resets paddles to defaults right after, so the paddle-restoring
// deactivations are skipped here.
func (pe *PowerUpEngine) ClearAll(r *Room) {
	for _, p := range pe.pickups {
		r.emit(MsgPowerUpExpired, IDMsg{ID: p.ID})
	}
	pe.pickups = nil
	for slot, eff := range pe.effects {
		delete(pe.effects, slot)
		r.emit(MsgPowerUpEnded, IDMsg{ID: eff.ID})
	}
}

// HasEffect reports whether a slot currently holds an effect
func (pe *PowerUpEngine) HasEffect(slot int) bool {
	return pe.effects[slot] != nil
}

// PickupStates converts pickups for the snapshot
func (pe *PowerUpEngine) PickupStates() []PickupState {
	out := make([]PickupState, 0, len(pe.pickups))
	for _, p := range pe.pickups {
		out = append(out, pickupState(p))
	}
	return out
}

// EffectStates converts active effects for the snapshot
func (pe *PowerUpEngine) EffectStates() []EffectState {
	out := make([]EffectState, 0, len(pe.effects))
	for _, eff := range pe.effects {
		out = append(out, EffectState{ID: eff.ID, Type: string(eff.Type), Player: eff.Slot, Remaining: eff.Remaining})
	}
	return out
}

func pickupState(p *Pickup) PickupState {
	return PickupState{ID: p.ID, Type: string(p.Type), X: round1(p.X), Y: round1(p.Y), W: round1(p.W), H: round1(p.H)}
}

// circleOverlapsRect is a closest-point test between the ball circle and a
// pickup box
func circleOverlapsRect(cx, cy, r, rx, ry, rw, rh float64) bool {
	nx := Clamp(cx, rx, rx+rw)
	ny := Clamp(cy, ry, ry+rh)
	dx := cx - nx
	dy := cy - ny
	return dx*dx+dy*dy <= r*r
}
