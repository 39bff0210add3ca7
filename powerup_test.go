package main

import (
	"math"
	"math/rand"
	"testing"
)

func newPowerUpRoom(t *testing.T) *Room {
	t.Helper()
	r, err := NewRoom(RoomConfig{PowerUpsEnabled: true}, nil, nil)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	return r
}

func TestDrawTypeWeights(t *testing.T) {
	pe := NewPowerUpEngine(rand.New(rand.NewSource(1)))
	counts := make(map[PowerUpType]int)
	for i := 0; i < 3000; i++ {
		counts[pe.drawType()]++
	}
	for _, w := range powerUpWeights {
		if counts[w.Type] == 0 {
			t.Errorf("type %s never drawn", w.Type)
		}
	}
	if counts[PowerMultiBall] >= counts[PowerSpeedBoost] || counts[PowerMultiBall] >= counts[PowerPaddleGrow] {
		t.Errorf("multi_ball should be the rarest draw: %v", counts)
	}
}

func TestNoSpawnBeforeFirstPoint(t *testing.T) {
	r := newPowerUpRoom(t)
	pe := r.powerups

	for i := 0; i < 5000; i++ {
		pe.maybeSpawn(r)
	}
	if len(pe.pickups) != 0 {
		t.Errorf("no pickups may spawn at 0-0, got %d", len(pe.pickups))
	}
}

func TestSpawnAfterFirstPoint(t *testing.T) {
	r := newPowerUpRoom(t)
	r.rng = rand.New(rand.NewSource(7))
	r.powerups.rng = r.rng
	r.score[0] = 1

	for i := 0; i < 5000; i++ {
		r.powerups.maybeSpawn(r)
	}
	if len(r.powerups.pickups) == 0 {
		t.Fatal("expected at least one spawn over 5000 ticks")
	}
	margin := PickupMarginFrac * r.court.W
	for _, p := range r.powerups.pickups {
		if p.X < margin || p.X+p.W > r.court.W-margin {
			t.Errorf("pickup outside horizontal spawn band: x=%f", p.X)
		}
	}
}

func TestSpawnCap(t *testing.T) {
	r := newPowerUpRoom(t)
	pe := r.powerups
	r.score[0] = 1
	for i := 0; i < MaxPickups; i++ {
		pe.pickups = append(pe.pickups, &Pickup{ID: GenerateID(4), Life: PickupLifetime})
	}

	for i := 0; i < 5000; i++ {
		pe.maybeSpawn(r)
	}
	if len(pe.pickups) != MaxPickups {
		t.Errorf("spawn cap breached: %d pickups", len(pe.pickups))
	}
}

func TestCollectAndEffectLock(t *testing.T) {
	r := newPowerUpRoom(t)
	pe := r.powerups

	// Ball moving right: player 1 is the collector
	r.ball.X = 400
	r.ball.Y = 300
	r.ball.DX = 100
	pe.pickups = []*Pickup{{ID: "p1", Type: PowerSpeedBoost, X: 395, Y: 295, W: 28, H: 28, Life: 5}}

	pe.collect(r)

	if len(pe.pickups) != 0 {
		t.Fatal("overlapped pickup should be collected")
	}
	if !pe.HasEffect(1) {
		t.Fatal("collector should hold the effect")
	}

	// A second pickup under the same ball: collector already holds an effect
	pe.pickups = []*Pickup{{ID: "p2", Type: PowerPaddleGrow, X: 395, Y: 295, W: 28, H: 28, Life: 5}}
	pe.collect(r)
	if len(pe.pickups) != 1 {
		t.Error("locked collector must not pick up a second power-up")
	}
	if pe.effects[1].Type != PowerSpeedBoost {
		t.Error("original effect must survive")
	}
}

func TestSpeedBoostApplyAndExpiry(t *testing.T) {
	r := newPowerUpRoom(t)
	pe := r.powerups
	base := r.paddles[0].Speed

	pe.apply(r, &Pickup{ID: "p", Type: PowerSpeedBoost}, 1)
	if got := r.paddles[0].Speed; got != base*SpeedBoostFactor {
		t.Errorf("expected boosted speed %f, got %f", base*SpeedBoostFactor, got)
	}

	pe.sweep(r, SpeedBoostDuration+0.1)
	if got := r.paddles[0].Speed; math.Abs(got-base) > 1e-9 {
		t.Errorf("expected restored speed %f, got %f", base, got)
	}
	if pe.HasEffect(1) {
		t.Error("expired effect should be removed")
	}
}

func TestPaddleGrowKeepsSliver(t *testing.T) {
	r := newPowerUpRoom(t)
	pe := r.powerups
	base := r.paddles[1].H

	pe.apply(r, &Pickup{ID: "p", Type: PowerPaddleGrow}, 2)
	if got := r.paddles[1].H; got != base*PaddleGrowFactor {
		t.Errorf("expected grown height %f, got %f", base*PaddleGrowFactor, got)
	}

	// The restore divisor is smaller than the grow factor on purpose
	pe.sweep(r, PaddleGrowDuration+0.1)
	want := base * PaddleGrowFactor / PaddleGrowRestore
	if got := r.paddles[1].H; math.Abs(got-want) > 1e-9 {
		t.Errorf("expected post-expiry height %f, got %f", want, got)
	}
	if r.paddles[1].H <= base {
		t.Error("a sliver of the bonus should remain after expiry")
	}
}

func TestMultiBallSpawnsOwnedPair(t *testing.T) {
	r := newPowerUpRoom(t)
	pe := r.powerups
	r.ball.DX = 100
	r.ball.DY = 0
	speed := r.ball.Speed()

	pe.apply(r, &Pickup{ID: "p", Type: PowerMultiBall}, 1)

	if len(r.extraBalls) != 2 {
		t.Fatalf("expected 2 extra balls, got %d", len(r.extraBalls))
	}
	for _, b := range r.extraBalls {
		if b.Owner != 1 {
			t.Errorf("extra ball owner should be 1, got %d", b.Owner)
		}
		if math.Abs(b.Speed()-speed) > 1e-9 {
			t.Errorf("split must preserve speed: %f vs %f", b.Speed(), speed)
		}
	}
	if r.extraBalls[0].DY*r.extraBalls[1].DY >= 0 {
		t.Error("split balls should diverge vertically")
	}

	// Unbounded effect: sweeping time does not expire it
	pe.sweep(r, 1000)
	if !pe.HasEffect(1) {
		t.Error("multi_ball must not expire on time")
	}
}

func TestClearAll(t *testing.T) {
	r := newPowerUpRoom(t)
	pe := r.powerups
	pe.pickups = []*Pickup{{ID: "a", Life: 5}, {ID: "b", Life: 5}}
	pe.apply(r, &Pickup{ID: "p", Type: PowerSpeedBoost}, 1)

	pe.ClearAll(r)

	if len(pe.pickups) != 0 || pe.HasEffect(1) {
		t.Error("ClearAll must drop every pickup and effect")
	}
}

func TestPickupLifetimeExpiry(t *testing.T) {
	r := newPowerUpRoom(t)
	pe := r.powerups
	pe.pickups = []*Pickup{{ID: "a", Life: 0.5}}

	pe.sweep(r, 1.0)
	if len(pe.pickups) != 0 {
		t.Error("pickup past its lifetime should expire")
	}
}

func TestCircleOverlapsRect(t *testing.T) {
	if !circleOverlapsRect(10, 10, 5, 12, 12, 20, 20) {
		t.Error("overlapping circle should hit")
	}
	if circleOverlapsRect(0, 0, 5, 12, 12, 20, 20) {
		t.Error("distant circle should miss")
	}
	// Touching exactly at the corner counts as overlap
	if !circleOverlapsRect(9, 12, 3, 12, 12, 20, 20) {
		t.Error("tangent circle should hit")
	}
}
