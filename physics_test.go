package main

import (
	"math"
	"testing"
)

func testCourt() Court {
	return Court{W: 800, H: 600}
}

func TestReflectOffWalls(t *testing.T) {
	c := testCourt()
	radius := c.BallRadius()

	b := &Ball{X: 400, Y: radius - 1, DY: -100}
	if !ReflectOffWalls(b, radius, c) {
		t.Fatal("expected reflection at top wall")
	}
	if b.DY != 100 {
		t.Errorf("expected DY 100 after reflection, got %f", b.DY)
	}

	// Already moving away from the wall: no re-reflection
	if ReflectOffWalls(b, radius, c) {
		t.Error("ball moving away should not reflect again")
	}

	b2 := &Ball{X: 400, Y: c.H - radius + 1, DY: 100}
	if !ReflectOffWalls(b2, radius, c) {
		t.Fatal("expected reflection at bottom wall")
	}
	if b2.DY != -100 {
		t.Errorf("expected DY -100 after reflection, got %f", b2.DY)
	}
}

func TestPaddleCollisionCenterHit(t *testing.T) {
	c := testCourt()
	radius := c.BallRadius()
	p := &Paddle{X: 20, Y: 240, W: 10, H: 120}

	// Dead center of the paddle face: exit angle must be flat
	b := &Ball{X: p.X + p.W + radius - 1, Y: 300, DX: -100, DY: 0}
	if !PaddleCollision(b, p, 1, radius, c) {
		t.Fatal("expected collision")
	}
	if b.DX <= 0 {
		t.Errorf("slot 1 rebound must move right, got DX %f", b.DX)
	}
	if math.Abs(b.DY) > 1e-9 {
		t.Errorf("center hit must exit flat, got DY %f", b.DY)
	}
	want := 100 * BallSpeedGrowth
	if math.Abs(b.Speed()-want) > 1e-9 {
		t.Errorf("expected speed %f after hit, got %f", want, b.Speed())
	}
}

func TestPaddleCollisionEdgeAngles(t *testing.T) {
	c := testCourt()
	radius := c.BallRadius()
	p := &Paddle{X: 770, Y: 240, W: 10, H: 120}

	// Top edge of the paddle: steepest upward rebound
	b := &Ball{X: p.X - radius + 1, Y: p.Y, DX: 100, DY: 0}
	if !PaddleCollision(b, p, 2, radius, c) {
		t.Fatal("expected collision")
	}
	if b.DX >= 0 {
		t.Errorf("slot 2 rebound must move left, got DX %f", b.DX)
	}
	angle := math.Atan2(b.DY, -b.DX)
	if math.Abs(angle+MaxReboundAngle) > 1e-9 {
		t.Errorf("expected exit angle %f, got %f", -MaxReboundAngle, angle)
	}

	// Bottom edge: steepest downward rebound
	b2 := &Ball{X: p.X - radius + 1, Y: p.Y + p.H, DX: 100, DY: 0}
	if !PaddleCollision(b2, p, 2, radius, c) {
		t.Fatal("expected collision")
	}
	angle2 := math.Atan2(b2.DY, -b2.DX)
	if math.Abs(angle2-MaxReboundAngle) > 1e-9 {
		t.Errorf("expected exit angle %f, got %f", MaxReboundAngle, angle2)
	}
}

func TestPaddleCollisionIgnoresReceding(t *testing.T) {
	c := testCourt()
	radius := c.BallRadius()
	p := &Paddle{X: 20, Y: 240, W: 10, H: 120}

	// Overlapping but already travelling away: must not re-hit
	b := &Ball{X: p.X + p.W, Y: 300, DX: 100, DY: 0}
	if PaddleCollision(b, p, 1, radius, c) {
		t.Error("receding ball should not collide")
	}
}

func TestPaddleCollisionSpeedCap(t *testing.T) {
	c := testCourt()
	radius := c.BallRadius()
	p := &Paddle{X: 20, Y: 240, W: 10, H: 120}
	maxSpeed := c.MaxBallSpeed()

	b := &Ball{X: p.X + p.W + 1, Y: 300, DX: -maxSpeed, DY: 0}
	if !PaddleCollision(b, p, 1, radius, c) {
		t.Fatal("expected collision")
	}
	if b.Speed() > maxSpeed+1e-9 {
		t.Errorf("speed %f exceeds cap %f", b.Speed(), maxSpeed)
	}
}

func TestDetectGoal(t *testing.T) {
	c := testCourt()

	if res := DetectGoal(&Ball{X: 400, Y: 300}, c); res.Crossed {
		t.Error("ball inside the court must not cross")
	}

	res := DetectGoal(&Ball{X: -5, Y: 300}, c)
	if !res.Crossed || res.Scorer != 2 {
		t.Errorf("left crossing should score for player 2, got %+v", res)
	}

	res = DetectGoal(&Ball{X: c.W + 5, Y: 300}, c)
	if !res.Crossed || res.Scorer != 1 {
		t.Errorf("right crossing should score for player 1, got %+v", res)
	}
}

func TestDetectGoalOwnSideExtraBall(t *testing.T) {
	c := testCourt()

	// Extra ball conceding on its owner's side awards no point
	res := DetectGoal(&Ball{X: -5, Y: 300, Owner: 1}, c)
	if !res.Crossed {
		t.Fatal("expected crossing")
	}
	if res.Scorer != 0 {
		t.Errorf("own-side concession must award nobody, got scorer %d", res.Scorer)
	}

	// The opponent's extra ball scores normally
	res = DetectGoal(&Ball{X: -5, Y: 300, Owner: 2}, c)
	if res.Scorer != 2 {
		t.Errorf("expected scorer 2, got %d", res.Scorer)
	}
}

func TestCollectorForBall(t *testing.T) {
	if got := CollectorForBall(&Ball{DX: 50}); got != 1 {
		t.Errorf("rightward ball: expected collector 1, got %d", got)
	}
	if got := CollectorForBall(&Ball{DX: -50}); got != 2 {
		t.Errorf("leftward ball: expected collector 2, got %d", got)
	}
	if got := CollectorForBall(&Ball{DX: 0}); got != 2 {
		t.Errorf("vertical ball: expected collector 2, got %d", got)
	}
}

func TestRotateVelocityPreservesSpeed(t *testing.T) {
	dx, dy := RotateVelocity(100, 0, MultiBallSplitAngle)
	speed := math.Sqrt(dx*dx + dy*dy)
	if math.Abs(speed-100) > 1e-9 {
		t.Errorf("rotation changed speed: %f", speed)
	}
	if dy == 0 {
		t.Error("rotation should tilt the velocity")
	}
}
