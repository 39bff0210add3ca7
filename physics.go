package main

import "math"

// All distances and speeds are fractions of the canvas width (height for
// vertical paddle extents), so boards with different canvas sizes play
// identically.
const (
	BallRadiusFrac   = 0.0125 // ball radius / canvas width
	BallBaseSpeed    = 0.45   // serve speed, canvas widths per second
	BallMaxSpeed     = 1.1    // absolute speed cap, canvas widths per second
	BallSpeedGrowth  = 1.05   // per paddle hit
	PaddleWidthFrac  = 0.0125
	PaddleHeightFrac = 0.2    // paddle height / canvas height
	PaddleSpeedFrac  = 0.75   // canvas heights per second
	PaddleInsetFrac  = 0.025  // paddle face distance from its wall

	MaxReboundAngle = math.Pi / 3  // +-60 degrees off horizontal
	ServeAngleMin   = math.Pi / 12 // 15 degrees
	ServeAngleMax   = math.Pi / 4  // 45 degrees
)

// Court is the playable area in canvas units
type Court struct {
	W, H float64
}

func (c Court) BallRadius() float64   { return BallRadiusFrac * c.W }
func (c Court) PaddleWidth() float64  { return PaddleWidthFrac * c.W }
func (c Court) PaddleHeight() float64 { return PaddleHeightFrac * c.H }
func (c Court) PaddleSpeed() float64  { return PaddleSpeedFrac * c.H }
func (c Court) MaxBallSpeed() float64 { return BallMaxSpeed * c.W }

// Ball is a moving ball. Owner is 0 for the primary ball; extra balls carry
// the slot of the player whose power-up spawned them, for goal attribution.
type Ball struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Owner  int     `json:"owner,omitempty"`
}

// Speed returns the ball's speed magnitude
func (b *Ball) Speed() float64 {
	return math.Sqrt(b.DX*b.DX + b.DY*b.DY)
}

// Paddle is one player's paddle. X is the face column and fixed for the
// room's lifetime; Y is the top edge. Speed and H are mutated by power-ups.
type Paddle struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Speed float64 `json:"speed"`
}

// IntegrateBall advances the ball by dt seconds
func IntegrateBall(b *Ball, dt float64) {
	b.X += b.DX * dt
	b.Y += b.DY * dt
}

// ReflectOffWalls inverts the vertical velocity when the ball center crosses
// the top or bottom bound. The position is deliberately not clamped back
// inside the court; the next ticks carry it back in.
func ReflectOffWalls(b *Ball, radius float64, c Court) bool {
	if b.Y-radius <= 0 && b.DY < 0 {
		b.DY = -b.DY
		return true
	}
	if b.Y+radius >= c.H && b.DY > 0 {
		b.DY = -b.DY
		return true
	}
	return false
}

// PaddleCollision tests the ball against a paddle rectangle and, on hit,
// rebounds it: the normalized hit offset along the paddle height maps to an
// exit angle in [-60, +60] degrees, speed grows 5% up to the court cap, and
// the horizontal direction flips away from the paddle. slot decides which
// way "away" is. Returns true on hit.
func PaddleCollision(b *Ball, p *Paddle, slot int, radius float64, c Court) bool {
	// Closest point on the paddle rectangle to the ball center
	cx := Clamp(b.X, p.X, p.X+p.W)
	cy := Clamp(b.Y, p.Y, p.Y+p.H)
	dx := b.X - cx
	dy := b.Y - cy
	if dx*dx+dy*dy > radius*radius {
		return false
	}

	// Ball already travelling away: ignore, avoids re-hits while overlapping
	if slot == 1 && b.DX > 0 {
		return false
	}
	if slot == 2 && b.DX < 0 {
		return false
	}

	offset := Clamp((b.Y-p.Y)/p.H, 0, 1)
	angle := (offset - 0.5) * MaxReboundAngle * 2

	speed := b.Speed() * BallSpeedGrowth
	if speed > c.MaxBallSpeed() {
		speed = c.MaxBallSpeed()
	}

	dir := 1.0
	if slot == 2 {
		dir = -1.0
	}
	b.DX = math.Cos(angle) * speed * dir
	b.DY = math.Sin(angle) * speed
	return true
}

// GoalResult describes one ball crossing a goal line
type GoalResult struct {
	Crossed bool
	Scorer  int // 0 when the crossing awards no point
}

// DetectGoal checks whether the ball left the court horizontally. A ball
// crossing x<0 concedes for player 1 (scores for player 2) and vice versa.
// An extra ball conceding on its owner's side awards no point to anyone.
func DetectGoal(b *Ball, c Court) GoalResult {
	var conceder int
	switch {
	case b.X < 0:
		conceder = 1
	case b.X > c.W:
		conceder = 2
	default:
		return GoalResult{}
	}
	if b.Owner != 0 && b.Owner == conceder {
		return GoalResult{Crossed: true}
	}
	scorer := 3 - conceder
	return GoalResult{Crossed: true, Scorer: scorer}
}

// CollectorForBall infers who last touched the ball from its horizontal
// direction: a ball moving right was last hit by player 1, a ball moving
// left by player 2. Zero horizontal velocity attributes to player 2.
func CollectorForBall(b *Ball) int {
	if b.DX > 0 {
		return 1
	}
	return 2
}

// RotateVelocity returns the ball's velocity rotated by the given angle
func RotateVelocity(dx, dy, angle float64) (float64, float64) {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return dx*cos - dy*sin, dx*sin + dy*cos
}
