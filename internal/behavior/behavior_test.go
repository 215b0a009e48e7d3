package behavior

import (
	"math"
	"testing"

	"github.com/annel0/spellduel/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60.0

// countingRand возвращает фиксированные значения и считает вызовы
type countingRand struct {
	values []float64
	calls  int
}

func (r *countingRand) Float64() float64 {
	v := r.values[r.calls%len(r.values)]
	r.calls++
	return v
}

func run(s *State, pose Pose, target vec.Vec2, seconds float64) Pose {
	ticks := int(math.Round(seconds / dt))
	for i := 0; i < ticks; i++ {
		pose = pose.Apply(Advance(s, pose, target, dt))
	}
	return pose
}

func TestLinear_ConstantVelocity(t *testing.T) {
	s, pose := Init(Params{Kind: KindLinear, Speed: 5}, Pose{Heading: math.Pi / 2}, vec.Zero, nil)
	pose = run(&s, pose, vec.Zero, 1)

	assert.InDelta(t, 0, pose.Position.X, 1e-9)
	assert.InDelta(t, 5, pose.Position.Y, 1e-9)
	assert.InDelta(t, math.Pi/2, pose.Heading, 1e-9)
}

func TestLinear_SpeedRamp(t *testing.T) {
	s, pose := Init(Params{Kind: KindLinear, Speed: 0, TargetSpeed: 6, RampTime: 1}, Pose{}, vec.Zero, nil)

	pose = run(&s, pose, vec.Zero, 1)
	// Интеграл линейного разгона 0→6 за 1с ≈ 3
	assert.InDelta(t, 3, pose.Position.X, 0.1)

	before := pose.Position.X
	pose = run(&s, pose, vec.Zero, 1)
	assert.InDelta(t, 6, pose.Position.X-before, 1e-6, "после разгона скорость постоянна")
}

func TestHoming_TurnIsBounded(t *testing.T) {
	target := vec.Vec2{X: 0, Y: 10}
	s, pose := Init(Params{Kind: KindHoming, Speed: 1, TurnRate: math.Pi / 2}, Pose{}, target, nil)

	d := Advance(&s, pose, target, dt)
	assert.InDelta(t, math.Pi/2*dt, d.Turn, 1e-9, "поворот не превышает turn_rate*dt")

	pose = run(&s, pose.Apply(d), target, 2)
	assert.InDelta(t, math.Pi/2, vec.NormalizeAngle(pose.Heading), 0.15, "через 2с направление смотрит на цель")
}

func TestHoming_UsesCapturedTarget(t *testing.T) {
	captured := vec.Vec2{X: 10, Y: 0}
	s, pose := Init(Params{Kind: KindHoming, Speed: 1}, Pose{}, captured, nil)

	// Живая цель двигается, но Homing держит захваченную точку
	d := Advance(&s, pose, vec.Vec2{X: 0, Y: -50}, dt)
	assert.InDelta(t, 0, d.Turn, 1e-9)
}

func TestDelayedHoming_SwitchesOnce(t *testing.T) {
	target := vec.Vec2{X: 0, Y: 10}
	s, pose := Init(Params{Kind: KindDelayedHoming, Speed: 2, HomingDelay: 0.5, TurnRate: math.Pi}, Pose{}, vec.Zero, nil)

	pose = run(&s, pose, target, 0.4)
	assert.Equal(t, PhaseStraight, s.Phase)
	assert.InDelta(t, 0, pose.Heading, 1e-9)

	pose = run(&s, pose, target, 0.2)
	assert.Equal(t, PhaseHoming, s.Phase)
	assert.Equal(t, target, s.Target, "цель захватывается в момент включения наведения")
	assert.Greater(t, pose.Heading, 0.0)
}

func TestDoubleHoming_Phases(t *testing.T) {
	p := Params{Kind: KindDoubleHoming, Speed: 1, HomingDelay: 0.5, HomingDuration: 0.5, SecondDelay: 0.5, TurnRate: math.Pi}
	s, pose := Init(p, Pose{}, vec.Zero, nil)

	first := vec.Vec2{X: 0, Y: 5}
	pose = run(&s, pose, first, 0.6)
	assert.Equal(t, PhaseHoming, s.Phase)
	assert.Equal(t, first, s.Target)

	pose = run(&s, pose, first, 0.5)
	assert.Equal(t, PhasePause, s.Phase)
	heading := pose.Heading
	pose = run(&s, pose, first, 0.2)
	assert.InDelta(t, heading, pose.Heading, 1e-9, "во время паузы направление не меняется")

	second := vec.Vec2{X: -5, Y: 0}
	run(&s, pose, second, 0.5)
	assert.Equal(t, PhaseHomingAgain, s.Phase)
	assert.Equal(t, second, s.Target, "повторное наведение захватывает цель заново")
}

func TestSpiral_RadiusGrowsLinearly(t *testing.T) {
	origin := vec.Vec2{X: 3, Y: 4}
	s, pose := Init(Params{Kind: KindSpiral, RadialSpeed: 2, AngularSpeed: math.Pi}, Pose{Position: origin}, vec.Zero, nil)

	pose = run(&s, pose, vec.Zero, 1)
	assert.InDelta(t, 2, pose.Position.DistanceTo(origin), 1e-6)
	// За 1с при ω=π угол повернулся на π
	assert.InDelta(t, math.Pi, math.Abs(pose.Position.Sub(origin).Angle()), 1e-6)
}

func TestDelayedRandomTurn_DrawsOnlyAtInit(t *testing.T) {
	rng := &countingRand{values: []float64{1.0, 0.9, 0.5}}
	p := Params{Kind: KindDelayedRandomTurn, Speed: 1, Spread: 0.2, TurnDelay: 0.5, MinTurnRate: 1, MaxTurnRate: 3}

	s, pose := Init(p, Pose{}, vec.Zero, rng)
	require.Equal(t, 3, rng.calls)
	assert.InDelta(t, 0.2, pose.Heading, 1e-9, "разброс применён один раз")
	assert.Equal(t, 1.0, s.TurnSign)
	assert.InDelta(t, 2.0, s.TurnRate, 1e-9)

	pose = run(&s, pose, vec.Zero, 0.4)
	assert.InDelta(t, 0.2, pose.Heading, 1e-9, "до задержки движение прямое")

	pose = run(&s, pose, vec.Zero, 1)
	assert.Greater(t, pose.Heading, 0.2)
	assert.Equal(t, 3, rng.calls, "тики не вызывают генератор")
}

func TestPath_FollowsWaypointsAndFinishes(t *testing.T) {
	p := Params{
		Kind:       KindPath,
		Speed:      10,
		StartDelay: 0.5,
		Waypoints:  []vec.Vec2{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}},
	}
	s, pose := Init(p, Pose{Position: vec.Vec2{X: 100, Y: 100}}, vec.Zero, nil)
	assert.Equal(t, vec.Vec2{X: 0, Y: 0}, pose.Position, "Path ставит сущность в начало пути")
	assert.Equal(t, PhaseWaiting, s.Phase)

	pose = run(&s, pose, vec.Zero, 0.5)
	assert.InDelta(t, 0, pose.Position.X, 0.2)

	pose = run(&s, pose, vec.Zero, 2)
	assert.True(t, s.Finished())
	assert.InDelta(t, 5, pose.Position.X, 1e-9)
	assert.InDelta(t, 5, pose.Position.Y, 1e-9)
}

func TestParams_CloneIsolatesWaypoints(t *testing.T) {
	orig := Params{Kind: KindPath, Waypoints: []vec.Vec2{{X: 1}, {X: 2}}}
	s, _ := Init(orig, Pose{}, vec.Zero, nil)

	orig.Waypoints[1] = vec.Vec2{X: 99}
	assert.Equal(t, 2.0, s.Params.Waypoints[1].X)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Double_Homing")
	require.NoError(t, err)
	assert.Equal(t, KindDoubleHoming, k)

	_, err = ParseKind("teleport")
	assert.Error(t, err)
}
