// Package behavior содержит правила движения снарядов и врагов.
//
// Все правила — ветки одного tagged union (State) и обрабатываются единой
// функцией Advance. Случайные величины разыгрываются только в Init.
package behavior

import (
	"fmt"
	"math"
	"strings"

	"github.com/annel0/spellduel/internal/vec"
)

// Kind тип правила движения
type Kind uint8

const (
	KindLinear Kind = iota
	KindHoming
	KindDelayedHoming
	KindDoubleHoming
	KindSpiral
	KindDelayedRandomTurn
	KindPath
)

var kindNames = map[Kind]string{
	KindLinear:            "linear",
	KindHoming:            "homing",
	KindDelayedHoming:     "delayed_homing",
	KindDoubleHoming:      "double_homing",
	KindSpiral:            "spiral",
	KindDelayedRandomTurn: "delayed_random_turn",
	KindPath:              "path",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind разбирает имя правила
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("неизвестное поведение %q", s)
}

// Params параметры поведения. Углы в радианах, время в секундах.
type Params struct {
	Kind Kind

	Speed       float64
	TargetSpeed float64 // Linear: скорость после разгона, 0 = без разгона
	RampTime    float64

	TurnRate       float64 // Homing: рад/с, <= 0 = мгновенный поворот
	HomingDelay    float64
	HomingDuration float64 // DoubleHoming: длительность первого наведения
	SecondDelay    float64 // DoubleHoming: пауза перед повторным наведением

	RadialSpeed  float64 // Spiral
	AngularSpeed float64 // Spiral: рад/с

	Spread      float64 // DelayedRandomTurn: разброс начального направления
	TurnDelay   float64
	MinTurnRate float64
	MaxTurnRate float64

	StartDelay float64 // Path: задержка старта
	Waypoints  []vec.Vec2
}

// Clone копирует параметры, включая срез точек пути
func (p Params) Clone() Params {
	if p.Waypoints != nil {
		wp := make([]vec.Vec2, len(p.Waypoints))
		copy(wp, p.Waypoints)
		p.Waypoints = wp
	}
	return p
}

// Pose положение и направление сущности
type Pose struct {
	Position vec.Vec2
	Heading  float64
}

// Delta изменение позы за тик
type Delta struct {
	Move vec.Vec2
	Turn float64
}

// Apply применяет Delta к позе
func (p Pose) Apply(d Delta) Pose {
	return Pose{Position: p.Position.Add(d.Move), Heading: vec.NormalizeAngle(p.Heading + d.Turn)}
}

// Phase текущая фаза многофазных правил
type Phase uint8

const (
	PhaseStraight Phase = iota
	PhaseHoming
	PhasePause
	PhaseHomingAgain
	PhaseTurning
	PhaseWaiting
	PhaseDone
)

// Rand источник случайных чисел, *rand.Rand подходит
type Rand interface {
	Float64() float64
}

// State состояние правила, принадлежит одной сущности
type State struct {
	Params  Params
	Elapsed float64
	Origin  vec.Vec2
	Target  vec.Vec2
	Phase   Phase

	TurnSign float64
	TurnRate float64

	SpiralAngle float64
	Segment     int
}

// Finished true если правило завершилось (Path дошёл до конца)
func (s *State) Finished() bool { return s.Phase == PhaseDone }

// Init создаёт состояние из параметров. Все случайные розыгрыши выполняются здесь.
// Возвращает позу, скорректированную правилом (например, разброс направления).
func Init(p Params, pose Pose, target vec.Vec2, rng Rand) (State, Pose) {
	s := State{
		Params: p.Clone(),
		Origin: pose.Position,
		Target: target,
	}

	switch p.Kind {
	case KindHoming:
		s.Phase = PhaseHoming
	case KindSpiral:
		s.SpiralAngle = pose.Heading
	case KindDelayedRandomTurn:
		pose.Heading = vec.NormalizeAngle(pose.Heading + (draw(rng)*2-1)*p.Spread)
		s.TurnSign = 1
		if draw(rng) < 0.5 {
			s.TurnSign = -1
		}
		s.TurnRate = p.MinTurnRate + draw(rng)*(p.MaxTurnRate-p.MinTurnRate)
	case KindPath:
		if p.StartDelay > 0 {
			s.Phase = PhaseWaiting
		}
		if len(p.Waypoints) > 0 {
			pose.Position = p.Waypoints[0]
			s.Origin = pose.Position
			if len(p.Waypoints) > 1 {
				pose.Heading = p.Waypoints[1].Sub(p.Waypoints[0]).Angle()
			}
		}
		if len(p.Waypoints) < 2 && s.Phase != PhaseWaiting {
			s.Phase = PhaseDone
		}
	}
	return s, pose
}

func draw(rng Rand) float64 {
	if rng == nil {
		return 0.5
	}
	return rng.Float64()
}

// Advance продвигает правило на dt секунд.
// target — текущая позиция цели, используется только при захвате цели фазой наведения.
func Advance(s *State, pose Pose, target vec.Vec2, dt float64) Delta {
	s.Elapsed += dt
	p := &s.Params

	switch p.Kind {
	case KindLinear:
		return forward(pose.Heading, s.linearSpeed(), dt)

	case KindHoming:
		return homing(s, pose, p.Speed, dt)

	case KindDelayedHoming:
		if s.Phase == PhaseStraight && s.Elapsed >= p.HomingDelay {
			s.Phase = PhaseHoming
			s.Target = target
		}
		if s.Phase == PhaseHoming {
			return homing(s, pose, p.Speed, dt)
		}
		return forward(pose.Heading, s.linearSpeed(), dt)

	case KindDoubleHoming:
		s.advanceDoubleHoming(target)
		if s.Phase == PhaseHoming || s.Phase == PhaseHomingAgain {
			return homing(s, pose, p.Speed, dt)
		}
		return forward(pose.Heading, s.linearSpeed(), dt)

	case KindSpiral:
		return s.spiral(pose)

	case KindDelayedRandomTurn:
		var turn float64
		if s.Elapsed >= p.TurnDelay {
			s.Phase = PhaseTurning
			turn = s.TurnSign * s.TurnRate * dt
		}
		d := forward(pose.Heading+turn, p.Speed, dt)
		d.Turn = turn
		return d

	case KindPath:
		return s.path(pose, dt)
	}
	return Delta{}
}

// linearSpeed скорость с учётом линейного разгона
func (s *State) linearSpeed() float64 {
	p := &s.Params
	if p.TargetSpeed == 0 || p.RampTime <= 0 {
		return p.Speed
	}
	t := s.Elapsed / p.RampTime
	if t > 1 {
		t = 1
	}
	return p.Speed + (p.TargetSpeed-p.Speed)*t
}

func (s *State) advanceDoubleHoming(target vec.Vec2) {
	p := &s.Params
	duration := p.HomingDuration
	if duration <= 0 {
		duration = 0.5
	}

	switch s.Phase {
	case PhaseStraight:
		if s.Elapsed >= p.HomingDelay {
			s.Phase = PhaseHoming
			s.Target = target
		}
	case PhaseHoming:
		if s.Elapsed >= p.HomingDelay+duration {
			s.Phase = PhasePause
		}
	case PhasePause:
		if s.Elapsed >= p.HomingDelay+duration+p.SecondDelay {
			s.Phase = PhaseHomingAgain
			s.Target = target
		}
	}
}

func forward(heading, speed, dt float64) Delta {
	return Delta{Move: vec.FromAngle(heading).Mul(speed * dt)}
}

// homing поворачивает направление к захваченной цели не более чем на TurnRate*dt
func homing(s *State, pose Pose, speed, dt float64) Delta {
	to := s.Target.Sub(pose.Position)
	var turn float64
	if to.Length() > 1e-9 {
		diff := vec.NormalizeAngle(to.Angle() - pose.Heading)
		if limit := s.Params.TurnRate * dt; s.Params.TurnRate > 0 && math.Abs(diff) > limit {
			diff = math.Copysign(limit, diff)
		}
		turn = diff
	}
	d := forward(pose.Heading+turn, speed, dt)
	d.Turn = turn
	return d
}

// spiral вычисляет абсолютную позицию на спирали вокруг точки спавна
func (s *State) spiral(pose Pose) Delta {
	p := &s.Params
	r := p.RadialSpeed * s.Elapsed
	theta := s.SpiralAngle + p.AngularSpeed*s.Elapsed
	pos := s.Origin.Add(vec.FromAngle(theta).Mul(r))

	vel := vec.FromAngle(theta).Mul(p.RadialSpeed).Add(vec.FromAngle(theta + math.Pi/2).Mul(r * p.AngularSpeed))
	turn := 0.0
	if vel.Length() > 1e-9 {
		turn = vec.NormalizeAngle(vel.Angle() - pose.Heading)
	}
	return Delta{Move: pos.Sub(pose.Position), Turn: turn}
}

// path двигает сущность по ломаной с постоянной скоростью
func (s *State) path(pose Pose, dt float64) Delta {
	p := &s.Params
	switch s.Phase {
	case PhaseDone:
		return Delta{}
	case PhaseWaiting:
		if s.Elapsed < p.StartDelay {
			return Delta{}
		}
		s.Phase = PhaseStraight
		dt = s.Elapsed - p.StartDelay
		if len(p.Waypoints) < 2 {
			s.Phase = PhaseDone
			return Delta{}
		}
	}

	pos := pose.Position
	heading := pose.Heading
	step := p.Speed * dt
	for step > 0 && s.Segment+1 < len(p.Waypoints) {
		next := p.Waypoints[s.Segment+1]
		to := next.Sub(pos)
		dist := to.Length()
		if dist > 1e-9 {
			heading = to.Angle()
		}
		if dist > step {
			pos = pos.Add(to.Mul(step / dist))
			step = 0
			break
		}
		pos = next
		step -= dist
		s.Segment++
	}
	if s.Segment+1 >= len(p.Waypoints) {
		s.Phase = PhaseDone
	}
	return Delta{Move: pos.Sub(pose.Position), Turn: vec.NormalizeAngle(heading - pose.Heading)}
}
