package spellcard

import (
	"math"

	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/vec"
)

// Poses вычисляет позы спавна действия.
// center — точка эмиттера, rotation — ориентация кастера (или группы).
func (a *Action) Poses(center vec.Vec2, rotation float64) []behavior.Pose {
	return Formation(a.Formation, center.Add(a.Offset.Rotate(rotation)), rotation, a.Count, a.Radius, a.Spacing, a.Angle)
}

// Formation вычисляет count поз для формации вокруг точки center.
//   - Point: count копий позы в center, направление rotation+angle;
//   - Circle: равномерно по окружности radius, направление наружу;
//   - Line: вдоль прямой под углом rotation+angle с шагом spacing,
//     центрированно (смещения (i-(n-1)/2)*spacing), направление rotation.
func Formation(kind FormationKind, center vec.Vec2, rotation float64, count int, radius, spacing, angle float64) []behavior.Pose {
	if count < 1 {
		return nil
	}
	poses := make([]behavior.Pose, count)

	switch kind {
	case FormationCircle:
		step := 2 * math.Pi / float64(count)
		for i := range poses {
			heading := vec.NormalizeAngle(rotation + angle + step*float64(i))
			poses[i] = behavior.Pose{
				Position: center.Add(vec.FromAngle(heading).Mul(radius)),
				Heading:  heading,
			}
		}
	case FormationLine:
		dir := vec.FromAngle(rotation + angle)
		mid := float64(count-1) / 2
		for i := range poses {
			poses[i] = behavior.Pose{
				Position: center.Add(dir.Mul((float64(i) - mid) * spacing)),
				Heading:  vec.NormalizeAngle(rotation),
			}
		}
	default:
		for i := range poses {
			poses[i] = behavior.Pose{Position: center, Heading: vec.NormalizeAngle(rotation + angle)}
		}
	}
	return poses
}
