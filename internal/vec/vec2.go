package vec

import "math"

// Vec2 представляет 2D координаты арены с плавающей точкой
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Zero нулевой вектор
var Zero = Vec2{}

// FromAngle возвращает единичный вектор в направлении angle (радианы)
func FromAngle(angle float64) Vec2 {
	return Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2) Mul(scalar float64) Vec2 {
	return Vec2{X: v.X * scalar, Y: v.Y * scalar}
}

// Dot скалярное произведение
func (v Vec2) Dot(other Vec2) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Rotate поворачивает вектор на angle радиан против часовой стрелки
func (v Vec2) Rotate(angle float64) Vec2 {
	sin, cos := math.Sincos(angle)
	return Vec2{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// Angle возвращает угол вектора относительно оси X
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Lerp линейная интерполяция между v и other, t в [0, 1]
func (v Vec2) Lerp(other Vec2, t float64) Vec2 {
	return Vec2{X: v.X + (other.X-v.X)*t, Y: v.Y + (other.Y-v.Y)*t}
}

// Normalized возвращает нормализованный вектор
func (v Vec2) Normalized() Vec2 {
	length := v.Length()
	if length == 0 {
		return Vec2{X: 0, Y: 0}
	}
	return Vec2{X: v.X / length, Y: v.Y / length}
}

// Length возвращает длину вектора
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// NormalizeAngle приводит угол к диапазону (-π, π]
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
