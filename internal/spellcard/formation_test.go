package spellcard

import (
	"math"
	"testing"

	"github.com/annel0/spellduel/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormation_CircleEvenlySpaced(t *testing.T) {
	center := vec.Vec2{X: 3, Y: -1}
	poses := Formation(FormationCircle, center, 0, 4, 2, 0, 0)
	require.Len(t, poses, 4)

	for i, p := range poses {
		assert.InDelta(t, 2, p.Position.DistanceTo(center), 1e-9, "поза %d на радиусе", i)
		expected := vec.NormalizeAngle(float64(i) * math.Pi / 2)
		assert.InDelta(t, expected, p.Heading, 1e-9, "поза %d: шаг 90°", i)
		assert.InDelta(t, p.Heading, p.Position.Sub(center).Angle(), 1e-9, "направление наружу")
	}
}

func TestFormation_CircleRespectsRotation(t *testing.T) {
	poses := Formation(FormationCircle, vec.Zero, math.Pi/2, 2, 1, 0, 0)
	require.Len(t, poses, 2)
	assert.InDelta(t, 0, poses[0].Position.X, 1e-9)
	assert.InDelta(t, 1, poses[0].Position.Y, 1e-9)
	assert.InDelta(t, -1, poses[1].Position.Y, 1e-9)
}

func TestFormation_LineCentred(t *testing.T) {
	poses := Formation(FormationLine, vec.Zero, 0, 3, 0, 1, 0)
	require.Len(t, poses, 3)

	for i, want := range []float64{-1, 0, 1} {
		assert.InDelta(t, want, poses[i].Position.X, 1e-9)
		assert.InDelta(t, 0, poses[i].Position.Y, 1e-9)
		assert.InDelta(t, 0, poses[i].Heading, 1e-9)
	}
}

func TestFormation_LineAngleRelativeToOrientation(t *testing.T) {
	// Линия перпендикулярна направлению кастера
	poses := Formation(FormationLine, vec.Zero, math.Pi/2, 2, 0, 2, math.Pi/2)
	require.Len(t, poses, 2)

	assert.InDelta(t, 1, poses[0].Position.X, 1e-9)
	assert.InDelta(t, -1, poses[1].Position.X, 1e-9)
	assert.InDelta(t, math.Pi/2, poses[0].Heading, 1e-9)
}

func TestFormation_Point(t *testing.T) {
	poses := Formation(FormationPoint, vec.Vec2{X: 1, Y: 2}, 0.5, 1, 10, 10, 0.25)
	require.Len(t, poses, 1)
	assert.Equal(t, vec.Vec2{X: 1, Y: 2}, poses[0].Position)
	assert.InDelta(t, 0.75, poses[0].Heading, 1e-9)
}

func TestFormation_PointRepeatsPose(t *testing.T) {
	poses := Formation(FormationPoint, vec.Vec2{X: 3}, 0, 4, 0, 0, 0)
	require.Len(t, poses, 4)
	for _, p := range poses {
		assert.Equal(t, poses[0], p)
	}
}

func TestFormation_EmptyCount(t *testing.T) {
	assert.Empty(t, Formation(FormationCircle, vec.Zero, 0, 0, 1, 0, 0))
}

func TestAction_OffsetRotatesWithOrientation(t *testing.T) {
	a := Action{Formation: FormationPoint, Count: 1, Offset: vec.Vec2{X: 1}}
	poses := a.Poses(vec.Vec2{X: 10, Y: 10}, math.Pi/2)
	require.Len(t, poses, 1)
	assert.InDelta(t, 10, poses[0].Position.X, 1e-9)
	assert.InDelta(t, 11, poses[0].Position.Y, 1e-9)
}

func TestParseFormation(t *testing.T) {
	cases := map[string]FormationKind{"point": FormationPoint, "Circle": FormationCircle, "ring": FormationCircle, " line ": FormationLine}
	for in, want := range cases {
		got, err := ParseFormation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormation("star")
	assert.Error(t, err)
}
