package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStroke(t *testing.T) {
	valid := Stroke{Color: "#ff0000", LineWidth: 3, Points: []Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}
	require.NoError(t, ValidateStroke(valid, 2000))

	tests := []struct {
		name   string
		mutate func(s *Stroke)
	}{
		{"no points", func(s *Stroke) { s.Points = nil }},
		{"too many points", func(s *Stroke) { s.Points = make([]Point, 3) }},
		{"zero width", func(s *Stroke) { s.LineWidth = 0 }},
		{"negative width", func(s *Stroke) { s.LineWidth = -1 }},
		{"NaN width", func(s *Stroke) { s.LineWidth = math.NaN() }},
		{"infinite width", func(s *Stroke) { s.LineWidth = math.Inf(1) }},
		{"missing color", func(s *Stroke) { s.Color = "" }},
		{"point outside the unit square", func(s *Stroke) { s.Points = []Point{{X: 1.2, Y: 0.5}} }},
		{"negative coordinate", func(s *Stroke) { s.Points = []Point{{X: 0.5, Y: -0.1}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid.Clone()
			tt.mutate(&s)
			err := ValidateStroke(s, 2)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidStroke)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestStroke_Scaled(t *testing.T) {
	s := Stroke{Points: []Point{{X: 0.5, Y: 0.25}, {X: 1, Y: 0}}}

	assert.Equal(t, []Point{{X: 200, Y: 100}, {X: 400, Y: 0}}, s.Scaled(400, 400))
	assert.Equal(t, []Point{{X: 50, Y: 25}, {X: 100, Y: 0}}, s.Scaled(100, 100))
}

func TestReplay(t *testing.T) {
	strokes := []Stroke{
		{ID: "1", Seq: 0, Points: []Point{{X: 0.1, Y: 0.1}}},
		{ID: "2", Seq: 1},
		{ID: "3", Seq: 2, Points: []Point{{X: 1, Y: 1}}},
	}

	var drawn []string
	var last []Point
	Replay(strokes, 300, 300, func(s Stroke, pts []Point) {
		drawn = append(drawn, s.ID)
		last = pts
	})

	assert.Equal(t, []string{"1", "3"}, drawn, "empty strokes are skipped, order is kept")
	assert.Equal(t, []Point{{X: 300, Y: 300}}, last)
}

func TestNormalize(t *testing.T) {
	p := Normalize(150, 75, 50, 25, 200, 100)
	assert.InDelta(t, 0.5, p.X, 1e-9)
	assert.InDelta(t, 0.5, p.Y, 1e-9)

	assert.Equal(t, Point{}, Normalize(10, 10, 0, 0, 0, 100))
}

func TestStroke_Clone(t *testing.T) {
	s := Stroke{Points: []Point{{X: 0.1}}}
	c := s.Clone()
	c.Points[0].X = 0.7
	assert.Equal(t, 0.1, s.Points[0].X)
}
