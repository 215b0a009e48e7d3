package combat

import (
	"errors"
	"fmt"

	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/vec"
)

// ErrInvalidWave некорректный запрос волны
var ErrInvalidWave = errors.New("invalid wave")

// WaveRequest линия врагов, идущих друг за другом по одному пути.
// Path задаётся в координатах арены стороны Side.
type WaveRequest struct {
	Archetypes       []string
	Path             []vec.Vec2
	Side             entity.Side
	LineLength       int
	ExtraAttackIndex int // -1 = без дополнительной атаки
	Speed            float64
	Spacing          float64 // Расстояние между соседями на пути
}

func (r *WaveRequest) validate(catalog *entity.Catalog) error {
	switch {
	case r.LineLength < 1:
		return fmt.Errorf("%w: line_length=%d", ErrInvalidWave, r.LineLength)
	case len(r.Path) < 2:
		return fmt.Errorf("%w: путь из %d точек", ErrInvalidWave, len(r.Path))
	case r.Speed <= 0:
		return fmt.Errorf("%w: speed=%v", ErrInvalidWave, r.Speed)
	case r.Spacing < 0:
		return fmt.Errorf("%w: spacing=%v", ErrInvalidWave, r.Spacing)
	case r.Side == entity.SideNone:
		return fmt.Errorf("%w: сторона не задана", ErrInvalidWave)
	case len(r.Archetypes) == 0:
		return fmt.Errorf("%w: нет архетипов", ErrInvalidWave)
	}
	for _, id := range r.Archetypes {
		if !catalog.Has(id) {
			return fmt.Errorf("%w: архетип %q: %w", ErrInvalidWave, id, entity.ErrUnknownArchetype)
		}
	}
	return nil
}

// SpawnWave создаёт линию из LineLength врагов. Член i начинает движение
// через i*Spacing/Speed секунд. Первый и последний независимо могут стать
// "great" по WavePolicy.
func (c *Core) SpawnWave(req WaveRequest) (entity.LineID, error) {
	if err := req.validate(c.pool.Catalog()); err != nil {
		return 0, err
	}

	c.nextLine++
	line := c.nextLine

	origin := c.arenaOrigin(req.Side)
	path := make([]vec.Vec2, len(req.Path))
	for i, p := range req.Path {
		path[i] = p.Add(origin)
	}

	last := req.LineLength - 1
	greatFirst := c.rng.Float64() < c.cfg.Waves.GreatFirstChance
	greatLast := c.rng.Float64() < c.cfg.Waves.GreatLastChance

	for i := 0; i < req.LineLength; i++ {
		great := (i == 0 && greatFirst) || (i == last && greatLast)
		trigger := i == req.ExtraAttackIndex
		if trigger && great && !c.cfg.Waves.TriggerMayBeGreat {
			great = false
		}

		archetype := req.Archetypes[i%len(req.Archetypes)]
		if great {
			if a, ok := c.pool.Catalog().Get(archetype); ok && a.GreatVariant != "" {
				archetype = a.GreatVariant
			}
		}

		params := behavior.Params{
			Kind:       behavior.KindPath,
			Speed:      req.Speed,
			StartDelay: float64(i) * req.Spacing / req.Speed,
			Waypoints:  path,
		}
		e, err := c.spawn(archetype, req.Side, req.Side.Opposite(), behavior.Pose{Position: path[0]}, &params)
		if err != nil {
			logging.Debug("⚠️ Волна %d: член %d пропущен: %v", line, i, err)
			continue
		}
		e.Great = great
		e.ExtraAttack = trigger
		e.Link = entity.LineLink{Line: line, Index: i}
		c.lines.Register(e.Handle, line, i)
	}

	c.stats.Waves++
	c.observer.WaveSpawned(req.Side, req.LineLength)
	c.publish(Event{
		Type:     EventWaveSpawned,
		Side:     req.Side,
		Position: path[0],
		Line:     line,
		Count:    req.LineLength,
	})
	logging.Debug("🌊 Волна %d: сторона %s, %d врагов", line, req.Side, req.LineLength)
	return line, nil
}
