package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/replay"
	"github.com/annel0/spellduel/internal/vec"
)

func (ds *DebugServer) handleHealth(c *gin.Context) {
	data := ds.metrics.Snapshot()
	data["status"] = "ok"
	data["match_id"] = ds.cfg.Runner.MatchID()
	ds.cfg.Runner.View(func(core *combat.Core) {
		data["tick"] = core.Now()
	})
	c.JSON(http.StatusOK, data)
}

func (ds *DebugServer) handleStats(c *gin.Context) {
	var stats combat.Stats
	ds.cfg.Runner.View(func(core *combat.Core) { stats = core.Stats() })
	ok(c, stats)
}

func (ds *DebugServer) handleSnapshot(c *gin.Context) {
	var snap combat.Snapshot
	ds.cfg.Runner.View(func(core *combat.Core) { snap = core.Snapshot() })
	ok(c, snap)
}

func (ds *DebugServer) handleSideCount(c *gin.Context) {
	side, err := entity.ParseSide(c.Param("side"))
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	var count int
	ds.cfg.Runner.View(func(core *combat.Core) { count = core.ActiveCount(side) })
	ok(c, gin.H{"side": side, "count": count})
}

func (ds *DebugServer) handleFindNext(c *gin.Context) {
	line, err := strconv.ParseUint(c.Param("line"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "некорректная линия: %v", err)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, http.StatusBadRequest, "некорректный индекс: %v", err)
		return
	}

	var (
		h     entity.Handle
		found bool
		e     entity.Entity
	)
	ds.cfg.Runner.View(func(core *combat.Core) {
		h, found = core.FindNext(entity.LineID(line), index)
		if found {
			e, _ = core.Entity(h)
		}
	})
	if !found {
		ok(c, gin.H{"found": false})
		return
	}
	ok(c, gin.H{
		"found":     true,
		"handle":    h.Uint64(),
		"index":     e.Link.Index,
		"archetype": e.Archetype.ID,
		"position":  e.Position,
	})
}

func (ds *DebugServer) handleReplay(c *gin.Context) {
	if ds.cfg.Journal == nil {
		fail(c, http.StatusServiceUnavailable, "журнал событий отключен")
		return
	}
	q := replay.Query{MatchID: c.DefaultQuery("match", ds.cfg.Runner.MatchID())}
	var err error
	if v := c.Query("from"); v != "" {
		if q.FromTick, err = strconv.ParseUint(v, 10, 64); err != nil {
			fail(c, http.StatusBadRequest, "некорректный from: %v", err)
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if q.ToTick, err = strconv.ParseUint(v, 10, 64); err != nil {
			fail(c, http.StatusBadRequest, "некорректный to: %v", err)
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			fail(c, http.StatusBadRequest, "некорректный limit: %v", err)
			return
		}
	}
	q.Types = parseList(c.Query("type"))

	events, err := ds.cfg.Journal.Events(q)
	if err != nil {
		logging.Error("❌ Чтение журнала: %v", err)
		fail(c, http.StatusInternalServerError, "ошибка чтения журнала")
		return
	}
	ok(c, events)
}

// ActivateRequest тело POST /debug/spellcards/:name
type ActivateRequest struct {
	Caster      string   `json:"caster" binding:"required"`
	Target      string   `json:"target"`
	Origin      vec.Vec2 `json:"origin"`
	Orientation float64  `json:"orientation_deg"`
}

func (ds *DebugServer) handleActivateSpellcard(c *gin.Context) {
	if ds.cfg.Library == nil {
		fail(c, http.StatusServiceUnavailable, "библиотека спелкарт не загружена")
		return
	}
	def, found := ds.cfg.Library.Spellcard(c.Param("name"))
	if !found {
		fail(c, http.StatusNotFound, "спелкарта %q не найдена", c.Param("name"))
		return
	}

	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "некорректный запрос: %v", err)
		return
	}
	caster, err := entity.ParseSide(req.Caster)
	if err != nil || caster == entity.SideNone {
		fail(c, http.StatusBadRequest, "некорректная сторона заклинателя %q", req.Caster)
		return
	}
	target := caster.Opposite()
	if req.Target != "" {
		if target, err = entity.ParseSide(req.Target); err != nil {
			fail(c, http.StatusBadRequest, "%v", err)
			return
		}
	}

	var activation uint64
	ds.cfg.Runner.Do(func(core *combat.Core) {
		activation = core.ActivateSpellcard(def, req.Origin, req.Orientation*math.Pi/180, caster, target)
	})
	ok(c, gin.H{"activation": activation, "spellcard": def.Name})
}

// WaveRequestDTO тело POST /debug/waves
type WaveRequestDTO struct {
	Side             string     `json:"side" binding:"required"`
	Archetypes       []string   `json:"archetypes" binding:"required"`
	Path             []vec.Vec2 `json:"path" binding:"required"`
	LineLength       int        `json:"line_length"`
	ExtraAttackIndex *int       `json:"extra_attack_index"`
	Speed            float64    `json:"speed"`
	Spacing          float64    `json:"spacing"`
}

func (ds *DebugServer) handleSpawnWave(c *gin.Context) {
	var dto WaveRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		fail(c, http.StatusBadRequest, "некорректный запрос: %v", err)
		return
	}
	side, err := entity.ParseSide(dto.Side)
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	req := combat.WaveRequest{
		Archetypes:       dto.Archetypes,
		Path:             dto.Path,
		Side:             side,
		LineLength:       dto.LineLength,
		ExtraAttackIndex: -1,
		Speed:            dto.Speed,
		Spacing:          dto.Spacing,
	}
	if dto.ExtraAttackIndex != nil {
		req.ExtraAttackIndex = *dto.ExtraAttackIndex
	}

	var line entity.LineID
	ds.cfg.Runner.Do(func(core *combat.Core) {
		line, err = core.SpawnWave(req)
	})
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}
	ok(c, gin.H{"line": line})
}

// DamageRequest тело POST /debug/damage
type DamageRequest struct {
	Handle   uint64 `json:"handle" binding:"required"`
	Amount   int    `json:"amount"`
	Attacker string `json:"attacker"`
	Clear    bool   `json:"clear"`
	Forced   bool   `json:"forced"`
}

func (ds *DebugServer) handleDamage(c *gin.Context) {
	var req DamageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "некорректный запрос: %v", err)
		return
	}
	attacker, err := entity.ParseSide(req.Attacker)
	if err != nil {
		fail(c, http.StatusBadRequest, "%v", err)
		return
	}

	h := entity.HandleFromUint64(req.Handle)
	var outcome combat.Outcome
	ds.cfg.Runner.Do(func(core *combat.Core) {
		if req.Clear {
			outcome = core.Clear(h, req.Forced, attacker)
			return
		}
		outcome = core.ApplyDamage(h, req.Amount, attacker)
	})
	ok(c, gin.H{"outcome": outcome.String()})
}

func (ds *DebugServer) handleSetTarget(c *gin.Context) {
	if ds.cfg.Targets == nil {
		fail(c, http.StatusServiceUnavailable, "цели управляются не через API")
		return
	}
	side, err := entity.ParseSide(c.Param("side"))
	if err != nil || side == entity.SideNone {
		fail(c, http.StatusBadRequest, "некорректная сторона %q", c.Param("side"))
		return
	}
	var pos vec.Vec2
	if err := c.ShouldBindJSON(&pos); err != nil {
		fail(c, http.StatusBadRequest, "некорректный запрос: %v", err)
		return
	}
	ds.cfg.Runner.Do(func(*combat.Core) { ds.cfg.Targets[side] = pos })
	ok(c, gin.H{"side": side, "position": pos})
}

// parseList парсит строку с разделителями-запятыми
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
