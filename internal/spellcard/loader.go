package spellcard

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/vec"
)

// Problem одна найденная при загрузке ошибка
type Problem struct {
	Spellcard string
	Pattern   string
	Action    int // -1 если ошибка относится ко всему описанию
	Err       error
}

func (p Problem) String() string {
	var b strings.Builder
	switch {
	case p.Spellcard != "" && p.Pattern != "":
		fmt.Fprintf(&b, "спелкарта %q, композиция %q", p.Spellcard, p.Pattern)
	case p.Spellcard != "":
		fmt.Fprintf(&b, "спелкарта %q", p.Spellcard)
	default:
		fmt.Fprintf(&b, "композиция %q", p.Pattern)
	}
	if p.Action >= 0 {
		fmt.Fprintf(&b, ", действие #%d", p.Action)
	}
	fmt.Fprintf(&b, ": %v", p.Err)
	return b.String()
}

// ValidationReport результат проверки библиотеки
type ValidationReport struct {
	Problems   []Problem
	Spellcards int
	Patterns   int
}

// OK true если проблем не найдено
func (r *ValidationReport) OK() bool { return len(r.Problems) == 0 }

func (r *ValidationReport) add(p Problem) {
	r.Problems = append(r.Problems, p)
}

// Err объединяет все проблемы в одну ошибку
func (r *ValidationReport) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Problems))
	for _, p := range r.Problems {
		errs = append(errs, errors.New(p.String()))
	}
	return errors.Join(errs...)
}

// Описание в файле: углы в градусах
type vecDTO struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (v vecDTO) vec() vec.Vec2 { return vec.Vec2{X: v.X, Y: v.Y} }

type behaviorDTO struct {
	Kind           string   `yaml:"kind"`
	Speed          float64  `yaml:"speed"`
	TargetSpeed    float64  `yaml:"target_speed"`
	RampTime       float64  `yaml:"ramp_time"`
	TurnRate       float64  `yaml:"turn_rate"`
	HomingDelay    float64  `yaml:"homing_delay"`
	HomingDuration float64  `yaml:"homing_duration"`
	SecondDelay    float64  `yaml:"second_delay"`
	RadialSpeed    float64  `yaml:"radial_speed"`
	AngularSpeed   float64  `yaml:"angular_speed"`
	Spread         float64  `yaml:"spread"`
	TurnDelay      float64  `yaml:"turn_delay"`
	MinTurnRate    float64  `yaml:"min_turn_rate"`
	MaxTurnRate    float64  `yaml:"max_turn_rate"`
	Waypoints      []vecDTO `yaml:"waypoints"`
}

type actionDTO struct {
	StartDelay float64     `yaml:"start_delay"`
	Formation  string      `yaml:"formation"`
	Offset     vecDTO      `yaml:"offset"`
	Count      int         `yaml:"count"`
	Radius     float64     `yaml:"radius"`
	Spacing    float64     `yaml:"spacing"`
	Angle      float64     `yaml:"angle"`
	Behavior   behaviorDTO `yaml:"behavior"`
	Archetypes []string    `yaml:"archetypes"`
	Archetype  string      `yaml:"archetype"`
}

type movementDTO struct {
	Displacement vecDTO  `yaml:"displacement"`
	Duration     float64 `yaml:"duration"`
}

type compositeDTO struct {
	Name                string       `yaml:"name"`
	Pattern             string       `yaml:"pattern"`
	StartDelay          float64      `yaml:"start_delay"`
	OrientTowardsTarget *bool        `yaml:"orient_towards_target"`
	Movement            *movementDTO `yaml:"movement"`
	Actions             []actionDTO  `yaml:"actions"`
}

type spellcardDTO struct {
	Name       string         `yaml:"name"`
	Threshold  int            `yaml:"threshold"`
	Actions    []actionDTO    `yaml:"actions"`
	Composites []compositeDTO `yaml:"composites"`
}

type libraryFile struct {
	Patterns   []compositeDTO `yaml:"patterns"`
	Spellcards []spellcardDTO `yaml:"spellcards"`
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func (d behaviorDTO) params() (behavior.Params, error) {
	kind, err := behavior.ParseKind(d.Kind)
	if err != nil {
		return behavior.Params{}, err
	}
	p := behavior.Params{
		Kind:           kind,
		Speed:          d.Speed,
		TargetSpeed:    d.TargetSpeed,
		RampTime:       d.RampTime,
		TurnRate:       rad(d.TurnRate),
		HomingDelay:    d.HomingDelay,
		HomingDuration: d.HomingDuration,
		SecondDelay:    d.SecondDelay,
		RadialSpeed:    d.RadialSpeed,
		AngularSpeed:   rad(d.AngularSpeed),
		Spread:         rad(d.Spread),
		TurnDelay:      d.TurnDelay,
		MinTurnRate:    rad(d.MinTurnRate),
		MaxTurnRate:    rad(d.MaxTurnRate),
	}
	for _, w := range d.Waypoints {
		p.Waypoints = append(p.Waypoints, w.vec())
	}
	if p.MinTurnRate > p.MaxTurnRate {
		return behavior.Params{}, errors.New("min_turn_rate больше max_turn_rate")
	}
	return p, nil
}

func (d actionDTO) action(catalog *entity.Catalog) (Action, error) {
	formation, err := ParseFormation(d.Formation)
	if err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	params, err := d.Behavior.params()
	if err != nil {
		return Action{}, fmt.Errorf("%w: поведение: %v", ErrInvalidAction, err)
	}
	archetypes := append([]string(nil), d.Archetypes...)
	if d.Archetype != "" {
		archetypes = append(archetypes, d.Archetype)
	}
	count := d.Count
	if count == 0 && formation == FormationPoint {
		count = 1
	}
	a := Action{
		StartDelay: d.StartDelay,
		Formation:  formation,
		Offset:     d.Offset.vec(),
		Count:      count,
		Radius:     d.Radius,
		Spacing:    d.Spacing,
		Angle:      rad(d.Angle),
		Behavior:   params,
		Archetypes: archetypes,
	}
	if err := a.Validate(catalog); err != nil {
		return Action{}, err
	}
	return a, nil
}

// actions переводит действия, пропуская некорректные
func actions(dtos []actionDTO, catalog *entity.Catalog, report *ValidationReport, spellcard, pattern string) []Action {
	out := make([]Action, 0, len(dtos))
	for i, d := range dtos {
		a, err := d.action(catalog)
		if err != nil {
			report.add(Problem{Spellcard: spellcard, Pattern: pattern, Action: i, Err: err})
			continue
		}
		out = append(out, a)
	}
	return out
}

func (d compositeDTO) composite(name string, catalog *entity.Catalog, report *ValidationReport, spellcard string) Composite {
	c := Composite{
		Name:                name,
		StartDelay:          d.StartDelay,
		OrientTowardsTarget: d.OrientTowardsTarget != nil && *d.OrientTowardsTarget,
		Actions:             actions(d.Actions, catalog, report, spellcard, name),
	}
	if d.Movement != nil {
		c.Movement = &Movement{Displacement: d.Movement.Displacement.vec(), Duration: d.Movement.Duration}
	}
	return c
}

// instantiate применяет ссылку на именованную композицию: переопределяет
// задержку, ориентацию и движение, если они заданы в ссылке
func (d compositeDTO) instantiate(base *Composite) Composite {
	c := *base
	c.Actions = make([]Action, len(base.Actions))
	for i, a := range base.Actions {
		a.Behavior = a.Behavior.Clone()
		a.Archetypes = append([]string(nil), a.Archetypes...)
		c.Actions[i] = a
	}
	c.StartDelay = d.StartDelay
	if d.OrientTowardsTarget != nil {
		c.OrientTowardsTarget = *d.OrientTowardsTarget
	}
	if d.Movement != nil {
		c.Movement = &Movement{Displacement: d.Movement.Displacement.vec(), Duration: d.Movement.Duration}
	} else if base.Movement != nil {
		m := *base.Movement
		c.Movement = &m
	}
	if d.Name != "" {
		c.Name = d.Name
	}
	return c
}

// LoadLibrary читает YAML файл спелкарт
func LoadLibrary(path string, catalog *entity.Catalog) (*Library, *ValidationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("чтение спелкарт %s: %w", path, err)
	}
	return ParseLibrary(data, catalog)
}

// ParseLibrary разбирает описание спелкарт. Некорректные действия и
// описания пропускаются и попадают в отчёт; ошибка возвращается только
// если документ не удалось разобрать.
func ParseLibrary(data []byte, catalog *entity.Catalog) (*Library, *ValidationReport, error) {
	var f libraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("разбор спелкарт: %w", err)
	}

	lib := NewLibrary()
	report := &ValidationReport{}

	for _, pd := range f.Patterns {
		if pd.Name == "" {
			report.add(Problem{Pattern: "?", Action: -1, Err: errors.New("композиция без имени")})
			continue
		}
		if _, dup := lib.patterns[pd.Name]; dup {
			report.add(Problem{Pattern: pd.Name, Action: -1, Err: errors.New("дубликат композиции")})
			continue
		}
		c := pd.composite(pd.Name, catalog, report, "")
		if len(c.Actions) == 0 {
			report.add(Problem{Pattern: pd.Name, Action: -1, Err: errors.New("нет корректных действий")})
			continue
		}
		lib.patterns[pd.Name] = &c
		report.Patterns++
	}

	for _, sd := range f.Spellcards {
		if sd.Name == "" {
			report.add(Problem{Spellcard: "?", Action: -1, Err: errors.New("спелкарта без имени")})
			continue
		}
		if _, dup := lib.spellcards[sd.Name]; dup {
			report.add(Problem{Spellcard: sd.Name, Action: -1, Err: errors.New("дубликат спелкарты")})
			continue
		}
		def := &Definition{
			Name:      sd.Name,
			Threshold: sd.Threshold,
			Actions:   actions(sd.Actions, catalog, report, sd.Name, ""),
		}
		for _, cd := range sd.Composites {
			if cd.Pattern != "" {
				base, ok := lib.patterns[cd.Pattern]
				if !ok {
					report.add(Problem{Spellcard: sd.Name, Pattern: cd.Pattern, Action: -1, Err: errors.New("неизвестная композиция")})
					continue
				}
				def.Composites = append(def.Composites, cd.instantiate(base))
				continue
			}
			name := cd.Name
			if name == "" {
				name = fmt.Sprintf("%s#%d", sd.Name, len(def.Composites))
			}
			c := cd.composite(name, catalog, report, sd.Name)
			if len(c.Actions) > 0 {
				def.Composites = append(def.Composites, c)
			}
		}
		if len(def.Actions) == 0 && len(def.Composites) == 0 {
			report.add(Problem{Spellcard: sd.Name, Action: -1, Err: errors.New("нет корректных действий")})
			continue
		}
		lib.addSpellcard(def)
		report.Spellcards++
	}

	for _, p := range report.Problems {
		logging.Warn("⚠️ Спелкарты: %s", p)
	}
	logging.Info("🃏 Загружено спелкарт: %d, композиций: %d, проблем: %d",
		report.Spellcards, report.Patterns, len(report.Problems))
	return lib, report, nil
}
