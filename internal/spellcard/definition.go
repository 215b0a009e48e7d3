package spellcard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/annel0/spellduel/internal/behavior"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/vec"
)

// ErrInvalidAction ошибка конфигурации действия
var ErrInvalidAction = errors.New("invalid action")

// FormationKind пространственная расстановка снарядов
type FormationKind uint8

const (
	FormationPoint FormationKind = iota
	FormationCircle
	FormationLine
)

func (f FormationKind) String() string {
	switch f {
	case FormationPoint:
		return "point"
	case FormationCircle:
		return "circle"
	case FormationLine:
		return "line"
	default:
		return "unknown"
	}
}

// ParseFormation разбирает имя формации
func ParseFormation(s string) (FormationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point", "":
		return FormationPoint, nil
	case "circle", "ring":
		return FormationCircle, nil
	case "line":
		return FormationLine, nil
	default:
		return 0, fmt.Errorf("неизвестная формация %q", s)
	}
}

// Action одно отложенное действие спелкарты.
// Углы в радианах, время в секундах.
type Action struct {
	StartDelay float64
	Formation  FormationKind
	Offset     vec.Vec2
	Count      int
	Radius     float64
	Spacing    float64
	Angle      float64
	Behavior   behavior.Params
	Archetypes []string
}

// Archetype возвращает архетип для i-й позы (циклически)
func (a *Action) Archetype(i int) string {
	return a.Archetypes[i%len(a.Archetypes)]
}

// Validate проверяет действие против каталога архетипов
func (a *Action) Validate(catalog *entity.Catalog) error {
	if a.Count < 1 {
		return fmt.Errorf("%w: count=%d", ErrInvalidAction, a.Count)
	}
	if a.StartDelay < 0 {
		return fmt.Errorf("%w: отрицательный start_delay", ErrInvalidAction)
	}
	if a.Radius < 0 || a.Spacing < 0 {
		return fmt.Errorf("%w: отрицательные radius/spacing", ErrInvalidAction)
	}
	if a.Formation > FormationLine {
		return fmt.Errorf("%w: формация %d", ErrInvalidAction, a.Formation)
	}
	if a.Behavior.Kind == behavior.KindPath {
		return fmt.Errorf("%w: поведение path не поддерживается в спелкартах", ErrInvalidAction)
	}
	if len(a.Archetypes) == 0 {
		return fmt.Errorf("%w: не задан ни один архетип", ErrInvalidAction)
	}
	for _, id := range a.Archetypes {
		if catalog != nil && !catalog.Has(id) {
			return fmt.Errorf("%w: архетип %q: %w", ErrInvalidAction, id, entity.ErrUnknownArchetype)
		}
	}
	return nil
}

// Movement смещение эмиттера композиции за Duration секунд
type Movement struct {
	Displacement vec.Vec2
	Duration     float64
}

// Composite именованная группа действий, исполняемая как единое целое
type Composite struct {
	Name                string
	StartDelay          float64
	OrientTowardsTarget bool
	Movement            *Movement
	Actions             []Action
}

// Definition неизменяемое описание спелкарты
type Definition struct {
	Name       string
	Threshold  int
	Actions    []Action
	Composites []Composite
}

// TotalSpawns количество сущностей, которое создаст одна активация
func (d *Definition) TotalSpawns() int {
	n := 0
	for i := range d.Actions {
		n += d.Actions[i].Count
	}
	for i := range d.Composites {
		for j := range d.Composites[i].Actions {
			n += d.Composites[i].Actions[j].Count
		}
	}
	return n
}

// Library набор спелкарт и композиций, загружается один раз при старте
type Library struct {
	spellcards map[string]*Definition
	patterns   map[string]*Composite
	order      []string
}

// NewLibrary создаёт пустую библиотеку
func NewLibrary() *Library {
	return &Library{
		spellcards: make(map[string]*Definition),
		patterns:   make(map[string]*Composite),
	}
}

// Spellcard возвращает спелкарту по имени
func (l *Library) Spellcard(name string) (*Definition, bool) {
	d, ok := l.spellcards[name]
	return d, ok
}

// Pattern возвращает композицию по имени
func (l *Library) Pattern(name string) (*Composite, bool) {
	c, ok := l.patterns[name]
	return c, ok
}

// Names имена спелкарт в порядке объявления
func (l *Library) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// ForThreshold возвращает самую сильную спелкарту с порогом не выше level
func (l *Library) ForThreshold(level int) (*Definition, bool) {
	var best *Definition
	for _, name := range l.order {
		d := l.spellcards[name]
		if d.Threshold <= level && (best == nil || d.Threshold > best.Threshold) {
			best = d
		}
	}
	return best, best != nil
}

func (l *Library) addSpellcard(d *Definition) {
	if _, exists := l.spellcards[d.Name]; !exists {
		l.order = append(l.order, d.Name)
	}
	l.spellcards[d.Name] = d
}
