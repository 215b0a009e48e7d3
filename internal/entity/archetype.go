package entity

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownArchetype возвращается при ссылке на незарегистрированный архетип
var ErrUnknownArchetype = errors.New("unknown archetype")

// Archetype шаблон значений сущности и ключ пула
type Archetype struct {
	ID           string  `yaml:"id"`
	Kind         Kind    `yaml:"kind"`
	MaxHealth    int     `yaml:"max_health"`
	Lifetime     float64 `yaml:"lifetime"` // Секунды, 0 = без ограничения
	Radius       float64 `yaml:"radius"`
	GreatVariant string  `yaml:"great_variant"`
	Prewarm      int     `yaml:"prewarm"`
}

// Damageable true если архетип имеет здоровье
func (a *Archetype) Damageable() bool { return a.MaxHealth > 0 }

// Catalog неизменяемый набор архетипов, загружается один раз при старте
type Catalog struct {
	byID  map[string]*Archetype
	order []string
}

// NewCatalog создаёт каталог, отклоняя дубликаты и пустые ID
func NewCatalog(archetypes ...Archetype) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Archetype, len(archetypes))}
	for i := range archetypes {
		a := archetypes[i]
		if a.ID == "" {
			return nil, fmt.Errorf("архетип #%d без id", i)
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("дубликат архетипа %q", a.ID)
		}
		if a.MaxHealth < 0 || a.Lifetime < 0 {
			return nil, fmt.Errorf("архетип %q: отрицательные max_health/lifetime", a.ID)
		}
		c.byID[a.ID] = &a
		c.order = append(c.order, a.ID)
	}
	for _, id := range c.order {
		if v := c.byID[id].GreatVariant; v != "" {
			if _, ok := c.byID[v]; !ok {
				return nil, fmt.Errorf("архетип %q: great_variant %q: %w", id, v, ErrUnknownArchetype)
			}
		}
	}
	return c, nil
}

// Get возвращает архетип по ID
func (c *Catalog) Get(id string) (*Archetype, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Has true если архетип зарегистрирован
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// IDs возвращает ID в порядке объявления
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

type catalogFile struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// LoadCatalog читает YAML файл архетипов
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение архетипов %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog разбирает YAML описание архетипов
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("разбор архетипов: %w", err)
	}
	return NewCatalog(f.Archetypes...)
}
