package entity

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Side сторона (арена игрока), которой принадлежит сущность
type Side uint8

const (
	SideNone Side = iota
	SideA
	SideB
)

// Opposite возвращает сторону соперника. Для SideNone возвращает SideNone.
func (s Side) Opposite() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	default:
		return SideNone
	}
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return "none"
	}
}

// ParseSide разбирает сторону из строки ("a", "B", "none")
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "side_a", "sidea":
		return SideA, nil
	case "b", "side_b", "sideb":
		return SideB, nil
	case "", "none":
		return SideNone, nil
	default:
		return SideNone, fmt.Errorf("неизвестная сторона %q", s)
	}
}

// UnmarshalYAML позволяет писать сторону строкой
func (s *Side) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseSide(value.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText сторона в JSON пишется строкой
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText обратная операция к MarshalText
func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Kind категория архетипа
type Kind uint8

const (
	KindEnemy Kind = iota
	KindProjectile
	KindEffect
)

func (k Kind) String() string {
	switch k {
	case KindEnemy:
		return "enemy"
	case KindProjectile:
		return "projectile"
	case KindEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// UnmarshalYAML разбирает категорию из строки
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(value.Value)) {
	case "enemy":
		*k = KindEnemy
	case "projectile", "bullet":
		*k = KindProjectile
	case "effect":
		*k = KindEffect
	default:
		return fmt.Errorf("неизвестная категория архетипа %q", value.Value)
	}
	return nil
}

// Handle стабильная ссылка на слот пула с номером поколения.
// После возврата сущности в пул поколение слота увеличивается,
// и старые Handle перестают резолвиться.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero true для нулевого (невалидного) Handle
func (h Handle) IsZero() bool { return h.Gen == 0 }

// Uint64 упаковывает Handle в одно число (поколение в старших битах)
func (h Handle) Uint64() uint64 { return uint64(h.Gen)<<32 | uint64(h.Index) }

// HandleFromUint64 обратная операция к Uint64
func HandleFromUint64(v uint64) Handle {
	return Handle{Index: uint32(v), Gen: uint32(v >> 32)}
}

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h.Index), 10) + ":" + strconv.FormatUint(uint64(h.Gen), 10)
}

// LineID идентификатор линии (волны/формации) для цепных убийств
type LineID uint64

// LineLink положение сущности в линии. Line == 0 означает отсутствие связи.
type LineLink struct {
	Line  LineID
	Index int
}

// Linked true если сущность состоит в линии
func (l LineLink) Linked() bool { return l.Line != 0 }
