package config

import (
	"fmt"

	"github.com/annel0/terrain-gen/internal/noise"
	"github.com/annel0/terrain-gen/internal/terrain"
)

// Имена операций в YAML
const (
	OpIdentity  = "identity"
	OpAddScalar = "add_scalar"
	OpAddField  = "add_field"
	OpMulScalar = "mul_scalar"
	OpMulField  = "mul_field"
)

// ColorConfig — цвет материала рельефа (RGBA, 0..1)
type ColorConfig struct {
	R float32 `yaml:"r" json:"r"`
	G float32 `yaml:"g" json:"g"`
	B float32 `yaml:"b" json:"b"`
	A float32 `yaml:"a" json:"a"`
}

// TerrainConfig описывает одну генерацию рельефа
type TerrainConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Seed — общий сид полей; nil — сид от часов на каждую генерацию
	Seed       *uint32           `yaml:"seed"`
	Color      ColorConfig       `yaml:"color"`
	Expression *ExpressionConfig `yaml:"expression"`
}

// FieldConfig — параметры одного поля шума
type FieldConfig struct {
	Kind string `yaml:"kind"`
	// Seed переопределяет сид рельефа для этого поля
	Seed         *uint32 `yaml:"seed"`
	Amplitude    float64 `yaml:"amplitude"`
	FreqX        float64 `yaml:"freq_x"`
	FreqY        float64 `yaml:"freq_y"`
	OffsetX      float64 `yaml:"offset_x"`
	OffsetY      float64 `yaml:"offset_y"`
	OutputOffset float64 `yaml:"output_offset"`
}

// ExpressionConfig — базовое поле и упорядоченный список операций
type ExpressionConfig struct {
	Field      FieldConfig       `yaml:"field"`
	Operations []OperationConfig `yaml:"operations"`
}

// OperationConfig — одна операция; Value для *_scalar, Expression для *_field
type OperationConfig struct {
	Op         string            `yaml:"op"`
	Value      float64           `yaml:"value"`
	Expression *ExpressionConfig `yaml:"expression"`
}

// DefaultTerrain — 1024x1024, зелёный, три слоя шума
func DefaultTerrain() TerrainConfig {
	return TerrainConfig{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Color:      ColorConfig{R: 0, G: 1, B: 0, A: 1},
		Expression: DefaultExpression(),
	}
}

// DefaultExpression — крупный рельеф плюс два слоя деталей:
// каждый следующий в 10 раз ниже и в 5 и 50 раз чаще базового.
func DefaultExpression() *ExpressionConfig {
	layer := func(amp, freq float64) FieldConfig {
		return FieldConfig{Amplitude: amp, FreqX: freq, FreqY: freq}
	}
	return &ExpressionConfig{
		Field: layer(DefaultAmplitude, DefaultFrequency),
		Operations: []OperationConfig{
			{Op: OpAddField, Expression: &ExpressionConfig{Field: layer(DefaultAmplitude/10, DefaultFrequency*5)}},
			{Op: OpAddField, Expression: &ExpressionConfig{Field: layer(DefaultAmplitude/100, DefaultFrequency*50)}},
		},
	}
}

// ResolveSeed возвращает заданный сид или сид от часов
func (t TerrainConfig) ResolveSeed() uint32 {
	if t.Seed != nil {
		return *t.Seed
	}
	return noise.ClockSeed()
}

// WithSeed возвращает копию конфигурации с фиксированным сидом
func (t TerrainConfig) WithSeed(seed uint32) TerrainConfig {
	t.Seed = &seed
	return t
}

// Validate проверяет дерево выражения. Размеры сетки проверяет построитель меша.
func (t TerrainConfig) Validate() error {
	if t.Expression == nil {
		return fmt.Errorf("%w: terrain.expression не задано", ErrInvalidConfig)
	}
	return t.Expression.validate("terrain.expression")
}

func (e *ExpressionConfig) validate(path string) error {
	if _, err := noise.ParseKind(e.Field.Kind); err != nil {
		return fmt.Errorf("%w: %s.field: %v", ErrInvalidConfig, path, err)
	}
	for i, op := range e.Operations {
		opPath := fmt.Sprintf("%s.operations[%d]", path, i)
		switch op.Op {
		case OpIdentity, OpAddScalar, OpMulScalar:
			if op.Expression != nil {
				return fmt.Errorf("%w: %s: %s не принимает expression", ErrInvalidConfig, opPath, op.Op)
			}
		case OpAddField, OpMulField:
			if op.Expression == nil {
				return fmt.Errorf("%w: %s: %s требует expression", ErrInvalidConfig, opPath, op.Op)
			}
			if err := op.Expression.validate(opPath + ".expression"); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s: неизвестная операция %q", ErrInvalidConfig, opPath, op.Op)
		}
	}
	return nil
}

// BuildExpression строит новое дерево выражения. Поля без собственного
// сида получают seed.
func (t TerrainConfig) BuildExpression(seed uint32) (*terrain.Expression, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t.Expression.build(seed)
}

func (e *ExpressionConfig) build(seed uint32) (*terrain.Expression, error) {
	base, err := e.Field.build(seed)
	if err != nil {
		return nil, err
	}

	ops := make([]terrain.Operation, 0, len(e.Operations))
	for _, oc := range e.Operations {
		switch oc.Op {
		case OpIdentity:
			ops = append(ops, terrain.Identity{})
		case OpAddScalar:
			ops = append(ops, terrain.AddScalar{Value: oc.Value})
		case OpMulScalar:
			ops = append(ops, terrain.MulScalar{Value: oc.Value})
		case OpAddField, OpMulField:
			child, err := oc.Expression.build(seed)
			if err != nil {
				return nil, err
			}
			if oc.Op == OpAddField {
				ops = append(ops, terrain.AddField{Expr: child})
			} else {
				ops = append(ops, terrain.MulField{Expr: child})
			}
		}
	}
	return terrain.NewExpression(base, ops...), nil
}

func (f FieldConfig) build(seed uint32) (*noise.Field, error) {
	kind, err := noise.ParseKind(f.Kind)
	if err != nil {
		return nil, err
	}
	if f.Seed != nil {
		seed = *f.Seed
	}
	return noise.NewWithParams(kind, seed, noise.Params{
		Amplitude:    f.Amplitude,
		FreqX:        f.FreqX,
		FreqY:        f.FreqY,
		OffsetX:      f.OffsetX,
		OffsetY:      f.OffsetY,
		OutputOffset: f.OutputOffset,
	})
}
