package terrain

import (
	"errors"
	"fmt"

	"github.com/annel0/terrain-gen/internal/noise"
)

var (
	// ErrNilField базовое поле выражения не задано
	ErrNilField = errors.New("terrain: базовое поле не задано")
	// ErrNilExpression вложенное выражение AddField/MulField не задано
	ErrNilExpression = errors.New("terrain: вложенное выражение не задано")
	// ErrNilOperation в списке операций встретился nil
	ErrNilOperation = errors.New("terrain: операция не задана")
)

// Operation — одна операция над накопителем выражения.
// Набор вариантов закрыт: Identity, AddScalar, AddField, MulScalar, MulField.
type Operation interface {
	apply(total, x, y float64) float64
	children() []*Expression
	String() string
}

// Identity ничего не делает
type Identity struct{}

// AddScalar прибавляет константу
type AddScalar struct{ Value float64 }

// AddField прибавляет значение вложенного выражения в той же точке
type AddField struct{ Expr *Expression }

// MulScalar умножает на константу
type MulScalar struct{ Value float64 }

// MulField умножает на значение вложенного выражения в той же точке
type MulField struct{ Expr *Expression }

func (Identity) apply(total, _, _ float64) float64    { return total }
func (o AddScalar) apply(total, _, _ float64) float64 { return total + o.Value }
func (o AddField) apply(total, x, y float64) float64  { return total + o.Expr.Sample(x, y) }
func (o MulScalar) apply(total, _, _ float64) float64 { return total * o.Value }
func (o MulField) apply(total, x, y float64) float64  { return total * o.Expr.Sample(x, y) }

func (Identity) children() []*Expression   { return nil }
func (AddScalar) children() []*Expression  { return nil }
func (o AddField) children() []*Expression { return []*Expression{o.Expr} }
func (MulScalar) children() []*Expression  { return nil }
func (o MulField) children() []*Expression { return []*Expression{o.Expr} }

func (Identity) String() string    { return "identity" }
func (o AddScalar) String() string { return fmt.Sprintf("add_scalar(%g)", o.Value) }
func (AddField) String() string    { return "add_field" }
func (o MulScalar) String() string { return fmt.Sprintf("mul_scalar(%g)", o.Value) }
func (MulField) String() string    { return "mul_field" }

// Expression — дерево композиции шумов: базовое поле и упорядоченный
// список операций. Выражение неизменяемо после создания, поэтому
// вложенные выражения не могут образовать цикл.
type Expression struct {
	base *noise.Field
	ops  []Operation
}

// NewExpression создаёт выражение. Порядок операций сохраняется.
func NewExpression(base *noise.Field, ops ...Operation) *Expression {
	owned := make([]Operation, len(ops))
	copy(owned, ops)
	return &Expression{base: base, ops: owned}
}

// Sample вычисляет выражение в точке (x, y): начальное значение берётся
// из базового поля, затем операции применяются строго по порядку.
func (e *Expression) Sample(x, y float64) float64 {
	total := e.base.Sample(x, y)
	for _, op := range e.ops {
		total = op.apply(total, x, y)
	}
	return total
}

// Base возвращает базовое поле
func (e *Expression) Base() *noise.Field { return e.base }

// Operations возвращает копию списка операций
func (e *Expression) Operations() []Operation {
	out := make([]Operation, len(e.ops))
	copy(out, e.ops)
	return out
}

// Validate проверяет, что у всех узлов дерева есть базовое поле
// и все вложенные выражения заданы.
func (e *Expression) Validate() error {
	return e.validate("root")
}

func (e *Expression) validate(path string) error {
	if e == nil {
		return fmt.Errorf("%s: %w", path, ErrNilExpression)
	}
	if e.base == nil {
		return fmt.Errorf("%s: %w", path, ErrNilField)
	}
	for i, op := range e.ops {
		if op == nil {
			return fmt.Errorf("%s.ops[%d]: %w", path, i, ErrNilOperation)
		}
		for _, child := range op.children() {
			if err := child.validate(fmt.Sprintf("%s.ops[%d].%s", path, i, op)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Depth — глубина дерева (выражение без вложенных полей имеет глубину 1)
func (e *Expression) Depth() int {
	depth := 1
	for _, op := range e.ops {
		for _, child := range op.children() {
			if d := child.Depth() + 1; d > depth {
				depth = d
			}
		}
	}
	return depth
}

// FieldCount — число полей шума во всём дереве
func (e *Expression) FieldCount() int {
	count := 1
	for _, op := range e.ops {
		for _, child := range op.children() {
			count += child.FieldCount()
		}
	}
	return count
}
