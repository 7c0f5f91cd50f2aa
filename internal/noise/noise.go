package noise

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ojrac/opensimplex-go"
)

// Kind — закрытое перечисление алгоритмов шума
type Kind int

const (
	// KindOpenSimplex градиентный шум OpenSimplex, значения примерно в [-1, 1]
	KindOpenSimplex Kind = iota
)

// ErrUnknownKind возвращается для алгоритма вне перечисления
var ErrUnknownKind = errors.New("noise: неизвестный тип шума")

// String возвращает имя алгоритма, совпадающее с ключом в конфигурации
func (k Kind) String() string {
	switch k {
	case KindOpenSimplex:
		return "opensimplex"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind разбирает имя алгоритма. Пустая строка — OpenSimplex.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "opensimplex", "open_simplex", "simplex":
		return KindOpenSimplex, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Primitive — детерминированный 2D шум. Результат зависит только от
// сида, с которым он создан, и координат.
type Primitive interface {
	Eval2(x, y float64) float64
}

func newPrimitive(kind Kind, seed uint32) (Primitive, error) {
	switch kind {
	case KindOpenSimplex:
		return opensimplex.New(int64(seed)), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// Params — преобразования поля: amplitude * noise(x*FreqX+OffsetX, y*FreqY+OffsetY) + OutputOffset
type Params struct {
	Amplitude    float64
	FreqX        float64
	FreqY        float64
	OffsetX      float64
	OffsetY      float64
	OutputOffset float64
}

// Field — скалярное поле высот на основе одного примитива шума.
// Значения параметров не проверяются: нулевая частота даёт константу,
// отрицательная амплитуда инвертирует рельеф.
type Field struct {
	kind   Kind
	seed   uint32
	params Params
	prim   Primitive
}

// New создаёт поле заданного алгоритма
func New(kind Kind, seed uint32, amplitude, freqX, freqY, offsetX, offsetY, outputOffset float64) (*Field, error) {
	return NewWithParams(kind, seed, Params{
		Amplitude:    amplitude,
		FreqX:        freqX,
		FreqY:        freqY,
		OffsetX:      offsetX,
		OffsetY:      offsetY,
		OutputOffset: outputOffset,
	})
}

// NewWithParams создаёт поле из структуры параметров
func NewWithParams(kind Kind, seed uint32, p Params) (*Field, error) {
	prim, err := newPrimitive(kind, seed)
	if err != nil {
		return nil, err
	}
	return &Field{kind: kind, seed: seed, params: p, prim: prim}, nil
}

// ClockSeed — невоспроизводимый сид из текущего времени (миллисекунды, усечённые до u32)
func ClockSeed() uint32 {
	return uint32(time.Now().UnixMilli())
}

// NewDefault создаёт OpenSimplex поле с сидом от часов, единичной
// амплитудой и нулевыми частотами и смещениями.
func NewDefault() *Field {
	f, _ := New(KindOpenSimplex, ClockSeed(), 1, 0, 0, 0, 0, 0)
	return f
}

// FromParams — сокращённая запись
// [amplitude, freqX, freqY, offsetX, offsetY, outputOffset] с сидом от часов
func FromParams(p [6]float64) *Field {
	f, _ := New(KindOpenSimplex, ClockSeed(), p[0], p[1], p[2], p[3], p[4], p[5])
	return f
}

// Sample возвращает высоту поля в точке (x, y)
func (f *Field) Sample(x, y float64) float64 {
	p := &f.params
	return p.Amplitude*f.prim.Eval2(x*p.FreqX+p.OffsetX, y*p.FreqY+p.OffsetY) + p.OutputOffset
}

func (f *Field) Kind() Kind     { return f.kind }
func (f *Field) Seed() uint32   { return f.seed }
func (f *Field) Params() Params { return f.params }

func (f *Field) String() string {
	p := f.params
	return fmt.Sprintf("%s(seed=%d amp=%g freq=%g,%g off=%g,%g out=%g)",
		f.kind, f.seed, p.Amplitude, p.FreqX, p.FreqY, p.OffsetX, p.OffsetY, p.OutputOffset)
}
