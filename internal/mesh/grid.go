package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrInvalidDimensions сетка меньше 2x2
	ErrInvalidDimensions = errors.New("mesh: размеры сетки должны быть не меньше 2x2")
	// ErrGridTooLarge число вершин не помещается в u32 индексы
	ErrGridTooLarge = errors.New("mesh: сетка не помещается в u32 индексы")
	// ErrNonFiniteHeight сэмплер вернул NaN или бесконечность
	ErrNonFiniteHeight = errors.New("mesh: нечисловая высота")
	// ErrNilSampler сэмплер не задан
	ErrNilSampler = errors.New("mesh: сэмплер не задан")
)

// maxVertices — индексы вершин должны помещаться в uint32
const maxVertices uint64 = 1 << 32

// maxFacetedVertices — после DuplicateVertices число вершин равно числу
// индексов и тоже должно помещаться в uint32
const maxFacetedVertices uint64 = math.MaxUint32

// DimensionError описывает недопустимые размеры сетки
type DimensionError struct {
	Width  int
	Height int
	Err    error
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%v: width=%d height=%d", e.Err, e.Width, e.Height)
}

func (e *DimensionError) Unwrap() error { return e.Err }

// NonFiniteError описывает вершину, для которой получена нечисловая высота
type NonFiniteError struct {
	Index int
	X     float64
	Z     float64
	Value float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("%v: vertex %d at (%g, %g) = %v", ErrNonFiniteHeight, e.Index, e.X, e.Z, e.Value)
}

func (e *NonFiniteError) Unwrap() error { return ErrNonFiniteHeight }

// HeightSampler возвращает высоту рельефа в точке сетки
type HeightSampler interface {
	Sample(x, y float64) float64
}

// SamplerFunc адаптирует функцию к HeightSampler
type SamplerFunc func(x, y float64) float64

func (f SamplerFunc) Sample(x, y float64) float64 { return f(x, y) }

func checkDimensions(width, height int) error {
	if width < 2 || height < 2 {
		return &DimensionError{Width: width, Height: height, Err: ErrInvalidDimensions}
	}
	if uint64(width) > maxVertices/uint64(height) {
		return &DimensionError{Width: width, Height: height, Err: ErrGridTooLarge}
	}
	if FacetedVertexCount(width, height) > maxFacetedVertices {
		return &DimensionError{Width: width, Height: height, Err: ErrGridTooLarge}
	}
	return nil
}

// CheckGrid проверяет размеры сетки и внешний предел числа вершин width*height.
// limit == 0 означает только собственные ограничения построителя.
func CheckGrid(width, height int, limit uint64) error {
	if err := checkDimensions(width, height); err != nil {
		return err
	}
	if limit > 0 && uint64(width)*uint64(height) > limit {
		return &DimensionError{Width: width, Height: height, Err: ErrGridTooLarge}
	}
	return nil
}

// FacetedVertexCount — число вершин (и индексов) меша после Build: 6 на ячейку
func FacetedVertexCount(width, height int) uint64 {
	if width < 2 || height < 2 {
		return 0
	}
	return 6 * uint64(width-1) * uint64(height-1)
}

// Generate строит индексированную сетку width*height вершин.
//
// Вершина i получает координаты gx = i / width, gz = i % height; высота
// сэмплируется в float64 и сохраняется во float32. Каждая ячейка даёт два
// треугольника (tl, tr, bl) и (tr, br, bl); этот обход определяет знак нормалей.
func Generate(width, height int, s HeightSampler) (*Mesh, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNilSampler
	}

	count := width * height
	positions := make([]mgl32.Vec3, 0, count)
	for i := 0; i < count; i++ {
		gx := float64(i / width)
		gz := float64(i % height)
		h := s.Sample(gx, gz)

		stored := float32(h)
		if math.IsNaN(h) || math.IsInf(h, 0) || math.IsInf(float64(stored), 0) {
			return nil, &NonFiniteError{Index: i, X: gx, Z: gz, Value: h}
		}

		positions = append(positions, mgl32.Vec3{float32(gx), stored, float32(gz)})
	}

	indices := make([]uint32, 0, 6*(width-1)*(height-1))
	for y := 0; y < height-1; y++ {
		for x := 0; x < width-1; x++ {
			tl := uint32(y*width + x)
			tr := uint32(y*width + x + 1)
			bl := uint32((y+1)*width + x)
			br := uint32((y+1)*width + x + 1)

			indices = append(indices, tl, tr, bl)
			indices = append(indices, tr, br, bl)
		}
	}

	return &Mesh{Positions: positions, Indices: indices}, nil
}

// Build строит сетку и сразу превращает её в фасетный меш с плоскими нормалями
func Build(width, height int, s HeightSampler) (*Mesh, error) {
	m, err := Generate(width, height, s)
	if err != nil {
		return nil, err
	}
	m.DuplicateVertices()
	if err := m.ComputeFlatNormals(); err != nil {
		return nil, err
	}
	return m, nil
}
