package mesh

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrNotDuplicated плоские нормали считаются только после DuplicateVertices
var ErrNotDuplicated = errors.New("mesh: вершины не продублированы")

// Mesh — буферы треугольного меша (список треугольников, по 3 индекса)
type Mesh struct {
	Positions []mgl32.Vec3
	Indices   []uint32
	Normals   []mgl32.Vec3

	duplicated bool
}

// VertexCount возвращает число вершин в буфере позиций
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// TriangleCount возвращает число треугольников
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Faceted сообщает, что каждый треугольник владеет своими вершинами
func (m *Mesh) Faceted() bool { return m.duplicated }

// DuplicateVertices разворачивает индексный буфер: каждый угол каждого
// треугольника получает собственную копию вершины, индексы становятся
// 0..n-1. Нормали сбрасываются.
func (m *Mesh) DuplicateVertices() {
	if m.duplicated {
		return
	}

	positions := make([]mgl32.Vec3, len(m.Indices))
	for i, idx := range m.Indices {
		positions[i] = m.Positions[idx]
	}
	for i := range m.Indices {
		m.Indices[i] = uint32(i)
	}

	m.Positions = positions
	m.Normals = nil
	m.duplicated = true
}

// ComputeFlatNormals назначает всем трём вершинам треугольника нормаль его
// грани: normalize((b-a) x (c-a)). Вырожденный треугольник получает нулевую нормаль.
func (m *Mesh) ComputeFlatNormals() error {
	if !m.duplicated {
		return ErrNotDuplicated
	}

	normals := make([]mgl32.Vec3, len(m.Positions))
	for t := 0; t+2 < len(m.Indices); t += 3 {
		ia, ib, ic := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		n := FaceNormal(m.Positions[ia], m.Positions[ib], m.Positions[ic])
		normals[ia] = n
		normals[ib] = n
		normals[ic] = n
	}

	m.Normals = normals
	return nil
}

// FaceNormal — единичная нормаль треугольника (a, b, c)
func FaceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return n.Mul(1 / l)
}

// Bounds возвращает ограничивающий параллелепипед позиций
func (m *Mesh) Bounds() (min, max mgl32.Vec3) {
	if len(m.Positions) == 0 {
		return min, max
	}
	min, max = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for k := 0; k < 3; k++ {
			if p[k] < min[k] {
				min[k] = p[k]
			}
			if p[k] > max[k] {
				max[k] = p[k]
			}
		}
	}
	return min, max
}
