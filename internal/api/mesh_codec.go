package api

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/annel0/terrain-gen/internal/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// Бинарный формат буферов меша (little-endian):
//
//	magic "TGM1"
//	u32 vertexCount, u32 indexCount
//	positions [vertexCount][3]f32
//	normals   [vertexCount][3]f32
//	indices   [indexCount]u32
//	color     [4]f32 RGBA
var meshMagic = [4]byte{'T', 'G', 'M', '1'}

// maxDecodeCount ограничивает размер буферов при чтении
const maxDecodeCount = 1 << 30

// ErrBadMeshData поток не является буферами меша
var ErrBadMeshData = errors.New("api: некорректные данные меша")

// MeshBuffers — буферы меша для внешнего рендерера
type MeshBuffers struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
	Color     scene.Color
}

// EncodeTerrain пишет буферы рельефа в w поэлементно, без промежуточной
// копии буферов
func EncodeTerrain(w io.Writer, t *scene.Terrain) error {
	m := t.Mesh
	if len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("%w: %d нормалей на %d вершин", ErrBadMeshData, len(m.Normals), len(m.Positions))
	}
	if uint64(len(m.Positions)) > math.MaxUint32 || uint64(len(m.Indices)) > math.MaxUint32 {
		return fmt.Errorf("%w: буферы не помещаются в u32 счётчики", ErrBadMeshData)
	}

	bw := bufio.NewWriterSize(w, 64<<10)
	var buf [12]byte

	copy(buf[:4], meshMagic[:])
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(m.Positions)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(m.Indices)))
	if _, err := bw.Write(buf[:12]); err != nil {
		return err
	}

	if err := writeVec3s(bw, m.Positions); err != nil {
		return err
	}
	if err := writeVec3s(bw, m.Normals); err != nil {
		return err
	}
	for _, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[:4], idx)
		if _, err := bw.Write(buf[:4]); err != nil {
			return err
		}
	}

	var color [16]byte
	for i, c := range [4]float32{t.Color.R, t.Color.G, t.Color.B, t.Color.A} {
		binary.LittleEndian.PutUint32(color[4*i:], math.Float32bits(c))
	}
	if _, err := bw.Write(color[:]); err != nil {
		return err
	}
	return bw.Flush()
}

func writeVec3s(bw *bufio.Writer, vs []mgl32.Vec3) error {
	var buf [12]byte
	for _, v := range vs {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(v[2]))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMeshBuffers читает буферы, записанные EncodeTerrain
func DecodeMeshBuffers(r io.Reader) (*MeshBuffers, error) {
	br := bufio.NewReaderSize(r, 64<<10)

	var header [12]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: заголовок: %v", ErrBadMeshData, err)
	}
	if [4]byte(header[:4]) != meshMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMeshData, header[:4])
	}
	vertices := binary.LittleEndian.Uint32(header[4:])
	indices := binary.LittleEndian.Uint32(header[8:])
	if vertices > maxDecodeCount || indices > maxDecodeCount {
		return nil, fmt.Errorf("%w: слишком большие буферы", ErrBadMeshData)
	}

	out := &MeshBuffers{
		Positions: make([]mgl32.Vec3, vertices),
		Normals:   make([]mgl32.Vec3, vertices),
		Indices:   make([]uint32, indices),
	}
	if err := readVec3s(br, out.Positions); err != nil {
		return nil, err
	}
	if err := readVec3s(br, out.Normals); err != nil {
		return nil, err
	}

	var buf [16]byte
	for i := range out.Indices {
		if _, err := io.ReadFull(br, buf[:4]); err != nil {
			return nil, fmt.Errorf("%w: индексы: %v", ErrBadMeshData, err)
		}
		out.Indices[i] = binary.LittleEndian.Uint32(buf[:4])
	}

	if _, err := io.ReadFull(br, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: цвет: %v", ErrBadMeshData, err)
	}
	out.Color = scene.Color{
		R: readFloat32(buf[0:]),
		G: readFloat32(buf[4:]),
		B: readFloat32(buf[8:]),
		A: readFloat32(buf[12:]),
	}
	return out, nil
}

func readVec3s(br *bufio.Reader, vs []mgl32.Vec3) error {
	var buf [12]byte
	for i := range vs {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return fmt.Errorf("%w: вершины: %v", ErrBadMeshData, err)
		}
		vs[i] = mgl32.Vec3{readFloat32(buf[0:]), readFloat32(buf[4:]), readFloat32(buf[8:])}
	}
	return nil
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
