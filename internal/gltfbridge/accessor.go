package gltfbridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

func readAccessorVec3(doc *gltf.Document, accessorIdx uint32, baseDir string) ([]mgl32.Vec3, error) {
	if int(accessorIdx) >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.BufferView == nil {
		// Sparse-only accessors decode to all zeroes; exporters we target
		// always provide a dense view for morph data.
		return make([]mgl32.Vec3, int(accessor.Count)), nil
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]

	data, err := getBufferData(buffer, baseDir)
	if err != nil {
		return nil, err
	}

	offset := int(bufferView.ByteOffset) + int(accessor.ByteOffset)
	count := int(accessor.Count)

	stride := int(bufferView.ByteStride)
	if stride == 0 {
		stride = 12
	}

	if count > 0 && offset+(count-1)*stride+12 > len(data) {
		return nil, fmt.Errorf("accessor %d overruns buffer (%d bytes)", accessorIdx, len(data))
	}

	result := make([]mgl32.Vec3, count)
	for i := 0; i < count; i++ {
		idx := offset + i*stride
		floats := (*[3]float32)(unsafe.Pointer(&data[idx]))
		result[i] = mgl32.Vec3{floats[0], floats[1], floats[2]}
	}

	return result, nil
}

func getBufferData(buffer *gltf.Buffer, baseDir string) ([]byte, error) {
	// GLB and decoder-resolved buffers arrive with Data populated
	if len(buffer.Data) > 0 {
		return buffer.Data, nil
	}

	if buffer.URI == "" {
		return nil, fmt.Errorf("buffer has no URI and no embedded data")
	}
	if strings.HasPrefix(buffer.URI, "data:") {
		return nil, fmt.Errorf("data URI not supported")
	}

	path := buffer.URI
	if baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read buffer file: %w", err)
	}

	return data, nil
}
