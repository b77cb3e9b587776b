package models

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorType(t *testing.T) {
	vt := NewVectorType(3)

	assert.Equal(t, VectorTypeName, vt.ExtensionName())
	assert.Equal(t, int32(3), vt.Dim())
	assert.Equal(t, "extension<parity.vector[3]>", vt.String())
	assert.True(t, arrow.TypeEqual(
		arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Float64), vt.StorageType()))

	assert.True(t, vt.ExtensionEquals(NewVectorType(3)))
	assert.False(t, vt.ExtensionEquals(NewVectorType(4)))
}

func TestVectorType_SerializeRoundTrip(t *testing.T) {
	vt := NewVectorType(3)

	got, err := vt.Deserialize(vt.StorageType(), vt.Serialize())
	require.NoError(t, err)
	assert.True(t, vt.ExtensionEquals(got))
}

func TestVectorType_DeserializeRejectsBadStorage(t *testing.T) {
	vt := NewVectorType(3)

	_, err := vt.Deserialize(arrow.PrimitiveTypes.Float64, "3")
	assert.Error(t, err)

	_, err = vt.Deserialize(arrow.FixedSizeListOf(3, arrow.PrimitiveTypes.Int32), "3")
	assert.Error(t, err)

	_, err = vt.Deserialize(arrow.FixedSizeListOf(4, arrow.PrimitiveTypes.Float64), "3")
	assert.Error(t, err, "metadata dimension must match storage length")
}

func TestVectorArray_Value(t *testing.T) {
	vt := NewVectorType(2)
	alloc := memory.NewGoAllocator()

	fb := array.NewFixedSizeListBuilder(alloc, 2, arrow.PrimitiveTypes.Float64)
	defer fb.Release()
	vb := fb.ValueBuilder().(*array.Float64Builder)

	fb.Append(true)
	vb.AppendValues([]float64{1.5, -2.5}, nil)
	fb.AppendNull()

	storage := fb.NewArray()
	defer storage.Release()

	arr := array.NewExtensionArrayWithStorage(vt, storage)
	defer arr.Release()

	vec, ok := arr.(*VectorArray)
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, -2.5}, vec.Value(0))
	assert.Nil(t, vec.Value(1))

	// CellValue unwraps extension arrays to their storage values.
	v, err := CellValue(arr, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2.5}, v)
}
