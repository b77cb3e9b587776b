package models

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// VectorTypeName is the extension name carried in field metadata.
const VectorTypeName = "parity.vector"

// VectorType is a fixed-dimension vector of float64. It has no accelerated
// representation of its own: on write it decomposes into its storage type,
// fixed_size_list<float64>, which is what a schema-inferring reader sees.
type VectorType struct {
	arrow.ExtensionBase
	dim int32
}

// NewVectorType creates a vector type of the given dimension.
func NewVectorType(dim int32) *VectorType {
	return &VectorType{
		ExtensionBase: arrow.ExtensionBase{
			Storage: arrow.FixedSizeListOf(dim, arrow.PrimitiveTypes.Float64),
		},
		dim: dim,
	}
}

// Dim returns the vector dimension.
func (t *VectorType) Dim() int32 { return t.dim }

// ArrayType returns the reflect type of the backing array.
func (t *VectorType) ArrayType() reflect.Type { return reflect.TypeOf(VectorArray{}) }

// ExtensionName returns the registered extension name.
func (t *VectorType) ExtensionName() string { return VectorTypeName }

func (t *VectorType) String() string {
	return fmt.Sprintf("extension<%s[%d]>", VectorTypeName, t.dim)
}

// ExtensionEquals reports whether other is a vector of the same dimension.
func (t *VectorType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*VectorType)
	return ok && o.dim == t.dim
}

// Serialize encodes the dimension as the extension metadata payload.
func (t *VectorType) Serialize() string { return strconv.Itoa(int(t.dim)) }

// Deserialize reconstructs the type from storage type and metadata.
func (t *VectorType) Deserialize(storageType arrow.DataType, data string) (arrow.ExtensionType, error) {
	fsl, ok := storageType.(*arrow.FixedSizeListType)
	if !ok || !arrow.TypeEqual(fsl.Elem(), arrow.PrimitiveTypes.Float64) {
		return nil, fmt.Errorf("%s: invalid storage type %s", VectorTypeName, storageType)
	}
	if data != "" {
		dim, err := strconv.Atoi(data)
		if err != nil || int32(dim) != fsl.Len() {
			return nil, fmt.Errorf("%s: metadata %q does not match storage length %d", VectorTypeName, data, fsl.Len())
		}
	}
	return NewVectorType(fsl.Len()), nil
}

// VectorArray is the array backing VectorType.
type VectorArray struct {
	array.ExtensionArrayBase
}

// Value returns the vector at row i.
func (a *VectorArray) Value(i int) []float64 {
	storage := a.Storage().(*array.FixedSizeList)
	v, err := CellValue(storage, i)
	if err != nil || v == nil {
		return nil
	}
	return v.([]float64)
}
