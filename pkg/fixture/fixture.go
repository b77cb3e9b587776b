// Package fixture materializes scenario datasets to encoded files and loads
// fixed test resources. Fallback can occur independently on the write and the
// read side of a round trip, so both directions go through this adapter.
package fixture

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/rs/zerolog"

	"github.com/TFMV/parity/pkg/errors"
	"github.com/TFMV/parity/pkg/models"
)

// Adapter encodes and decodes fixture files.
type Adapter struct {
	root   string
	mem    memory.Allocator
	logger zerolog.Logger
}

// NewAdapter creates an adapter whose fixed resources live under root.
func NewAdapter(root string, logger zerolog.Logger) *Adapter {
	return &Adapter{
		root:   root,
		mem:    memory.NewGoAllocator(),
		logger: logger.With().Str("component", "fixture").Logger(),
	}
}

// writerVersion maps the configuration's source-format-version selector to a
// concrete Parquet format version.
func writerVersion(version string) (parquet.Version, error) {
	switch version {
	case "", "v2":
		return parquet.V2_LATEST, nil
	case "v1":
		return parquet.V1_0, nil
	default:
		return 0, errors.Newf(errors.CodeFixtureFailed, "unknown format version %q", version)
	}
}

// EncodeParquet writes a record to a Parquet file. Extension-typed columns
// decompose into their storage type on write, and fixed-size list containers
// flatten to variable-length lists: the file carries the primitive container
// encoding, not the logical annotation.
func (a *Adapter) EncodeParquet(path string, rec arrow.Record, version string) error {
	ver, err := writerVersion(version)
	if err != nil {
		return err
	}

	enc, cleanup, err := a.encodableRecord(rec)
	if err != nil {
		return err
	}
	defer cleanup()

	tbl := array.NewTableFromRecords(enc.Schema(), []arrow.Record{enc})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.CodeFixtureFailed, "create %s", path)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithVersion(ver))
	if err := pqarrow.WriteTable(tbl, f, tbl.NumRows(), props, pqarrow.DefaultWriterProps()); err != nil {
		return errors.Wrapf(err, errors.CodeFixtureFailed, "write parquet %s", path)
	}

	a.logger.Debug().Str("path", path).Int64("rows", tbl.NumRows()).Msg("fixture encoded")
	return nil
}

// encodableRecord rewrites columns the Parquet writer has no encoding for.
// Extension arrays hand over their storage, and fixed-size lists rebuild as
// variable-length lists. The returned cleanup releases whatever was built.
func (a *Adapter) encodableRecord(rec arrow.Record) (arrow.Record, func(), error) {
	n := int(rec.NumCols())
	fields := make([]arrow.Field, n)
	cols := make([]arrow.Array, n)
	var built []arrow.Array
	releaseBuilt := func() {
		for _, arr := range built {
			arr.Release()
		}
	}

	changed := false
	for i := 0; i < n; i++ {
		field := rec.Schema().Field(i)
		col := rec.Column(i)

		if ext, ok := col.(array.ExtensionArray); ok {
			col = ext.Storage()
			field.Type = col.DataType()
			changed = true
		}
		if fsl, ok := col.(*array.FixedSizeList); ok {
			flat, err := a.flattenFixedSizeList(fsl)
			if err != nil {
				releaseBuilt()
				return nil, nil, err
			}
			built = append(built, flat)
			col = flat
			field.Type = flat.DataType()
			changed = true
		}

		fields[i] = field
		cols[i] = col
	}

	if !changed {
		return rec, func() {}, nil
	}
	out := array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows())
	return out, func() {
		out.Release()
		releaseBuilt()
	}, nil
}

// flattenFixedSizeList copies a fixed-size list of float64 into a
// variable-length list. The harness's only fixed-size container is the vector
// storage, so other element types report as unsupported.
func (a *Adapter) flattenFixedSizeList(fsl *array.FixedSizeList) (arrow.Array, error) {
	elems, ok := fsl.ListValues().(*array.Float64)
	if !ok {
		return nil, errors.Newf(errors.CodeUnsupportedType,
			"cannot encode fixed-size list of %s", fsl.DataType().(*arrow.FixedSizeListType).Elem())
	}
	size := int(fsl.DataType().(*arrow.FixedSizeListType).Len())

	b := array.NewListBuilder(a.mem, arrow.PrimitiveTypes.Float64)
	defer b.Release()
	vb := b.ValueBuilder().(*array.Float64Builder)

	for i := 0; i < fsl.Len(); i++ {
		if fsl.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(true)
		start := (fsl.Offset() + i) * size
		for j := start; j < start+size; j++ {
			if elems.IsNull(j) {
				vb.AppendNull()
			} else {
				vb.Append(elems.Value(j))
			}
		}
	}
	return b.NewArray(), nil
}

// DecodeParquet reads a Parquet file back into a result set. With a nil
// requested schema the file's own (inferred) schema is used. With an explicit
// requested schema, decoding fails unless the request matches the file's
// physical encoding; an extension-typed request against a decomposed file is
// exactly the case that forces a scan onto the reference path.
func (a *Adapter) DecodeParquet(ctx context.Context, path string, requested *arrow.Schema) (*models.ResultSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFixtureFailed, "open %s", path)
	}
	defer f.Close()

	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(a.mem), pqarrow.ArrowReadProperties{}, a.mem)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFixtureFailed, "read parquet %s", path)
	}
	defer tbl.Release()

	if requested != nil && !models.SchemasEquivalent(requested, tbl.Schema()) {
		return nil, errors.Newf(errors.CodeFixtureFailed,
			"requested schema does not match the physical encoding of %s", path).
			WithDetail("requested", requested.String()).
			WithDetail("encoded", tbl.Schema().String())
	}

	reader := array.NewTableReader(tbl, tbl.NumRows())
	defer reader.Release()

	var records []arrow.Record
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	rs, err := models.FromRecords(tbl.Schema(), records, false)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFixtureFailed, "materialize %s", path)
	}

	a.logger.Debug().Str("path", path).Int("rows", rs.NumRows()).Msg("fixture decoded")
	return rs, nil
}

// LoadFixedResource reads a fixed-content reference file by name from the
// adapter's resource root.
func (a *Adapter) LoadFixedResource(name string) ([]byte, error) {
	path := filepath.Join(a.root, filepath.Clean(name))
	rel, err := filepath.Rel(a.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, errors.Newf(errors.CodeFixtureFailed, "resource %q escapes the fixture root", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFixtureFailed, "load resource %s", name)
	}
	return data, nil
}

// ResourcePath returns the absolute path of a fixed resource.
func (a *Adapter) ResourcePath(name string) string {
	return filepath.Join(a.root, filepath.Clean(name))
}
