package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/cyclo/millplan/internal/model"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

// ParquetOptions controls columnar output.
type ParquetOptions struct {
	// Compression is one of snappy, gzip, zstd, lz4 or none.
	Compression string
	// BatchSize is the number of rows per record batch.
	BatchSize int
}

// DefaultParquetOptions returns snappy compression with 1024-row batches.
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{Compression: "snappy", BatchSize: 1024}
}

// Allocation column indexes in AllocationSchema.
const (
	colBatchID = iota
	colOrders
	colLine
	colDate
	colShift
	colAllocatedKg
	colStart
	colEnd
	colHours
	colColorCode
	colColorFamily
	colCount
	colBlend
	colYarnType
)

// AllocationSchema returns the Arrow schema of the production schedule.
func AllocationSchema() *arrow.Schema {
	ts := &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	return arrow.NewSchema([]arrow.Field{
		{Name: "batch_id", Type: arrow.BinaryTypes.String},
		{Name: "orders", Type: arrow.BinaryTypes.String},
		{Name: "line", Type: arrow.BinaryTypes.String},
		{Name: "date", Type: arrow.FixedWidthTypes.Date32},
		{Name: "shift", Type: arrow.BinaryTypes.String},
		{Name: "allocated_kg", Type: arrow.PrimitiveTypes.Float64},
		{Name: "start_dt", Type: ts},
		{Name: "end_dt", Type: ts},
		{Name: "no_of_hours", Type: arrow.PrimitiveTypes.Float64},
		{Name: "color_code", Type: arrow.BinaryTypes.String},
		{Name: "color_family", Type: arrow.BinaryTypes.String},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
		{Name: "blend", Type: arrow.BinaryTypes.String},
		{Name: "yarn_type", Type: arrow.BinaryTypes.String},
	}, nil)
}

// WriteParquet writes allocation records to w and returns the number of
// rows written.
func WriteParquet(w io.Writer, records []model.AllocationRecord, opts ParquetOptions) (int64, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1024
	}
	mem := memory.NewGoAllocator()
	schema := AllocationSchema()

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(mapCompression(opts.Compression)),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	fw, err := pqarrow.NewFileWriter(schema, w, writerProps, arrowProps)
	if err != nil {
		return 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	var written int64
	flush := func(n int) error {
		if n == 0 {
			return nil
		}
		rec := b.NewRecord()
		defer rec.Release()
		if err := fw.Write(rec); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
		written += int64(n)
		return nil
	}

	pending := 0
	for _, r := range records {
		appendRecord(b, r)
		pending++
		if pending >= opts.BatchSize {
			if err := flush(pending); err != nil {
				fw.Close()
				return written, err
			}
			pending = 0
		}
	}
	if err := flush(pending); err != nil {
		fw.Close()
		return written, err
	}

	if err := fw.Close(); err != nil {
		return written, fmt.Errorf("failed to close writer: %w", err)
	}
	return written, nil
}

// WriteParquetFile writes allocation records to path.
func WriteParquetFile(path string, records []model.AllocationRecord, opts ParquetOptions) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, perrors.Wrap(err, perrors.CodeWriteFailed, "create parquet file").WithContext("path", path)
	}
	// The parquet writer closes f on success.
	defer f.Close()

	n, err := WriteParquet(f, records, opts)
	if err != nil {
		return n, perrors.Wrap(err, perrors.CodeWriteFailed, "write parquet file").WithContext("path", path)
	}
	return n, nil
}

func appendRecord(b *array.RecordBuilder, r model.AllocationRecord) {
	b.Field(colBatchID).(*array.StringBuilder).Append(r.BatchID)
	b.Field(colOrders).(*array.StringBuilder).Append(r.Orders)
	b.Field(colLine).(*array.StringBuilder).Append(r.Line)
	b.Field(colDate).(*array.Date32Builder).Append(date32(r.Date))
	b.Field(colShift).(*array.StringBuilder).Append(r.Shift)
	b.Field(colAllocatedKg).(*array.Float64Builder).Append(r.AllocatedKg)
	b.Field(colStart).(*array.TimestampBuilder).Append(arrow.Timestamp(r.Start.UnixMicro()))
	b.Field(colEnd).(*array.TimestampBuilder).Append(arrow.Timestamp(r.End.UnixMicro()))
	b.Field(colHours).(*array.Float64Builder).Append(r.Hours)
	b.Field(colColorCode).(*array.StringBuilder).Append(r.ColorCode)
	b.Field(colColorFamily).(*array.StringBuilder).Append(r.ColorFamily)
	b.Field(colCount).(*array.Int64Builder).Append(int64(r.Count))
	b.Field(colBlend).(*array.StringBuilder).Append(r.Blend)
	b.Field(colYarnType).(*array.StringBuilder).Append(r.YarnType)
}

func date32(t time.Time) arrow.Date32 {
	y, m, d := t.Date()
	return arrow.Date32(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// mapCompression maps compression string to Arrow compression codec.
func mapCompression(name string) compress.Compression {
	switch name {
	case "snappy":
		return compress.Codecs.Snappy
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "lz4":
		return compress.Codecs.Lz4
	default:
		return compress.Codecs.Uncompressed
	}
}
