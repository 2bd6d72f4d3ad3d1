// Package partition encodes normalized rows as Parquet and places them under
// date-partitioned object keys.
package partition

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// Encode writes rows as a Snappy-compressed Parquet file with page
// statistics, so readers can skip pages by column range.
func Encode(rows []domain.NormalizedRow) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[domain.NormalizedRow](&buf,
		parquet.Compression(&parquet.Snappy),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("fleetmetrics", "0.1.0", ""),
	)
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("partition: encode rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("partition: close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads every row of a file written by Encode.
func Decode(data []byte) ([]domain.NormalizedRow, error) {
	rows, err := parquet.Read[domain.NormalizedRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("partition: decode: %w", err)
	}
	return rows, nil
}
