// Package bench runs a demo PUCT search loop over the mcts/ttable/nneval
// packages and records per-iteration throughput and tree-shape metrics,
// persisted to Parquet for offline analysis.
package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// Row is one search-iteration sample.
type Row struct {
	RunID         string  `parquet:"run_id,dict"`
	Iteration     int32   `parquet:"iteration"`
	SimsPerSec    float64 `parquet:"sims_per_sec"`
	TreeNodes     int64   `parquet:"tree_nodes"`
	ReclaimQueue  int32   `parquet:"reclaim_queue"`
	TTHits        int64   `parquet:"tt_hits"`
	TTMisses      int64   `parquet:"tt_misses"`
	RootN         int64   `parquet:"root_n"`
	RootWL        float64 `parquet:"root_wl"`
	ElapsedMillis int64   `parquet:"elapsed_millis"`
}

// WriteParquet writes rows to outPath via a temp-file-then-rename so
// readers never observe a partially-written file.
func WriteParquet(outPath string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("bench: create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "search_bench_row_v1"),
	); err != nil {
		return fmt.Errorf("bench: write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("bench: rename parquet: %w", err)
	}
	return nil
}

// WriteBatchParquetAtomic writes rows into outDir/tmp and atomically moves
// the result into outDir, matching the pattern long-running writers use to
// avoid readers ever seeing a half-written batch.
func WriteBatchParquetAtomic(outDir string, rows []Row) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("bench: create output dir: %w", err)
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("bench: create tmp dir: %w", err)
	}

	name := fmt.Sprintf("bench_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "search_bench_row_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("bench: write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("bench: rename parquet: %w", err)
	}
	return finalPath, nil
}
