// Command bench drives a demo PUCT search loop over the mcts/ttable/nneval
// packages and writes per-iteration throughput rows to Parquet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bonan14/lc0-sycl-bb2/bench"
	"github.com/Bonan14/lc0-sycl-bb2/logging"
	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/nneval"
	"github.com/Bonan14/lc0-sycl-bb2/ttable"
)

func main() {
	simulations := flag.Int("simulations", 10000, "Number of PUCT simulations to run")
	runID := flag.String("run-id", "", "Identifier stamped on every output row; defaults to the process start time")
	outPath := flag.String("out", "data/bench/run.parquet", "Output Parquet file path")
	ttableSlots := flag.Int("ttable-slots", 1<<16, "Transposition table slot count (rounded up to a power of two)")
	modelPath := flag.String("model", "", "Path to an ONNX model to drive evaluation; if empty, a uniform-prior stub predictor is used")
	featureDim := flag.Int("feature-dim", 0, "Feature tensor width; required when -model is set")
	onnxSessions := flag.Int("onnx-sessions", 1, "Number of ONNX Runtime sessions to run in parallel, fanned out round-robin; only used when -model is set")
	onnxBatchSize := flag.Int("onnx-batch-size", nneval.DefaultBatchSize, "ONNX inference batch size")
	onnxBatchTimeout := flag.Duration("onnx-batch-timeout", nneval.DefaultBatchTimeout, "Max time to wait for filling an ONNX batch")
	flag.Parse()

	logger := slog.New(logging.NewPrettyJSONHandler(os.Stderr, nil))

	if *runID == "" {
		*runID = fmt.Sprintf("run-%d", time.Now().Unix())
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var predictor nneval.Predictor
	if *modelPath == "" {
		logger.Info("no -model given; using uniform-prior stub predictor")
		predictor = nneval.StubPredictor{Q: 0, D: 0.1, M: 20}
	} else {
		cfg := nneval.OnnxConfig{FeatureDim: *featureDim, BatchSize: *onnxBatchSize, BatchTimeout: *onnxBatchTimeout}
		if *onnxSessions <= 1 {
			onnxPredictor, err := nneval.NewOnnxPredictor(*modelPath, cfg)
			if err != nil {
				logger.Error("failed to create onnx predictor", "error", err)
				os.Exit(1)
			}
			defer onnxPredictor.Close()
			predictor = onnxPredictor
		} else {
			pool, err := nneval.NewOnnxPool(*modelPath, *onnxSessions, cfg)
			if err != nil {
				logger.Error("failed to create onnx predictor pool", "error", err)
				os.Exit(1)
			}
			defer pool.Close()
			predictor = pool
		}
	}

	tt := ttable.New(*ttableSlots)
	reclaimer := mcts.NewReclaimer()
	reclaimer.Start()
	defer reclaimer.Shutdown()

	logger.Info("starting bench run", "run_id", *runID, "simulations", *simulations, "ttable_slots", tt.Len())

	result, err := bench.Run(sigCtx, bench.Config{
		RunID:       *runID,
		Simulations: *simulations,
		Predictor:   predictor,
		Table:       tt,
		Reclaimer:   reclaimer,
	})
	if err != nil {
		logger.Warn("run stopped early", "error", err)
	}

	if len(result.Rows) == 0 {
		logger.Error("no rows collected; nothing to write")
		os.Exit(1)
	}

	if err := bench.WriteParquet(*outPath, result.Rows); err != nil {
		logger.Error("failed to write bench parquet", "error", err)
		os.Exit(1)
	}

	last := result.Rows[len(result.Rows)-1]
	logger.Info("bench run complete",
		"iterations", len(result.Rows),
		"final_tree_nodes", last.TreeNodes,
		"root_n", last.RootN,
		"sims_per_sec_last", last.SimsPerSec,
		"out", *outPath,
	)
}
