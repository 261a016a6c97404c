package nneval

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/move"
	ort "github.com/yalue/onnxruntime_go"
)

// MaxEdges bounds the policy head's output width. LowNode.num_edges is a
// u8, so no position can have more candidate moves than this regardless of
// model capacity.
const MaxEdges = 256

const (
	DefaultBatchSize    = 128
	DefaultBatchTimeout = 2 * time.Millisecond
)

// OnnxConfig configures an OnnxPredictor's batching behavior and feature
// shape.
type OnnxConfig struct {
	FeatureDim   int
	BatchSize    int
	BatchTimeout time.Duration
}

type onnxRequest struct {
	ctx      context.Context
	features []float32
	moves    []move.Move
	respChan chan onnxResponse
}

type onnxResponse struct {
	eval mcts.NNEval
	err  error
}

// OnnxPredictor implements Predictor using ONNX Runtime, batching
// concurrent requests onto a single session the way a production inference
// server would. The model is expected to expose inputs named "input"
// (batch, FeatureDim) and outputs "policy" (batch, MaxEdges), "value",
// "draw", "moves_left" (each batch, 1).
type OnnxPredictor struct {
	session      *ort.DynamicAdvancedSession
	cfg          OnnxConfig
	requestsChan chan onnxRequest
}

var ortInitOnce sync.Once
var ortInitErr error

// NewOnnxPredictor loads modelPath and starts its batching loop.
func NewOnnxPredictor(modelPath string, cfg OnnxConfig) (*OnnxPredictor, error) {
	if cfg.FeatureDim <= 0 {
		return nil, fmt.Errorf("nneval: FeatureDim must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}

	if runtime.GOOS == "linux" {
		ensureLinuxLibraryPath()
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("nneval: init onnxruntime: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	if cudaOptions, err := ort.NewCUDAProviderOptions(); err == nil {
		defer cudaOptions.Destroy()
		_ = options.AppendExecutionProviderCUDA(cudaOptions)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"policy", "value", "draw", "moves_left"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("nneval: create session: %w", err)
	}

	p := &OnnxPredictor{
		session:      session,
		cfg:          cfg,
		requestsChan: make(chan onnxRequest, cfg.BatchSize*2),
	}
	go p.batchLoop()
	return p, nil
}

func ensureLinuxLibraryPath() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	patterns := []string{
		filepath.Join(cwd, ".venv", "lib", "python*", "site-packages", "nvidia", "*", "lib"),
		filepath.Join(cwd, ".venv", "lib", "python*", "site-packages", "torch", "lib"),
	}
	existing := os.Getenv("LD_LIBRARY_PATH")
	existingSet := map[string]bool{}
	for _, p := range strings.Split(existing, ":") {
		if p != "" {
			existingSet[p] = true
		}
	}
	var toAdd []string
	for _, pat := range patterns {
		matches, _ := filepath.Glob(pat)
		for _, m := range matches {
			if !existingSet[m] {
				toAdd = append(toAdd, m)
			}
		}
	}
	if len(toAdd) == 0 {
		return
	}
	newVal := strings.Join(toAdd, ":")
	if existing != "" {
		newVal = newVal + ":" + existing
	}
	_ = os.Setenv("LD_LIBRARY_PATH", newVal)
}

// Close releases the underlying ONNX Runtime session.
func (p *OnnxPredictor) Close() error {
	return p.session.Destroy()
}

// Predict evaluates one position, enqueuing it onto the shared batch loop
// and blocking until the batch it landed in completes.
func (p *OnnxPredictor) Predict(ctx context.Context, features []float32, moves []move.Move) (mcts.NNEval, error) {
	if len(moves) > MaxEdges {
		return mcts.NNEval{}, fmt.Errorf("nneval: %d candidate moves exceeds MaxEdges=%d", len(moves), MaxEdges)
	}
	respChan := make(chan onnxResponse, 1)
	select {
	case p.requestsChan <- onnxRequest{ctx: ctx, features: features, moves: moves, respChan: respChan}:
	case <-ctx.Done():
		return mcts.NNEval{}, ctx.Err()
	}
	select {
	case resp := <-respChan:
		return resp.eval, resp.err
	case <-ctx.Done():
		return mcts.NNEval{}, ctx.Err()
	}
}

func (p *OnnxPredictor) batchLoop() {
	requests := make([]onnxRequest, 0, p.cfg.BatchSize)
	batchInput := make([]float32, 0, p.cfg.BatchSize*p.cfg.FeatureDim)

	ticker := time.NewTicker(p.cfg.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case req := <-p.requestsChan:
			requests = append(requests, req)
			batchInput = append(batchInput, req.features...)
			if len(requests) >= p.cfg.BatchSize {
				p.runBatch(requests, batchInput)
				requests = requests[:0]
				batchInput = batchInput[:0]
			}
		case <-ticker.C:
			if len(requests) > 0 {
				p.runBatch(requests, batchInput)
				requests = requests[:0]
				batchInput = batchInput[:0]
			}
		}
	}
}

func (p *OnnxPredictor) runBatch(requests []onnxRequest, batchInput []float32) {
	n := int64(len(requests))

	inputTensor, err := ort.NewTensor(ort.NewShape(n, int64(p.cfg.FeatureDim)), batchInput)
	if err != nil {
		p.failBatch(requests, err)
		return
	}
	defer inputTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, int64(MaxEdges)))
	if err != nil {
		p.failBatch(requests, err)
		return
	}
	defer policyTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
	if err != nil {
		p.failBatch(requests, err)
		return
	}
	defer valueTensor.Destroy()

	drawTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
	if err != nil {
		p.failBatch(requests, err)
		return
	}
	defer drawTensor.Destroy()

	mlhTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
	if err != nil {
		p.failBatch(requests, err)
		return
	}
	defer mlhTensor.Destroy()

	err = p.session.Run(
		[]ort.Value{inputTensor},
		[]ort.Value{policyTensor, valueTensor, drawTensor, mlhTensor},
	)
	if err != nil {
		p.failBatch(requests, err)
		return
	}

	policyData := policyTensor.GetData()
	valueData := valueTensor.GetData()
	drawData := drawTensor.GetData()
	mlhData := mlhTensor.GetData()

	for i, req := range requests {
		logits := policyData[i*MaxEdges : i*MaxEdges+len(req.moves)]
		edges := softmaxEdges(req.moves, logits)
		req.respChan <- onnxResponse{eval: mcts.NNEval{
			Edges:    edges,
			Q:        valueData[i],
			D:        drawData[i],
			M:        mlhData[i],
			NumEdges: uint8(len(edges)),
		}}
	}
}

func (p *OnnxPredictor) failBatch(requests []onnxRequest, err error) {
	for _, req := range requests {
		req.respChan <- onnxResponse{err: err}
	}
}

// softmaxEdges turns raw policy logits into mcts.Edge priors, one per move,
// normalized over just the candidate moves supplied (illegal moves never
// enter the softmax).
func softmaxEdges(moves []move.Move, logits []float32) []mcts.Edge {
	if len(moves) == 0 {
		return nil
	}
	max := logits[0]
	for _, l := range logits[1:] {
		if l > max {
			max = l
		}
	}
	var sum float64
	exps := make([]float64, len(logits))
	for i, l := range logits {
		e := math.Exp(float64(l - max))
		exps[i] = e
		sum += e
	}
	edges := make([]mcts.Edge, len(moves))
	for i, mv := range moves {
		p := float32(exps[i] / sum)
		edges[i] = mcts.NewEdge(mv, mcts.EncodeP(p))
	}
	return edges
}
