// Command dashboard runs a demo search and shows its live throughput and
// tree-shape metrics in a terminal UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bonan14/lc0-sycl-bb2/bench"
	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/nneval"
	"github.com/Bonan14/lc0-sycl-bb2/ttable"
)

type model struct {
	rows      chan bench.Row
	done      chan error
	startTime time.Time
	latest    bench.Row
	runErr    error
	finished  bool
}

func initialModel(rows chan bench.Row, done chan error) model {
	return model{rows: rows, done: done, startTime: time.Now()}
}

type rowMsg bench.Row
type doneMsg struct{ err error }

func waitForRow(rows chan bench.Row) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-rows
		if !ok {
			return nil
		}
		return rowMsg(r)
	}
}

func waitForDone(done chan error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-done}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForRow(m.rows), waitForDone(m.done))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case rowMsg:
		m.latest = bench.Row(msg)
		return m, waitForRow(m.rows)
	case doneMsg:
		m.finished = true
		m.runErr = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	s := fmt.Sprintf("Run:            %s\n", m.latest.RunID)
	s += fmt.Sprintf("Iteration:      %d\n", m.latest.Iteration)
	s += fmt.Sprintf("Tree Nodes:     %d\n", m.latest.TreeNodes)
	s += fmt.Sprintf("Reclaim Queue:  %d\n", m.latest.ReclaimQueue)
	s += fmt.Sprintf("Root N:         %d\n", m.latest.RootN)
	s += fmt.Sprintf("Root W-L:       %.4f\n", m.latest.RootWL)
	s += fmt.Sprintf("Sims/Sec:       %.1f\n", m.latest.SimsPerSec)

	var hitRate float64
	if total := m.latest.TTHits + m.latest.TTMisses; total > 0 {
		hitRate = float64(m.latest.TTHits) / float64(total) * 100
	}
	s += fmt.Sprintf("TT Hit Rate:    %.1f%% (%d hits / %d misses)\n", hitRate, m.latest.TTHits, m.latest.TTMisses)
	s += fmt.Sprintf("Duration:       %s\n", duration.Round(time.Second))

	if m.finished {
		if m.runErr != nil {
			s += fmt.Sprintf("\nFinished with error: %v\n", m.runErr)
		} else {
			s += "\nFinished.\n"
		}
	}
	s += "\nPress q to quit.\n"
	return s
}

func main() {
	simulations := flag.Int("simulations", 20000, "Number of PUCT simulations to run")
	ttableSlots := flag.Int("ttable-slots", 1<<16, "Transposition table slot count")
	modelPath := flag.String("model", "", "Path to an ONNX model to drive evaluation; if empty, a uniform-prior stub predictor is used")
	featureDim := flag.Int("feature-dim", 0, "Feature tensor width; required when -model is set")
	flag.Parse()

	// Redirect logs to a file: writing to stdout/stderr would corrupt the
	// TUI's redraws.
	logFile, err := os.OpenFile("dashboard.log", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var predictor nneval.Predictor
	if *modelPath == "" {
		predictor = nneval.StubPredictor{Q: 0, D: 0.1, M: 20}
	} else {
		onnxPredictor, err := nneval.NewOnnxPredictor(*modelPath, nneval.OnnxConfig{FeatureDim: *featureDim})
		if err != nil {
			log.Fatalf("Failed to create ONNX predictor: %v", err)
		}
		defer onnxPredictor.Close()
		predictor = onnxPredictor
	}

	tt := ttable.New(*ttableSlots)
	reclaimer := mcts.NewReclaimer()
	reclaimer.Start()
	defer reclaimer.Shutdown()

	rows := make(chan bench.Row, 256)
	done := make(chan error, 1)
	go func() {
		_, err := bench.Run(sigCtx, bench.Config{
			RunID:       fmt.Sprintf("dashboard-%d", time.Now().Unix()),
			Simulations: *simulations,
			Predictor:   predictor,
			Table:       tt,
			Reclaimer:   reclaimer,
			OnRow: func(r bench.Row, _ *mcts.NodeTree) {
				select {
				case rows <- r:
				default:
				}
			},
		})
		close(rows)
		done <- err
	}()

	p := tea.NewProgram(initialModel(rows, done))
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
