// Command server runs a demo search and streams its live dot-graph dump and
// tree stats to any connected websocket client, for observing a running
// search from a separate dashboard process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bonan14/lc0-sycl-bb2/bench"
	"github.com/Bonan14/lc0-sycl-bb2/logging"
	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/nneval"
	"github.com/Bonan14/lc0-sycl-bb2/ttable"
)

// snapshot is what gets pushed to each connected client.
type snapshot struct {
	Row      bench.Row `json:"row"`
	DotGraph string    `json:"dot_graph,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1 << 20,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{clients: make(map[*websocket.Conn]struct{}), logger: logger}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn("dropping client after write error", "error", err)
			delete(h.clients, c)
			c.Close()
		}
	}
}

func main() {
	addr := flag.String("addr", ":8099", "HTTP listen address")
	simulations := flag.Int("simulations", 0, "Number of PUCT simulations to run; 0 runs until interrupted")
	ttableSlots := flag.Int("ttable-slots", 1<<16, "Transposition table slot count")
	dotEvery := flag.Int("dot-every", 200, "Emit a full dot-graph dump every N iterations (0 disables)")
	flag.Parse()

	logger := slog.New(logging.NewPrettyJSONHandler(os.Stderr, nil))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := newHub(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "error", err)
			return
		}
		h.add(conn)
		logger.Info("client connected", "total", len(h.clients))
		go func() {
			defer h.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
	httpServer := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Info("listening", "addr", *addr, "ws_endpoint", "/ws")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited", "error", err)
			os.Exit(1)
		}
	}()

	sims := *simulations
	if sims <= 0 {
		sims = 1 << 30 // effectively unbounded; stopped by ctx cancellation
	}

	tt := ttable.New(*ttableSlots)
	reclaimer := mcts.NewReclaimer()
	reclaimer.Start()
	defer reclaimer.Shutdown()

	predictor := nneval.StubPredictor{Q: 0, D: 0.1, M: 20}

	result, err := bench.Run(sigCtx, bench.Config{
		RunID:       "server",
		Simulations: sims,
		Predictor:   predictor,
		Table:       tt,
		Reclaimer:   reclaimer,
		OnRow: func(r bench.Row, tree *mcts.NodeTree) {
			snap := snapshot{Row: r}
			if *dotEvery > 0 && int(r.Iteration)%*dotEvery == 0 {
				snap.DotGraph = tree.CurrentHead().DotGraphString()
			}
			msg, err := json.Marshal(snap)
			if err != nil {
				return
			}
			h.broadcast(msg)
		},
	})
	if err != nil {
		logger.Warn("run stopped", "error", err)
	}

	if len(result.Rows) > 0 {
		last := result.Rows[len(result.Rows)-1]
		logger.Info("final tree state", "tree_nodes", last.TreeNodes, "root_n", last.RootN)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
