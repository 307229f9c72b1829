package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling.
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/chronos/core"
)

// Server turns a running core.Runtime into an HTTP-introspectable
// process: pause/resume it, read its clock, dump its task table, and
// capture a CPU profile, all over a small JSON API.
//
// Grounded on monitoring/monitor.go's Monitor type, narrowed to a single
// core.Runtime (akita's Monitor tracks many components and their
// buffers; this domain has one runtime and its task table instead).
type Server struct {
	rt         *core.Runtime
	portNumber int
	listener   net.Listener

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewServer creates a Server over rt. It does not start listening until
// Start is called.
func NewServer(rt *core.Runtime) *Server {
	return &Server{rt: rt}
}

// WithPortNumber fixes the TCP port the server listens on. Ports below
// 1000 are refused (the same guard akita's Monitor applies) in favor of
// an OS-assigned ephemeral port.
func (s *Server) WithPortNumber(portNumber int) *Server {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"monitor: port %d is not allowed, using a random port instead\n", portNumber)
		portNumber = 0
	}
	s.portNumber = portNumber
	return s
}

// CreateProgressBar registers a new ProgressBar visible on
// /api/progress.
func (s *Server) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        core.NonDeterministicID(),
		Name:      name,
		Total:     total,
		StartTime: time.Now(),
	}

	s.progressBarsLock.Lock()
	defer s.progressBarsLock.Unlock()
	s.progressBars = append(s.progressBars, bar)

	return bar
}

// CompleteProgressBar removes bar from the set shown on /api/progress.
func (s *Server) CompleteProgressBar(bar *ProgressBar) {
	s.progressBarsLock.Lock()
	defer s.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, 0, len(s.progressBars))
	for _, b := range s.progressBars {
		if b != bar {
			bars = append(bars, b)
		}
	}
	s.progressBars = bars
}

// Start binds a listener and begins serving in the background. It
// returns the address the server is actually listening on (useful when
// WithPortNumber was never called and the OS picked an ephemeral port),
// and registers the listener's Close with atexit. That handler runs only
// when the process exits through atexit.Exit or atexit.Fatal; a normal
// return, os.Exit or log.Fatal does not run it.
func (s *Server) Start() (string, error) {
	r := mux.NewRouter()
	r.HandleFunc("/api/pause", s.handlePause)
	r.HandleFunc("/api/resume", s.handleResume)
	r.HandleFunc("/api/now", s.handleNow)
	r.HandleFunc("/api/run", s.handleRun)
	r.HandleFunc("/api/tasks", s.handleTasks)
	r.HandleFunc("/api/queues", s.handleQueues)
	r.HandleFunc("/api/field/{json}", s.handleField)
	r.HandleFunc("/api/progress", s.handleProgress)
	r.HandleFunc("/api/resource", s.handleResource)
	r.HandleFunc("/api/profile", s.handleProfile)

	actualPort := ":0"
	if s.portNumber >= 1000 {
		actualPort = ":" + strconv.Itoa(s.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}
	s.listener = listener

	atexit.Register(func() { _ = listener.Close() })

	addr := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "monitor: serving at %s\n", addr)

	go func() {
		if err := http.Serve(listener, r); err != nil &&
			!isClosedListenerErr(err) {
			log.Printf("monitor: server stopped: %v", err)
		}
	}()

	return addr, nil
}

func isClosedListenerErr(err error) bool {
	return err != nil && err.Error() == "http: Server closed"
}

// Close stops the listener without waiting for atexit.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.rt.Pause()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	s.rt.Resume()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNow(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]int64{"now_ns": int64(s.rt.Now())})
}

func (s *Server) handleRun(_ http.ResponseWriter, _ *http.Request) {
	go func() {
		if err := s.rt.Run(); err != nil {
			log.Printf("monitor: run ended with error: %v", err)
		}
	}()
}

func (s *Server) handleTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"tasks":     s.rt.TaskDiagnostics(),
		"ready_len": s.rt.ReadyLen(),
		"timer_len": s.rt.TimerLen(),
	})
}

func (s *Server) handleQueues(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"ready_len": s.rt.ReadyLen(),
		"timer_len": s.rt.TimerLen(),
	})
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	jsonArg := mux.Vars(r)["json"]

	var req struct {
		FieldName string `json:"field_name,omitempty"`
	}
	if err := json.Unmarshal([]byte(jsonArg), &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(s.rt)
	serializer.SetMaxDepth(2)

	if req.FieldName != "" {
		if err := serializer.SetEntryPoint(splitFields(req.FieldName)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := serializer.Serialize(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func splitFields(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	s.progressBarsLock.Lock()
	bars := make([]*ProgressBar, len(s.progressBars))
	copy(bars, s.progressBars)
	s.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceResponse struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (s *Server) handleResource(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceResponse{CPUPercent: cpuPercent, MemorySize: memInfo.RSS})
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("monitor: encoding response: %v", err)
	}
}
