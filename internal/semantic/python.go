package semantic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/wgomg/rater/internal/config"
	"github.com/wgomg/rater/internal/utils"
)

var ErrPoolClosed = errors.New("semantic worker pool is closed")

const maxWorkerLineBytes = 16 << 20

type Task struct {
	RequestID string
	Texts     []string
	Result    chan<- TaskResult
}

type TaskResult struct {
	Vectors []Embedding
	Err     error
}

type PythonWorkerPool struct {
	logger    *utils.Logger
	script    string
	venv      string
	cfg       *config.SemanticConfig
	taskQueue chan Task
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	spawn     func(id int) (*PythonWorker, error)
}

type PythonWorker struct {
	id      int
	process *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	scanner *bufio.Scanner
}

type PythonConfigMessage struct {
	ModelName string `json:"model_name"`
}

type PythonReadyMessage struct {
	Status       string `json:"status"`
	EmbeddingDim int    `json:"embedding_dim"`
	Model        string `json:"model"`
	Error        string `json:"error,omitempty"`
}

type PythonRequest struct {
	Texts []string `json:"texts"`
}

type PythonResponse struct {
	Vectors          []Embedding `json:"vectors"`
	ProcessingTimeMS int         `json:"processing_time_ms"`
	Error            string      `json:"error,omitempty"`
}

func NewPythonEmbedder(logger *utils.Logger, cfg *config.SemanticConfig) *PythonWorkerPool {
	pythonDir := filepath.Join(cfg.Python.ConfigDir, "python")

	p := &PythonWorkerPool{
		logger:    logger,
		script:    filepath.Join(pythonDir, "spacy_embedder.py"),
		venv:      filepath.Join(cfg.Python.ConfigDir, "venv"),
		cfg:       cfg,
		taskQueue: make(chan Task, 100),
		done:      make(chan struct{}),
	}
	p.spawn = p.startPythonWorker

	return p
}

func (p *PythonWorkerPool) Initialize() error {
	p.logger.Info(nil, "Initializing spaCy embedder (%s) with %d workers", p.cfg.Model, p.cfg.WorkerCount)

	if err := p.setupEnvironment(); err != nil {
		return fmt.Errorf("failed to setup environment: %w", err)
	}

	if err := p.startWorkers(); err != nil {
		return err
	}

	p.logger.Info(nil, "spaCy embedder initialized successfully")
	return nil
}

// startWorkers brings every worker up before serving so a model that cannot
// load stops the process at startup rather than on the first request.
func (p *PythonWorkerPool) startWorkers() error {
	workers := make([]*PythonWorker, 0, p.cfg.WorkerCount)

	for i := 0; i < p.cfg.WorkerCount; i++ {
		worker, err := p.spawn(i)
		if err != nil {
			for _, w := range workers {
				p.stopWorker(w)
			}
			return fmt.Errorf("failed to start worker %d: %w", i, err)
		}
		workers = append(workers, worker)
	}

	for _, w := range workers {
		p.wg.Add(1)
		go p.runWorker(w)
	}

	return nil
}

func (p *PythonWorkerPool) Embed(ctx context.Context, texts []string, reqID string) ([]Embedding, error) {
	if p.cfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	result := make(chan TaskResult, 1)
	task := Task{
		RequestID: reqID,
		Texts:     texts,
		Result:    result,
	}

	select {
	case p.taskQueue <- task:
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("queue embedding task: %w", ctx.Err())
	}

	select {
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		if len(res.Vectors) != len(texts) {
			return nil, fmt.Errorf("expected %d vectors, got %d", len(texts), len(res.Vectors))
		}
		return res.Vectors, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for embedding: %w", ctx.Err())
	}
}

func (p *PythonWorkerPool) HealthCheck(ctx context.Context) error {
	vectors, err := p.Embed(ctx, []string{"health check sentence"}, "healthcheck")
	if err != nil {
		return fmt.Errorf("health check: worker error: %w", err)
	}
	if len(vectors[0]) == 0 {
		return fmt.Errorf("health check: empty vector")
	}
	return nil
}

func (p *PythonWorkerPool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	return nil
}

func (p *PythonWorkerPool) runWorker(worker *PythonWorker) {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			p.stopWorker(worker)
			return
		case task := <-p.taskQueue:
			res, healthy := worker.processTask(task, p.logger)
			task.Result <- res

			if healthy {
				continue
			}

			p.logger.Error(&task.RequestID, "Worker %d broke: %v, restarting", worker.id, res.Err)
			p.stopWorker(worker)

			if worker = p.restartWorker(worker.id); worker == nil {
				return
			}
		}
	}
}

func (p *PythonWorkerPool) restartWorker(id int) *PythonWorker {
	delay := time.Duration(p.cfg.Python.ProcessStartupDelay) * time.Second

	for {
		select {
		case <-p.done:
			return nil
		case <-time.After(delay):
		}

		worker, err := p.spawn(id)
		if err != nil {
			p.logger.Error(nil, "Failed to restart worker %d: %v", id, err)
			continue
		}

		p.logger.Info(nil, "Worker %d restarted", id)
		return worker
	}
}

func (p *PythonWorkerPool) startPythonWorker(id int) (*PythonWorker, error) {
	python := filepath.Join(p.venv, "bin", "python")

	cmd := exec.Command(python, p.script)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	worker := newPythonWorker(id, stdin, stdout)
	worker.process = cmd

	if err := p.handshake(worker); err != nil {
		p.stopWorker(worker)
		return nil, err
	}

	return worker, nil
}

func newPythonWorker(id int, stdin io.WriteCloser, stdout io.ReadCloser) *PythonWorker {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxWorkerLineBytes)

	return &PythonWorker{
		id:      id,
		stdin:   stdin,
		stdout:  stdout,
		scanner: scanner,
	}
}

func (p *PythonWorkerPool) handshake(w *PythonWorker) error {
	configJSON, err := json.Marshal(PythonConfigMessage{ModelName: p.cfg.Model})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	configJSON = append(configJSON, '\n')
	if _, err := w.stdin.Write(configJSON); err != nil {
		return fmt.Errorf("send config: %w", err)
	}

	if !w.scanner.Scan() {
		if err := w.scanner.Err(); err != nil {
			return fmt.Errorf("failed to read READY message: %w", err)
		}
		return fmt.Errorf("failed to read READY message")
	}

	var readyMsg PythonReadyMessage
	if err := json.Unmarshal(w.scanner.Bytes(), &readyMsg); err != nil {
		return fmt.Errorf("failed to parse ready message: %w", err)
	}

	if readyMsg.Status != "ready" {
		return fmt.Errorf("unexpected startup status %q: %s", readyMsg.Status, readyMsg.Error)
	}

	p.logger.Debug(nil, "Python worker %d ready (model=%s, embedding_dim=%d)",
		w.id, readyMsg.Model, readyMsg.EmbeddingDim)

	return nil
}

// processTask runs one embedding request. healthy is false when the pipe to
// the process is no longer usable and the worker must be replaced.
func (w *PythonWorker) processTask(task Task, logger *utils.Logger) (res TaskResult, healthy bool) {
	reqJSON, err := json.Marshal(PythonRequest{Texts: task.Texts})
	if err != nil {
		return TaskResult{Err: fmt.Errorf("marshal request: %w", err)}, true
	}

	reqJSON = append(reqJSON, '\n')
	if _, err := w.stdin.Write(reqJSON); err != nil {
		return TaskResult{Err: fmt.Errorf("write request: %w", err)}, false
	}

	if !w.scanner.Scan() {
		if err := w.scanner.Err(); err != nil {
			return TaskResult{Err: fmt.Errorf("read stdout: %w", err)}, false
		}
		return TaskResult{Err: fmt.Errorf("stdout closed")}, false
	}

	var resp PythonResponse
	if err := json.Unmarshal(w.scanner.Bytes(), &resp); err != nil {
		return TaskResult{Err: fmt.Errorf("parse response: %w", err)}, false
	}
	if resp.Error != "" {
		return TaskResult{Err: fmt.Errorf("python error: %s", resp.Error)}, true
	}

	logger.Debug(&task.RequestID, "Embedded %d texts in %dms on worker %d",
		len(task.Texts), resp.ProcessingTimeMS, w.id)

	return TaskResult{Vectors: resp.Vectors}, true
}

func (p *PythonWorkerPool) stopWorker(w *PythonWorker) {
	if w.stdin != nil {
		w.stdin.Close()
	}

	if w.process == nil {
		if w.stdout != nil {
			w.stdout.Close()
		}
		return
	}

	exited := make(chan error, 1)
	go func() {
		exited <- w.process.Wait()
	}()

	shutdown := time.Duration(p.cfg.Python.ProcessShutdownTimeout) * time.Second
	kill := time.Duration(p.cfg.Python.ProcessKillTimeout) * time.Second

	select {
	case <-exited:
		return
	case <-time.After(shutdown):
	}

	p.logger.Info(nil, "Worker %d did not exit within %s, killing", w.id, shutdown)
	if err := w.process.Process.Kill(); err != nil {
		p.logger.Error(nil, "Failed to kill worker %d: %v", w.id, err)
	}

	select {
	case <-exited:
	case <-time.After(kill):
		p.logger.Error(nil, "Worker %d still running after kill", w.id)
	}
}

func (p *PythonWorkerPool) setupEnvironment() error {
	if err := os.MkdirAll(p.cfg.Python.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := p.extractScriptIfNeeded(); err != nil {
		return fmt.Errorf("failed to extract script: %w", err)
	}

	if err := p.checkPython(); err != nil {
		return fmt.Errorf("python check failed: %w", err)
	}

	if err := p.createVenv(); err != nil {
		return fmt.Errorf("failed to create venv: %w", err)
	}

	if err := p.installRequirements(); err != nil {
		return fmt.Errorf("failed to install requirements: %w", err)
	}

	if err := p.downloadModel(); err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}

	return nil
}

func (p *PythonWorkerPool) checkPython() error {
	cmd := exec.Command("python3", "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("python3 not found: %w", err)
	}

	p.logger.Debug(nil, "Python3 found")
	return nil
}

func (p *PythonWorkerPool) createVenv() error {
	venvPython := filepath.Join(p.venv, "bin", "python")

	if _, err := os.Stat(venvPython); err == nil {
		p.logger.Debug(nil, "Virtual environment already exists at %s", p.venv)
		return nil
	}

	p.logger.Info(nil, "Creating virtual environment at %s", p.venv)

	cmd := exec.Command("python3", "-m", "venv", p.venv)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create venv: %s: %w", output, err)
	}

	p.logger.Info(nil, "Virtual environment created successfully")
	return nil
}

func (p *PythonWorkerPool) installRequirements() error {
	venvPip := filepath.Join(p.venv, "bin", "pip")
	requirementsPath := filepath.Join(filepath.Dir(p.script), "requirements.txt")

	p.logger.Info(nil, "Installing Python requirements from %s", requirementsPath)

	cmd := exec.Command(venvPip, "install", "--quiet", "-r", requirementsPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pip install: %s: %w", output, err)
	}

	p.logger.Info(nil, "Python requirements installed successfully")
	return nil
}

func (p *PythonWorkerPool) downloadModel() error {
	venvPython := filepath.Join(p.venv, "bin", "python")

	check := exec.Command(venvPython, "-c",
		"import importlib.util, sys; sys.exit(0 if importlib.util.find_spec(sys.argv[1]) else 1)",
		p.cfg.Model)
	if err := check.Run(); err == nil {
		p.logger.Debug(nil, "spaCy model %s already installed", p.cfg.Model)
		return nil
	}

	p.logger.Info(nil, "Downloading spaCy model %s", p.cfg.Model)

	cmd := exec.Command(venvPython, "-m", "spacy", "download", p.cfg.Model)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("spacy download %s: %s: %w", p.cfg.Model, output, err)
	}

	p.logger.Info(nil, "spaCy model %s downloaded successfully", p.cfg.Model)
	return nil
}

func (p *PythonWorkerPool) extractScriptIfNeeded() error {
	pythonDir := filepath.Dir(p.script)

	if err := os.MkdirAll(pythonDir, 0755); err != nil {
		return fmt.Errorf("failed to create python directory: %w", err)
	}

	requirementsContent := embeddedRequirements
	if requirementsContent == "" {
		requirementsContent = defaultRequirements
	}

	files := []struct {
		path    string
		content string
		mode    os.FileMode
	}{
		{p.script, embeddedPythonScript, 0755},
		{filepath.Join(pythonDir, "requirements.txt"), requirementsContent, 0644},
	}

	for _, f := range files {
		if existing, err := os.ReadFile(f.path); err == nil && string(existing) == f.content {
			p.logger.Debug(nil, "%s is up to date", f.path)
			continue
		}

		p.logger.Info(nil, "Extracting embedded file to %s", f.path)
		if err := os.WriteFile(f.path, []byte(f.content), f.mode); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
	}

	return nil
}
