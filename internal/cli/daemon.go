package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/guiyumin/socialdl/internal/core/config"
)

// daemonStopWait matches the server's graceful shutdown window
const daemonStopWait = 10 * time.Second

// daemonState describes a background API server started with `serve -d`
type daemonState struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	Config    string    `json:"config,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

func (st daemonState) baseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", st.Port)
}

// daemonFiles locates the state and log files of the background server
type daemonFiles struct {
	dir string
}

func newDaemonFiles() daemonFiles {
	dir, err := config.ConfigDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), config.AppDirName)
	}
	return daemonFiles{dir: dir}
}

func (d daemonFiles) statePath() string { return filepath.Join(d.dir, "server.json") }
func (d daemonFiles) logPath() string   { return filepath.Join(d.dir, "server.log") }

func (d daemonFiles) save(st daemonState) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.statePath(), data, 0644)
}

// load returns the recorded server, or false when none is recorded or the
// file is unreadable
func (d daemonFiles) load() (daemonState, bool) {
	var st daemonState
	data, err := os.ReadFile(d.statePath())
	if err != nil {
		return st, false
	}
	if err := json.Unmarshal(data, &st); err != nil || st.PID <= 0 {
		return st, false
	}
	return st, true
}

func (d daemonFiles) clear() {
	os.Remove(d.statePath())
}

// running returns the recorded server if its process is still alive.
// A state file left by a dead process is removed.
func (d daemonFiles) running() (daemonState, bool, bool) {
	st, ok := d.load()
	if !ok {
		return st, false, false
	}
	if !processExists(st.PID) {
		d.clear()
		return st, false, true
	}
	return st, true, false
}

func startDaemon(d daemonFiles, port int, out io.Writer) error {
	if st, alive, _ := d.running(); alive {
		return fmt.Errorf("API server already running on port %d (PID %d)", st.Port, st.PID)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"serve", "-p", strconv.Itoa(port)}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(d.logPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open server log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(executable, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	st := daemonState{
		PID:       cmd.Process.Pid,
		Port:      port,
		Config:    configPath,
		StartedAt: time.Now().UTC(),
	}
	if err := d.save(st); err != nil {
		cmd.Process.Kill()
		return fmt.Errorf("failed to record server state: %w", err)
	}

	fmt.Fprintf(out, "socialdl API server started in background (PID %d)\n", st.PID)
	fmt.Fprintf(out, "  Resolve: %s/api/download?url=<post url>\n", st.baseURL())
	fmt.Fprintf(out, "  Log:     %s\n", d.logPath())
	fmt.Fprintf(out, "\nUse 'socialdl serve stop' to stop it\n")
	return nil
}

func stopDaemon(d daemonFiles, out io.Writer) error {
	st, alive, stale := d.running()
	if !alive {
		if stale {
			fmt.Fprintln(out, "API server was not running (stale state removed)")
			return nil
		}
		return errors.New("API server is not running")
	}

	process, err := os.FindProcess(st.PID)
	if err != nil {
		d.clear()
		return fmt.Errorf("API server process %d not found", st.PID)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		d.clear()
		return fmt.Errorf("failed to stop API server: %w", err)
	}

	deadline := time.Now().Add(daemonStopWait)
	for processExists(st.PID) {
		if time.Now().After(deadline) {
			return fmt.Errorf("API server (PID %d) still draining requests after %s", st.PID, daemonStopWait)
		}
		time.Sleep(100 * time.Millisecond)
	}

	d.clear()
	fmt.Fprintf(out, "API server on port %d stopped\n", st.Port)
	return nil
}

func daemonStatus(d daemonFiles, out io.Writer) error {
	st, alive, stale := d.running()
	switch {
	case stale:
		fmt.Fprintln(out, "API server is not running (stale state removed)")
		return nil
	case !alive:
		fmt.Fprintln(out, "API server is not running")
		return nil
	}

	health := "not responding"
	if probeHealth(st.baseURL()) {
		health = "healthy"
	}

	fmt.Fprintf(out, "API server is running (PID %d)\n", st.PID)
	fmt.Fprintf(out, "  URL:    %s\n", st.baseURL())
	fmt.Fprintf(out, "  Health: %s\n", health)
	fmt.Fprintf(out, "  Uptime: %s\n", time.Since(st.StartedAt).Round(time.Second))
	if st.Config != "" {
		fmt.Fprintf(out, "  Config: %s\n", st.Config)
	}
	fmt.Fprintf(out, "  Log:    %s\n", d.logPath())
	return nil
}

// probeHealth reports whether GET /health answers 200
func probeHealth(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Unix; signal 0 checks liveness
	return process.Signal(syscall.Signal(0)) == nil
}
