package generator

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrDevEnvNotFound is returned when Visual Studio cannot be located and shell execute is off.
var ErrDevEnvNotFound = errors.New("could not find devenv.exe; set --devenv or enable --use-shell-execute")

// SolutionLauncher opens a generated solution.
type SolutionLauncher interface {
	Launch(solutionPath string) error
}

// Launcher starts Visual Studio for a solution without waiting for it to exit.
type Launcher struct {
	// DevEnvFullPath takes precedence over the environment
	DevEnvFullPath string

	// UseShellExecute opens the solution with the OS handler when devenv is not found
	UseShellExecute bool

	getenv func(string) string
	exists func(string) bool
	start  func(name string, args ...string) error
	goos   string
}

// NewLauncher creates a launcher using the process environment.
func NewLauncher(devEnvFullPath string, useShellExecute bool) *Launcher {
	return &Launcher{
		DevEnvFullPath:  devEnvFullPath,
		UseShellExecute: useShellExecute,
		getenv:          os.Getenv,
		exists:          fileExists,
		start:           startDetached,
		goos:            runtime.GOOS,
	}
}

// FindDevEnv returns the devenv.exe to launch: DevEnvFullPath, then
// %DevEnvDir%\devenv.exe, then %VSINSTALLDIR%\Common7\IDE\devenv.exe.
func (l *Launcher) FindDevEnv() (string, bool) {
	if l.DevEnvFullPath != "" {
		return l.DevEnvFullPath, l.exists(l.DevEnvFullPath)
	}
	if dir := l.getenv("DevEnvDir"); dir != "" {
		if path := filepath.Join(dir, "devenv.exe"); l.exists(path) {
			return path, true
		}
	}
	if dir := l.getenv("VSINSTALLDIR"); dir != "" {
		if path := filepath.Join(dir, "Common7", "IDE", "devenv.exe"); l.exists(path) {
			return path, true
		}
	}
	return "", false
}

// Launch opens solutionPath.
func (l *Launcher) Launch(solutionPath string) error {
	if devenv, ok := l.FindDevEnv(); ok {
		if err := l.start(devenv, solutionPath); err != nil {
			return fmt.Errorf("start %s: %w", devenv, err)
		}
		return nil
	}
	if !l.UseShellExecute {
		if l.DevEnvFullPath != "" {
			return fmt.Errorf("devenv not found at %s: %w", l.DevEnvFullPath, ErrDevEnvNotFound)
		}
		return ErrDevEnvNotFound
	}

	name, args := shellOpenCommand(l.goos, solutionPath)
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("open %s: %w", solutionPath, err)
	}
	return nil
}

// shellOpenCommand returns the command that opens path with its registered handler.
func shellOpenCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	case "darwin":
		return "open", []string{path}
	}
	return "xdg-open", []string{path}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
