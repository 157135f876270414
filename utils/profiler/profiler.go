// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package profiler captures rotating CPU, heap and mutex profiles of a
// running node.
package profiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	cpuFile   = "cpu.profile"
	heapFile  = "mem.profile"
	mutexFile = "lock.profile"

	dirPerms  = 0o750
	filePerms = 0o600
)

var (
	ErrInvalidConfig = errors.New("invalid profiler config")

	errCPURunning    = errors.New("cpu profiler already running")
	errCPUNotRunning = errors.New("cpu profiler not running")
)

// Config for the continuous profiler.
type Config struct {
	Dir         string        `json:"dir"`
	Freq        time.Duration `json:"freq"`
	MaxNumFiles int           `json:"maxNumFiles"`
}

func (c Config) Verify() error {
	switch {
	case c.Dir == "":
		return fmt.Errorf("%w: empty dir", ErrInvalidConfig)
	case c.Freq <= 0:
		return fmt.Errorf("%w: frequency %s", ErrInvalidConfig, c.Freq)
	case c.MaxNumFiles <= 0:
		return fmt.Errorf("%w: max files %d", ErrInvalidConfig, c.MaxNumFiles)
	}
	return nil
}

// Profiler writes one CPU profile per period and a heap and mutex snapshot
// at the end of each, keeping MaxNumFiles old copies of each.
type Profiler struct {
	cfg    Config
	cpu    *os.File
	closer chan struct{}
	once   sync.Once
}

func New(cfg Config) (*Profiler, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return &Profiler{
		cfg:    cfg,
		closer: make(chan struct{}),
	}, nil
}

// Dispatch profiles until Shutdown is called.
func (p *Profiler) Dispatch() error {
	t := time.NewTicker(p.cfg.Freq)
	defer t.Stop()

	for {
		if err := p.startCPU(); err != nil {
			return err
		}
		select {
		case <-p.closer:
			return p.snapshot()
		case <-t.C:
		}
		if err := p.snapshot(); err != nil {
			return err
		}
		if err := p.rotate(); err != nil {
			return err
		}
	}
}

// Shutdown stops Dispatch after it writes the current period's profiles.
func (p *Profiler) Shutdown() {
	p.once.Do(func() { close(p.closer) })
}

func (p *Profiler) path(name string) string {
	return filepath.Join(p.cfg.Dir, name)
}

func (p *Profiler) create(name string) (*os.File, error) {
	if err := os.MkdirAll(p.cfg.Dir, dirPerms); err != nil {
		return nil, err
	}
	return os.OpenFile(p.path(name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, filePerms)
}

func (p *Profiler) startCPU() error {
	if p.cpu != nil {
		return errCPURunning
	}
	f, err := p.create(cpuFile)
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	p.cpu = f
	return nil
}

func (p *Profiler) stopCPU() error {
	if p.cpu == nil {
		return errCPUNotRunning
	}
	pprof.StopCPUProfile()
	err := p.cpu.Close()
	p.cpu = nil
	return err
}

func (p *Profiler) writeHeap() error {
	f, err := p.create(heapFile)
	if err != nil {
		return err
	}
	defer f.Close()

	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

func (p *Profiler) writeMutex() error {
	f, err := p.create(mutexFile)
	if err != nil {
		return err
	}
	defer f.Close()

	profile := pprof.Lookup("mutex")
	if profile == nil {
		return errors.New("mutex profile not found")
	}
	return profile.WriteTo(f, 0)
}

func (p *Profiler) snapshot() error {
	var g errgroup.Group
	g.Go(p.stopCPU)
	g.Go(p.writeHeap)
	g.Go(p.writeMutex)
	return g.Wait()
}

func (p *Profiler) rotate() error {
	var g errgroup.Group
	for _, name := range []string{cpuFile, heapFile, mutexFile} {
		g.Go(func() error { return rotate(p.path(name), p.cfg.MaxNumFiles) })
	}
	return g.Wait()
}

// rotate shifts name.1 ... name.(n-1) up by one and moves name to name.1.
func rotate(name string, maxNumFiles int) error {
	for i := maxNumFiles - 1; i > 0; i-- {
		if err := renameIfExists(fmt.Sprintf("%s.%d", name, i), fmt.Sprintf("%s.%d", name, i+1)); err != nil {
			return err
		}
	}
	return renameIfExists(name, name+".1")
}

func renameIfExists(src, dst string) error {
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	return os.Rename(src, dst)
}
