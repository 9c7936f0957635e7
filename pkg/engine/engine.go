// Package engine is the embedding facade a host Go program uses to run
// Scheme code: compile, evaluate, exchange bindings and values with the
// root environment, and call back into Scheme procedures. Grounded in
// spec.md §6's "Embedding API" paragraph, given concrete shape by
// SPEC_FULL.md §6.4.
package engine

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kristofer/scheme/pkg/builder"
	"github.com/kristofer/scheme/pkg/compiler"
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/primitives"
	"github.com/kristofer/scheme/pkg/reader"
	"github.com/kristofer/scheme/pkg/value"
	"github.com/kristofer/scheme/pkg/vm"
)

// Engine bundles a root environment, its VM, and the compiler used to
// turn source text into runnable Code, plus the logger the host
// configured it with.
type Engine struct {
	Root     *env.Environment
	VM       *vm.VM
	Compiler *compiler.Compiler
	Log      *slog.Logger
	Cfg      *Config
}

// New builds an Engine: a fresh root environment with the bootstrap
// primitive set installed, and — if cfg.PreludePath is set — a Scheme
// source prelude read, compiled, and evaluated against it before
// returning, mirroring spec.md §6's "optionally evaluates a standard
// prelude written in Scheme".
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	root := env.New(nil)
	primitives.Install(root)

	e := &Engine{
		Root:     root,
		VM:       vm.New(root),
		Compiler: compiler.New(),
		Log:      slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})),
		Cfg:      cfg,
	}

	if cfg.PreludePath != "" {
		src, err := os.ReadFile(cfg.PreludePath)
		if err != nil {
			return nil, fmt.Errorf("reading prelude %s: %w", cfg.PreludePath, err)
		}
		forms, err := reader.ParseAll(string(src), cfg.PreludePath)
		if err != nil {
			return nil, fmt.Errorf("parsing prelude %s: %w", cfg.PreludePath, err)
		}
		for _, form := range forms {
			code, err := e.Compiler.Compile(form, e.Root)
			if err != nil {
				return nil, fmt.Errorf("compiling prelude %s: %w", cfg.PreludePath, err)
			}
			if _, err := e.VM.Run(code); err != nil {
				return nil, fmt.Errorf("evaluating prelude %s: %w", cfg.PreludePath, err)
			}
		}
		e.Log.Debug("loaded prelude", "path", cfg.PreludePath, "forms", len(forms))
	}

	return e, nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Compile reads one datum from src and compiles it to runnable Code
// against the engine's root environment. Top-level defines in src
// therefore persist into Root across calls, the same way a REPL line
// does.
func (e *Engine) Compile(src string) (*builder.Code, error) {
	datum, err := reader.New(src, "<engine>").ParseDatum()
	if err != nil {
		return nil, err
	}
	return e.Compiler.Compile(datum, e.Root)
}

// Eval runs a previously compiled Code to completion and returns its
// value.
func (e *Engine) Eval(f *builder.Code) (value.Value, error) {
	return e.VM.Run(f)
}

// Define installs name directly into the root environment, for a host
// exposing a Go binding or constant to Scheme code.
func (e *Engine) Define(name string, v value.Value) {
	e.Root.Allocate(name, v)
}

// Get looks up name in the root environment, returning def if unbound.
func (e *Engine) Get(name string, def value.Value) value.Value {
	idx, ok := e.Root.Find(name)
	if !ok {
		return def
	}
	return e.Root.Read(idx)
}

// Apply calls a Scheme-side callable (Procedure/Primitive/Continuation)
// with args, the host-facing re-entry point spec.md §6 names.
func (e *Engine) Apply(callable value.Value, args []value.Value) (value.Value, error) {
	return e.VM.Apply(callable, args)
}
