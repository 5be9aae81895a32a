package transformplugin

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/databeam/databeam/pkg/result"
	"github.com/databeam/databeam/pkg/sample"
	"github.com/databeam/databeam/pkg/tree"
)

// Config controls the wazero runtime a Runner instantiates plugins in.
type Config struct {
	// Timeout bounds a single transform call. Defaults to 1s.
	Timeout time.Duration

	// MemoryLimitPages caps a plugin's linear memory, in 64KB pages.
	// Defaults to 16 pages (1MB) — plugins only ever handle a buffer's
	// worth of float64 samples, not arbitrary payloads.
	MemoryLimitPages uint32
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = time.Second
	}
	if out.MemoryLimitPages == 0 {
		out.MemoryLimitPages = 16
	}
	return &out
}

// Runner implements tree.TransformRunner by dispatching named transforms
// to loaded WASM modules.
type Runner struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	cfg     *Config
	plugins map[string]*plugin
}

type plugin struct {
	module    api.Module
	memory    api.Memory
	malloc    api.Function
	free      api.Function
	transform api.Function
}

// NewRunner creates a Runner with its own wazero runtime. cfg may be nil
// to take all defaults.
func NewRunner(ctx context.Context, cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cfg.withDefaults()

	runtimeConfig := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.MemoryLimitPages).
		WithCloseOnContextDone(true)

	return &Runner{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeConfig),
		cfg:     cfg,
		plugins: make(map[string]*plugin),
	}
}

// Register compiles and instantiates a plugin module under name,
// replacing any plugin previously registered under the same name. The
// module must export memory, malloc, free, and transform.
func (r *Runner) Register(ctx context.Context, name string, wasmBytes []byte) error {
	compiled, err := r.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("transformplugin: compile %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.plugins[name]; ok {
		_ = existing.module.Close(ctx)
	}

	modCfg := wazero.NewModuleConfig().WithName(moduleInstanceName(name, len(r.plugins)))
	mod, err := r.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return fmt.Errorf("transformplugin: instantiate %q: %w", name, err)
	}

	p := &plugin{module: mod}
	p.memory = mod.Memory()
	if p.memory == nil {
		_ = mod.Close(ctx)
		return fmt.Errorf("transformplugin: %q does not export memory", name)
	}
	if p.malloc = mod.ExportedFunction("malloc"); p.malloc == nil {
		_ = mod.Close(ctx)
		return fmt.Errorf("transformplugin: %q does not export malloc", name)
	}
	if p.free = mod.ExportedFunction("free"); p.free == nil {
		_ = mod.Close(ctx)
		return fmt.Errorf("transformplugin: %q does not export free", name)
	}
	if p.transform = mod.ExportedFunction("transform"); p.transform == nil {
		_ = mod.Close(ctx)
		return fmt.Errorf("transformplugin: %q does not export transform", name)
	}

	r.plugins[name] = p
	return nil
}

// moduleInstanceName disambiguates re-registrations of the same plugin
// name, since wazero requires unique module names within a runtime.
func moduleInstanceName(name string, generation int) string {
	return fmt.Sprintf("%s#%d", name, generation)
}

// Run implements tree.TransformRunner. It packs window's Numeric samples
// as a little-endian float64 array, invokes the named plugin's
// transform export, and wraps the single float64 it returns as a
// Numeric sample stamped with the last sample's timestamp.
func (r *Runner) Run(pluginName string, window []tree.BufferedSample) (*sample.Sample, error) {
	r.mu.Lock()
	p, ok := r.plugins[pluginName]
	r.mu.Unlock()
	if !ok {
		return nil, result.New(result.NotFound, fmt.Sprintf("transform plugin %q not registered", pluginName))
	}

	var vals []float64
	var ts float64
	for _, b := range window {
		if b.Type != sample.Numeric || math.IsNaN(b.NumVal) {
			continue
		}
		vals = append(vals, b.NumVal)
		ts = b.Timestamp
	}
	if len(vals) == 0 {
		return nil, result.New(result.Unavailable, "no numeric samples to transform")
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	out, err := r.call(ctx, p, packFloat64s(vals))
	if err != nil {
		return nil, result.New(result.Fault, err.Error())
	}
	if len(out) != 8 {
		return nil, result.New(result.Fault, fmt.Sprintf("transform plugin %q returned %d bytes, want 8", pluginName, len(out)))
	}

	value := math.Float64frombits(binary.LittleEndian.Uint64(out))
	return sample.NewNumeric(ts, value), nil
}

// call allocates input in the plugin's memory, invokes transform with
// the packed-pointer calling convention, reads back the result, and
// frees both buffers.
func (r *Runner) call(ctx context.Context, p *plugin, input []byte) ([]byte, error) {
	inputPtr, err := r.allocate(ctx, p, uint32(len(input)))
	if err != nil {
		return nil, fmt.Errorf("allocate input: %w", err)
	}
	defer r.deallocate(ctx, p, inputPtr)

	if !p.memory.Write(inputPtr, input) {
		return nil, fmt.Errorf("write input to plugin memory")
	}

	results, err := p.transform.Call(ctx, uint64(inputPtr), uint64(len(input)))
	if err != nil {
		return nil, fmt.Errorf("transform call: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("transform returned no results")
	}

	packed := results[0]
	outputPtr := uint32(packed >> 32)
	outputLen := uint32(packed & 0xFFFFFFFF)
	if outputLen == 0 {
		return nil, fmt.Errorf("transform returned empty output")
	}

	output, ok := p.memory.Read(outputPtr, outputLen)
	if !ok {
		return nil, fmt.Errorf("read output from plugin memory")
	}
	out := make([]byte, len(output))
	copy(out, output)
	r.deallocate(ctx, p, outputPtr)

	return out, nil
}

func (r *Runner) allocate(ctx context.Context, p *plugin, size uint32) (uint32, error) {
	results, err := p.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("malloc: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("malloc returned no results")
	}
	ptr := uint32(results[0])
	if ptr == 0 && size != 0 {
		return 0, fmt.Errorf("malloc returned null pointer")
	}
	return ptr, nil
}

func (r *Runner) deallocate(ctx context.Context, p *plugin, ptr uint32) {
	_, _ = p.free.Call(ctx, uint64(ptr))
}

func packFloat64s(vals []float64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Close tears down every registered plugin and the runtime itself.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plugins {
		_ = p.module.Close(ctx)
	}
	return r.runtime.Close(ctx)
}

var _ tree.TransformRunner = (*Runner)(nil)
