package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
)

// LoadModelFile compiles every model defined in a single CUE file.
func LoadModelFile(path string) ([]ir.ModelSpec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileModels(v)
}

// LoadModelDir loads the CUE package in dir and compiles every model it
// defines. Files in the directory are unified, so a model may be split
// across files.
func LoadModelDir(dir string) ([]ir.ModelSpec, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("model directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model directory: not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileModels(v)
}

// LoadModels loads models from a CUE file or a directory.
func LoadModels(path string) ([]ir.ModelSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	if info.IsDir() {
		return LoadModelDir(path)
	}
	return LoadModelFile(path)
}

// FindModel selects a model by name. An empty name selects the only model
// and is an error when there are several.
func FindModel(specs []ir.ModelSpec, name string) (ir.ModelSpec, error) {
	if name == "" {
		if len(specs) == 1 {
			return specs[0], nil
		}
		return ir.ModelSpec{}, fmt.Errorf("%d models defined; select one by name", len(specs))
	}
	for _, s := range specs {
		if s.Name == name {
			return s, nil
		}
	}
	return ir.ModelSpec{}, fmt.Errorf("model %q not found", name)
}
