package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/tvwenger/bayes-zeeman-hi/internal/compiler"
	"github.com/tvwenger/bayes-zeeman-hi/internal/ir"
	"github.com/tvwenger/bayes-zeeman-hi/internal/model"
)

// LoadResult contains the models compiled from a file or directory.
type LoadResult struct {
	Models    []ir.ModelSpec
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred while loading models or data.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the source line of the error, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// IsCompileFailure reports whether the error comes from model content
// rather than from locating files.
func (e *LoadError) IsCompileFailure() bool {
	return strings.HasPrefix(e.Code, "E1")
}

// LoadModels compiles every model in a CUE file or directory.
func LoadModels(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model path: %v", err)}
	}

	fileCount := 1
	if info.IsDir() {
		files, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		fileCount = len(files)
	}

	specs, err := compiler.LoadModels(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Models: specs, FileCount: fileCount}, nil
}

// LoadModel compiles the models at path and selects one by name.
// An empty name selects the only model.
func LoadModel(path, name string) (ir.ModelSpec, error) {
	result, err := LoadModels(path)
	if err != nil {
		return ir.ModelSpec{}, err
	}
	spec, err := compiler.FindModel(result.Models, name)
	if err != nil {
		return ir.ModelSpec{}, &LoadError{Code: ErrCodeModelNotFound, Message: err.Error()}
	}
	return spec, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Models are
// loaded as one CUE package, so subdirectories are not part of it.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// LoadData reads an observed spectrum from a YAML file keyed by product
// ("I", "V"). Keys other than I and V are kept and ignored by the model.
func LoadData(path string) (ir.SpecData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("data file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading data file: %v", err)}
	}

	var data ir.SpecData
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, &LoadError{Code: ErrCodeDataInvalid, Message: fmt.Sprintf("parsing data file: %v", err)}
	}
	if errs := model.ValidateData(data); len(errs) > 0 {
		return nil, &LoadError{Code: ErrCodeDataInvalid, Message: errors.Join(errs...).Error()}
	}
	return data, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		// Keep the "model <name>: " context the compiler wraps around it.
		prefix := ""
		if p, ok := strings.CutSuffix(err.Error(), compileErr.Error()); ok {
			prefix = p
		}
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: prefix + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: err.Error(),
	}
}

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No CUE files found
	ErrCodeLoadFailed    = "E004" // CUE or file load failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeModelNotFound = "E006" // Named model not defined
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeDataInvalid   = "E008" // Observed spectrum rejected
	ErrCodeScenario      = "E009" // Scenario file rejected
	ErrCodeDatabase      = "E010" // Store open/read/write failed
	ErrCodeRunNotFound   = "E011" // No such run in the store
	ErrCodeDataMismatch  = "E012" // Run recorded against other data

	// Model compilation errors
	ErrCodeSchema        = "E101" // CUE syntax or schema violation
	ErrCodeMissingField  = "E102" // clouds or tbg absent
	ErrCodeNoModels      = "E103" // no model definitions
	ErrCodeInvalidBounds = "E104" // bounds not a [lo, hi] pair
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeSchema
	case "clouds", "tbg":
		return ErrCodeMissingField
	case "model":
		return ErrCodeNoModels
	case "priors.velocity", "priors.bparallel":
		return ErrCodeInvalidBounds
	default:
		return ErrCodeGeneric
	}
}
