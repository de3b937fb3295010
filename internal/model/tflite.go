package model

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/tphakala/go-tflite"

	"github.com/tphakala/birdnet-spec/internal/cpuspec"
	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
)

// TFLiteModel runs a TensorFlow Lite checkpoint one sample at a time
type TFLiteModel struct {
	Path         string
	Architecture Architecture

	interpreter *tflite.Interpreter
	model       *tflite.Model
	numClasses  int
	inputSize   int
	mu          sync.Mutex
}

// Load reads the checkpoint at path and verifies that its output size
// matches numClasses. threads <= 0 selects a count from the host CPU.
func Load(path string, arch Architecture, numClasses, threads int) (*TFLiteModel, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to restore checkpoint: %w", err)).
			Component("model").
			Category(errors.CategoryModelLoad).
			FileContext(path).
			Context("architecture", arch.String()).
			Build()
	}

	tfModel := tflite.NewModel(data)
	if tfModel == nil {
		return nil, errors.New(fmt.Errorf("cannot load TensorFlow Lite model")).
			Component("model").
			Category(errors.CategoryModelInit).
			FileContext(path).
			Context("model_size_kb", len(data)/1024).
			Build()
	}

	threads = determineThreadCount(threads)
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(tfModel, options)
	if interpreter == nil {
		tfModel.Delete()
		return nil, initError(fmt.Errorf("cannot create interpreter"), path)
	}
	m := &TFLiteModel{
		Path:         path,
		Architecture: arch,
		interpreter:  interpreter,
		model:        tfModel,
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		m.release()
		return nil, initError(fmt.Errorf("tensor allocation failed: %v", status), path)
	}

	input := interpreter.GetInputTensor(0)
	output := interpreter.GetOutputTensor(0)
	if input == nil || output == nil {
		m.release()
		return nil, initError(fmt.Errorf("model has no input or output tensor"), path)
	}
	m.inputSize = len(input.Float32s())
	m.numClasses = output.Dim(output.NumDims() - 1)
	if m.numClasses != numClasses {
		m.release()
		return nil, errors.Newf("class count mismatch: model outputs %d classes, expected %d", m.numClasses, numClasses).
			Component("model").
			Category(errors.CategoryValidation).
			FileContext(path).
			Context("model_classes", m.numClasses).
			Context("num_classes", numClasses).
			Build()
	}

	GetLogger().Info("checkpoint restored",
		logger.String("path", path),
		logger.String("architecture", arch.String()),
		logger.Int("classes", m.numClasses),
		logger.Int("input_size", m.inputSize),
		logger.Int("threads", threads),
		logger.Duration("elapsed", time.Since(start)))
	return m, nil
}

// NumClasses returns the output size of the model
func (m *TFLiteModel) NumClasses() int {
	return m.numClasses
}

// Predict runs the model on each input. An input of a third of the tensor
// size is replicated over three channels.
func (m *TFLiteModel) Predict(inputs [][]float32) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.interpreter == nil {
		return nil, errors.Newf("model is closed").
			Component("model").
			Category(errors.CategoryModelInit).
			Build()
	}

	out := make([][]float32, len(inputs))
	for i, sample := range inputs {
		tensor := m.interpreter.GetInputTensor(0).Float32s()
		if err := fillInput(tensor, sample); err != nil {
			return nil, err
		}
		if status := m.interpreter.Invoke(); status != tflite.OK {
			return nil, errors.New(fmt.Errorf("tensor invoke failed: %v", status)).
				Component("model").
				Category(errors.CategoryProcessing).
				Context("sample", i).
				Build()
		}
		logits := make([]float32, m.numClasses)
		copy(logits, m.interpreter.GetOutputTensor(0).Float32s())
		out[i] = logits
	}
	return out, nil
}

// fillInput copies sample into tensor, replicating it into interleaved
// channels when the tensor is a whole multiple of the sample.
func fillInput(tensor, sample []float32) error {
	switch {
	case len(sample) == len(tensor):
		copy(tensor, sample)
	case len(sample) > 0 && len(tensor)%len(sample) == 0:
		channels := len(tensor) / len(sample)
		for i, v := range sample {
			for c := range channels {
				tensor[i*channels+c] = v
			}
		}
	default:
		return errors.Newf("input has %d values, model expects %d", len(sample), len(tensor)).
			Component("model").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Close releases the interpreter
func (m *TFLiteModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
	return nil
}

func (m *TFLiteModel) release() {
	if m.interpreter != nil {
		m.interpreter.Delete()
		m.interpreter = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
}

// determineThreadCount limits configured threads to the CPU count and
// sizes automatic threads from the performance cores.
func determineThreadCount(configured int) int {
	cpus := runtime.NumCPU()
	if configured <= 0 {
		if optimal := cpuspec.GetCPUSpec().GetOptimalThreadCount(); optimal > 0 {
			return min(optimal, cpus)
		}
		return cpus
	}
	return min(configured, cpus)
}

func initError(err error, path string) error {
	return errors.New(err).
		Component("model").
		Category(errors.CategoryModelInit).
		FileContext(path).
		Build()
}
