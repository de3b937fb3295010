package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/dataset"
	"github.com/tphakala/birdnet-spec/internal/datastore"
	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
	"github.com/tphakala/birdnet-spec/internal/metrics"
	"github.com/tphakala/birdnet-spec/internal/model"
	"github.com/tphakala/birdnet-spec/internal/summary"
)

const (
	// Seed is recorded with every run. Inference does not draw random numbers.
	Seed = 230

	// LogFileName is created inside the model directory
	LogFileName = "evaluate.log"

	// SummaryDir holds the scalar summaries inside the model directory
	SummaryDir = "summaries"

	// testEpoch matches the epoch the training scripts pass for test runs
	testEpoch = 1
)

// loadClassifier is replaced in tests
var loadClassifier = func(path string, arch model.Architecture, numClasses, threads int) (model.Classifier, error) {
	return model.Load(path, arch, numClasses, threads)
}

// MetricsFileName returns the name of the metrics file written for restoreFile
func MetricsFileName(restoreFile string) string {
	return fmt.Sprintf("metrics_test_%s.json", restoreFile)
}

// Run evaluates the checkpoint selected by settings on the configured split
// and writes metrics_test_<restore_file>.json into the model directory.
func Run(ctx context.Context, settings *conf.Settings) (metrics.Summary, error) {
	e := settings.Evaluate
	started := time.Now()

	params, err := conf.LoadParams(e.ModelDir)
	if err != nil {
		return nil, err
	}

	restore, err := useRunLogger(settings, e.ModelDir)
	if err != nil {
		return nil, err
	}
	defer restore()
	log := GetLogger()

	log.Info("Creating the dataset...")
	layout, err := dataset.ParseLayout(e.Layout)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Open(e.DataDir, e.Split, e.NumClasses, layout)
	if err != nil {
		return nil, err
	}
	loader, err := dataset.NewLoader(ds, params.BatchSize, params.NumWorkers)
	if err != nil {
		return nil, err
	}
	log.Info("- done.", logger.Int("samples", ds.Len()), logger.Int("batches", loader.NumBatches()))

	arch, err := model.ArchitectureFromID(params.Model)
	if err != nil {
		return nil, err
	}
	lossName, lossFn := metrics.SelectLoss(params.IsSingleLabel(), params.LossFunction())
	metricSet := metrics.MultiLabelMetrics()
	if params.IsSingleLabel() {
		metricSet = metrics.SingleLabelMetrics()
	}

	log.Info("Starting evaluation",
		logger.String("architecture", arch.String()),
		logger.String("loss", lossName),
		logger.Bool("single_label", params.IsSingleLabel()))

	clf, err := loadClassifier(conf.ModelPath(e.ModelDir, e.RestoreFile), arch, e.NumClasses, e.Threads)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := clf.Close(); err != nil {
			log.Warn("failed to close model", logger.Error(err))
		}
	}()

	sw, err := summary.New(filepath.Join(e.ModelDir, SummaryDir))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sw.Close(); err != nil {
			log.Warn("failed to close summary writer", logger.Error(err))
		}
	}()

	testMetrics, err := Evaluate(ctx, clf, lossFn, loader, metricSet, Options{
		Params:     params,
		NumClasses: e.NumClasses,
		Epoch:      testEpoch,
		Eva:        true,
		CMDir:      e.CMDir,
		Summary:    sw,
	})
	if err != nil {
		return nil, err
	}

	path := filepath.Join(e.ModelDir, MetricsFileName(e.RestoreFile))
	if err := saveMetrics(path, testMetrics); err != nil {
		return nil, err
	}
	log.Info("saved test metrics", logger.String("path", path))

	run := &datastore.EvaluationRun{
		ModelDir:     e.ModelDir,
		RestoreFile:  e.RestoreFile,
		Architecture: arch.String(),
		NumClasses:   e.NumClasses,
		Split:        e.Split,
		Seed:         Seed,
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	if err := recordRun(ctx, settings, run, testMetrics); err != nil {
		return nil, err
	}
	return testMetrics, nil
}

// recordRun stores the run when a datastore is configured
func recordRun(ctx context.Context, settings *conf.Settings, run *datastore.EvaluationRun, m metrics.Summary) error {
	store := datastore.New(settings)
	if store == nil {
		return nil
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			GetLogger().Warn("failed to close datastore", logger.Error(err))
		}
	}()

	if err := run.SetMetrics(m); err != nil {
		return errors.New(err).
			Component("evaluation").
			Category(errors.CategoryDatabase).
			Build()
	}
	if err := store.SaveEvaluationRun(ctx, run); err != nil {
		return err
	}
	GetLogger().Info("recorded evaluation run", logger.String("id", run.ID))
	return nil
}

// saveMetrics writes m as an indented JSON object
func saveMetrics(path string, m metrics.Summary) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return errors.New(err).
			Component("evaluation").
			Category(errors.CategoryProcessing).
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(err).
			Component("evaluation").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	return nil
}

// useRunLogger installs a global logger that also routes the evaluation
// module to <modelDir>/evaluate.log. The returned func restores the
// previous global logger.
func useRunLogger(settings *conf.Settings, modelDir string) (func(), error) {
	cfg := settings.Logging
	cfg.ModuleOutputs = maps.Clone(cfg.ModuleOutputs)
	if cfg.ModuleOutputs == nil {
		cfg.ModuleOutputs = make(map[string]logger.ModuleOutput)
	}
	cfg.ModuleOutputs[moduleName] = logger.ModuleOutput{
		Enabled:     true,
		FilePath:    filepath.Join(modelDir, LogFileName),
		ConsoleAlso: true,
	}

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, errors.New(err).
			Component("evaluation").
			Category(errors.CategoryConfiguration).
			Build()
	}
	prev := logger.SetGlobal(cl)
	return func() {
		logger.SetGlobal(prev)
		_ = cl.Close()
	}, nil
}
