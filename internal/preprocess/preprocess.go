// Package preprocess turns audio recordings into bird and noise spectrogram images.
package preprocess

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/birdnet-spec/internal/conf"
	"github.com/tphakala/birdnet-spec/internal/cpuspec"
	"github.com/tphakala/birdnet-spec/internal/datastore"
	"github.com/tphakala/birdnet-spec/internal/detector"
	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
	"github.com/tphakala/birdnet-spec/internal/myaudio"
	"github.com/tphakala/birdnet-spec/internal/spectrogram"
)

// Output subdirectories
const (
	BirdDir  = "bird"
	NoiseDir = "noise"
)

// Options controls a preprocessing run
type Options struct {
	OutputDir string
	Split     myaudio.SplitOptions
	Mel       spectrogram.MelConfig
	Image     spectrogram.ImageOptions
	Threshold float64
	SaveNoise bool
	Workers   int       // concurrent files, <= 0 sizes the pool from the CPU
	Progress  io.Writer // progress bar destination, nil disables it
}

// OptionsFromSettings builds Options from the spec.* and detector.* settings
func OptionsFromSettings(settings *conf.Settings) (Options, error) {
	scale, err := spectrogram.ParseImageScale(settings.Spec.ImageScale)
	if err != nil {
		return Options{}, err
	}
	s := settings.Spec
	return Options{
		OutputDir: s.Output,
		Split:     myaudio.SplitOptions{Seconds: s.Seconds, Overlap: s.Overlap, MinLen: s.MinLen},
		Mel: spectrogram.MelConfig{
			SampleRate: s.SampleRate,
			NFFT:       s.NFFT,
			HopLength:  s.HopLength,
			NMels:      s.NMels,
			FMin:       s.FMin,
			FMax:       s.FMax,
			Power:      s.Power,
		},
		Image:     spectrogram.ImageOptions{Scale: scale, Power: s.Power},
		Threshold: settings.Detector.Threshold,
		SaveNoise: s.SaveNoise,
		Workers:   s.Workers,
	}, nil
}

// Result summarises a preprocessing run
type Result struct {
	Files    int
	Segments int
	Birds    int
	Noise    int
	Failed   int // files skipped because they could not be decoded
	Elapsed  time.Duration
}

// Processor runs the extraction pipeline over a set of files
type Processor struct {
	opts  Options
	store datastore.Interface
	log   logger.Logger
}

// New creates a Processor. store may be nil to skip recording decisions.
func New(opts Options, store datastore.Interface) *Processor {
	return &Processor{
		opts:  opts,
		store: store,
		log:   GetLogger(),
	}
}

// Run processes input, which is an audio file or a directory searched
// recursively for supported audio files. In directory mode a file that
// cannot be decoded is logged, counted in Result.Failed and skipped. Any
// other error cancels the remaining work and is returned.
func (p *Processor) Run(ctx context.Context, input string) (Result, error) {
	start := time.Now()

	files, err := FindAudioFiles(input)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{}, errors.Newf("no audio files found in %s", input).
			Component("preprocess").
			Category(errors.CategoryNotFound).
			FileContext(input).
			Build()
	}
	dirMode := len(files) != 1 || files[0] != input
	for _, dir := range []string{BirdDir, NoiseDir} {
		if err := os.MkdirAll(filepath.Join(p.opts.OutputDir, dir), 0o755); err != nil {
			return Result{}, errors.New(err).
				Component("preprocess").
				Category(errors.CategoryFileIO).
				FileContext(p.opts.OutputDir).
				Build()
		}
	}

	workers := min(cpuspec.GetCPUSpec().WorkerCount(p.opts.Workers), len(files))
	p.log.Info("starting spectrogram extraction",
		logger.String("input", input),
		logger.Int("files", len(files)),
		logger.Int("workers", workers))

	bar := p.newProgressBar(len(files))

	var (
		mu    sync.Mutex
		total = Result{Files: len(files)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.processFile(gctx, file, imageStem(input, file))
			var decodeErr *decodeError
			switch {
			case err == nil:
			case dirMode && errors.As(err, &decodeErr) && gctx.Err() == nil:
				p.log.Warn("skipping unreadable audio file",
					logger.String("file", file),
					logger.Error(err))
				res = Result{Failed: 1}
			default:
				return err
			}
			mu.Lock()
			total.Segments += res.Segments
			total.Birds += res.Birds
			total.Noise += res.Noise
			total.Failed += res.Failed
			mu.Unlock()
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	total.Elapsed = time.Since(start)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = errors.Join(ctx.Err(), err)
		}
		return total, err
	}
	if total.Failed == total.Files {
		return total, errors.Newf("none of the %d audio files in %s could be decoded", total.Files, input).
			Component("preprocess").
			Category(errors.CategoryAudio).
			FileContext(input).
			Build()
	}

	p.log.Info("spectrogram extraction finished",
		logger.Int("files", total.Files),
		logger.Int("segments", total.Segments),
		logger.Int("bird", total.Birds),
		logger.Int("noise", total.Noise),
		logger.Int("failed", total.Failed),
		logger.Duration("elapsed", total.Elapsed))
	return total, nil
}

// decodeError marks a file whose audio could not be turned into spectrograms
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// ProcessFile extracts, classifies and writes the chunk images of one file.
// Images are named after the file name without extension.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Result, error) {
	return p.processFile(ctx, path, imageStem(path, path))
}

func (p *Processor) processFile(ctx context.Context, path, stem string) (Result, error) {
	segments, err := spectrogram.GetMultiSpec(ctx, path, p.opts.Split, p.opts.Mel)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, err
		}
		return Result{}, &decodeError{err: err}
	}

	res := Result{Files: 1, Segments: len(segments)}
	records := make([]datastore.Segment, 0, len(segments))

	for _, seg := range segments {
		spectrogram.NormalizeMax(seg.Spec)
		decision := detector.Classify(seg.Spec, p.opts.Threshold)

		dir := NoiseDir
		if decision.Bird {
			dir = BirdDir
			res.Birds++
		} else {
			res.Noise++
		}

		var imagePath string
		if decision.Bird || p.opts.SaveNoise {
			imagePath = filepath.Join(p.opts.OutputDir, dir, fmt.Sprintf("%s_%d.png", stem, seg.Index))
			if err := spectrogram.SavePNG(imagePath, seg.Spec, p.opts.Image); err != nil {
				return Result{}, err
			}
		}

		p.log.Debug("segment classified",
			logger.String("file", filepath.Base(path)),
			logger.Int("chunk", seg.Index),
			logger.Bool("bird", decision.Bird),
			logger.Int("rthresh", decision.RThresh))

		records = append(records, datastore.Segment{
			File:       path,
			ChunkIndex: seg.Index,
			Start:      seg.Start,
			Bird:       decision.Bird,
			RThresh:    decision.RThresh,
			ImagePath:  imagePath,
		})
	}

	if p.store != nil {
		if err := p.store.SaveSegments(ctx, records); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// imageStem names the images of path. Files below a directory input use
// their relative path with separators replaced by underscores, so equal
// file names in different subdirectories do not collide.
func imageStem(input, path string) string {
	name := filepath.Base(path)
	if rel, err := filepath.Rel(input, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		name = strings.ReplaceAll(rel, string(filepath.Separator), "_")
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (p *Processor) newProgressBar(total int) *progressbar.ProgressBar {
	if p.opts.Progress == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.opts.Progress),
		progressbar.OptionSetDescription("Extracting spectrograms"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
	)
}

// FindAudioFiles returns input when it is a supported audio file, or every
// supported audio file below input when it is a directory, sorted by path.
func FindAudioFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, errors.New(err).
			Component("preprocess").
			Category(errors.CategoryFileIO).
			FileContext(input).
			Build()
	}
	if !info.IsDir() {
		if !myaudio.IsSupported(input) {
			return nil, errors.Newf("unsupported audio file %s", filepath.Base(input)).
				Component("preprocess").
				Category(errors.CategoryValidation).
				FileContext(input).
				Build()
		}
		return []string{input}, nil
	}

	var files []string
	err = filepath.WalkDir(input, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && myaudio.IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("preprocess").
			Category(errors.CategoryFileIO).
			FileContext(input).
			Build()
	}
	slices.Sort(files)
	return files, nil
}
