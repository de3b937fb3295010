// Package dataset loads labelled spectrogram images for evaluation.
//
// A split lives in <data_dir>/<split>/ and uses one of two layouts. The
// manifest layout has a labels.csv with rows of filename,label[;label...]
// next to the images. The folder layout keeps one directory per class.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/birdnet-spec/internal/errors"
	"github.com/tphakala/birdnet-spec/internal/logger"
)

// Layout selects how labels are read
type Layout string

const (
	LayoutAuto     Layout = "auto"
	LayoutManifest Layout = "manifest"
	LayoutFolders  Layout = "folders"
)

const (
	manifestFile = "labels.csv"
	classesFile  = "classes.txt"
	labelSep     = ";"
)

// Item is one labelled image
type Item struct {
	Path   string
	Labels []int
}

// Dataset is an ordered list of labelled images
type Dataset struct {
	Dir        string
	NumClasses int
	Items      []Item
}

// Len returns the number of images
func (d *Dataset) Len() int {
	return len(d.Items)
}

// ParseLayout parses a configuration value, empty means auto
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(s)) {
	case "", LayoutAuto:
		return LayoutAuto, nil
	case LayoutManifest:
		return LayoutManifest, nil
	case LayoutFolders:
		return LayoutFolders, nil
	}
	return "", errors.Newf("unknown dataset layout %q", s).
		Component("dataset").
		Category(errors.CategoryValidation).
		Build()
}

// Open reads the split directory dataDir/split. With LayoutAuto the
// manifest layout is used when labels.csv exists.
func Open(dataDir, split string, numClasses int, layout Layout) (*Dataset, error) {
	if numClasses <= 0 {
		return nil, errors.Newf("number of classes must be positive, got %d", numClasses).
			Component("dataset").
			Category(errors.CategoryValidation).
			Build()
	}

	dir := filepath.Join(dataDir, split)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryNotFound).
			FileContext(dir).
			Build()
	}
	if !info.IsDir() {
		return nil, errors.Newf("dataset split %s is not a directory", dir).
			Component("dataset").
			Category(errors.CategoryValidation).
			Build()
	}

	if layout == LayoutAuto {
		layout = LayoutFolders
		if _, err := os.Stat(filepath.Join(dir, manifestFile)); err == nil {
			layout = LayoutManifest
		}
	}

	var items []Item
	switch layout {
	case LayoutManifest:
		items, err = readManifest(dir)
	case LayoutFolders:
		items, err = readFolders(dir)
	default:
		_, err = ParseLayout(string(layout))
	}
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		for _, label := range item.Labels {
			if label < 0 || label >= numClasses {
				return nil, errors.Newf("label %d of %s is outside [0, %d)", label, filepath.Base(item.Path), numClasses).
					Component("dataset").
					Category(errors.CategoryValidation).
					FileContext(item.Path).
					Build()
			}
		}
	}

	GetLogger().Info("dataset opened",
		logger.String("dir", dir),
		logger.String("layout", string(layout)),
		logger.Int("images", len(items)),
		logger.Int("classes", numClasses))
	return &Dataset{Dir: dir, NumClasses: numClasses, Items: items}, nil
}

// readManifest parses labels.csv. A first row whose label column is not
// numeric is treated as a header.
func readManifest(dir string) ([]Item, error) {
	path := filepath.Join(dir, manifestFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, manifestError(err, path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	var items []Item
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, manifestError(err, path)
		}
		labels, err := parseLabels(record[1])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, manifestError(fmt.Errorf("line %d: %w", line, err), path)
		}
		items = append(items, Item{Path: filepath.Join(dir, record[0]), Labels: labels})
	}
	return items, nil
}

func parseLabels(field string) ([]int, error) {
	parts := strings.Split(field, labelSep)
	labels := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idx, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid label %q", p)
		}
		labels = append(labels, idx)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels")
	}
	return labels, nil
}

func manifestError(err error, path string) error {
	return errors.New(err).
		Component("dataset").
		Category(errors.CategoryFileParsing).
		FileContext(path).
		Build()
}

// readFolders maps class directories to label indices. Numeric directory
// names are used as indices. Other names are looked up in classes.txt when
// present, or take their position in the sorted directory list.
func readFolders(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileIO).
			FileContext(dir).
			Build()
	}

	var classDirs []string
	for _, e := range entries {
		if e.IsDir() {
			classDirs = append(classDirs, e.Name())
		}
	}
	slices.Sort(classDirs)

	classIndex, err := readClassNames(filepath.Join(dir, classesFile))
	if err != nil {
		return nil, err
	}
	if classIndex == nil {
		classIndex = make(map[string]int, len(classDirs))
		for i, name := range classDirs {
			classIndex[name] = i
		}
	}

	var items []Item
	for _, name := range classDirs {
		label, err := strconv.Atoi(name)
		if err != nil {
			idx, ok := classIndex[name]
			if !ok {
				return nil, errors.Newf("class %q is not listed in %s", name, classesFile).
					Component("dataset").
					Category(errors.CategoryValidation).
					Build()
			}
			label = idx
		}

		files, err := os.ReadDir(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.New(err).
				Component("dataset").
				Category(errors.CategoryFileIO).
				FileContext(filepath.Join(dir, name)).
				Build()
		}
		for _, f := range files {
			if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".png") {
				continue
			}
			items = append(items, Item{Path: filepath.Join(dir, name, f.Name()), Labels: []int{label}})
		}
	}
	return items, nil
}

// readClassNames returns nil when path does not exist
func readClassNames(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, manifestError(err, path)
	}
	defer func() { _ = f.Close() }()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, manifestError(err, path)
	}
	slices.Sort(names)

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	return index, nil
}
