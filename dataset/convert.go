// Package dataset converts directory-based object detection datasets between
// annotation formats.
//
// The source layout is one directory per split (train, valid, test), each
// holding an images directory and a COCO annotation document. Only the train
// split is mandatory. A conversion either succeeds as a whole or fails; the
// source tree is never modified.
package dataset

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/KhanhRomVN/termi-tool/applog"
)

var (
	// ErrMissingTrain reports a source tree without the mandatory train split.
	ErrMissingTrain = errors.New("source dataset has no train split")
	// ErrMissingImages reports a split directory without an images directory.
	ErrMissingImages = errors.New("split has no images directory")
)

// splitNames lists the known splits in conversion order. Only the first one
// is mandatory.
var splitNames = []string{"train", "valid", "test"}

// outDirName is the directory created under the destination root.
const outDirName = "yolo_dataset"

// SplitStats summarizes one converted split.
type SplitStats struct {
	Split   string
	Images  int
	Objects int
}

// Report summarizes a completed conversion run.
type Report struct {
	RunID    string
	OutDir   string
	Classes  int
	Splits   []SplitStats
	Duration time.Duration
}

// newRunID returns a ULID for tagging a conversion run.
func newRunID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "unknown"
	}
	return id.String()
}

// Convert converts the COCO dataset tree rooted at srcRoot to the YOLO layout
// under dstRoot/yolo_dataset.
//
// The class indices are derived from the train split's categories and applied
// to every split, so label files agree across splits. The destination is
// created if absent. Any validation or write error fails the whole run.
func Convert(srcRoot, dstRoot string) (*Report, error) {
	start := time.Now()
	srcRoot = filepath.Clean(srcRoot)
	outDir := filepath.Join(filepath.Clean(dstRoot), outDirName)

	report := &Report{
		RunID:  newRunID(),
		OutDir: outDir,
	}

	trainDir := filepath.Join(srcRoot, splitNames[0])
	if info, err := os.Stat(trainDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrMissingTrain, trainDir)
	}

	// The train split fixes the class indices for the entire dataset.
	trainAnnPath, err := FindAnnotationFile(trainDir)
	if err != nil {
		return nil, err
	}
	trainDS, err := FromCOCO(trainAnnPath)
	if err != nil {
		return nil, err
	}
	classes := BuildClassMap(trainDS.Categories)
	report.Classes = classes.Len()

	applog.Info(applog.Fields{
		"run_id":  report.RunID,
		"source":  srcRoot,
		"classes": classes.Len(),
	}, "starting dataset conversion")

	var converted []string
	for _, split := range splitNames {
		splitDir := filepath.Join(srcRoot, split)
		info, err := os.Stat(splitDir)
		if err != nil || !info.IsDir() {
			if split == splitNames[0] {
				return nil, fmt.Errorf("%w: %q", ErrMissingTrain, splitDir)
			}
			continue // Optional split not present.
		}

		ds := trainDS
		if split != splitNames[0] {
			annPath, err := FindAnnotationFile(splitDir)
			if err != nil {
				return nil, err
			}
			if ds, err = FromCOCO(annPath); err != nil {
				return nil, err
			}
		}

		stats, err := convertSplit(ds, classes, splitDir, filepath.Join(outDir, split))
		if err != nil {
			return nil, fmt.Errorf("split %q: %w", split, err)
		}
		stats.Split = split

		report.Splits = append(report.Splits, stats)
		converted = append(converted, split)

		applog.Info(applog.Fields{
			"run_id":  report.RunID,
			"split":   split,
			"images":  stats.Images,
			"objects": stats.Objects,
		}, "converted split")
	}

	if err := WriteClassNames(filepath.Join(outDir, "classes.txt"), classes); err != nil {
		return nil, err
	}
	if err := WriteDataYAML(filepath.Join(outDir, "data.yaml"), converted, classes); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)

	applog.Info(applog.Fields{
		"run_id":   report.RunID,
		"splits":   len(report.Splits),
		"out_dir":  outDir,
		"duration": report.Duration.String(),
	}, "dataset conversion finished")

	return report, nil
}

// convertSplit validates and converts a single split directory.
func convertSplit(ds *COCODataset, classes ClassMap, splitDir, outSplitDir string) (SplitStats, error) {
	imagesDir := filepath.Join(splitDir, "images")
	if info, err := os.Stat(imagesDir); err != nil || !info.IsDir() {
		return SplitStats{}, fmt.Errorf("%w: %q", ErrMissingImages, imagesDir)
	}

	if err := ds.Validate(imagesDir); err != nil {
		return SplitStats{}, err
	}

	data, err := ds.toAnnotated(classes)
	if err != nil {
		return SplitStats{}, err
	}

	outImagesDir := filepath.Join(outSplitDir, "images")
	outLabelsDir := filepath.Join(outSplitDir, "labels")
	for _, dir := range []string{outImagesDir, outLabelsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return SplitStats{}, fmt.Errorf("cannot create directory %q: %v", dir, err)
		}
	}

	if err := WriteYOLOLabels(outLabelsDir, data); err != nil {
		return SplitStats{}, err
	}

	stats := SplitStats{Images: len(data)}
	for _, fileData := range data {
		stats.Objects += len(fileData.Annotations)
		src := filepath.Join(imagesDir, fileData.FileName)
		if err := copyFile(src, filepath.Join(outImagesDir, fileData.FileName)); err != nil {
			return SplitStats{}, err
		}
	}

	return stats, nil
}
