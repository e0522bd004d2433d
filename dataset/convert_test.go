package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readLabelLines returns the non-empty lines of a label file.
func readLabelLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// parseLabelLine parses "<class> <cx> <cy> <w> <h>".
func parseLabelLine(t *testing.T, line string) (class int, vals [4]float64) {
	t.Helper()
	fields := strings.Fields(line)
	require.Len(t, fields, 5, "label line %q must have 5 fields", line)

	class, err := strconv.Atoi(fields[0])
	require.NoError(t, err)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		require.NoError(t, err)
		vals[i] = v
	}
	return class, vals
}

func TestConvertTrainOnly(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTrainSplit(t, src)

	report, err := Convert(src, dst)
	require.NoError(t, err)

	outDir := filepath.Join(dst, "yolo_dataset")
	assert.Equal(t, outDir, report.OutDir)
	assert.Equal(t, 2, report.Classes)
	assert.Len(t, report.RunID, 26)
	require.Len(t, report.Splits, 1)
	assert.Equal(t, "train", report.Splits[0].Split)
	assert.Equal(t, 2, report.Splits[0].Images)
	assert.Equal(t, 2, report.Splits[0].Objects)

	t.Run("labels", func(t *testing.T) {
		lines := readLabelLines(t, filepath.Join(outDir, "train", "labels", "img_a.txt"))
		require.Len(t, lines, 2)

		class, vals := parseLabelLine(t, lines[0])
		assert.Equal(t, 1, class) // Category 7 (car) sorts after 3 (person).
		assert.InDelta(t, 0.3125, vals[0], 1e-6)
		assert.InDelta(t, 200.0/480.0, vals[1], 1e-6)
		assert.InDelta(t, 0.3125, vals[2], 1e-6)
		assert.InDelta(t, 160.0/480.0, vals[3], 1e-6)

		class, vals = parseLabelLine(t, lines[1])
		assert.Equal(t, 0, class)
		assert.InDelta(t, 0.05, vals[0], 1e-6)
		assert.InDelta(t, 0.05, vals[1], 1e-6)
		assert.InDelta(t, 0.1, vals[2], 1e-6)
		assert.InDelta(t, 0.1, vals[3], 1e-6)

		for _, line := range lines {
			_, vals := parseLabelLine(t, line)
			for _, v := range vals {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		}
	})

	t.Run("round trip", func(t *testing.T) {
		// Denormalizing the first label must reproduce the source box.
		lines := readLabelLines(t, filepath.Join(outDir, "train", "labels", "img_a.txt"))
		_, vals := parseLabelLine(t, lines[0])

		const w, h = 640.0, 480.0
		xMin := (vals[0] - vals[2]/2) * w
		yMin := (vals[1] - vals[3]/2) * h
		assert.InDelta(t, 100.0, xMin, 1e-2)
		assert.InDelta(t, 120.0, yMin, 1e-2)
		assert.InDelta(t, 200.0, vals[2]*w, 1e-2)
		assert.InDelta(t, 160.0, vals[3]*h, 1e-2)
	})

	t.Run("empty label file for unannotated image", func(t *testing.T) {
		lines := readLabelLines(t, filepath.Join(outDir, "train", "labels", "img_b.txt"))
		assert.Empty(t, lines)
	})

	t.Run("images copied", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(outDir, "train", "images", "img_a.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "fake jpeg data a", string(data))

		// The source tree is untouched.
		_, err = os.Stat(filepath.Join(src, "train", "images", "img_a.jpg"))
		assert.NoError(t, err)
	})

	t.Run("classes file", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(outDir, "classes.txt"))
		require.NoError(t, err)
		assert.Equal(t, "person\ncar\n", string(data))
	})

	t.Run("data yaml", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(outDir, "data.yaml"))
		require.NoError(t, err)
		content := string(data)
		assert.Contains(t, content, "train: "+filepath.Join("train", "images"))
		assert.Contains(t, content, "nc: 2")
		assert.Contains(t, content, "person")
		assert.NotContains(t, content, "valid:")
	})

	t.Run("no output for absent splits", func(t *testing.T) {
		_, err := os.Stat(filepath.Join(outDir, "valid"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(outDir, "test"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestConvertClassIndicesStableAcrossSplits(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTrainSplit(t, src)
	writeSplit(t, src, "valid", validDataset(), map[string][]byte{
		"val_a.jpg": []byte("fake jpeg data v"),
	})

	report, err := Convert(src, dst)
	require.NoError(t, err)
	require.Len(t, report.Splits, 2)

	outDir := filepath.Join(dst, "yolo_dataset")
	lines := readLabelLines(t, filepath.Join(outDir, "valid", "labels", "val_a.txt"))
	require.Len(t, lines, 1)

	// Category 3 is person, index 0, regardless of the valid split's own
	// category ordering.
	class, _ := parseLabelLine(t, lines[0])
	assert.Equal(t, 0, class)

	data, err := os.ReadFile(filepath.Join(outDir, "data.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "valid: "+filepath.Join("valid", "images"))
}

func TestConvertMissingTrain(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeSplit(t, src, "valid", validDataset(), map[string][]byte{
		"val_a.jpg": []byte("v"),
	})

	_, err := Convert(src, dst)
	require.ErrorIs(t, err, ErrMissingTrain)

	_, statErr := os.Stat(filepath.Join(dst, "yolo_dataset"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertMissingImagesDir(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTrainSplit(t, src)
	require.NoError(t, os.RemoveAll(filepath.Join(src, "train", "images")))

	_, err := Convert(src, dst)
	require.ErrorIs(t, err, ErrMissingImages)
}

func TestConvertMissingReferencedImage(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTrainSplit(t, src)
	require.NoError(t, os.Remove(filepath.Join(src, "train", "images", "img_a.jpg")))

	_, err := Convert(src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "img_a.jpg")
	assert.Contains(t, err.Error(), "missing")

	// Validation fails before anything is written.
	_, statErr := os.Stat(filepath.Join(dst, "yolo_dataset"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertMalformedAnnotations(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTrainSplit(t, src)
	path := filepath.Join(src, "train", "annotations.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Convert(src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse COCO input")
}

func TestConvertUnknownCategoryInValidSplit(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTrainSplit(t, src)

	val := validDataset()
	val.Annotations[0].CategoryID = 99
	writeSplit(t, src, "valid", val, map[string][]byte{
		"val_a.jpg": []byte("v"),
	})

	_, err := Convert(src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category id 99")
	assert.Contains(t, err.Error(), `split "valid"`)
}

func TestConvertBoxOutsideImage(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	ds := trainDataset()
	ds.Annotations = append(ds.Annotations, COCOAnnotation{
		ID: 12, ImageID: 2, CategoryID: 3, BBox: [4]float64{400, 300, 50, 50},
	})
	writeSplit(t, src, "train", ds, map[string][]byte{
		"img_a.jpg": []byte("a"),
		"img_b.jpg": []byte("b"),
	})

	_, err := Convert(src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestConvertClipsBoxesToImageBounds(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	ds := trainDataset()
	// Eight pixels stick out on the left.
	ds.Annotations = []COCOAnnotation{
		{ID: 10, ImageID: 1, CategoryID: 7, BBox: [4]float64{-8, 0, 40, 48}},
	}
	writeSplit(t, src, "train", ds, map[string][]byte{
		"img_a.jpg": []byte("a"),
		"img_b.jpg": []byte("b"),
	})

	_, err := Convert(src, dst)
	require.NoError(t, err)

	lines := readLabelLines(t, filepath.Join(dst, "yolo_dataset", "train", "labels", "img_a.txt"))
	require.Len(t, lines, 1)
	_, vals := parseLabelLine(t, lines[0])
	for _, v := range vals {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	// 32 of the 40 pixels remain after clipping at x=0.
	assert.InDelta(t, 32.0/640.0, vals[2], 1e-6)
	assert.InDelta(t, 16.0/640.0, vals[0], 1e-6)
}

func TestFindAnnotationFile(t *testing.T) {
	t.Run("prefers annotations json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "annotations.json"), []byte("{}"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "export.coco.json"), []byte("{}"), 0644))

		path, err := FindAnnotationFile(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "annotations.json"), path)
	})

	t.Run("falls back to coco json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "export.coco.json"), []byte("{}"), 0644))

		path, err := FindAnnotationFile(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "export.coco.json"), path)
	})

	t.Run("reports absence", func(t *testing.T) {
		_, err := FindAnnotationFile(t.TempDir())
		require.Error(t, err)
	})
}
