package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCOCO(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annotations.json")

	t.Run("parses a valid document", func(t *testing.T) {
		enc, err := json.Marshal(trainDataset())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, enc, 0644))

		ds, err := FromCOCO(path)
		require.NoError(t, err)
		assert.Len(t, ds.Images, 2)
		assert.Len(t, ds.Annotations, 2)
		assert.Len(t, ds.Categories, 2)
		assert.Equal(t, [4]float64{100, 120, 200, 160}, ds.Annotations[0].BBox)
	})

	t.Run("reports missing top level keys", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(`{"images": [], "annotations": []}`), 0644))

		_, err := FromCOCO(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing key "categories"`)
	})

	t.Run("accepts empty lists", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path,
			[]byte(`{"images": [], "annotations": [], "categories": []}`), 0644))

		ds, err := FromCOCO(path)
		require.NoError(t, err)
		assert.Empty(t, ds.Images)
	})

	t.Run("reports unreadable files", func(t *testing.T) {
		_, err := FromCOCO(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	imagesDir := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(imagesDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(imagesDir, "img_a.jpg"), []byte("a"), 0644))

	t.Run("passes when referenced images exist", func(t *testing.T) {
		ds := trainDataset()
		assert.NoError(t, ds.Validate(imagesDir))
	})

	t.Run("fails on missing referenced image", func(t *testing.T) {
		ds := trainDataset()
		ds.Annotations = append(ds.Annotations, COCOAnnotation{
			ID: 12, ImageID: 2, CategoryID: 3, BBox: [4]float64{1, 1, 5, 5},
		})

		err := ds.Validate(imagesDir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "img_b.jpg")
	})

	t.Run("ignores unannotated missing images", func(t *testing.T) {
		// img_b.jpg is listed but not annotated; validation only requires
		// the files that annotations point at.
		ds := trainDataset()
		assert.NoError(t, ds.Validate(imagesDir))
	})

	t.Run("fails on unknown image id", func(t *testing.T) {
		ds := trainDataset()
		ds.Annotations[0].ImageID = 404

		err := ds.Validate(imagesDir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown image id 404")
	})

	t.Run("fails on non positive dimensions", func(t *testing.T) {
		ds := trainDataset()
		ds.Images[0].Height = 0

		err := ds.Validate(imagesDir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid dimensions")
	})
}

func TestBuildClassMap(t *testing.T) {
	t.Run("sorts by category id", func(t *testing.T) {
		m := BuildClassMap(testCategories())
		require.Equal(t, 2, m.Len())
		assert.Equal(t, []string{"person", "car"}, m.Names())

		idx, ok := m.Index(3)
		require.True(t, ok)
		assert.Equal(t, 0, idx)
		idx, ok = m.Index(7)
		require.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("is deterministic across orderings", func(t *testing.T) {
		a := BuildClassMap([]COCOCategory{{ID: 9, Name: "c"}, {ID: 1, Name: "a"}, {ID: 5, Name: "b"}})
		b := BuildClassMap([]COCOCategory{{ID: 5, Name: "b"}, {ID: 1, Name: "a"}, {ID: 9, Name: "c"}})
		assert.Equal(t, a.Names(), b.Names())
	})

	t.Run("unknown id is reported", func(t *testing.T) {
		m := BuildClassMap(testCategories())
		_, ok := m.Index(42)
		assert.False(t, ok)
	})
}

func TestToAnnotated(t *testing.T) {
	classes := BuildClassMap(testCategories())

	t.Run("groups annotations by image", func(t *testing.T) {
		data, err := trainDataset().toAnnotated(classes)
		require.NoError(t, err)
		require.Len(t, data, 2)

		assert.Equal(t, "img_a.jpg", data[0].FileName)
		assert.Len(t, data[0].Annotations, 2)
		assert.Empty(t, data[1].Annotations)

		a := data[0].Annotations[0]
		assert.Equal(t, 1, a.Class)
		assert.Equal(t, "car", a.Label)
		assert.Equal(t, [4]float64{100, 120, 300, 280}, a.Coords)
	})

	t.Run("clips to image bounds", func(t *testing.T) {
		ds := trainDataset()
		ds.Annotations = []COCOAnnotation{
			{ID: 1, ImageID: 1, CategoryID: 3, BBox: [4]float64{600, 440, 100, 100}},
		}

		data, err := ds.toAnnotated(classes)
		require.NoError(t, err)
		assert.Equal(t, [4]float64{600, 440, 640, 480}, data[0].Annotations[0].Coords)
	})

	t.Run("rejects fully outside boxes", func(t *testing.T) {
		ds := trainDataset()
		ds.Annotations = []COCOAnnotation{
			{ID: 1, ImageID: 1, CategoryID: 3, BBox: [4]float64{700, 500, 10, 10}},
		}

		_, err := ds.toAnnotated(classes)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside")
	})

	t.Run("rejects unknown categories", func(t *testing.T) {
		ds := trainDataset()
		ds.Annotations[0].CategoryID = 42

		_, err := ds.toAnnotated(classes)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown category id 42")
	})
}
