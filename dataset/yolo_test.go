package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestToYOLO(t *testing.T) {
	a := Annotation{Coords: [4]float64{100, 120, 300, 280}, Class: 1}

	y := toYOLO(a, 640, 480)
	assert.Equal(t, 1, y.Class)
	assert.InDelta(t, 0.3125, y.X, 1e-9)
	assert.InDelta(t, 200.0/480.0, y.Y, 1e-9)
	assert.InDelta(t, 0.3125, y.W, 1e-9)
	assert.InDelta(t, 160.0/480.0, y.H, 1e-9)
}

func TestWriteYOLOLabels(t *testing.T) {
	dir := t.TempDir()

	data := []AnnotatedImage{
		{
			FileName: "one.jpg",
			Width:    100,
			Height:   100,
			Annotations: []Annotation{
				{Coords: [4]float64{10, 10, 30, 50}, Class: 0},
			},
		},
		{FileName: "two.png", Width: 100, Height: 100},
	}

	require.NoError(t, WriteYOLOLabels(dir, data))

	enc, err := os.ReadFile(filepath.Join(dir, "one.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0 0.200000 0.300000 0.200000 0.400000\n", string(enc))

	enc, err = os.ReadFile(filepath.Join(dir, "two.txt"))
	require.NoError(t, err)
	assert.Empty(t, enc)

	t.Run("rejects missing directory", func(t *testing.T) {
		err := WriteYOLOLabels(filepath.Join(dir, "nope"), data)
		assert.Error(t, err)
	})
}

func TestWriteDataYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	classes := BuildClassMap(testCategories())

	require.NoError(t, WriteDataYAML(path, []string{"train", "test"}, classes))

	enc, err := os.ReadFile(path)
	require.NoError(t, err)

	var d struct {
		Train string   `yaml:"train"`
		Valid string   `yaml:"valid"`
		Test  string   `yaml:"test"`
		NC    int      `yaml:"nc"`
		Names []string `yaml:"names"`
	}
	require.NoError(t, yaml.Unmarshal(enc, &d))

	assert.Equal(t, filepath.Join("train", "images"), d.Train)
	assert.Equal(t, filepath.Join("test", "images"), d.Test)
	assert.Empty(t, d.Valid)
	assert.Equal(t, 2, d.NC)
	assert.Equal(t, []string{"person", "car"}, d.Names)
}
