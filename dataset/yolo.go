package dataset

// YOLO target format specific functionality.
//
// One label file per image, one "<class> <cx> <cy> <w> <h>" line per object,
// with the geometry normalized to [0, 1] by the image dimensions.

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// YOLOAnnotation is a single label line of a YOLO label file.
type YOLOAnnotation struct {
	Class      int
	X, Y, W, H float64 // Normalized center offsets and box size.
}

// toYOLO converts an intermediate annotation to the YOLO representation,
// normalizing by the image dimensions.
func toYOLO(a Annotation, imageWidth, imageHeight int) YOLOAnnotation {
	w := float64(imageWidth)
	h := float64(imageHeight)
	return YOLOAnnotation{
		Class: a.Class,
		X:     (a.Coords[0] + a.Coords[2]) / 2 / w,
		Y:     (a.Coords[1] + a.Coords[3]) / 2 / h,
		W:     a.Width() / w,
		H:     a.Height() / h,
	}
}

// WriteYOLOLabels writes one label file per image to labelDir. Images without
// annotations get an empty label file so trainers treat them as negatives.
func WriteYOLOLabels(labelDir string, data []AnnotatedImage) error {
	dirInfo, err := os.Stat(labelDir)
	if err != nil || !dirInfo.IsDir() {
		return fmt.Errorf("cannot access directory %q: %v", labelDir, err)
	}

	for _, fileData := range data {
		// Use the image file name with .txt extension as label file name.
		_, baseNoExt, _, err := splitPath(fileData.FileName)
		if err != nil {
			return err
		}
		filePath := filepath.Join(labelDir, baseNoExt+".txt")
		file, err := os.Create(filePath)
		if err != nil {
			return err
		}

		// Write annotations to file.
		for _, a := range fileData.Annotations {
			y := toYOLO(a, fileData.Width, fileData.Height)
			_, err = fmt.Fprintf(file, "%d %.6f %.6f %.6f %.6f\n", y.Class, y.X, y.Y, y.W, y.H)
			if err != nil {
				return err
			}
		}

		if err := file.Close(); err != nil {
			return err
		}
	}

	return nil
}

// WriteClassNames writes the class names to path, one per line in index order.
func WriteClassNames(path string, classes ClassMap) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	for _, name := range classes.Names() {
		if _, err := fmt.Fprintln(file, name); err != nil {
			return err
		}
	}

	return nil
}

// dataYAML describes the dataset layout for Ultralytics style trainers.
type dataYAML struct {
	Train string   `yaml:"train"`
	Valid string   `yaml:"valid,omitempty"`
	Test  string   `yaml:"test,omitempty"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// WriteDataYAML writes the data.yaml manifest for the converted splits to path.
// Paths inside the manifest are relative to the dataset root.
func WriteDataYAML(path string, splits []string, classes ClassMap) (err error) {
	d := dataYAML{
		NC:    classes.Len(),
		Names: classes.Names(),
	}
	for _, split := range splits {
		rel := filepath.Join(split, "images")
		switch split {
		case "train":
			d.Train = rel
		case "valid":
			d.Valid = rel
		case "test":
			d.Test = rel
		}
	}

	enc, err := yaml.Marshal(&d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %v", path, err)
	}

	return nil
}
