package dataset

// COCO annotation source specific functionality.

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// COCOImage describes a single image entry of a COCO annotation document.
type COCOImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// COCOAnnotation is a single object annotation. BBox holds x_min, y_min,
// width and height in absolute pixels.
type COCOAnnotation struct {
	ID         int        `json:"id"`
	ImageID    int        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
}

// COCOCategory maps a category ID to its name.
type COCOCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// COCODataset is the parsed form of one COCO annotation document.
type COCODataset struct {
	Images      []COCOImage      `json:"images"`
	Annotations []COCOAnnotation `json:"annotations"`
	Categories  []COCOCategory   `json:"categories"`
}

// Annotation is the intermediate representation of an object label.
type Annotation struct {
	Coords [4]float64 // Absolute x1, y1, x2, y2 offsets from the top-left corner.
	Class  int        // Zero-based contiguous class index.
	Label  string
}

// Width is the object width from a.Coords.
func (a Annotation) Width() float64 {
	return a.Coords[2] - a.Coords[0]
}

// Height is the object height from a.Coords.
func (a Annotation) Height() float64 {
	return a.Coords[3] - a.Coords[1]
}

// AnnotatedImage is the intermediate representation of one image and its labels.
type AnnotatedImage struct {
	Annotations []Annotation
	FileName    string // Base name within the split's images directory.
	Width       int
	Height      int
}

// Accepted names for a split's annotation document, in lookup order. The
// suffix form matches exports that embed the project name.
const (
	annotationFileName   = "annotations.json"
	annotationFileSuffix = ".coco.json"
)

// FindAnnotationFile locates the annotation document directly in splitDir.
//
// It prefers annotations.json and falls back to the first *.coco.json file.
func FindAnnotationFile(splitDir string) (string, error) {
	path := filepath.Join(splitDir, annotationFileName)
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return path, nil
	}

	candidates, err := filesByExtInDir(splitDir, annotationFileSuffix)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no %s or *%s found in %q", annotationFileName, annotationFileSuffix, splitDir)
	}
	sort.Strings(candidates)

	return candidates[0], nil
}

// FromCOCO reads and parses the COCO annotation document at path.
func FromCOCO(path string) (*COCODataset, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %v", path, err)
	}

	// Detect missing top-level keys before decoding into the typed struct, so
	// that an empty-but-present list is not reported as a structural error.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(enc, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse COCO input from %q: %v", path, err)
	}
	for _, k := range []string{"images", "annotations", "categories"} {
		if _, ok := keys[k]; !ok {
			return nil, fmt.Errorf("invalid COCO document %q: missing key %q", path, k)
		}
	}

	var ds COCODataset
	if err := json.Unmarshal(enc, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse COCO input from %q: %v", path, err)
	}

	return &ds, nil
}

// Validate checks the dataset against the image files in imagesDir.
//
// Every image referenced by an annotation must exist on disk; a missing file
// is an error, not a skip. Annotations must reference known images, and image
// entries must carry positive dimensions.
func (ds *COCODataset) Validate(imagesDir string) error {
	imagesByID := make(map[int]COCOImage, len(ds.Images))
	for _, img := range ds.Images {
		if img.Width <= 0 || img.Height <= 0 {
			return fmt.Errorf("image %q has invalid dimensions %dx%d", img.FileName, img.Width, img.Height)
		}
		imagesByID[img.ID] = img
	}

	referenced := make(map[int]bool, len(ds.Annotations))
	for _, a := range ds.Annotations {
		if _, ok := imagesByID[a.ImageID]; !ok {
			return fmt.Errorf("annotation %d references unknown image id %d", a.ID, a.ImageID)
		}
		referenced[a.ImageID] = true
	}

	var missing []string
	for id := range referenced {
		name := imagesByID[id].FileName
		if _, err := os.Stat(filepath.Join(imagesDir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%d referenced image(s) missing from %q: %s",
			len(missing), imagesDir, strings.Join(missing, ", "))
	}

	return nil
}

// ClassMap assigns zero-based contiguous class indices to category IDs.
type ClassMap struct {
	indexByID map[int]int
	names     []string // Class names in index order.
}

// BuildClassMap derives the class indices from categories, sorted ascending
// by category ID. The assignment is deterministic for a given category set.
func BuildClassMap(categories []COCOCategory) ClassMap {
	sorted := make([]COCOCategory, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	m := ClassMap{
		indexByID: make(map[int]int, len(sorted)),
		names:     make([]string, 0, len(sorted)),
	}
	for _, c := range sorted {
		if _, ok := m.indexByID[c.ID]; ok {
			continue
		}
		m.indexByID[c.ID] = len(m.names)
		m.names = append(m.names, c.Name)
	}

	return m
}

// Index returns the class index for the category ID.
func (m ClassMap) Index(categoryID int) (int, bool) {
	idx, ok := m.indexByID[categoryID]
	return idx, ok
}

// Names returns the class names in index order.
func (m ClassMap) Names() []string {
	return m.names
}

// Len is the number of classes.
func (m ClassMap) Len() int {
	return len(m.names)
}

// toAnnotated converts the dataset to the intermediate representation, one
// entry per image in ds.Images, resolving category IDs through classes.
//
// Bounding boxes are clipped to the image bounds. A box entirely outside its
// image and an annotation with an unmapped category ID are errors.
func (ds *COCODataset) toAnnotated(classes ClassMap) ([]AnnotatedImage, error) {
	byID := make(map[int]*AnnotatedImage, len(ds.Images))
	data := make([]AnnotatedImage, len(ds.Images))
	for i, img := range ds.Images {
		data[i] = AnnotatedImage{
			FileName: img.FileName,
			Width:    img.Width,
			Height:   img.Height,
		}
		byID[img.ID] = &data[i]
	}

	for _, a := range ds.Annotations {
		img := byID[a.ImageID]
		if img == nil {
			return nil, fmt.Errorf("annotation %d references unknown image id %d", a.ID, a.ImageID)
		}
		class, ok := classes.Index(a.CategoryID)
		if !ok {
			return nil, fmt.Errorf("annotation %d references unknown category id %d", a.ID, a.CategoryID)
		}

		// Clip the bounding box to the image bounds.
		bounds := image.Rect(0, 0, img.Width, img.Height)
		r := image.Rect(int(math.Floor(a.BBox[0])), int(math.Floor(a.BBox[1])),
			int(math.Ceil(a.BBox[0]+a.BBox[2])), int(math.Ceil(a.BBox[1]+a.BBox[3])))
		if r.Intersect(bounds).Empty() {
			return nil, fmt.Errorf("annotation %d of image %q lies outside the %dx%d image bounds",
				a.ID, img.FileName, img.Width, img.Height)
		}

		coords := [4]float64{
			clamp(a.BBox[0], 0, float64(img.Width)),
			clamp(a.BBox[1], 0, float64(img.Height)),
			clamp(a.BBox[0]+a.BBox[2], 0, float64(img.Width)),
			clamp(a.BBox[1]+a.BBox[3], 0, float64(img.Height)),
		}

		img.Annotations = append(img.Annotations, Annotation{
			Coords: coords,
			Class:  class,
			Label:  classes.Names()[class],
		})
	}

	return data, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
