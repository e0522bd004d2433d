package dataset

// TFRecord object detection export functionality.

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow

	"github.com/KhanhRomVN/termi-tool/applog"
)

// TFFeatureMap maps feature names to their values. Values must be convertible
// to tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// WriteTFRecords serializes the train split of the COCO tree rooted at
// srcRoot into TFRecord shard files under outDir, together with a label map
// in prototxt format.
//
// Class IDs in the records are the dataset class indices shifted by one, as
// TensorFlow object detection reserves ID 0 for the background.
func WriteTFRecords(srcRoot string, outDir string, numShards int) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	trainDir := filepath.Join(filepath.Clean(srcRoot), splitNames[0])
	if info, err := os.Stat(trainDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q", ErrMissingTrain, trainDir)
	}
	imagesDir := filepath.Join(trainDir, "images")

	annPath, err := FindAnnotationFile(trainDir)
	if err != nil {
		return err
	}
	ds, err := FromCOCO(annPath)
	if err != nil {
		return err
	}
	if err := ds.Validate(imagesDir); err != nil {
		return err
	}

	classes := BuildClassMap(ds.Categories)
	data, err := ds.toAnnotated(classes)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %q: %v", outDir, err)
	}
	recordPath := filepath.Join(outDir, "train.tfrecord")

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			_ = shardFile.Close()
		}
	}()

	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))

	// Convert and serialize one image at a time.
	shardIdx := -1
	for i, fileData := range data {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return err
				}
				shardFile = nil
			}

			shardPath := recordPath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		features, err := toTFFeatures(imagesDir, fileData, classes)
		if err != nil {
			return fmt.Errorf("failed to convert %q: %v", fileData.FileName, err)
		}
		if err := writeTFRecordExample(shardFile, example.New(features)); err != nil {
			return fmt.Errorf("failed to write example for %q: %v", fileData.FileName, err)
		}
	}

	if shardFile != nil {
		if err := shardFile.Close(); err != nil {
			return err
		}
		shardFile = nil
	}

	labelMapPath := filepath.Join(outDir, "label_map.pbtxt")
	if err := saveLabelMap(labelMapPath, classes); err != nil {
		return err
	}

	applog.Info(applog.Fields{
		"images":  len(data),
		"shards":  numShards,
		"out_dir": outDir,
	}, "wrote TFRecord export")

	return nil
}

// toTFFeatures converts the annotations of a single image to a TFRecord
// feature map.
func toTFFeatures(imagesDir string, fileData AnnotatedImage, classes ClassMap) (TFFeatureMap, error) {
	imagePath := filepath.Join(imagesDir, fileData.FileName)

	// Get the image width, height and encoding from the pixel data.
	img, format, err := decodeImageConfig(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %v", err)
	}

	imgData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}

	// Prepare the feature map for the per file data.
	f := make(TFFeatureMap, 16)
	f["image/height"] = img.Height
	f["image/width"] = img.Width
	f["image/filename"] = fileData.FileName
	f["image/source_id"] = fileData.FileName
	f["image/encoded"] = imgData
	f["image/format"] = format

	// Prepare the per label data.
	numLabels := len(fileData.Annotations)
	xmins := make([]float32, numLabels)
	ymins := make([]float32, numLabels)
	xmaxs := make([]float32, numLabels)
	ymaxs := make([]float32, numLabels)
	labels := make([]string, numLabels)
	classIDs := make([]int64, numLabels)
	for i, a := range fileData.Annotations {
		xmins[i] = float32(a.Coords[0]) / float32(img.Width)
		ymins[i] = float32(a.Coords[1]) / float32(img.Height)
		xmaxs[i] = float32(a.Coords[2]) / float32(img.Width)
		ymaxs[i] = float32(a.Coords[3]) / float32(img.Height)
		labels[i] = a.Label
		classIDs[i] = int64(a.Class) + 1
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = labels
	f["image/object/class/label"] = classIDs

	return f, nil
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveLabelMap writes the class names and their one-based IDs to path in the
// prototxt label map format.
func saveLabelMap(path string, classes ClassMap) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	for i, name := range classes.Names() {
		if _, err := fmt.Fprintf(file, "item {\n  id: %d\n  name: %q\n}\n", i+1, name); err != nil {
			return err
		}
	}

	return nil
}

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}
