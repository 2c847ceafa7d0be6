package detect

import (
	"fmt"
	"image"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/argusvision/argus/video"
)

// yoloInputSize is the square tensor size YOLO models are exported at
const yoloInputSize = 640

// YOLONet is a detect-only Oracle backed by an ONNX YOLO model run
// through the OpenCV DNN module.  It is stateless and never assigns
// persistent identities, wrap it in a bytetrack.Oracle for track mode.
type YOLONet struct {
	net        gocv.Net
	labels     []string
	confThresh float32
	nmsThresh  float32
	log        *slog.Logger
}

// NewYOLONet loads the ONNX model at modelFile.  labels is the model's
// native class vocabulary, one name per class index.  confThresh and
// nmsThresh are the box candidate and non-maximum suppression thresholds.
func NewYOLONet(modelFile string, labels []string, confThresh,
	nmsThresh float64) (*YOLONet, error) {

	net := gocv.ReadNetFromONNX(modelFile)

	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model from %s", modelFile)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	y := &YOLONet{
		net:        net,
		labels:     labels,
		confThresh: float32(confThresh),
		nmsThresh:  float32(nmsThresh),
		log:        slog.Default().With("component", "yolonet"),
	}

	y.log.Info("loaded detection model", "model", modelFile,
		"classes", len(labels))

	return y, nil
}

// Observe runs inference on one frame and returns the raw detections in
// the model's native vocabulary.  TrackID is never set.
func (y *YOLONet) Observe(frame *video.Frame) ([]RawObservation, error) {

	if frame.Image.Empty() {
		return nil, fmt.Errorf("frame %d has no image payload", frame.Number)
	}

	blob := gocv.BlobFromImage(frame.Image, 1.0/255.0,
		image.Pt(yoloInputSize, yoloInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")

	output := y.net.Forward("")
	defer output.Close()

	// reshape [1, rows, 5+classes] prediction tensor to a 2D matrix
	rows := output.Size()[1]
	cols := output.Size()[2]

	preds := output.Reshape(1, rows)
	defer preds.Close()

	// scale factors from tensor space back to frame pixels
	scaleX := float32(frame.Image.Cols()) / float32(yoloInputSize)
	scaleY := float32(frame.Image.Rows()) / float32(yoloInputSize)

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < rows; i++ {

		objectness := preds.GetFloatAt(i, 4)

		if objectness < y.confThresh {
			continue
		}

		// find the best scoring class for this candidate box
		classID := 0
		best := float32(0)

		for c := 5; c < cols; c++ {
			score := preds.GetFloatAt(i, c)
			if score > best {
				best = score
				classID = c - 5
			}
		}

		conf := objectness * best

		if conf < y.confThresh || classID >= len(y.labels) {
			continue
		}

		cx := preds.GetFloatAt(i, 0) * scaleX
		cy := preds.GetFloatAt(i, 1) * scaleY
		w := preds.GetFloatAt(i, 2) * scaleX
		h := preds.GetFloatAt(i, 3) * scaleY

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, conf)
		classIDs = append(classIDs, classID)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, y.confThresh, y.nmsThresh)

	observations := make([]RawObservation, 0, len(keep))

	for _, idx := range keep {

		box := boxes[idx]

		observations = append(observations, RawObservation{
			NativeClass: y.labels[classIDs[idx]],
			Confidence:  float64(scores[idx]),
			Box: Box{
				X:      box.Min.X,
				Y:      box.Min.Y,
				Width:  box.Dx(),
				Height: box.Dy(),
			},
		})
	}

	return observations, nil
}

// Close releases the DNN network resources.
func (y *YOLONet) Close() error {
	return y.net.Close()
}
