// Package render draws detection and tracking results onto video frames
// for the annotated sample artifact.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/argusvision/argus/track"
)

// Font defines the parameters for rendering text labels with GoCV.
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding placed around label text
	Pad int
}

// DefaultFont returns default font settings.
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		Pad:       4,
	}
}

// boxLabel records a label's placement so all labels can be painted as
// the top most layer after every box is drawn.
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Detections renders the bounding boxes and identity labels of one frame
// record onto img.  Tracked detections are labelled with their identity,
// untracked ones with class and confidence only.
func Detections(img *gocv.Mat, detections []track.TrackedDetection,
	font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(detections))

	for i := range detections {

		det := &detections[i]
		clr := TrackColor(det.TrackID)

		r := image.Rect(det.Box.X, det.Box.Y,
			det.Box.X+det.Box.Width, det.Box.Y+det.Box.Height)

		gocv.Rectangle(img, r, clr, lineThickness)

		text := fmt.Sprintf("%s %.2f", det.ClassName, det.Confidence)

		if det.Tracked() {
			text = fmt.Sprintf("%s %.2f", det.ObjectID, det.Confidence)
		}

		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		labelPos := image.Pt(det.Box.X+font.Pad, det.Box.Y-font.Pad)

		bRect := image.Rect(det.Box.X,
			det.Box.Y-textSize.Y-2*font.Pad,
			det.Box.X+textSize.X+2*font.Pad,
			det.Box.Y)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     clr,
			text:    text,
			textPos: labelPos,
		})
	}

	// labels go on last so trail lines and boxes never overlap them
	for _, label := range boxLabels {
		gocv.Rectangle(img, label.rect, label.clr, -1)
		gocv.PutTextWithParams(img, label.text, label.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
