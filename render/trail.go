package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/argusvision/argus/track"
)

// TrailStyle defines the parameters for rendering trajectory trails.
type TrailStyle struct {
	// LineSame uses the identity's box color for the trail line,
	// otherwise LineColor is used
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleRadius is the radius of the marker drawn on the most
	// recent position
	CircleRadius int
}

// DefaultTrailStyle returns default trail style settings.
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      true,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleRadius:  3,
	}
}

// Trails draws each trajectory's movement history onto img as a
// polyline through the box center points, marking the latest position.
func Trails(img *gocv.Mat, trajectories []track.ObjectTrajectory,
	style TrailStyle) {

	for _, traj := range trajectories {

		if len(traj.Positions) == 0 {
			continue
		}

		clr := style.LineColor

		if style.LineSame {
			clr = TrackColor(trackIDFromPositions(traj))
		}

		prev := center(traj.Positions[0])

		for _, pos := range traj.Positions[1:] {
			pt := center(pos)
			gocv.Line(img, prev, pt, clr, style.LineThickness)
			prev = pt
		}

		gocv.Circle(img, prev, style.CircleRadius, clr, -1)
	}
}

// center returns the midpoint of a position's bounding box.
func center(pos track.TrajectoryPoint) image.Point {
	return image.Pt(pos.Box.X+pos.Box.Width/2, pos.Box.Y+pos.Box.Height/2)
}

// trackIDFromPositions derives a palette index from the identity string
// so a trajectory's color stays fixed across rebuilds of the same run.
func trackIDFromPositions(traj track.ObjectTrajectory) int {

	h := 0

	for _, c := range traj.ObjectID {
		h = h*31 + int(c)
	}

	if h < 0 {
		h = -h
	}

	return h%len(trackColors) + 1
}
