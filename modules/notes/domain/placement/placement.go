// Package placement classifies drag gestures into placement intents. The
// classifier is a pure function of the target rectangle and the pointer
// position, so any front end producing the same geometry gets the same
// answer.
package placement

// Intent says where a dragged note lands relative to the target note.
type Intent string

const (
	Before       Intent = "before"
	After        Intent = "after"
	AppendChild  Intent = "append-child"
	PrependChild Intent = "prepend-child"
)

func (i Intent) IsValid() bool {
	switch i {
	case Before, After, AppendChild, PrependChild:
		return true
	}
	return false
}

// Rect is the target note's bounding box in the same coordinate space as the
// pointer.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

const (
	leftThreshold  = 0.30
	rightThreshold = 0.70
	topThreshold   = 0.40
	lowerThreshold = 0.60
)

// Resolve maps a pointer position over the target rectangle to an intent.
//
// The rectangle is partitioned into horizontal thirds at 30%/70% of the width
// and vertical bands at 40%/60% of the height. The right band claims the
// child intents; everywhere else resolves to a sibling intent. Band
// boundaries are half-open (a coordinate exactly on a threshold belongs to
// the lower band), so the partition has no gaps or overlaps.
func Resolve(rect Rect, x, y float64) Intent {
	relX := 0.0
	if rect.Width > 0 {
		relX = (x - rect.X) / rect.Width
	}
	relY := 0.0
	if rect.Height > 0 {
		relY = (y - rect.Y) / rect.Height
	}

	right := relX >= rightThreshold
	left := relX < leftThreshold
	top := relY < topThreshold
	bottom := relY >= lowerThreshold

	switch {
	case top && right:
		return PrependChild
	case top:
		return Before
	case bottom && right:
		return AppendChild
	case bottom:
		return After
	case right:
		return AppendChild
	case left:
		return Before
	default:
		// Middle-middle: split on the exact vertical center.
		if relY < 0.5 {
			return Before
		}
		return After
	}
}
