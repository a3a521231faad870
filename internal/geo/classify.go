package geo

// Classification is the confidence verdict for a fix against a fence.
type Classification string

const (
	// ClassUnknown means no fix has been classified yet.
	ClassUnknown Classification = "unknown"
	// ClassInside holds even granting maximal GPS error toward the outside.
	ClassInside Classification = "inside"
	// ClassOutside holds even granting maximal GPS error toward the inside.
	ClassOutside Classification = "outside"
	// ClassUncertain means the error interval straddles the fence boundary.
	ClassUncertain Classification = "uncertain"
)

// Classify decides whether a fix is confidently inside or outside the fence
// under worst-case GPS error, or uncertain when the accuracy interval overlaps
// the boundary. The point estimate alone is never trusted: a fix 10 m past the
// boundary with 50 m accuracy proves nothing.
//
//	confidentlyInside:  distance + accuracy < radius
//	confidentlyOutside: distance - accuracy > radius
//
// For radius > 0 and accuracy >= 0 the two can never both hold.
func Classify(fix Point, fence Fence) Classification {
	distance := fence.DistanceMeters(fix)
	accuracy := fix.AccuracyMeters
	if accuracy < 0 {
		accuracy = 0
	}

	switch {
	case distance+accuracy < fence.RadiusMeters:
		return ClassInside
	case distance-accuracy > fence.RadiusMeters:
		return ClassOutside
	default:
		return ClassUncertain
	}
}
