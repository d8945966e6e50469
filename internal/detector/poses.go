package detector

// OpenPalmLandmarks returns a right hand with all fingers extended.
// Fingertips sit well away from the wrist and the thumb is clear of the index.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// FistLandmarks returns a closed fist: every fingertip curled to within
// about 0.08 of the wrist, thumb resting across the middle phalanges
// away from the index tip.
func FistLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.93,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.77, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.74, Z: -0.01}
	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.70, Z: -0.02}
	landmarks.Points[ThumbTip] = Point3D{X: 0.45, Y: 0.68, Z: -0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.72, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.69, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.72, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.54, Y: 0.74, Z: -0.02}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.71, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.68, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.51, Y: 0.71, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.73, Z: -0.02}

	landmarks.Points[RingMCP] = Point3D{X: 0.47, Y: 0.72, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.47, Y: 0.69, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.47, Y: 0.72, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.47, Y: 0.74, Z: -0.02}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.44, Y: 0.74, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.44, Y: 0.72, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.45, Y: 0.74, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.45, Y: 0.76, Z: -0.02}

	return landmarks
}

// PinchLandmarks returns an open hand whose thumb tip touches the index tip
// (distance 0.02) while the other fingers stay extended.
func PinchLandmarks() HandLandmarks {
	landmarks := OpenPalmLandmarks()
	landmarks.Points[ThumbIP] = Point3D{X: 0.62, Y: 0.45, Z: 0.02}
	landmarks.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.35, Z: 0.0}
	return landmarks
}

// PinchFistLandmarks returns a fist whose thumb tip rests on the index tip,
// satisfying both the pinch and the fist heuristics at once.
func PinchFistLandmarks() HandLandmarks {
	landmarks := FistLandmarks()
	landmarks.Points[ThumbTip] = Point3D{X: 0.55, Y: 0.74, Z: -0.02}
	return landmarks
}

// WithPinchDistance returns an open palm whose thumb tip sits exactly d to
// the right of the index tip.
func WithPinchDistance(d float64) HandLandmarks {
	landmarks := OpenPalmLandmarks()
	tip := landmarks.Points[IndexTip]
	landmarks.Points[ThumbTip] = Point3D{X: tip.X + d, Y: tip.Y, Z: tip.Z}
	return landmarks
}

// PointAt translates the pose so its index tip lands on (x, y) in
// normalized detector coordinates.
func PointAt(pose HandLandmarks, x, y float64) HandLandmarks {
	tip := pose.Points[IndexTip]
	return pose.Translate(x-tip.X, y-tip.Y)
}

// WristAt translates the pose so its wrist lands at horizontal position x.
func WristAt(pose HandLandmarks, x float64) HandLandmarks {
	return pose.Translate(x-pose.Points[Wrist].X, 0)
}
