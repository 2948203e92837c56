package detector

// Select returns the faces to process. With many enabled every detected
// face is kept; otherwise only the best scoring face is.
func Select(faces []Face, many bool) []Face {
	if many || len(faces) <= 1 {
		return faces
	}
	best := Best(faces)
	if best == nil {
		return nil
	}
	return []Face{*best}
}

// Best returns the highest scoring face, or nil when none were detected.
func Best(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}
	best := &faces[0]
	for i := 1; i < len(faces); i++ {
		if faces[i].Score > best.Score {
			best = &faces[i]
		}
	}
	return best
}
