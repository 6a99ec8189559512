package model

// Detection is a candidate object region returned by a detector.
type Detection struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
	ClassName  string  `json:"class_name"`
}

// Classification is a label returned by a classifier.
type Classification struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// LabelWrite is a labeled region ready to be committed to an asset.
type LabelWrite struct {
	Box        Box
	Normalized NormalizedBox
	Label      string
}
