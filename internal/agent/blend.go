package agent

// Blend is a learning/practice split expressed in whole percentages.
// A Blend built with NewBlend always sums to 100.
type Blend struct {
	Learning int `json:"learningRatio"`
	Practice int `json:"practiceRatio"`
}

// NewBlend clamps learning to 0..100 and derives the practice share from it.
func NewBlend(learning int) Blend {
	switch {
	case learning < 0:
		learning = 0
	case learning > 100:
		learning = 100
	}
	return Blend{Learning: learning, Practice: 100 - learning}
}
