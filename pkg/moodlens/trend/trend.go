package trend

// HistoryEntry is one prior entry as supplied by the journal: when it was
// written and the tone score it received.
type HistoryEntry struct {
	Date      string  `json:"date"`
	ToneScore float64 `json:"toneScore"`
}

// Point is one sample of the tone trend series.
type Point struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// Assemble projects history into trend points, preserving length and order.
// It returns nil for an empty history so the field can be omitted.
func Assemble(history []HistoryEntry) []Point {
	if len(history) == 0 {
		return nil
	}
	points := make([]Point, len(history))
	for i, h := range history {
		points[i] = Point{Date: h.Date, Score: h.ToneScore}
	}
	return points
}
