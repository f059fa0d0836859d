package search

// Result is one ranked image.
type Result struct {
	Path        string
	Score       float64
	Description string
	// Why is "semantic" or "keyword".
	Why string
}
