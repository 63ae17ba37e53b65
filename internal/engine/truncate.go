package engine

// truncationMarker separates the retained head and tail of an oversized
// input so the model knows material was elided.
const truncationMarker = "\n\n[... middle of document omitted ...]\n\n"

// TruncateForGeneration shortens oversized text to at most max runes,
// keeping ~60% of the budget from the start and ~40% from the end, with a
// marker between them.
func TruncateForGeneration(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	budget := max - len([]rune(truncationMarker))
	if budget < 2 {
		return string(runes[:max])
	}

	head := budget * 60 / 100
	tail := budget - head

	return string(runes[:head]) + truncationMarker + string(runes[len(runes)-tail:])
}
