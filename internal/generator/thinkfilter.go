package generator

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

var (
	thinkOpenRunes  = []rune(thinkOpen)
	thinkCloseRunes = []rune(thinkClose)
)

// ThinkFilter strips well-formed <think>...</think> spans from streamed model
// output while preserving all surrounding text verbatim. It works one rune at
// a time so a marker split across stream chunks is still detected: emitted
// text is buffered, and when the buffer's tail completes an opening marker the
// marker is removed from what was already emitted. If the stream ends inside a
// span, everything from the unmatched opening marker onward is dropped.
type ThinkFilter struct {
	out    []rune
	tail   []rune
	inside bool
}

// NewThinkFilter creates an empty filter
func NewThinkFilter() *ThinkFilter {
	return &ThinkFilter{}
}

// Write feeds the filter one stream chunk
func (f *ThinkFilter) Write(chunk string) {
	for _, r := range chunk {
		if f.inside {
			f.tail = append(f.tail, r)
			if len(f.tail) > len(thinkCloseRunes) {
				f.tail = f.tail[len(f.tail)-len(thinkCloseRunes):]
			}
			if runesHaveSuffix(f.tail, thinkCloseRunes) {
				f.inside = false
				f.tail = nil
			}
			continue
		}

		f.out = append(f.out, r)
		if runesHaveSuffix(f.out, thinkOpenRunes) {
			f.out = f.out[:len(f.out)-len(thinkOpenRunes)]
			f.inside = true
		}
	}
}

// String returns the filtered text accumulated so far
func (f *ThinkFilter) String() string {
	return string(f.out)
}

// FilterThinking strips think spans from a complete string in one pass
func FilterThinking(text string) string {
	f := NewThinkFilter()
	f.Write(text)
	return f.String()
}

func runesHaveSuffix(runes, suffix []rune) bool {
	if len(runes) < len(suffix) {
		return false
	}
	offset := len(runes) - len(suffix)
	for i := range suffix {
		if runes[offset+i] != suffix[i] {
			return false
		}
	}
	return true
}
