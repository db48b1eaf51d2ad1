package generator

// window is a bounded FIFO of recently emitted problem texts with O(1)
// membership checks. It is not safe for concurrent use; Generator guards it.
type window struct {
	ring  []string
	head  int // index of the oldest entry
	size  int
	index map[string]struct{}
}

func newWindow(capacity int) *window {
	if capacity < 1 {
		capacity = 1
	}
	return &window{
		ring:  make([]string, capacity),
		index: make(map[string]struct{}, capacity),
	}
}

func (w *window) contains(text string) bool {
	_, ok := w.index[text]
	return ok
}

// push records text, evicting the oldest entry when the window is full.
func (w *window) push(text string) {
	if w.contains(text) {
		return
	}
	if w.size == len(w.ring) {
		delete(w.index, w.ring[w.head])
		w.ring[w.head] = text
		w.head = (w.head + 1) % len(w.ring)
	} else {
		w.ring[(w.head+w.size)%len(w.ring)] = text
		w.size++
	}
	w.index[text] = struct{}{}
}

func (w *window) reset() {
	for i := range w.ring {
		w.ring[i] = ""
	}
	w.head, w.size = 0, 0
	w.index = make(map[string]struct{}, len(w.ring))
}

func (w *window) len() int {
	return w.size
}
