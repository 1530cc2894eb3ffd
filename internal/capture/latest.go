package capture

import (
	"image"
	"sync"
)

// Latest is a single-slot frame inbox. A new frame replaces any frame that
// was not yet consumed; readers always see the newest one.
type Latest struct {
	mu        sync.Mutex
	frame     image.Image
	published uint64
	replaced  uint64
	unread    bool
}

// Put stores img and reports whether an unread frame was overwritten.
func (l *Latest) Put(img image.Image) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	dropped := l.unread
	l.frame = img
	l.published++
	if dropped {
		l.replaced++
	}
	l.unread = true
	return dropped
}

// Get returns the newest frame, if any. The frame stays available for later
// reads.
func (l *Latest) Get() (image.Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unread = false
	return l.frame, l.frame != nil
}

// Stats returns the number of frames published and the number replaced
// before anyone read them.
func (l *Latest) Stats() (published, replaced uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.published, l.replaced
}
