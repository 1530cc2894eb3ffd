package session

// stability confirms a code once it was read on enough consecutive sampled
// ticks. Failed ticks are not fed in, so they neither advance nor break a
// sequence.
type stability struct {
	required int
	lastCode string
	count    int
}

// observe records a successful read and reports whether it completes a
// confirmation. The counter restarts after each confirmation so the same
// code can be confirmed again later.
func (s *stability) observe(text string) bool {
	if s.count > 0 && text == s.lastCode {
		s.count++
	} else {
		s.lastCode = text
		s.count = 1
	}
	if s.count >= s.required {
		s.count = 0
		return true
	}
	return false
}

func (s *stability) reset() {
	s.lastCode = ""
	s.count = 0
}
