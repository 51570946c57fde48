package notification

import "sync/atomic"

// RequestSequence hands out increasing tokens so a caller can tell whether
// a response belongs to its most recent request.
type RequestSequence struct {
	latest atomic.Uint64
}

func (s *RequestSequence) Next() uint64 {
	return s.latest.Add(1)
}

func (s *RequestSequence) IsLatest(token uint64) bool {
	return s.latest.Load() == token
}
