package logging

// BatchProgress decides when a batch loop should emit a progress line: on the
// first and last item and whenever completion crosses a percentage bucket.
type BatchProgress struct {
	total      int
	bucketSize float64
	lastBucket int
}

// NewBatchProgress constructs a sampler for a loop over total items. A
// non-positive bucketSize defaults to 10 percent.
func NewBatchProgress(total int, bucketSize float64) *BatchProgress {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &BatchProgress{total: total, bucketSize: bucketSize, lastBucket: -1}
}

// Percent returns the completion percentage after done items.
func (p *BatchProgress) Percent(done int) float64 {
	if p == nil || p.total <= 0 {
		return 100
	}
	return float64(done) * 100 / float64(p.total)
}

// ShouldLog reports whether progress after done items is worth logging.
func (p *BatchProgress) ShouldLog(done int) bool {
	if p == nil {
		return true
	}
	if done <= 1 || done >= p.total {
		p.lastBucket = int(p.Percent(done) / p.bucketSize)
		return true
	}
	bucket := int(p.Percent(done) / p.bucketSize)
	if bucket > p.lastBucket {
		p.lastBucket = bucket
		return true
	}
	return false
}
