package engine

// SizeHistogram tracks the distribution of encoded value sizes across live
// entries using exponential bucket boundaries, the same bucketing idea as
// lib/db/util's SizeHistogram, trimmed to count, mean and percentile
// estimators. It is filled in by Engine.Stats; the info command does not
// render it.
type SizeHistogram struct {
	boundaries []int
	buckets    []int64
	count      int64
	sum        int64
}

// NewSizeHistogram creates a histogram with default boundaries spanning
// 16 bytes to 4 GiB.
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{
		boundaries: []int{
			16, 64, 256, 1024, 4096,
			16384, 65536, 262144, 1048576,
			4194304, 16777216, 67108864,
			268435456, 1073741824, 4294967296,
		},
		buckets: make([]int64, 16),
	}
}

// AddSample records one encoded value size.
func (h *SizeHistogram) AddSample(size int) {
	bucketIndex := len(h.boundaries)
	for i, boundary := range h.boundaries {
		if size <= boundary {
			bucketIndex = i
			break
		}
	}
	h.buckets[bucketIndex]++
	h.count++
	h.sum += int64(size)
}

// Count returns the total number of samples recorded.
func (h *SizeHistogram) Count() int64 {
	return h.count
}

// Mean returns the average sample size, or 0 if there are no samples.
func (h *SizeHistogram) Mean() int64 {
	if h.count == 0 {
		return 0
	}
	return h.sum / h.count
}

// Percentile estimates the sample size at the given percentile (0-100) from
// the bucket boundaries, the same cumulative-count walk
// lib/db/util.SizeHistogram uses for its median and percentile estimators.
func (h *SizeHistogram) Percentile(p int) int {
	if h.count == 0 || p < 0 || p > 100 {
		return 0
	}
	target := (h.count*int64(p) + 99) / 100
	var cumulative int64
	for i, c := range h.buckets {
		cumulative += c
		if cumulative < target {
			continue
		}
		switch {
		case i == 0:
			return h.boundaries[0] / 2
		case i < len(h.boundaries):
			return (h.boundaries[i-1] + h.boundaries[i]) / 2
		default:
			return h.boundaries[len(h.boundaries)-1] * 2
		}
	}
	return int(h.sum / h.count)
}
