// # internal/shared/radix/radix.go
package radix

import "fmt"

const (
	radixBits = 8
	buckets   = 1 << radixBits

	// HistogramSize is the minimum length of the histogram scratch slice
	// passed to the sort routines.
	HistogramSize = 1 + buckets
)

// NewHistogram allocates a histogram sized for Sort and SortBySecond.
func NewHistogram() []int {
	return make([]int, HistogramSize)
}

// Sort stably sorts length/2 interleaved [k0, v0, k1, v1, ...] pairs in data
// ascending by key. Keys are compared as unsigned 64-bit values, so negative
// keys order after all non-negative ones. buf must be at least length long
// and is clobbered.
func Sort(data, buf []int64, histogram []int, length int) {
	SortWith[struct{}](data, buf, histogram, length, nil, nil, nil, nil)
}

// SortWith is Sort with one numeric and one generic companion array, both
// indexed by pair position and permuted in lock-step with the pairs. Either
// companion may be nil together with its buffer.
func SortWith[T any](data, buf []int64, histogram []int, length int, additional, additionalBuf []int64, extra, extraBuf []T) {
	checkContract(data, buf, histogram, length)
	if length == 0 {
		return
	}
	for shift := uint(0); shift < 64; shift += radixBits {
		if pass(data, buf, histogram, length, shift, false, additional, additionalBuf, extra, extraBuf) {
			return
		}
	}
}

// SortBySecond sorts pairs by their second element. The first counting pass
// keys on the second element and swaps the elements of every pair while
// scattering, so the former second element becomes the primary key for the
// remaining byte positions.
func SortBySecond(data, buf []int64, histogram []int, length int) {
	SortBySecondWith[struct{}](data, buf, histogram, length, nil, nil, nil, nil)
}

// SortBySecondWith is SortBySecond with companion arrays, as in SortWith.
func SortBySecondWith[T any](data, buf []int64, histogram []int, length int, additional, additionalBuf []int64, extra, extraBuf []T) {
	checkContract(data, buf, histogram, length)
	if length == 0 {
		return
	}
	if pass(data, buf, histogram, length, 0, true, additional, additionalBuf, extra, extraBuf) {
		return
	}
	for shift := uint(radixBits); shift < 64; shift += radixBits {
		if pass(data, buf, histogram, length, shift, false, additional, additionalBuf, extra, extraBuf) {
			return
		}
	}
}

// pass runs one base-256 counting pass at the given byte position and reports
// whether every key is provably exhausted, i.e. no key has any bit set above
// the current digit, in which case the remaining passes would be no-ops.
//
// Counting into histogram[1+b] and prefix-summing leaves each bucket's start
// offset at histogram[b]; the scatter loop uses it as a running cursor, which
// keeps input order within a bucket and makes the whole sort stable.
func pass[T any](data, buf []int64, histogram []int, length int, shift uint, second bool, additional, additionalBuf []int64, extra, extraBuf []T) bool {
	keyAt := 0
	if second {
		keyAt = 1
	}

	for i := 0; i < HistogramSize; i++ {
		histogram[i] = 0
	}

	var remaining uint64
	for i := 0; i < length; i += 2 {
		k := uint64(data[i+keyAt]) >> shift
		histogram[1+int(k&(buckets-1))]++
		remaining |= k
	}

	for i := 1; i < HistogramSize; i++ {
		histogram[i] += histogram[i-1]
	}

	for i := 0; i < length; i += 2 {
		key := data[i+keyAt]
		value := data[i+(1-keyAt)]
		bucket := int(uint64(key) >> shift & (buckets - 1))
		pos := histogram[bucket]
		histogram[bucket]++
		buf[2*pos] = key
		buf[2*pos+1] = value
		if additional != nil {
			additionalBuf[pos] = additional[i/2]
		}
		if extra != nil {
			extraBuf[pos] = extra[i/2]
		}
	}

	copy(data[:length], buf[:length])
	if additional != nil {
		copy(additional[:length/2], additionalBuf[:length/2])
	}
	if extra != nil {
		copy(extra[:length/2], extraBuf[:length/2])
	}

	return remaining>>radixBits == 0
}

func checkContract(data, buf []int64, histogram []int, length int) {
	if len(histogram) < HistogramSize {
		panic(fmt.Sprintf("radix: histogram length %d, need at least %d", len(histogram), HistogramSize))
	}
	if length%2 != 0 {
		panic(fmt.Sprintf("radix: interleaved pair data must have even length, got %d", length))
	}
	if len(data) < length || len(buf) < length {
		panic(fmt.Sprintf("radix: data (%d) and buffer (%d) must hold at least %d entries", len(data), len(buf), length))
	}
}
