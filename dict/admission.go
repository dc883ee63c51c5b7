package dict

import "github.com/drwjrice/au/internal/hash"

// DefaultThreshold is the default hit count a candidate string must cross
// before being admitted to the dictionary.
const DefaultThreshold = 10

// DefaultMinLength is the default minimum string length eligible for
// admission.
const DefaultMinLength = 4

// DefaultBucketCap is the default number of candidate buckets the
// admission index retains before evicting non-admitted entries.
const DefaultBucketCap = 4096

// candidate tracks one string's admission progress. Candidates are stored
// in buckets keyed by the string's hash; two distinct strings that hash
// alike are kept as separate candidates in one bucket's chain and told
// apart by comparing value.
type candidate struct {
	value    string
	hits     int
	index    int // dictionary index once admitted, -1 otherwise
	lastSeen uint64
}

// Admission is the encoder-side auxiliary index described in §4.3: a
// bounded hash from string to (index-if-admitted, hit-count). Crossing the
// threshold and minimum-length gate promotes a candidate into the backing
// Dictionary.
type Admission struct {
	dict      *Dictionary
	threshold int
	minLength int
	bucketCap int

	buckets map[uint64][]*candidate
	clock   uint64
}

// NewAdmission builds an Admission policy writing promoted strings into d.
func NewAdmission(d *Dictionary, threshold, minLength, bucketCap int) *Admission {
	return &Admission{
		dict:      d,
		threshold: threshold,
		minLength: minLength,
		bucketCap: bucketCap,
		buckets:   make(map[uint64][]*candidate),
	}
}

// Clear resets the admission index alongside the backing Dictionary. Call
// this whenever the Dictionary itself is cleared.
func (a *Admission) Clear() {
	a.dict.Clear()
	a.buckets = make(map[uint64][]*candidate)
	a.clock = 0
}

// Touch records one occurrence of s. If s is already admitted, it returns
// its dictionary index and promoted=false (no new A frame is needed). If
// this occurrence crosses the admission threshold, s is added to the
// Dictionary and Touch returns promoted=true with the new index. Otherwise
// it returns ok=false: the caller must emit s inline.
func (a *Admission) Touch(s string) (index int, promoted bool, ok bool) {
	a.clock++
	key := hash.ID(s)

	chain := a.buckets[key]
	for _, c := range chain {
		if c.value != s {
			continue
		}
		c.lastSeen = a.clock
		if c.index >= 0 {
			return c.index, false, true
		}
		c.hits++
		if c.hits > a.threshold && len(s) >= a.minLength {
			c.index = a.dict.Add(s)
			return c.index, true, true
		}
		return 0, false, false
	}

	c := &candidate{value: s, hits: 1, index: -1, lastSeen: a.clock}
	if c.hits > a.threshold && len(s) >= a.minLength {
		c.index = a.dict.Add(s)
		a.buckets[key] = append(chain, c)
		return c.index, true, true
	}

	a.buckets[key] = append(chain, c)
	a.evictIfNeeded()
	return 0, false, false
}

// ForceAdmit bypasses the hit-count gate and admits s immediately,
// recording it in the admission index so future Touch calls resolve it to
// a dict-ref. Used by the caller-supplied InternHint (§5.1). isNew reports
// whether this call actually added a fresh dictionary entry (the caller
// must emit an A frame for it) as opposed to resolving an already-admitted
// string.
func (a *Admission) ForceAdmit(s string) (index int, isNew bool) {
	a.clock++
	key := hash.ID(s)

	for _, c := range a.buckets[key] {
		if c.value == s {
			c.lastSeen = a.clock
			if c.index >= 0 {
				return c.index, false
			}
			c.index = a.dict.Add(s)
			return c.index, true
		}
	}

	index = a.dict.Add(s)
	a.buckets[key] = append(a.buckets[key], &candidate{
		value: s, hits: a.threshold, index: index, lastSeen: a.clock,
	})
	return index, true
}

// Unadmit reverts a promotion made earlier in an in-progress record that
// is being discarded before commit (§4.4: "any unrecoverable error...
// discards the scratch region without touching the output"). It clears
// the candidate's assigned index but keeps its hit count, since those
// occurrences genuinely happened.
func (a *Admission) Unadmit(s string) {
	for _, c := range a.buckets[hash.ID(s)] {
		if c.value == s {
			c.index = -1
			return
		}
	}
}

// HashSize returns the number of distinct candidate strings currently
// tracked (admitted or not); it is one of the encoder's reported stats.
func (a *Admission) HashSize() int {
	n := 0
	for _, chain := range a.buckets {
		n += len(chain)
	}
	return n
}

// BucketCount returns the number of occupied hash buckets; reported as
// HashBucketCount in the encoder's stats map.
func (a *Admission) BucketCount() int {
	return len(a.buckets)
}

// evictIfNeeded removes least-recently-touched non-admitted candidates
// once the number of tracked candidates exceeds bucketCap. Admitted
// entries are never evicted; correctness does not depend on which
// non-admitted entry is chosen, only that eviction makes room.
func (a *Admission) evictIfNeeded() {
	if a.bucketCap <= 0 || a.HashSize() <= a.bucketCap {
		return
	}

	type scored struct {
		key   uint64
		idx   int
		stamp uint64
	}
	var victims []scored
	for key, chain := range a.buckets {
		for i, c := range chain {
			if c.index < 0 {
				victims = append(victims, scored{key, i, c.lastSeen})
			}
		}
	}

	// Oldest lastSeen first.
	for i := 1; i < len(victims); i++ {
		for j := i; j > 0 && victims[j].stamp < victims[j-1].stamp; j-- {
			victims[j], victims[j-1] = victims[j-1], victims[j]
		}
	}

	excess := a.HashSize() - a.bucketCap
	removed := make(map[uint64]map[int]bool)
	for i := 0; i < excess && i < len(victims); i++ {
		v := victims[i]
		if removed[v.key] == nil {
			removed[v.key] = make(map[int]bool)
		}
		removed[v.key][v.idx] = true
	}

	for key, idxSet := range removed {
		chain := a.buckets[key]
		kept := chain[:0]
		for i, c := range chain {
			if !idxSet[i] {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(a.buckets, key)
		} else {
			a.buckets[key] = kept
		}
	}
}
