package recorder

import "github.com/gwillem/autonrec/pkg/robot"

// Buffer is the fixed-length working set of one section. Index i is the
// command for elapsed time i/PollHz seconds.
type Buffer struct {
	samples []robot.Snapshot
}

// NewBuffer allocates a zeroed buffer of n samples.
func NewBuffer(n int) *Buffer {
	if n < 0 {
		n = 0
	}
	return &Buffer{samples: make([]robot.Snapshot, n)}
}

// Len is the number of samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// At returns sample i.
func (b *Buffer) At(i int) robot.Snapshot {
	return b.samples[i]
}

// Set stores sample i.
func (b *Buffer) Set(i int, s robot.Snapshot) {
	b.samples[i] = s
}

// ZeroFrom clears samples [i, Len).
func (b *Buffer) ZeroFrom(i int) {
	i = max(0, min(i, len(b.samples)))
	clear(b.samples[i:])
}

// Reset clears every sample.
func (b *Buffer) Reset() {
	clear(b.samples)
}

// Snapshots returns a copy of the samples.
func (b *Buffer) Snapshots() []robot.Snapshot {
	out := make([]robot.Snapshot, len(b.samples))
	copy(out, b.samples)
	return out
}

// CopyFrom overwrites the buffer with src, zero-filling any shortfall.
func (b *Buffer) CopyFrom(src []robot.Snapshot) {
	n := copy(b.samples, src)
	b.ZeroFrom(n)
}
