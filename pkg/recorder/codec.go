package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gwillem/autonrec/pkg/robot"
)

// NameMax is the longest routine name, one LCD line.
const NameMax = 16

// NameWidth is the on-disk width of the name header, NUL padded.
const NameWidth = NameMax + 1

// RecordSize is the on-disk width of one snapshot.
const RecordSize = robot.NumChannels

// RoutineSize returns the encoded length of a routine of n samples.
func RoutineSize(n int, header bool) int {
	size := n * RecordSize
	if header {
		size += NameWidth
	}
	return size
}

// EncodeRoutine writes the optional name header followed by every sample
// of buf as signed bytes in channel order.
func EncodeRoutine(w io.Writer, header bool, name string, buf *Buffer) error {
	out := make([]byte, 0, RoutineSize(buf.Len(), header))
	if header {
		out = append(out, encodeName(name)...)
	}
	for i := 0; i < buf.Len(); i++ {
		out = appendSnapshot(out, buf.At(i))
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write routine: %w", err)
	}
	return nil
}

// DecodeRoutine fills buf from r and returns the stored name. A stream that
// ends early leaves the remaining fields zero.
func DecodeRoutine(r io.Reader, header bool, buf *Buffer) (string, error) {
	var name string
	if header {
		raw := make([]byte, NameWidth)
		if _, err := io.ReadFull(r, raw); err != nil && !isShort(err) {
			return "", fmt.Errorf("read name: %w", err)
		}
		name = decodeName(raw)
	}

	for i := 0; i < buf.Len(); i++ {
		s, err := readSnapshot(r)
		buf.Set(i, s)
		if isShort(err) {
			buf.ZeroFrom(i + 1)
			break
		}
		if err != nil {
			return name, fmt.Errorf("read sample %d: %w", i, err)
		}
	}
	return name, nil
}

// ReadName reads just the name header of a numbered routine.
func ReadName(r io.Reader) (string, error) {
	raw := make([]byte, NameWidth)
	if _, err := io.ReadFull(r, raw); err != nil && !isShort(err) {
		return "", err
	}
	return decodeName(raw), nil
}

func encodeName(name string) []byte {
	raw := make([]byte, NameWidth)
	copy(raw[:NameMax], name)
	return raw
}

func decodeName(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw)
}

func appendSnapshot(out []byte, s robot.Snapshot) []byte {
	for _, v := range s {
		out = append(out, byte(v))
	}
	return out
}

// readSnapshot reads one record. On a short read the fields that arrived
// are kept, the rest are zero, and the EOF error is returned.
func readSnapshot(r io.Reader) (robot.Snapshot, error) {
	var raw [RecordSize]byte
	_, err := io.ReadFull(r, raw[:])
	var s robot.Snapshot
	for i, b := range raw {
		s[i] = int8(b)
	}
	return s, err
}

func isShort(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
