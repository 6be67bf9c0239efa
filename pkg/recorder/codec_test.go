package recorder

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gwillem/autonrec/pkg/robot"
)

func TestEncodeRoutine_Layout(t *testing.T) {
	buf := NewBuffer(2)
	buf.Set(0, robot.Snapshot{10, -10, 0, 127, -127})
	buf.Set(1, robot.Snapshot{1, 2, 3, 4, 5})

	var out bytes.Buffer
	if err := EncodeRoutine(&out, true, "AB", buf); err != nil {
		t.Fatalf("EncodeRoutine: %v", err)
	}

	want := make([]byte, NameWidth)
	copy(want, "AB")
	want = append(want, 10, 0xf6, 0, 0x7f, 0x81, 1, 2, 3, 4, 5)
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("encoded = %v\nwant      %v", out.Bytes(), want)
	}
	if out.Len() != RoutineSize(2, true) {
		t.Errorf("size = %d, want %d", out.Len(), RoutineSize(2, true))
	}

	out.Reset()
	if err := EncodeRoutine(&out, false, "ignored", buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), want[NameWidth:]) {
		t.Errorf("section encoding = %v", out.Bytes())
	}
}

func TestRoutine_RoundTrip(t *testing.T) {
	src := NewBuffer(50)
	for i := 0; i < src.Len(); i++ {
		v := int8(i*5 - 128)
		src.Set(i, robot.Snapshot{v, -v, v / 2, int8(i), -1})
	}

	for _, header := range []bool{true, false} {
		var out bytes.Buffer
		if err := EncodeRoutine(&out, header, "Blue Left", src); err != nil {
			t.Fatal(err)
		}

		dst := NewBuffer(50)
		name, err := DecodeRoutine(&out, header, dst)
		if err != nil {
			t.Fatalf("DecodeRoutine: %v", err)
		}
		if header && name != "Blue Left" {
			t.Errorf("name = %q", name)
		}
		for i := 0; i < src.Len(); i++ {
			if dst.At(i) != src.At(i) {
				t.Fatalf("header=%v sample %d = %v, want %v", header, i, dst.At(i), src.At(i))
			}
		}
	}
}

func TestDecodeRoutine_ShortStreamZeroFills(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7}
	dst := NewBuffer(3)
	dst.Set(2, robot.Snapshot{9, 9, 9, 9, 9})

	if _, err := DecodeRoutine(bytes.NewReader(data), false, dst); err != nil {
		t.Fatalf("DecodeRoutine: %v", err)
	}

	want := []robot.Snapshot{{1, 2, 3, 4, 5}, {6, 7, 0, 0, 0}, {}}
	for i, w := range want {
		if dst.At(i) != w {
			t.Errorf("sample %d = %v, want %v", i, dst.At(i), w)
		}
	}
}

func TestDecodeRoutine_EmptyNumbered(t *testing.T) {
	dst := NewBuffer(2)
	dst.Set(0, robot.Snapshot{1})
	name, err := DecodeRoutine(bytes.NewReader(nil), true, dst)
	if err != nil || name != "" {
		t.Fatalf("DecodeRoutine(empty) = %q, %v", name, err)
	}
	if !dst.At(0).IsZero() {
		t.Error("empty stream should zero the buffer")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("flash fault") }

func TestDecodeRoutine_ReadError(t *testing.T) {
	if _, err := DecodeRoutine(failingReader{}, false, NewBuffer(2)); err == nil {
		t.Error("expected read error")
	}
}

func TestName_TruncatedAndPadded(t *testing.T) {
	raw := encodeName("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	if len(raw) != NameWidth || raw[NameMax] != 0 {
		t.Fatalf("encodeName = %v", raw)
	}

	name, err := ReadName(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if name != "ABCDEFGHIJKLMNOP" {
		t.Errorf("name = %q", name)
	}

	name, err = ReadName(bytes.NewReader([]byte("Hi")))
	if err != nil || name != "Hi" {
		t.Errorf("short header = %q, %v", name, err)
	}
}
