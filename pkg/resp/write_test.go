package resp

import (
	"math"
	"testing"
)

func TestAppendFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{"simple", SimpleFrame("OK"), "+OK\r\n"},
		{"error", ErrorFrame("ERR bad"), "-ERR bad\r\n"},
		{"integer", IntegerFrame(-7), ":-7\r\n"},
		{"bulk", BulkStringFrame("v"), "$1\r\nv\r\n"},
		{"bulk nil payload", BulkFrame(nil), "$0\r\n\r\n"},
		{"null bulk", NullBulk(), "$-1\r\n"},
		{"null array", NullArray(), "*-1\r\n"},
		{"empty array", ArrayFrame(), "*0\r\n"},
		{"request", CommandStrings("GET", "k"), "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"},
		{"zero frame", Frame{}, "$-1\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.frame.Bytes()); got != tt.want {
				t.Errorf("Bytes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	frames := []Frame{
		SimpleFrame(""),
		SimpleFrame("PONG"),
		ErrorFrame("WRONGTYPE Operation against a key"),
		IntegerFrame(0),
		IntegerFrame(math.MaxInt64),
		IntegerFrame(math.MinInt64),
		BulkStringFrame(""),
		BulkFrame([]byte{0, 1, 2, '\r', '\n', 0xff}),
		NullBulk(),
		NullArray(),
		ArrayFrame(),
		ArrayFrame(NullBulk(), NullArray(), ArrayFrame()),
		ArrayFrame(
			SimpleFrame("a"),
			ErrorFrame("b"),
			IntegerFrame(3),
			ArrayFrame(BulkStringFrame("nested"), IntegerFrame(-1)),
		),
	}

	for _, f := range frames {
		wire := f.Bytes()
		got, n, err := Parse(wire)
		if err != nil {
			t.Fatalf("Parse(render(%v)) error = %v", f, err)
		}
		if n != len(wire) {
			t.Fatalf("Parse(render(%v)) consumed %d of %d", f, n, len(wire))
		}
		if !got.Equal(f) {
			t.Fatalf("Parse(render(%v)) = %v", f, got)
		}
	}
}

func TestFrame_Equal(t *testing.T) {
	if NullBulk().Equal(BulkStringFrame("")) {
		t.Error("null bulk must not equal empty bulk")
	}
	if NullArray().Equal(ArrayFrame()) {
		t.Error("null array must not equal empty array")
	}
	if SimpleFrame("x").Equal(BulkStringFrame("x")) {
		t.Error("frames of different kinds must not be equal")
	}
	if !CommandStrings("a", "b").Equal(Command([]byte("a"), []byte("b"))) {
		t.Error("equivalent requests should be equal")
	}
}

func TestFrame_Clone(t *testing.T) {
	buf := []byte("*1\r\n$3\r\nabc\r\n")
	f, _, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	c := f.Clone()
	buf[8] = 'X'
	if string(c.Array[0].Str) != "abc" {
		t.Fatalf("clone aliases input: %q", c.Array[0].Str)
	}
}

func TestFrame_String(t *testing.T) {
	f := ArrayFrame(SimpleFrame("OK"), IntegerFrame(2), BulkStringFrame("v"), NullBulk())
	if got, want := f.String(), `[+OK :2 "v" $-1]`; got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}
