package decode

import (
	"encoding/binary"
	"io"
	"testing"
)

// buildFixture assembles a minimal valid container with the given packets.
func buildFixture(t *testing.T, width, height int, duration int64, packets []Packet) []byte {
	t.Helper()

	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], magic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(width))
	binary.BigEndian.PutUint32(buf[8:12], uint32(height))
	binary.BigEndian.PutUint64(buf[12:20], uint64(duration))

	for _, p := range packets {
		hdr := make([]byte, packetHeader+4)
		binary.BigEndian.PutUint64(hdr[0:8], uint64(p.PTSUs))
		binary.BigEndian.PutUint64(hdr[8:16], uint64(p.DurationUs))
		if p.Keyframe {
			hdr[16] = 1
		}
		binary.BigEndian.PutUint32(hdr[17:21], uint32(len(p.Data)))
		buf = append(buf, hdr...)
		buf = append(buf, p.Data...)
	}
	return buf
}

func TestOpenRejectsBadMagic(t *testing.T) {
	t.Parallel()

	_, err := Open([]byte("not a container, too short"))
	if err != ErrBadContainer {
		t.Fatalf("err = %v, want ErrBadContainer", err)
	}
}

func TestOpenParsesConfig(t *testing.T) {
	t.Parallel()

	data := buildFixture(t, 64, 48, 5_000_000, []Packet{
		{PTSUs: 0, DurationUs: 33000, Keyframe: true, Data: []byte("a")},
	})
	d, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cfg := d.Config()
	if cfg.Width != 64 || cfg.Height != 48 || cfg.DurationUs != 5_000_000 {
		t.Errorf("Config() = %+v, want {64,48,5000000}", cfg)
	}
}

func TestNextPacketIteratesInOrder(t *testing.T) {
	t.Parallel()

	data := buildFixture(t, 2, 2, 0, []Packet{
		{PTSUs: 0, Keyframe: true, Data: []byte("k")},
		{PTSUs: 33000, Data: []byte("d1")},
		{PTSUs: 66000, Data: []byte("d2")},
	})
	d, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var gotPTS []int64
	for {
		p, err := d.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPacket: %v", err)
		}
		gotPTS = append(gotPTS, p.PTSUs)
	}
	want := []int64{0, 33000, 66000}
	if len(gotPTS) != len(want) {
		t.Fatalf("got %v packets, want %v", gotPTS, want)
	}
	for i := range want {
		if gotPTS[i] != want[i] {
			t.Errorf("packet %d PTS = %d, want %d", i, gotPTS[i], want[i])
		}
	}
}

func TestSeekKeyframeFindsLatestAtOrBefore(t *testing.T) {
	t.Parallel()

	data := buildFixture(t, 2, 2, 0, []Packet{
		{PTSUs: 0, Keyframe: true, Data: []byte("k0")},
		{PTSUs: 1_000_000, Data: []byte("d")},
		{PTSUs: 2_000_000, Keyframe: true, Data: []byte("k1")},
		{PTSUs: 3_000_000, Data: []byte("d")},
	})
	d, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	pts, err := d.SeekKeyframe(2_500_000)
	if err != nil {
		t.Fatalf("SeekKeyframe: %v", err)
	}
	if pts != 2_000_000 {
		t.Errorf("SeekKeyframe(2.5s) = %d, want 2000000", pts)
	}

	next, err := d.NextPacket()
	if err != nil {
		t.Fatalf("NextPacket after seek: %v", err)
	}
	if next.PTSUs != 2_000_000 {
		t.Errorf("packet after seek PTS = %d, want 2000000", next.PTSUs)
	}
}

func TestSeekKeyframeBeforeFirstFallsBackToFirst(t *testing.T) {
	t.Parallel()

	data := buildFixture(t, 2, 2, 0, []Packet{
		{PTSUs: 5_000_000, Keyframe: true, Data: []byte("k")},
	})
	d, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	pts, err := d.SeekKeyframe(0)
	if err != nil {
		t.Fatalf("SeekKeyframe: %v", err)
	}
	if pts != 5_000_000 {
		t.Errorf("SeekKeyframe(0) = %d, want 5000000 (fallback to first keyframe)", pts)
	}
}
