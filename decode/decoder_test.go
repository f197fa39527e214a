package decode

import (
	"context"
	"testing"

	"github.com/zsiec/weave/media"
)

func rawPacket(width, height int, keyframe bool, pts int64) Packet {
	ySize := media.AlignStride(width) * height
	cStride := media.AlignStride((width + 1) / 2)
	cSize := cStride * ((height + 1) / 2)
	return Packet{PTSUs: pts, Keyframe: keyframe, Data: make([]byte, ySize+2*cSize)}
}

func TestDecoderDiscardsDeltaBeforeKeyframe(t *testing.T) {
	t.Parallel()

	d := NewRawDecoder(16, 16)
	f, err := d.Decode(context.Background(), rawPacket(16, 16, false, 0))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f != nil {
		t.Error("expected nil frame for delta packet before keyframe")
	}
	if d.Ready() {
		t.Error("decoder should not be ready yet")
	}
}

func TestDecoderBecomesReadyAtKeyframe(t *testing.T) {
	t.Parallel()

	d := NewRawDecoder(16, 16)
	f, err := d.Decode(context.Background(), rawPacket(16, 16, true, 0))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f == nil {
		t.Fatal("expected a frame from keyframe decode")
	}
	if !d.Ready() {
		t.Error("decoder should be ready after keyframe")
	}
}

func TestDecoderResetRequiresNewKeyframe(t *testing.T) {
	t.Parallel()

	d := NewRawDecoder(16, 16)
	_, _ = d.Decode(context.Background(), rawPacket(16, 16, true, 0))
	d.Reset()
	if d.Ready() {
		t.Fatal("expected not-ready immediately after Reset")
	}
	f, _ := d.Decode(context.Background(), rawPacket(16, 16, false, 1))
	if f != nil {
		t.Error("expected delta packet after reset to be discarded")
	}
}

func TestDecodeTransientOnShortPayload(t *testing.T) {
	t.Parallel()

	d := NewRawDecoder(16, 16)
	p := Packet{PTSUs: 0, Keyframe: true, Data: []byte("too short")}
	_, err := d.Decode(context.Background(), p)
	if err == nil {
		t.Fatal("expected transient decode error for undersized payload")
	}
}

func TestDecodeTimeoutMarksNotReady(t *testing.T) {
	t.Parallel()

	d := NewRawDecoder(16, 16)
	_, _ = d.Decode(context.Background(), rawPacket(16, 16, true, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Decode(ctx, rawPacket(16, 16, false, 1))
	if err == nil {
		t.Fatal("expected timeout error on cancelled context")
	}
	if d.Ready() {
		t.Error("decoder should be marked not-ready after timeout")
	}
}
