package docker

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func frame(stream byte, payload string) []byte {
	hdr := make([]byte, 8)
	hdr[0] = stream
	binary.BigEndian.PutUint32(hdr[4:], uint32(len(payload)))
	return append(hdr, payload...)
}

func TestDemuxLogs(t *testing.T) {
	var in bytes.Buffer
	in.Write(frame(1, "hello "))
	in.Write(frame(2, "oops\n"))
	in.Write(frame(1, "world\n"))

	var out bytes.Buffer
	if err := DemuxLogs(&out, &in); err != nil {
		t.Fatalf("demux: %v", err)
	}
	if out.String() != "hello oops\nworld\n" {
		t.Fatalf("out = %q", out.String())
	}
}

func TestDemuxLogsTruncatedFrame(t *testing.T) {
	in := bytes.NewBuffer(frame(1, "abc")[:9])
	var out bytes.Buffer
	if err := DemuxLogs(&out, in); err != nil {
		t.Fatalf("truncated stream should end cleanly, got %v", err)
	}
}
