package docker

import (
	"encoding/binary"
	"errors"
	"io"
)

// DemuxLogs copies a multiplexed log stream to dst, stripping the 8-byte
// frame headers the Engine API prepends when the container has no TTY.
// Both stdout and stderr frames land in dst; ordering is preserved.
func DemuxLogs(dst io.Writer, src io.Reader) error {
	var hdr [8]byte
	for {
		if _, err := io.ReadFull(src, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		size := binary.BigEndian.Uint32(hdr[4:])
		if _, err := io.CopyN(dst, src, int64(size)); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
