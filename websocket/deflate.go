package websocket

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// deflateTail is the 4-octet sync-flush marker RFC 7692 §7.2.1 says a
// sender must strip after compressing a message, and a receiver must
// re-append before feeding the stream back into DEFLATE.
var deflateTail = []byte{0x00, 0x00, 0xff, 0xff}

// deflateMessage compresses payload per RFC 7692: DEFLATE with a
// sync flush, then the trailing 00 00 ff ff removed. A zero level
// selects flate.DefaultCompression, as Config.CompressionLevel states.
func deflateMessage(payload []byte, level int) ([]byte, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("websocket: new deflate writer: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("websocket: deflate write: %w", err)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("websocket: deflate flush: %w", err)
	}

	out := buf.Bytes()
	if bytes.HasSuffix(out, deflateTail) {
		out = out[:len(out)-len(deflateTail)]
	}
	return out, nil
}

// inflateMessage reverses deflateMessage: re-append the sync-flush
// tail RFC 7692 requires the sender to have stripped, then inflate.
func inflateMessage(payload []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(append(payload, deflateTail...)))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("websocket: inflate: %w", err)
	}
	return out, nil
}
