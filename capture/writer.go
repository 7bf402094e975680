package capture

import (
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ganadobravo/scanfusion/keyframe"
)

// Writer appends frames to a capture stream.
type Writer struct {
	zw     *zstd.Encoder
	enc    *cbor.Encoder
	closer io.Closer
	frames int
}

// NewWriter starts a capture on w and writes its header. Version, Format and a zero Created are
// filled in. Close must be called to flush the stream; it does not close w.
func NewWriter(w io.Writer, header Header) (*Writer, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create compressor")
	}
	header.Format = formatName
	header.Version = Version
	if header.Created.IsZero() {
		header.Created = time.Now().UTC()
	}
	cw := &Writer{zw: zw, enc: encMode.NewEncoder(zw)}
	if err := cw.enc.Encode(header); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "failed to write capture header"), zw.Close())
	}
	return cw, nil
}

// Create creates the file at path and starts a capture in it. Closing the Writer closes the file.
func Create(path string, header Header) (*Writer, error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, header)
	if err != nil {
		return nil, multierr.Combine(err, f.Close())
	}
	w.closer = f
	return w, nil
}

// WriteFrame appends f to the capture.
func (w *Writer) WriteFrame(f keyframe.Frame) error {
	rec, err := toRecord(f)
	if err != nil {
		return err
	}
	if err := w.enc.Encode(rec); err != nil {
		return errors.Wrapf(err, "failed to write frame %d", w.frames)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frames
}

// Close flushes the stream and closes the underlying file, if the Writer opened it.
func (w *Writer) Close() error {
	err := w.zw.Close()
	if w.closer != nil {
		err = multierr.Combine(err, w.closer.Close())
	}
	return err
}
