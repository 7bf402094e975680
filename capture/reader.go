package capture

import (
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/ganadobravo/scanfusion/keyframe"
)

// Reader plays back a capture stream.
type Reader struct {
	zr     *zstd.Decoder
	dec    *cbor.Decoder
	closer io.Closer
	header Header
	frames int
}

// NewReader reads the capture header from r.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decompressor")
	}
	cr := &Reader{zr: zr, dec: cbor.NewDecoder(zr)}
	if err := cr.dec.Decode(&cr.header); err != nil {
		zr.Close()
		return nil, errors.Wrap(err, "failed to read capture header")
	}
	if cr.header.Format != formatName {
		zr.Close()
		return nil, errors.Errorf("not a capture: format is %q", cr.header.Format)
	}
	if cr.header.Version != Version {
		zr.Close()
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", cr.header.Version)
	}
	return cr, nil
}

// Open opens the capture file at path. Closing the Reader closes the file.
func Open(path string) (*Reader, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "%s", path), f.Close())
	}
	r.closer = f
	return r, nil
}

// Header returns the capture header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (keyframe.Frame, error) {
	var rec frameRecord
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return keyframe.Frame{}, io.EOF
		}
		return keyframe.Frame{}, errors.Wrapf(err, "failed to read frame %d", r.frames)
	}
	r.frames++
	return fromRecord(rec)
}

// Close releases the decompressor and closes the underlying file, if the Reader opened it.
func (r *Reader) Close() error {
	r.zr.Close()
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// ReadFile reads a whole capture file.
func ReadFile(path string) (Header, []keyframe.Frame, error) {
	r, err := Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer utils.UncheckedErrorFunc(r.Close)

	var frames []keyframe.Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.header, frames, nil
		}
		if err != nil {
			return Header{}, nil, err
		}
		frames = append(frames, f)
	}
}
