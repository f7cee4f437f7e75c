package capture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"

	"github.com/Dreta/Beacon/pkg/perception"
)

// Bridge message tags.
const (
	tagColor byte = 'C'
	tagDepth byte = 'D'
)

const (
	colorHeader = 1 + 8
	depthHeader = 1 + 8 + 4 + 4 + 1 + 1

	maxDepthSide = 1 << 12
)

// EncodeColor builds a color message carrying img as JPEG.
func EncodeColor(img image.Image, at time.Time, quality int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tagColor)
	_ = binary.Write(&buf, binary.LittleEndian, at.UnixNano())
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode color: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDepth builds a depth message.
func EncodeDepth(d perception.DepthSample) ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: invalid depth grid", ErrBadMessage)
	}
	b := make([]byte, depthHeader+4*len(d.Values))
	b[0] = tagDepth
	binary.LittleEndian.PutUint64(b[1:], uint64(d.CapturedAt.UnixNano()))
	binary.LittleEndian.PutUint32(b[9:], uint32(d.Width))
	binary.LittleEndian.PutUint32(b[13:], uint32(d.Height))
	b[17] = byte(d.Encoding)
	b[18] = byte(d.Origin)
	for i, v := range d.Values {
		binary.LittleEndian.PutUint32(b[depthHeader+4*i:], math.Float32bits(v))
	}
	return b, nil
}

// decodeMessage parses one bridge message into either a frame or a depth
// sample.
func decodeMessage(b []byte) (*perception.Frame, *perception.DepthSample, error) {
	if len(b) == 0 {
		return nil, nil, fmt.Errorf("%w: empty", ErrBadMessage)
	}
	switch b[0] {
	case tagColor:
		f, err := decodeColor(b)
		return f, nil, err
	case tagDepth:
		d, err := decodeDepth(b)
		return nil, d, err
	}
	return nil, nil, fmt.Errorf("%w: tag %q", ErrBadMessage, b[0])
}

func decodeColor(b []byte) (*perception.Frame, error) {
	if len(b) <= colorHeader {
		return nil, fmt.Errorf("%w: short color message", ErrBadMessage)
	}
	ts := int64(binary.LittleEndian.Uint64(b[1:]))
	img, err := jpeg.Decode(bytes.NewReader(b[colorHeader:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return &perception.Frame{Image: img, CapturedAt: time.Unix(0, ts)}, nil
}

func decodeDepth(b []byte) (*perception.DepthSample, error) {
	if len(b) < depthHeader {
		return nil, fmt.Errorf("%w: short depth header", ErrBadMessage)
	}
	ts := int64(binary.LittleEndian.Uint64(b[1:]))
	w := int(binary.LittleEndian.Uint32(b[9:]))
	h := int(binary.LittleEndian.Uint32(b[13:]))
	enc := perception.DepthEncoding(b[17])
	origin := perception.Origin(b[18])

	if enc > perception.EncodingDisparity || origin > perception.OriginBottomLeft {
		return nil, fmt.Errorf("%w: encoding %d origin %d", ErrBadMessage, enc, origin)
	}
	if w <= 0 || h <= 0 || w > maxDepthSide || h > maxDepthSide || len(b)-depthHeader != 4*w*h {
		return nil, fmt.Errorf("%w: %dx%d grid with %d bytes", ErrBadMessage, w, h, len(b)-depthHeader)
	}

	values := make([]float32, w*h)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[depthHeader+4*i:]))
	}
	return &perception.DepthSample{
		Width:      w,
		Height:     h,
		Values:     values,
		Encoding:   enc,
		Origin:     origin,
		CapturedAt: time.Unix(0, ts),
	}, nil
}
