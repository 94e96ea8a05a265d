package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Region tile format errors.
var (
	ErrInvalidRegionMagic       = errors.New("invalid region magic: expected 'T3RG'")
	ErrUnsupportedRegionVersion = errors.New("unsupported region version")
	ErrTruncatedRegionData      = errors.New("truncated region data")
)

const (
	regionMagic        = "T3RG"
	regionVersionMajor = 1
	regionVersionMinor = 0
	regionHeaderSize   = 32

	// layer count and bytes per pixel are fixed by the format
	regionLayers        = 3
	regionBytesPerTexel = 4

	flagCompressed uint16 = 1 << 0
)

// RegionTile is the persisted form of one region: its placement and the raw
// pixel bytes of its height, control and color layers.
type RegionTile struct {
	OffsetX   int32
	OffsetY   int32
	ID        uint16
	Size      uint32 // pixels per side
	HeightMin float32
	HeightMax float32
	Height    []byte
	Control   []byte
	Color     []byte
}

// LayerBytes returns the expected byte length of one layer.
func (t *RegionTile) LayerBytes() int {
	return int(t.Size) * int(t.Size) * regionBytesPerTexel
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() {
	encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if codecErr != nil {
		return
	}
	decoder, codecErr = zstd.NewReader(nil)
}

// EncodeRegion serializes a tile. With compress set, the layer payload is
// zstd-compressed.
func EncodeRegion(tile *RegionTile, compress bool) ([]byte, error) {
	n := tile.LayerBytes()
	if len(tile.Height) != n || len(tile.Control) != n || len(tile.Color) != n {
		return nil, fmt.Errorf("region %d,%d: layer sizes %d/%d/%d, want %d",
			tile.OffsetX, tile.OffsetY, len(tile.Height), len(tile.Control), len(tile.Color), n)
	}

	payload := make([]byte, 0, regionLayers*n)
	payload = append(payload, tile.Height...)
	payload = append(payload, tile.Control...)
	payload = append(payload, tile.Color...)

	var flags uint16
	if compress {
		codecOnce.Do(initCodec)
		if codecErr != nil {
			return nil, fmt.Errorf("initializing zstd: %w", codecErr)
		}
		payload = encoder.EncodeAll(payload, nil)
		flags |= flagCompressed
	}

	buf := bytes.NewBuffer(make([]byte, 0, regionHeaderSize+4+len(payload)))
	buf.WriteString(regionMagic)
	buf.WriteByte(regionVersionMajor)
	buf.WriteByte(regionVersionMinor)

	header := struct {
		Flags     uint16
		Size      uint32
		OffsetX   int32
		OffsetY   int32
		ID        uint16
		Reserved  uint16
		HeightMin float32
		HeightMax float32
	}{flags, tile.Size, tile.OffsetX, tile.OffsetY, tile.ID, 0, tile.HeightMin, tile.HeightMax}
	if err := binary.Write(buf, binary.LittleEndian, &header); err != nil {
		return nil, err
	}

	if compress {
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(payload))); err != nil {
			return nil, err
		}
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// DecodeRegion parses a tile produced by EncodeRegion.
func DecodeRegion(data []byte) (*RegionTile, error) {
	if len(data) < regionHeaderSize {
		return nil, ErrTruncatedRegionData
	}

	if string(data[0:4]) != regionMagic {
		return nil, ErrInvalidRegionMagic
	}

	major, minor := data[4], data[5]
	if major != regionVersionMajor {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedRegionVersion, major, minor)
	}

	r := bytes.NewReader(data[6:regionHeaderSize])
	var header struct {
		Flags     uint16
		Size      uint32
		OffsetX   int32
		OffsetY   int32
		ID        uint16
		Reserved  uint16
		HeightMin float32
		HeightMax float32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedRegionData)
	}

	if header.Size == 0 || header.Size > 1<<14 {
		return nil, fmt.Errorf("invalid region size: %d", header.Size)
	}

	tile := &RegionTile{
		OffsetX:   header.OffsetX,
		OffsetY:   header.OffsetY,
		ID:        header.ID,
		Size:      header.Size,
		HeightMin: header.HeightMin,
		HeightMax: header.HeightMax,
	}

	payload := data[regionHeaderSize:]
	if header.Flags&flagCompressed != 0 {
		if len(payload) < 4 {
			return nil, fmt.Errorf("%w: reading payload length", ErrTruncatedRegionData)
		}
		clen := binary.LittleEndian.Uint32(payload)
		payload = payload[4:]
		if uint32(len(payload)) < clen {
			return nil, fmt.Errorf("%w: compressed payload", ErrTruncatedRegionData)
		}
		codecOnce.Do(initCodec)
		if codecErr != nil {
			return nil, fmt.Errorf("initializing zstd: %w", codecErr)
		}
		raw, err := decoder.DecodeAll(payload[:clen], nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing region %d,%d: %w", tile.OffsetX, tile.OffsetY, err)
		}
		payload = raw
	}

	n := tile.LayerBytes()
	if len(payload) < regionLayers*n {
		return nil, fmt.Errorf("%w: layers", ErrTruncatedRegionData)
	}

	// Copy so the tile does not alias the caller's buffer.
	layers := make([]byte, regionLayers*n)
	copy(layers, payload)
	tile.Height = layers[0:n:n]
	tile.Control = layers[n : 2*n : 2*n]
	tile.Color = layers[2*n : 3*n : 3*n]

	return tile, nil
}
