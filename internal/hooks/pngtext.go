package hooks

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// maxTextChunk caps how much text chunk data is read from a single chunk.
// Workflow payloads embedded by generation tools run to a few hundred KiB.
const maxTextChunk = 4 << 20

var errNotPNG = errors.New("not a png file")

// pngTextChunks extracts the textual metadata (tEXt, zTXt, iTXt) embedded in
// a PNG file, keyed by chunk keyword. Image data chunks are skipped without
// being read.
func pngTextChunks(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(file, sig); err != nil {
		return nil, fmt.Errorf("read signature: %w", err)
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, errNotPNG
	}

	texts := make(map[string]string)
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(file, header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(header[:4])
		chunkType := string(header[4:8])

		switch chunkType {
		case "tEXt", "zTXt", "iTXt":
			if length > maxTextChunk {
				if _, err := file.Seek(int64(length)+4, io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("skip oversized chunk: %w", err)
				}
				continue
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(file, data); err != nil {
				return nil, fmt.Errorf("read %s chunk: %w", chunkType, err)
			}
			if _, err := file.Seek(4, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skip crc: %w", err)
			}
			keyword, value, err := decodeTextChunk(chunkType, data)
			if err != nil {
				continue
			}
			if keyword != "" && value != "" {
				texts[keyword] = value
			}
		case "IEND":
			return texts, nil
		default:
			if _, err := file.Seek(int64(length)+4, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skip %s chunk: %w", chunkType, err)
			}
		}
	}
	return texts, nil
}

func decodeTextChunk(chunkType string, data []byte) (string, string, error) {
	switch chunkType {
	case "tEXt":
		keyword, rest, ok := bytes.Cut(data, []byte{0})
		if !ok {
			return "", "", errors.New("tEXt: missing separator")
		}
		return string(keyword), latin1String(rest), nil
	case "zTXt":
		keyword, rest, ok := bytes.Cut(data, []byte{0})
		if !ok || len(rest) < 1 {
			return "", "", errors.New("zTXt: missing separator")
		}
		// rest[0] is the compression method; zlib is the only defined one.
		text, err := inflate(rest[1:])
		if err != nil {
			return "", "", err
		}
		return string(keyword), latin1String(text), nil
	case "iTXt":
		keyword, rest, ok := bytes.Cut(data, []byte{0})
		if !ok || len(rest) < 2 {
			return "", "", errors.New("iTXt: missing separator")
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		// Skip language tag and translated keyword.
		if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
			return "", "", errors.New("iTXt: missing language tag")
		}
		if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
			return "", "", errors.New("iTXt: missing translated keyword")
		}
		if compressed {
			text, err := inflate(rest)
			if err != nil {
				return "", "", err
			}
			return string(keyword), string(text), nil
		}
		return string(keyword), string(rest), nil
	}
	return "", "", fmt.Errorf("unsupported chunk type %q", chunkType)
}

func inflate(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(io.LimitReader(reader, maxTextChunk))
}

func latin1String(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}
