package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

const (
	formatPCM   = 1
	formatFloat = 3
)

// Clip is one captured recording held in memory.
type Clip struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Format        uint16
	Data          []byte
}

func (c Clip) bytesPerSample() int {
	return c.BitsPerSample / 8
}

// Samples returns the number of samples across all channels.
func (c Clip) Samples() int64 {
	n := c.bytesPerSample()
	if n <= 0 {
		return 0
	}
	return int64(len(c.Data) / n)
}

func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	return float64(c.Samples()) / float64(c.Channels) / float64(c.SampleRate)
}

// LINEAR16 returns the clip as signed 16-bit little-endian PCM, converting
// other sample formats.
func (c Clip) LINEAR16() ([]byte, error) {
	if err := validateFormat(c.Format, uint16(c.BitsPerSample)); err != nil {
		return nil, err
	}
	if c.Format == formatPCM && c.BitsPerSample == 16 {
		return c.Data, nil
	}

	n := c.bytesPerSample()
	out := make([]byte, 0, int(c.Samples())*2)
	var buf [2]byte
	for i := 0; i+n <= len(c.Data); i += n {
		value, err := decodeSample(c.Data[i:i+n], c.Format, uint16(c.BitsPerSample))
		if err != nil {
			return nil, err
		}
		value = math.Max(-1, math.Min(1, value))
		binary.LittleEndian.PutUint16(buf[:], uint16(int16(math.Round(value*32767))))
		out = append(out, buf[:]...)
	}
	return out, nil
}

func ReadWAV(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	return DecodeWAV(f)
}

func DecodeWAV(r io.ReadSeeker) (Clip, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Clip{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return Clip{}, fmt.Errorf("read wav header: %w", err)
	}

	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Clip{}, ErrInvalidWAV
	}

	var (
		clip    Clip
		hasFmt  bool
		hasData bool
	)

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return Clip{}, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])
		pad := int64(chunkSize % 2)

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Clip{}, ErrInvalidWAV
			}
			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, buf); err != nil {
				return Clip{}, fmt.Errorf("read wav fmt chunk: %w", err)
			}
			clip.Format = binary.LittleEndian.Uint16(buf[0:2])
			clip.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			clip.SampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
			clip.BitsPerSample = int(binary.LittleEndian.Uint16(buf[14:16]))
			hasFmt = true
		case "data":
			// Recorders that are stopped by a signal may leave a placeholder size.
			data, err := io.ReadAll(io.LimitReader(r, int64(chunkSize)))
			if err != nil {
				return Clip{}, fmt.Errorf("read wav data: %w", err)
			}
			clip.Data = data
			hasData = true
			if uint32(len(data)) < chunkSize {
				pad = 0
			}
		default:
			pad += int64(chunkSize)
		}

		if pad > 0 {
			if _, err := r.Seek(pad, io.SeekCurrent); err != nil {
				return Clip{}, fmt.Errorf("seek wav chunk %s: %w", chunkID, err)
			}
		}
	}

	if !hasFmt || !hasData {
		return Clip{}, ErrInvalidWAV
	}
	if err := validateFormat(clip.Format, uint16(clip.BitsPerSample)); err != nil {
		return Clip{}, err
	}

	return clip, nil
}

// EncodeWAV writes clip as a canonical RIFF/WAVE file.
func EncodeWAV(clip Clip) []byte {
	const fmtChunkSize = 16
	dataSize := len(clip.Data)
	blockAlign := clip.Channels * clip.bytesPerSample()

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4+(8+fmtChunkSize)+(8+dataSize)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(fmtChunkSize))
	_ = binary.Write(&buf, binary.LittleEndian, clip.Format)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(clip.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(clip.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(clip.SampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(clip.BitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(clip.Data)
	return buf.Bytes()
}

// PCM16 builds a 16-bit PCM clip from samples.
func PCM16(samples []int16, sampleRate, channels int) Clip {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return Clip{SampleRate: sampleRate, Channels: channels, BitsPerSample: 16, Format: formatPCM, Data: data}
}

func validateFormat(audioFormat, bitsPerSample uint16) error {
	switch audioFormat {
	case formatPCM:
		switch bitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
	case formatFloat:
		switch bitsPerSample {
		case 32, 64:
			return nil
		}
	}
	return ErrUnsupportedWAV
}

func decodeSample(sample []byte, audioFormat, bitsPerSample uint16) (float64, error) {
	if audioFormat == formatFloat {
		switch bitsPerSample {
		case 32:
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(sample))), nil
		case 64:
			return math.Float64frombits(binary.LittleEndian.Uint64(sample)), nil
		default:
			return 0, ErrUnsupportedWAV
		}
	}

	switch bitsPerSample {
	case 8:
		return (float64(sample[0]) - 128.0) / 128.0, nil
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(sample))) / 32768.0, nil
	case 24:
		v := int32(sample[0]) | int32(sample[1])<<8 | int32(sample[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608.0, nil
	case 32:
		return float64(int32(binary.LittleEndian.Uint32(sample))) / 2147483648.0, nil
	default:
		return 0, ErrUnsupportedWAV
	}
}
