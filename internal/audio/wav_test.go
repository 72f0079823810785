package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sine(n int, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000.0))
	}
	return samples
}

func TestReadWAVRoundTripsPCM16(t *testing.T) {
	t.Parallel()

	clip := PCM16(sine(1600, 0.5), 16000, 1)
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, EncodeWAV(clip), 0o644))

	got, err := ReadWAV(path)
	require.NoError(t, err)
	require.Equal(t, 16000, got.SampleRate)
	require.Equal(t, 1, got.Channels)
	require.Equal(t, 16, got.BitsPerSample)
	require.Equal(t, clip.Data, got.Data)
	require.EqualValues(t, 1600, got.Samples())
	require.InDelta(t, 0.1, got.Duration(), 1e-9)
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	t.Parallel()

	clip := PCM16([]int16{1, 2, 3}, 8000, 1)
	raw := EncodeWAV(clip)

	// Insert an odd-sized LIST chunk between the header and fmt.
	var buf bytes.Buffer
	buf.Write(raw[:12])
	buf.WriteString("LIST")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
	buf.Write([]byte{'a', 'b', 'c', 0})
	buf.Write(raw[12:])

	got, err := DecodeWAV(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, clip.Data, got.Data)
	require.Equal(t, 8000, got.SampleRate)
}

func TestDecodeWAVToleratesOversizedDataChunk(t *testing.T) {
	t.Parallel()

	raw := EncodeWAV(PCM16([]int16{5, -5}, 16000, 1))
	binary.LittleEndian.PutUint32(raw[40:44], 0x7fffffff)

	got, err := DecodeWAV(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, got.Data, 4)
}

func TestReadWAVInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-wav.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := ReadWAV(path)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestDecodeWAVRejectsUnsupportedBitDepth(t *testing.T) {
	t.Parallel()

	clip := Clip{SampleRate: 16000, Channels: 1, BitsPerSample: 12, Format: formatPCM, Data: []byte{0, 0}}
	_, err := DecodeWAV(bytes.NewReader(EncodeWAV(clip)))
	require.ErrorIs(t, err, ErrUnsupportedWAV)
}

func TestLINEAR16ConvertsFloatSamples(t *testing.T) {
	t.Parallel()

	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-2))
	clip := Clip{SampleRate: 16000, Channels: 1, BitsPerSample: 32, Format: formatFloat, Data: data}

	pcm, err := clip.LINEAR16()
	require.NoError(t, err)
	require.Len(t, pcm, 4)
	require.Equal(t, int16(16384), int16(binary.LittleEndian.Uint16(pcm[0:])))
	require.Equal(t, int16(-32767), int16(binary.LittleEndian.Uint16(pcm[2:])))
}

func TestLINEAR16PassesThroughPCM16(t *testing.T) {
	t.Parallel()

	clip := PCM16([]int16{1, -1}, 16000, 1)
	pcm, err := clip.LINEAR16()
	require.NoError(t, err)
	require.Equal(t, clip.Data, pcm)
}
