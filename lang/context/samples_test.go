package context

import (
	"context"
	"testing"

	"github.com/mna/bktk/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmbeddedUnsigned8Bit(t *testing.T) {
	s := &compiler.Sample{DataBits: 8, DataSigned: false, Data: []byte{0, 128, 255}}
	frames, err := decodeEmbedded(s)
	require.NoError(t, err)
	require.Equal(t, []int32{-128, 0, 127}, frames)
}

func TestDecodeEmbeddedSigned16BitLittleEndian(t *testing.T) {
	s := &compiler.Sample{DataBits: 16, DataSigned: true, Data: []byte{0x00, 0x01, 0xff, 0xff}}
	frames, err := decodeEmbedded(s)
	require.NoError(t, err)
	require.Equal(t, []int32{256, -1}, frames)
}

func TestDecodeEmbeddedRejectsMisalignedLength(t *testing.T) {
	s := &compiler.Sample{DataBits: 16, DataSigned: true, Data: []byte{0x00}}
	_, err := decodeEmbedded(s)
	require.Error(t, err)
}

func TestValidateFrameBoundsRejectsOutOfRangeSustain(t *testing.T) {
	s := &compiler.Sample{HasSustain: true, SustainFrom: 0, SustainTo: 10}
	_, bad := validateFrameBounds(s, 5)
	require.True(t, bad)
}

func TestValidateFrameBoundsAcceptsInRange(t *testing.T) {
	s := &compiler.Sample{HasRange: true, RangeFrom: 0, RangeTo: 5}
	_, bad := validateFrameBounds(s, 10)
	require.False(t, bad)
}

func TestLoadSamplesSkipsNilDefs(t *testing.T) {
	out, err := loadSamples(context.Background(), []*compiler.Sample{nil}, ".")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Nil(t, out[0])
}
