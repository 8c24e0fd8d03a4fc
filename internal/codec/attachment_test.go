package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xff, 0xfe, 0xfd},
		[]byte("InpLots=0.1\nInpStopLoss=200\n"),
		pngHeader,
	}

	for _, in := range inputs {
		out, err := Decode(Encode(in))
		require.NoError(t, err)
		assert.Equal(t, in, append([]byte{}, out...))

		out, err = Decode(EncodeDataURL(in, "application/octet-stream"))
		require.NoError(t, err)
		assert.Equal(t, in, append([]byte{}, out...))
	}
}

func TestDecodeHeaderedAndBare(t *testing.T) {
	bare := "aGVsbG8="
	for _, text := range []string{bare, "data:text/plain;base64," + bare, "data:;base64," + bare} {
		b, err := Decode(text)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(b))
	}
}

func TestDecodeUnpadded(t *testing.T) {
	b, err := Decode("aGVsbG8")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestDecodeInvalid(t *testing.T) {
	_, err := DecodeField("set_file", "data:;base64,@@@not-base64@@@")
	require.Error(t, err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "set_file", de.Field)
	assert.Contains(t, err.Error(), "set_file")
}

func TestValidateAllowsEmpty(t *testing.T) {
	assert.NoError(t, Validate("capital_curve", ""))
	assert.Error(t, Validate("capital_curve", "%%%"))
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "image/png", MediaType("data:image/png;base64,AAAA"))
	assert.Equal(t, "", MediaType("AAAA"))
	assert.Equal(t, "", MediaType("data:;base64,AAAA"))
}

func TestEncodeDataURLSniffsImage(t *testing.T) {
	url := EncodeDataURL(pngHeader, "")
	assert.Equal(t, "image/png", MediaType(url))
	assert.Equal(t, ".png", Extension(pngHeader))
}
