package fingerprint

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumKnownVector(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Sum([]byte("abc")))
}

func TestSumDeterministicAndSensitive(t *testing.T) {
	data := bytes.Repeat([]byte("testcase row\n"), 512)
	first := Sum(data)
	assert.Equal(t, first, Sum(append([]byte(nil), data...)))
	assert.Len(t, first, 64)
	assert.Equal(t, strings.ToLower(first), first)

	flipped := append([]byte(nil), data...)
	flipped[100] ^= 0x01
	assert.NotEqual(t, first, Sum(flipped))
}

func TestReaderMatchesSum(t *testing.T) {
	data := []byte("order matters")
	got, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Sum(data), got)
	assert.NotEqual(t, Sum([]byte("matters order")), got)
}
