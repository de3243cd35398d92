package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiebaomaster/babyfs/common"
)

func TestRamdiskReadWrite(t *testing.T) {
	dev, err := NewRamdiskDevice(make([]byte, 4096))
	require.NoError(t, err)
	defer dev.Close()

	out := []byte("hello, babyfs")
	require.NoError(t, dev.Write(out, 1024))

	in := make([]byte, len(out))
	require.NoError(t, dev.Read(in, 1024))
	assert.Equal(t, out, in)
}

func TestRamdiskBounds(t *testing.T) {
	dev, err := NewRamdiskDevice(make([]byte, 1024))
	require.NoError(t, err)
	defer dev.Close()

	buf := make([]byte, 512)
	assert.Error(t, dev.Read(buf, 1000))
	assert.Error(t, dev.Write(buf, -1))
}

func TestTestDevicePattern(t *testing.T) {
	dev := NewTestDevice(64, 10)
	defer dev.Close()

	buf := make([]byte, 64)
	require.NoError(t, dev.Read(buf, 5*64))
	for _, c := range buf {
		assert.Equal(t, byte(5), c)
	}
}

func TestFileDevice(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.img")
	require.NoError(t, os.WriteFile(filename, make([]byte, 8192), 0644))

	dev, err := NewFileDevice(filename, common.SectorSize)
	require.NoError(t, err)

	out := []byte("persisted")
	require.NoError(t, dev.Write(out, 2048))

	in := make([]byte, len(out))
	require.NoError(t, dev.Read(in, 2048))
	assert.Equal(t, out, in)

	assert.Equal(t, common.SectorSize, dev.SectorSize())
	require.NoError(t, dev.Close())
}

func TestFailingDeviceCountsReads(t *testing.T) {
	dev := NewFailingDevice(NewTestDevice(64, 10))
	defer dev.Close()

	err := dev.Read(make([]byte, 64), 0)
	assert.ErrorIs(t, err, common.EIO)
	assert.Equal(t, int32(1), dev.Reads.Load())
}
