package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncObjects(t *testing.T) {
	device := newMockDevice(t)

	s, err := NewSyncObjects(device, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, s.ImageCount())
	for img := 0; img < 3; img++ {
		assert.True(t, s.ImageFence(img).IsZero(), "image fences start clear")
	}

	// Fences are created signaled so the first slot wait returns
	// immediately instead of blocking forever.
	for f := 0; f < MaxFramesInFlight; f++ {
		require.NoError(t, device.WaitForFence(s.InFlightFence(f), NoTimeout))
		assert.False(t, s.ImageAvailable(f).IsZero())
		assert.False(t, s.RenderFinished(f).IsZero())
	}
	assert.Equal(t, 0, device.forcedRetires)

	s.Destroy()
	assert.Equal(t, 0, device.objects.Len())
}

func TestSyncObjectsResize(t *testing.T) {
	device := newMockDevice(t)

	s, err := NewSyncObjects(device, 2)
	require.NoError(t, err)
	defer s.Destroy()

	s.SetImageFence(0, s.InFlightFence(0))
	s.SetImageFence(1, s.InFlightFence(1))

	s.Resize(4)

	require.Equal(t, 4, s.ImageCount())
	for img := 0; img < 4; img++ {
		assert.True(t, s.ImageFence(img).IsZero(), "resize starts every entry clear")
	}

	// Slot primitives survive the resize untouched.
	for f := 0; f < MaxFramesInFlight; f++ {
		_, ok := device.objects.Get(s.InFlightFence(f))
		assert.True(t, ok)
	}
}
