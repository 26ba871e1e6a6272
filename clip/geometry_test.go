package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportResolve(t *testing.T) {
	s, err := Viewport{Width: 1000, Height: 800}.Resolve(2000, 800)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Factor)
	assert.Equal(t, Size{Width: 2000, Height: 800}, s.Natural)
	assert.Equal(t, SizeF{Width: 1000, Height: 400}, s.Display)
}

func TestViewportResolve_Upscales(t *testing.T) {
	s, err := DefaultViewport.Resolve(100, 50)
	require.NoError(t, err)
	assert.Equal(t, 10.0, s.Factor)
	assert.Equal(t, SizeF{Width: 1000, Height: 500}, s.Display)
}

func TestViewportResolve_TallImage(t *testing.T) {
	s, err := DefaultViewport.Resolve(400, 1600)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Factor)
	assert.Equal(t, SizeF{Width: 200, Height: 800}, s.Display)
}

func TestViewportResolve_RejectsEmpty(t *testing.T) {
	_, err := DefaultViewport.Resolve(0, 10)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = Viewport{}.Resolve(10, 10)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestScaleConversions(t *testing.T) {
	s, err := DefaultViewport.Resolve(2000, 800)
	require.NoError(t, err)
	assert.Equal(t, 50.0, s.ToDisplay(100))
	assert.Equal(t, 100.0, s.ToNatural(50))
}
