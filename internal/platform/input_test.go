package platform

import (
	"testing"

	"github.com/go-vgo/robotgo"
	"github.com/stretchr/testify/assert"
)

func TestNewInputMovesInLocationSpace(t *testing.T) {
	robotgo.Scale = false
	t.Cleanup(func() { robotgo.Scale = false })

	NewInput(NewHook(nil))
	assert.True(t, robotgo.Scale, "Move must rescale the way Location does")
}
