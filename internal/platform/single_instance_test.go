package platform

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleInstanceRejectsSecondHolder(t *testing.T) {
	name := "mousereel-test-" + t.Name()
	first, err := AcquireSingleInstance(name, nil)
	require.NoError(t, err)

	_, err = AcquireSingleInstance(name, nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	again, err := AcquireSingleInstance(name, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Address(), again.Address())
	require.NoError(t, again.Release())
}

func TestForwardCommandReachesHolder(t *testing.T) {
	name := "mousereel-test-" + t.Name()
	guard, err := AcquireSingleInstance(name, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var received []string
	guard.Serve(func(command string) error {
		if command == "bogus" {
			return errors.New("unknown command")
		}
		mu.Lock()
		received = append(received, command)
		mu.Unlock()
		return nil
	})

	require.NoError(t, ForwardCommand(name, " set-cps(20) "))
	assert.ErrorIs(t, ForwardCommand(name, "bogus"), ErrCommandRejected)
	assert.ErrorIs(t, ForwardCommand(name, ""), ErrCommandRejected)
	assert.ErrorIs(t, ForwardCommand(name, "force-stop\nquit"), ErrCommandRejected)

	require.NoError(t, guard.Release())
	mu.Lock()
	assert.Equal(t, []string{"set-cps(20)"}, received)
	mu.Unlock()

	assert.Error(t, ForwardCommand(name, "force-stop"))
}

func TestLockPortIsStableAndInRange(t *testing.T) {
	port := lockPort(AppName)
	assert.Equal(t, port, lockPort(AppName))
	assert.GreaterOrEqual(t, port, 41000)
	assert.LessOrEqual(t, port, 48999)

	var guard *InstanceGuard
	assert.NoError(t, guard.Release())
	assert.Empty(t, guard.Address())
}

func TestFallbackConfigDir(t *testing.T) {
	home := filepath.Join("home", "user")
	assert.Equal(t, filepath.Join(home, "AppData", "Roaming"), fallbackConfigDir(home, "windows"))
	assert.Equal(t, filepath.Join(home, "Library", "Application Support"), fallbackConfigDir(home, "darwin"))
	assert.Equal(t, filepath.Join(home, ".config"), fallbackConfigDir(home, "linux"))
}
