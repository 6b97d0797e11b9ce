package session

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mousereel/internal/core/macro"
	"mousereel/internal/core/model"
)

type actionKind string

const (
	actionMove actionKind = "move"
	actionDown actionKind = "down"
	actionUp   actionKind = "up"
)

type action struct {
	kind   actionKind
	x, y   int
	button macro.Button
	at     time.Time
}

type recordingInjector struct {
	mu      sync.Mutex
	actions []action
}

func (injector *recordingInjector) Move(x, y int) error {
	injector.add(action{kind: actionMove, x: x, y: y})
	return nil
}

func (injector *recordingInjector) ButtonDown(button macro.Button) error {
	injector.add(action{kind: actionDown, button: button})
	return nil
}

func (injector *recordingInjector) ButtonUp(button macro.Button) error {
	injector.add(action{kind: actionUp, button: button})
	return nil
}

func (injector *recordingInjector) add(entry action) {
	injector.mu.Lock()
	defer injector.mu.Unlock()
	entry.at = time.Now()
	injector.actions = append(injector.actions, entry)
}

func (injector *recordingInjector) snapshot() []action {
	injector.mu.Lock()
	defer injector.mu.Unlock()
	out := make([]action, len(injector.actions))
	copy(out, injector.actions)
	return out
}

func (injector *recordingInjector) buttonActions() []action {
	var out []action
	for _, entry := range injector.snapshot() {
		if entry.kind != actionMove {
			out = append(out, entry)
		}
	}
	return out
}

// heldButtons replays the recorded actions and returns what is still down.
func (injector *recordingInjector) heldButtons() map[macro.Button]bool {
	held := map[macro.Button]bool{}
	for _, entry := range injector.snapshot() {
		switch entry.kind {
		case actionDown:
			held[entry.button] = true
		case actionUp:
			held[entry.button] = false
		}
	}
	for button, down := range held {
		if !down {
			delete(held, button)
		}
	}
	return held
}

// scriptedSampler returns script[i] on the i-th call and repeats the last entry.
type scriptedSampler struct {
	mu     sync.Mutex
	script []macro.Sample
	calls  int
}

func (sampler *scriptedSampler) Sample() macro.Sample {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()
	index := sampler.calls
	sampler.calls++
	if len(sampler.script) == 0 {
		return macro.Sample{}
	}
	if index >= len(sampler.script) {
		index = len(sampler.script) - 1
	}
	return sampler.script[index]
}

func (sampler *scriptedSampler) callCount() int {
	sampler.mu.Lock()
	defer sampler.mu.Unlock()
	return sampler.calls
}

type interruptSwitch struct {
	on atomic.Bool
}

func (sw *interruptSwitch) Interrupted() bool {
	return sw.on.Load()
}

type fakePrompter struct {
	path   string
	ok     bool
	err    error
	called atomic.Int32
}

func (prompter *fakePrompter) PromptSavePath(dir, suggestedName string) (string, bool, error) {
	prompter.called.Add(1)
	return prompter.path, prompter.ok, prompter.err
}

func testConfig(dir string) model.EngineConfig {
	return model.EngineConfig{
		MacrosDir:      dir,
		SampleInterval: 5 * time.Millisecond,
		PollInterval:   time.Millisecond,
		MinimumHold:    30 * time.Millisecond,
	}
}

func writeMacro(t *testing.T, dir, name string, samples []macro.Sample) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, macro.SaveFile(path, samples))
	return path
}

func listMacroFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"+macro.Extension))
	require.NoError(t, err)
	return matches
}

func drain(events <-chan Event) []Event {
	var out []Event
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, event)
		default:
			return out
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
