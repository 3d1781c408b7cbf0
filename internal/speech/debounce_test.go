package speech_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaos-car/internal/speech"
)

type collector struct {
	mu    sync.Mutex
	texts []string
}

func (c *collector) add(text string) {
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()
}

func (c *collector) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func TestFinalDebouncer_DeliversLastRevision(t *testing.T) {
	c := &collector{}
	d := speech.NewFinalDebouncer(30*time.Millisecond, c.add)
	defer d.Stop()

	assert.True(t, d.Final("turn lef"))
	assert.True(t, d.Final("turn left"))

	require.Eventually(t, func() bool { return len(c.got()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"turn left"}, c.got())
}

func TestFinalDebouncer_DropsRepeat(t *testing.T) {
	c := &collector{}
	d := speech.NewFinalDebouncer(10*time.Millisecond, c.add)
	defer d.Stop()

	assert.True(t, d.Final("stop"))
	require.Eventually(t, func() bool { return len(c.got()) == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, d.Final("stop"))
	assert.False(t, d.Final(""))

	d.Reset()
	assert.True(t, d.Final("stop"))
	require.Eventually(t, func() bool { return len(c.got()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestFinalDebouncer_StopCancelsPending(t *testing.T) {
	c := &collector{}
	d := speech.NewFinalDebouncer(time.Hour, c.add)

	assert.True(t, d.Final("play music"))
	d.Stop()

	assert.False(t, d.Final("ac on"))
	assert.Empty(t, c.got())
}
