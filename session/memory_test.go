package session

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/semsearch/llm"
)

func TestMemoryAppendAndCopy(t *testing.T) {
	assert := assert.New(t)

	m := NewMemory(0)
	m.Append("a", llm.UserMessage("my name is Ming"), llm.AssistantMessage("hi Ming"))

	msgs := m.Messages("a")
	assert.Len(msgs, 2)
	assert.Equal(llm.RoleUser, msgs[0].Role)

	msgs[0].Content = "changed"
	assert.Equal("my name is Ming", m.Messages("a")[0].Content)

	assert.Empty(m.Messages("b"))
}

func TestMemoryIsolation(t *testing.T) {
	m := NewMemory(0)
	m.Append("a", llm.UserMessage("first"))
	m.Append("b", llm.UserMessage("second"))

	assert.Equal(t, "first", m.Messages("a")[0].Content)
	assert.Equal(t, "second", m.Messages("b")[0].Content)
	assert.Equal(t, []string{"a", "b"}, m.Sessions())
}

func TestMemoryWindow(t *testing.T) {
	assert := assert.New(t)

	m := NewMemory(2)
	for i := range 5 {
		n := strconv.Itoa(i)
		m.Append("a", llm.UserMessage("q"+n), llm.AssistantMessage("a"+n))
	}

	msgs := m.Messages("a")
	assert.Len(msgs, 4)
	assert.Equal("q3", msgs[0].Content)
	assert.Equal("a4", msgs[3].Content)
}

func TestMemoryClear(t *testing.T) {
	m := NewMemory(0)
	m.Append("a", llm.UserMessage("x"))

	assert.True(t, m.Clear("a"))
	assert.False(t, m.Clear("a"))
	assert.Empty(t, m.Messages("a"))
}

func TestMemoryConcurrentAppend(t *testing.T) {
	m := NewMemory(0)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Append("a", llm.UserMessage(strconv.Itoa(i)))
		}()
	}
	wg.Wait()

	assert.Len(t, m.Messages("a"), 50)
}
