package dmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutiveStatePushPopSeq(t *testing.T) {
	e := &ExecutiveState{ContextID: 1}
	seq0 := e.pushSeq()
	assert.Equal(t, Seq(0), seq0)

	seq1 := e.pushSeq()
	assert.Equal(t, Seq(1), seq1)
	assert.Len(t, e.CallStack, 2)

	assert.False(t, e.popSeq())
	assert.True(t, e.popSeq(), "popping the last entry reports the stack empty")
}

func TestExecutivePoolLazyCreationAndRemoval(t *testing.T) {
	p := NewExecutivePool()
	assert.Nil(t, p.Get(1))
	assert.True(t, p.Empty())

	p.Add(1, &ExecutiveState{ContextID: 1})
	assert.NotNil(t, p.Get(1))
	assert.False(t, p.Empty())

	p.Remove(1)
	assert.True(t, p.Empty())
}
