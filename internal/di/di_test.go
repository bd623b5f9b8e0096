package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitContainer(t *testing.T) {
	container := InitContainer()

	assert.NotNil(t, container)
	assert.Same(t, container, Container)
}

func TestProvideAndInvoke(t *testing.T) {
	InitContainer()

	type retriever struct{ name string }
	type orchestrator struct{ r *retriever }

	require.NoError(t, Provide(func() *retriever {
		return &retriever{name: "faq"}
	}))
	require.NoError(t, Provide(func(r *retriever) *orchestrator {
		return &orchestrator{r: r}
	}))

	var got *orchestrator
	require.NoError(t, Invoke(func(o *orchestrator) {
		got = o
	}))
	assert.Equal(t, "faq", got.r.name)
}

func TestInvokeMissingDependency(t *testing.T) {
	InitContainer()

	type unregistered struct{}
	err := Invoke(func(u *unregistered) {})

	assert.Error(t, err)
}
