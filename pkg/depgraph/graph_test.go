package depgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexOf(order []string, node string) int {
	for i, n := range order {
		if n == node {
			return i
		}
	}
	return -1
}

func TestOrderEmitsPrerequisitesFirst(t *testing.T) {
	g := New(map[string][]string{
		"A": {},
		"B": {"A"},
		"C": {"B", "D"},
		"D": {},
	})

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 4)

	assert.Less(t, indexOf(order, "A"), indexOf(order, "B"))
	assert.Less(t, indexOf(order, "B"), indexOf(order, "C"))
	assert.Less(t, indexOf(order, "D"), indexOf(order, "C"))
}

func TestOrderIsDeterministic(t *testing.T) {
	deps := map[string][]string{
		"C": {"B", "D"},
		"B": {"A"},
		"A": nil,
		"D": nil,
	}
	first, err := New(deps).Order()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := New(deps).Order()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []string{"A", "B", "D", "C"}, first)
}

func TestOrderIncludesUndeclaredPrerequisites(t *testing.T) {
	order, err := New(map[string][]string{"derived": {"base"}}).Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "derived"}, order)
}

func TestOrderRejectsCycle(t *testing.T) {
	_, err := New(map[string][]string{
		"X": {"Y"},
		"Y": {"X"},
	}).Order()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))

	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"X", "Y", "X"}, cycle.Path)
}

func TestOrderRejectsSelfLoop(t *testing.T) {
	_, err := New(map[string][]string{"X": {"X"}}).Order()
	assert.ErrorIs(t, err, ErrCycle)
}

func TestDependentsAreTransitiveAndOrdered(t *testing.T) {
	g := New(map[string][]string{
		"B": {"A"},
		"C": {"B"},
		"E": {"D"},
	})

	deps, err := g.Dependents("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, deps)

	deps, err = g.Dependents("C")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestNewCopiesInput(t *testing.T) {
	input := map[string][]string{"B": {"A"}}
	g := New(input)
	input["B"][0] = "Z"

	assert.Equal(t, []string{"A"}, g.Prerequisites("B"))
	assert.Equal(t, []string{"A", "B"}, g.Nodes())
}
