package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc/internal/container"
	"cc/internal/ssa"
)

func TestLocalAllocSinksIntoSoleUsingDescendant(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	u := f.NewBlock()

	size, err := f.Imm(f.Entry, 8)
	require.NoError(t, err)
	align, err := f.Imm(f.Entry, 8)
	require.NoError(t, err)
	alloc, err := f.AllocLocal(f.Entry, size, align, 0)
	require.NoError(t, err)
	_, err = f.Jump(f.Entry, u)
	require.NoError(t, err)

	use, err := f.UnOp(u, ssa.OpINeg, alloc)
	require.NoError(t, err)
	_, err = f.Return(u, use)
	require.NoError(t, err)

	changed, err := LocalAllocSink(f)
	require.NoError(t, err)
	assert.True(t, changed)

	allocIn, err := f.Get(alloc)
	require.NoError(t, err)
	assert.Equal(t, u, allocIn.Block, "the allocation should have sunk into its sole using block")
}

func TestLocalAllocDoesNotMoveWhenAlreadyAtTheDominatorOfAllUses(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	left := f.NewBlock()
	right := f.NewBlock()

	size, err := f.Imm(f.Entry, 4)
	require.NoError(t, err)
	align, err := f.Imm(f.Entry, 4)
	require.NoError(t, err)
	alloc, err := f.AllocLocal(f.Entry, size, align, 0)
	require.NoError(t, err)
	cond, err := f.Imm(f.Entry, 1)
	require.NoError(t, err)
	_, err = f.Branch(f.Entry, cond, ssa.CondNonZero, left, right)
	require.NoError(t, err)

	leftUse, err := f.UnOp(left, ssa.OpINeg, alloc)
	require.NoError(t, err)
	_, err = f.Return(left, leftUse)
	require.NoError(t, err)
	rightUse, err := f.UnOp(right, ssa.OpINeg, alloc)
	require.NoError(t, err)
	_, err = f.Return(right, rightUse)
	require.NoError(t, err)

	changed, err := LocalAllocSink(f)
	require.NoError(t, err)
	assert.False(t, changed, "entry already dominates both using branches; nothing to sink")
}
