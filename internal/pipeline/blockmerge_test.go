package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc/internal/container"
	"cc/internal/ssa"
)

func TestBlockMergeFoldsExclusivePredecessorChain(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	mid := f.NewBlock()

	_, err := f.Jump(f.Entry, mid)
	require.NoError(t, err)
	v, err := f.Imm(mid, 5)
	require.NoError(t, err)
	_, err = f.Return(mid, v)
	require.NoError(t, err)

	changed, err := BlockMerge(f)
	require.NoError(t, err)
	assert.True(t, changed)

	list, err := f.ControlList(f.Entry)
	require.NoError(t, err)
	require.Len(t, list, 1)
	term, err := f.Get(list[0])
	require.NoError(t, err)
	assert.Equal(t, ssa.OpReturn, term.Op.Code, "entry should now terminate with the folded block's return")
}

func TestBlockMergeFoldsConstantOnlyPassthroughSide(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	left := f.NewBlock()
	join := f.NewBlock()
	other := f.NewBlock()

	cond, err := f.Imm(f.Entry, 1)
	require.NoError(t, err)
	_, err = f.Branch(f.Entry, cond, ssa.CondNonZero, left, other)
	require.NoError(t, err)

	// left is passthrough: one constant, then an unconditional jump to join.
	if _, err := f.Imm(left, 42); err != nil {
		t.Fatal(err)
	}
	_, err = f.Jump(left, join)
	require.NoError(t, err)

	// other is not passthrough: it returns directly rather than jumping to
	// join, so its "ultimate target" is itself and differs from left's.
	v, err := f.Imm(other, 0)
	require.NoError(t, err)
	_, err = f.Return(other, v)
	require.NoError(t, err)

	joinVal, err := f.Imm(join, 9)
	require.NoError(t, err)
	_, err = f.Return(join, joinVal)
	require.NoError(t, err)

	changed, err := BlockMerge(f)
	require.NoError(t, err)
	assert.True(t, changed)

	term, ok, err := f.Terminator(f.Entry)
	require.NoError(t, err)
	require.True(t, ok)
	in, err := f.Get(term)
	require.NoError(t, err)
	assert.Equal(t, ssa.OpBranch, in.Op.Code)
	assert.Equal(t, join, in.Op.Target, "left's passthrough jump should have been folded, retargeting the branch straight to join")
}

func TestBlockMergeReachesFixpointWithoutLooping(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	v, err := f.Imm(f.Entry, 1)
	require.NoError(t, err)
	_, err = f.Return(f.Entry, v)
	require.NoError(t, err)

	changed, err := BlockMerge(f)
	require.NoError(t, err)
	assert.False(t, changed, "a single-block function has nothing to merge")
}
