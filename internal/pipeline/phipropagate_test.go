package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc/internal/container"
	"cc/internal/ssa"
)

func TestPhiPropagateReplacesSingleValuedPhi(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	left := f.NewBlock()
	right := f.NewBlock()
	join := f.NewBlock()

	cond, err := f.Imm(f.Entry, 1)
	require.NoError(t, err)
	_, err = f.Branch(f.Entry, cond, ssa.CondNonZero, left, right)
	require.NoError(t, err)
	k, err := f.Imm(left, 7)
	require.NoError(t, err)
	_, err = f.Jump(left, join)
	require.NoError(t, err)
	_, err = f.Jump(right, join)
	require.NoError(t, err)

	phiOut, _, err := f.NewPhi(join, map[ssa.BlockID]ssa.Ref{left: k, right: k})
	require.NoError(t, err)
	_, err = f.Return(join, phiOut)
	require.NoError(t, err)

	changed, err := PhiPropagate(f)
	require.NoError(t, err)
	assert.True(t, changed)

	term, ok, err := f.Terminator(join)
	require.NoError(t, err)
	require.True(t, ok)
	retIn, err := f.Get(term)
	require.NoError(t, err)
	assert.Equal(t, k, retIn.Op.Ref1, "return should now read the constant directly, bypassing the phi")
}

func TestPhiPropagateIgnoresSelfReferenceButKeepsGenuineMerge(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "f")
	left := f.NewBlock()
	right := f.NewBlock()
	join := f.NewBlock()

	cond, err := f.Imm(f.Entry, 1)
	require.NoError(t, err)
	_, err = f.Branch(f.Entry, cond, ssa.CondNonZero, left, right)
	require.NoError(t, err)
	a, err := f.Imm(left, 1)
	require.NoError(t, err)
	b, err := f.Imm(right, 2)
	require.NoError(t, err)
	_, err = f.Jump(left, join)
	require.NoError(t, err)
	_, err = f.Jump(right, join)
	require.NoError(t, err)

	phiOut, _, err := f.NewPhi(join, map[ssa.BlockID]ssa.Ref{left: a, right: b})
	require.NoError(t, err)
	_, err = f.Return(join, phiOut)
	require.NoError(t, err)

	changed, err := PhiPropagate(f)
	require.NoError(t, err)
	assert.False(t, changed, "two genuinely distinct values must not be propagated away")
}
