package codegen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc/internal/container"
	"cc/internal/ssa"
)

func TestCompileProducesAssemblyForSimpleFunction(t *testing.T) {
	f := ssa.NewFunction(container.NewAllocator(), "sum")
	a, err := f.Imm(f.Entry, 2)
	require.NoError(t, err)
	b, err := f.Imm(f.Entry, 3)
	require.NoError(t, err)
	sum, err := f.BinOp(f.Entry, ssa.OpIAdd, a, b)
	require.NoError(t, err)
	_, err = f.Return(f.Entry, sum)
	require.NoError(t, err)

	result, err := Compile(f, uuid.New(), Options{ABI: "sysv"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "sum_begin:")
	assert.NotEmpty(t, result.Asmcmp.CompileUnitID)
}
