package bytecode_test

import (
	"testing"

	"github.com/mna/bktk/lang/bytecode"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeArg1(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 400 * 100, -(1 << 25), 1<<25 - 1} {
		m := bytecode.EncodeArg1(bytecode.Attack, v)
		op, arg1 := m.DecodeArg1()
		require.Equal(t, bytecode.Attack, op)
		require.Equal(t, v, arg1)
	}
}

func TestEncodeDecodeArg2(t *testing.T) {
	for _, tc := range []struct{ a1, a2 int32 }{
		{0, 0}, {1, -1}, {-(1 << 12), 1<<12 - 1},
	} {
		m := bytecode.EncodeArg2(bytecode.StepTicks, tc.a1, tc.a2)
		op, a1, a2 := m.DecodeArg2()
		require.Equal(t, bytecode.StepTicks, op)
		require.Equal(t, tc.a1, a1)
		require.Equal(t, tc.a2, a2)
	}
}

func TestEncodeDecodeGrp(t *testing.T) {
	m := bytecode.EncodeGrp(bytecode.Call, bytecode.GroupTrack, 5, -3)
	op, typ, idx1, idx2 := m.DecodeGrp()
	require.Equal(t, bytecode.Call, op)
	require.Equal(t, bytecode.GroupTrack, typ)
	require.EqualValues(t, 5, idx1)
	require.EqualValues(t, -3, idx2)
}

func TestBufferEmitAndOverwrite(t *testing.T) {
	var buf bytecode.Buffer
	off := buf.EmitMask(bytecode.EncodeGrp(bytecode.GroupJump, bytecode.GroupLocal, 0, 0))
	buf.EmitOperand(bytecode.EncodeOperand(12))
	buf.EmitOperand(bytecode.EncodeOperand(34))
	require.Equal(t, 3, buf.Len())

	buf.SetMaskAt(off, bytecode.EncodeGrp(bytecode.Call, bytecode.GroupLocal, 0, 0))
	op, _, _, _ := buf.MaskAt(off).DecodeGrp()
	require.Equal(t, bytecode.Call, op)
}

func TestOpcodeString(t *testing.T) {
	require.Equal(t, "attack", bytecode.Attack.String())
	require.Equal(t, "call", bytecode.Call.String())
}
