package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiftJavaScript(t *testing.T) {
	b := NewProgramBuilder()
	v0 := b.Emit1(OpLoadBuiltin, "gc")
	v1 := b.Emit1(OpLoadInteger, "-1")
	v2 := b.Emit1(OpLoadString, "say \"hi\"\n")
	v3 := b.Emit1(OpBinaryOperation, ">>>", v1, v1)
	v4 := b.Emit1(OpCompare, "!==", v3, v2)
	v5 := b.Emit1(OpCreateArray, "", v1, v4)
	b.Emit1(OpGetProperty, "length", v5)
	b.Emit1(OpGetProperty, "0", v5)
	b.Emit1(OpCreateArray, "")
	b.Emit1(OpCallFunction, "", v0)
	b.Emit1(OpCallFunction, "", v0, v1, v2)
	b.Emit(OpReassign, "", 0, v1, v3)

	p, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, `let v0 = gc;
let v1 = -1;
let v2 = "say \"hi\"\n";
let v3 = v1 >>> v1;
let v4 = v3 !== v2;
let v5 = [v1, v4];
let v6 = v5.length;
let v7 = v5["0"];
let v8 = [];
let v9 = v0();
let v10 = v0(v1, v2);
v1 = v3;
`, LiftJavaScript(p))
}

func TestLiftJavaScript_Unsupported(t *testing.T) {
	b := NewProgramBuilder()
	v0 := b.Emit1(OpLoadInteger, "1")
	b.Emit(Opcode("Spread"), "x", 2, v0)
	b.Emit1(OpBinaryOperation, "+", v0)
	b.Emit(Opcode("Nop"), "", 0)

	p, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, `let v0 = 1;
let v1, v2; // v1, v2 = Spread "x" v0
let v3; // v3 = BinaryOperation "+" v0
// Nop
`, LiftJavaScript(p))
}

func TestQuoteJSString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"plain", `"plain"`},
		{`back\slash`, `"back\\slash"`},
		{"tab\tcr\r", `"tab\tcr\r"`},
		{"\x00\x1f", `"\u0000\u001f"`},
		{" ", `" "`},
		{"é", `"é"`},
		{"😀", `"\ud83d\ude00"`},
		{"\u2028", `"\u2028"`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteJSString(tt.in))
		})
	}
}
