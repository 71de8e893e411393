package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// LiftJavaScript renders p as a JavaScript script the target can run.
// Every variable becomes a let binding named after it:
//
//	let v0 = gc;
//	let v1 = 42;
//	let v2 = v0(v1);
//
// Instructions outside the built-in catalog, or with an input count the
// catalog does not allow, only declare their outputs and keep the lifted
// text as a comment.
func LiftJavaScript(p *Program) string {
	var b strings.Builder

	for _, instr := range p.code {
		b.WriteString(liftJSInstruction(instr))
		b.WriteByte('\n')
	}

	return b.String()
}

func liftJSInstruction(instr Instruction) string {
	in := instr.Inputs

	var expr string

	switch {
	case instr.Op == OpLoadInteger && len(in) == 0:
		expr = instr.Imm
	case instr.Op == OpLoadString && len(in) == 0:
		expr = quoteJSString(instr.Imm)
	case instr.Op == OpLoadBuiltin && len(in) == 0:
		expr = instr.Imm
	case (instr.Op == OpBinaryOperation || instr.Op == OpCompare) && len(in) == 2:
		expr = fmt.Sprintf("%s %s %s", in[0], instr.Imm, in[1])
	case instr.Op == OpGetProperty && len(in) == 1:
		expr = in[0].String() + propertyAccess(instr.Imm)
	case instr.Op == OpCreateArray:
		expr = "[" + joinVariables(in) + "]"
	case instr.Op == OpCallFunction && len(in) >= 1:
		expr = fmt.Sprintf("%s(%s)", in[0], joinVariables(in[1:]))
	case instr.Op == OpReassign && len(in) == 2 && len(instr.Outputs) == 0:
		return fmt.Sprintf("%s = %s;", in[0], in[1])
	default:
		return unsupportedJS(instr)
	}

	if !isValidJSLiteral(instr, expr) || len(instr.Outputs) != 1 {
		return unsupportedJS(instr)
	}

	return fmt.Sprintf("let %s = %s;", instr.Outputs[0], expr)
}

func isValidJSLiteral(instr Instruction, expr string) bool {
	switch instr.Op {
	case OpLoadInteger, OpLoadBuiltin:
		return expr != "" && !strings.ContainsAny(expr, ";\n")
	default:
		return true
	}
}

func unsupportedJS(instr Instruction) string {
	comment := "// " + LiftInstruction(instr)
	if len(instr.Outputs) == 0 {
		return comment
	}

	return fmt.Sprintf("let %s; %s", joinVariables(instr.Outputs), comment)
}

func propertyAccess(name string) string {
	if identifierPattern.MatchString(name) {
		return "." + name
	}

	return "[" + quoteJSString(name) + "]"
}

// quoteJSString returns a double-quoted JavaScript string literal. Runes
// outside the basic multilingual plane are written as surrogate pairs.
func quoteJSString(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f || r == 0x2028 || r == 0x2029:
			fmt.Fprintf(&b, `\u%04x`, r)
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')

	return b.String()
}
