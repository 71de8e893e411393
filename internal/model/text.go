package model

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedProgram is returned by ParseProgram for unparsable text.
var ErrMalformedProgram = errors.New("malformed program")

var outputsPattern = regexp.MustCompile(`^(v\d+(?:\s*,\s*v\d+)*)\s*=\s*`)

// Lift renders a program in its textual form, one instruction per line:
//
//	v0 = LoadBuiltin "gc"
//	v1 = LoadInteger "42"
//	v2 = CallFunction v0, v1
func Lift(p *Program) string {
	var b strings.Builder

	for _, instr := range p.code {
		b.WriteString(LiftInstruction(instr))
		b.WriteByte('\n')
	}

	return b.String()
}

// LiftInstruction renders a single instruction without a trailing newline.
func LiftInstruction(instr Instruction) string {
	var b strings.Builder

	if len(instr.Outputs) > 0 {
		b.WriteString(joinVariables(instr.Outputs))
		b.WriteString(" = ")
	}

	b.WriteString(string(instr.Op))

	if instr.Imm != "" {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(instr.Imm))
	}

	if len(instr.Inputs) > 0 {
		b.WriteByte(' ')
		b.WriteString(joinVariables(instr.Inputs))
	}

	return b.String()
}

func joinVariables(vars []Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}

	return strings.Join(names, ", ")
}

// ParseProgram reads the textual form produced by Lift. Variable names in
// the text are only labels: they are renumbered in definition order. Empty
// lines and lines starting with '#' are ignored.
func ParseProgram(r io.Reader) (*Program, error) {
	b := NewProgramBuilder()
	names := make(map[string]Variable)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := parseInstruction(b, names, line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}

	return b.Finalize()
}

func parseInstruction(b *ProgramBuilder, names map[string]Variable, line string) error {
	var outputNames []string

	if match := outputsPattern.FindStringSubmatch(line); match != nil {
		outputNames = splitList(match[1])
		line = line[len(match[0]):]
	}

	op, rest, _ := strings.Cut(line, " ")
	if op == "" {
		return fmt.Errorf("missing opcode: %w", ErrMalformedProgram)
	}

	rest = strings.TrimSpace(rest)

	var imm string

	if strings.HasPrefix(rest, `"`) {
		quoted, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return fmt.Errorf("immediate %q: %w", rest, ErrMalformedProgram)
		}

		imm, _ = strconv.Unquote(quoted)
		rest = strings.TrimSpace(rest[len(quoted):])
	}

	inputs := make([]Variable, 0)

	for _, name := range splitList(rest) {
		v, ok := names[name]
		if !ok {
			return fmt.Errorf("%s reads %s: %w", op, name, ErrUndefinedVariable)
		}

		inputs = append(inputs, v)
	}

	outputs := b.Emit(Opcode(op), imm, len(outputNames), inputs...)
	if err := b.Err(); err != nil {
		return err
	}

	for i, name := range outputNames {
		if _, dup := names[name]; dup {
			return fmt.Errorf("%s redefined: %w", name, ErrMalformedProgram)
		}

		names[name] = outputs[i]
	}

	return nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}
