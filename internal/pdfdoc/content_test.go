package pdfdoc

import (
	"bytes"
	"testing"
)

func TestParseContent(t *testing.T) {
	data := []byte("q 1 0 0 1 10 20 cm % comment\n/F1 12 Tf (a\\(b\\)c\\101) Tj <41 42 4> Tj [(x) -120 (y)] TJ /P <</MCID 3>> BDC EMC Q")
	ops, err := parseContent(data)
	if err != nil {
		t.Fatalf("parseContent() error = %v", err)
	}

	want := []string{"q", "cm", "Tf", "Tj", "Tj", "TJ", "BDC", "EMC", "Q"}
	if len(ops) != len(want) {
		t.Fatalf("got %d operations, want %d", len(ops), len(want))
	}
	for i, op := range ops {
		if op.op != want[i] {
			t.Errorf("op %d = %q, want %q", i, op.op, want[i])
		}
	}

	if nums, ok := ops[1].numbers(); !ok || nums[4] != 10 || nums[5] != 20 {
		t.Errorf("cm operands = %v", nums)
	}
	if name, ok := firstName(ops[2]); !ok || name != "F1" {
		t.Errorf("Tf font = %q", name)
	}
	if got := string(ops[3].operands[0].str); got != "a(b)cA" {
		t.Errorf("literal string = %q, want %q", got, "a(b)cA")
	}
	if got := ops[4].operands[0].str; !bytes.Equal(got, []byte{0x41, 0x42, 0x40}) {
		t.Errorf("hex string = %x", got)
	}
	arr := ops[5].operands[0]
	if arr.kind != kindArray || len(arr.items) != 3 || arr.items[1].num != -120 {
		t.Errorf("TJ array = %+v", arr)
	}
	if ops[6].operands[1].kind != kindDict {
		t.Errorf("BDC operand kind = %v, want dict", ops[6].operands[1].kind)
	}
	if got := string(data[ops[1].start:ops[1].end]); got != "1 0 0 1 10 20 cm" {
		t.Errorf("raw span = %q", got)
	}
}

func TestParseContentInlineImage(t *testing.T) {
	data := []byte("q 10 0 0 10 0 0 cm BI /W 2 /H 1 /BPC 8 /CS /G ID \x00EI\xff EI Q")
	ops, err := parseContent(data)
	if err != nil {
		t.Fatalf("parseContent() error = %v", err)
	}
	if len(ops) != 4 {
		t.Fatalf("got %d operations, want 4", len(ops))
	}
	if ops[2].op != "BI" {
		t.Fatalf("op 2 = %q, want BI", ops[2].op)
	}
	raw := string(data[ops[2].start:ops[2].end])
	if raw[len(raw)-2:] != "EI" || ops[3].op != "Q" {
		t.Errorf("inline image span = %q", raw)
	}
}

func TestParseContentErrors(t *testing.T) {
	tests := []string{
		"(unterminated Tj",
		"<4G> Tj",
		"[1 2 TJ",
		"BI /W 1 ID data",
	}
	for _, tt := range tests {
		if _, err := parseContent([]byte(tt)); err == nil {
			t.Errorf("parseContent(%q) expected error", tt)
		}
	}
}

func TestNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-500, "-500"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{2.00004, "2"},
		{-0.00001, "0"},
		{612.25, "612.25"},
	}
	for _, tt := range tests {
		if got := num(tt.in); got != tt.want {
			t.Errorf("num(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStrings(t *testing.T) {
	if got := hexString([]byte("llo")); got != "<6C6C6F>" {
		t.Errorf("hexString = %q", got)
	}
	if got := literalString([]byte("a(b)\\\n")); got != `(a\(b\)\\\n)` {
		t.Errorf("literalString = %q", got)
	}
	if got := string(decodeName("A#20B")); got != "A B" {
		t.Errorf("decodeName = %q", got)
	}
}
