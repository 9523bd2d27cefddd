package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Name", "Kind", "Base"}, &TableOptions{NoColor: true})
	table.AddRow("Order:#Northwind", "entity", "")
	table.AddRow("Location:#Northwind", "complex", "")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "Name                 Kind") {
		t.Errorf("header not padded to widest cell: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], strings.Repeat("─", len("Location:#Northwind"))+"  ") {
		t.Errorf("unexpected separator: %q", lines[1])
	}
	if !strings.Contains(lines[3], "complex") {
		t.Errorf("missing row data: %q", lines[3])
	}
}

func TestTable_DropsExtraCells(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Name", "Kind"}, &TableOptions{NoColor: true})
	table.AddRow("Region", "entity", "ignored")
	table.AddRow("Short")
	table.Render()

	out := buf.String()
	if strings.Contains(out, "ignored") {
		t.Errorf("cell beyond the headers was rendered:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[3] != "Short " {
		t.Errorf("short row not padded to the first column: %q", lines[3])
	}
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, nil).Render()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Service", "breeze/Northwind/")
	kv.AddRow("Types", "3")
	kv.Render()

	want := "Service: breeze/Northwind/\nTypes:   3\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Region", true)
	if buf.String() != "Region\n──────\n" {
		t.Errorf("unexpected header %q", buf.String())
	}
}
