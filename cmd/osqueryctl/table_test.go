//go:build !windows

package main

import (
	"strings"
	"testing"
)

func TestRenderRowsKeepsColumnNameCase(t *testing.T) {
	out := renderRows([]map[string]string{
		{"unix_time": "1700000000", "timezone": "UTC"},
	})
	requireContains(t, out, "unix_time")
	requireContains(t, out, "timezone")
	if strings.Contains(out, "UNIX_TIME") {
		t.Fatalf("header was upper-cased:\n%s", out)
	}
}

func TestRenderRowsUnionsColumnsAcrossRows(t *testing.T) {
	out := renderRows([]map[string]string{
		{"name": "launchd"},
		{"name": "sshd", "pid": "812"},
	})
	requireContains(t, out, "pid")
	requireContains(t, out, "812")
	if strings.Index(out, "name") > strings.Index(out, "pid") {
		t.Fatalf("expected sorted headers:\n%s", out)
	}
}

func TestRenderRowsEmpty(t *testing.T) {
	if out := renderRows(nil); out != "No rows\n" {
		t.Fatalf("renderRows(nil) = %q", out)
	}
}

func TestNumericColumn(t *testing.T) {
	rows := []map[string]string{
		{"pid": "1", "name": "launchd", "uid": ""},
		{"pid": "812", "name": "sshd", "uid": ""},
	}
	cases := map[string]bool{"pid": true, "name": false, "uid": false, "missing": false}
	for name, want := range cases {
		if got := numericColumn(rows, name); got != want {
			t.Errorf("numericColumn(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFlattenAndRenderColumns(t *testing.T) {
	columns := flattenColumns([]map[string]string{
		{"hour": "INTEGER"},
		{"timezone": "TEXT"},
	})
	if len(columns) != 2 || columns[0].Name != "hour" || columns[1].Type != "TEXT" {
		t.Fatalf("flattenColumns = %+v", columns)
	}
	out := renderColumns(columns)
	requireContains(t, out, "column")
	requireContains(t, out, "INTEGER")
	if renderColumns(nil) != "No columns\n" {
		t.Fatal("expected placeholder for no columns")
	}
}
