package report

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Gesture", "Try %", "Reps"}
	rows := [][]string{
		{"fist", "50.0%", "10"},
		{"open_hand", "100.0%", "7"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Gesture     Try %  Reps" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "fist        50.0%    10" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "open_hand  100.0%     7" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Name", "N"}, [][]string{{"手", "1"}}, nil)
	if lines[1] != "手    1" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := formatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
