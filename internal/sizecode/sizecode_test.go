package sizecode

import "testing"

func TestResolve_AllCodes(t *testing.T) {
	for _, e := range Table() {
		t.Run(e.Code, func(t *testing.T) {
			got, ok := Resolve("IMG_" + e.Code + "_final")
			if !ok {
				t.Fatalf("expected %s to resolve", e.Code)
			}
			if got.Size != e.Size {
				t.Errorf("expected %s, got %s", e.Size, got.Size)
			}
		})
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	got, ok := Resolve("461a_photo")
	if !ok {
		t.Fatal("expected lower-case code to resolve")
	}
	if got.Code != "461A" || got.Size != (Size{2040, 3040}) {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	tests := []string{"", "photo", "461", "158F", "vacation-2024"}
	for _, id := range tests {
		if e, ok := Resolve(id); ok {
			t.Errorf("Resolve(%q) matched %s, expected no match", id, e.Code)
		}
	}
}

func TestResolve_TieBreakIsDeclarationOrder(t *testing.T) {
	// Both 158D and 461B occur; 158D is declared first.
	got, ok := Resolve("461B-158D")
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Code != "158D" {
		t.Errorf("expected 158D, got %s", got.Code)
	}

	// Repeated calls give the same answer.
	for i := 0; i < 10; i++ {
		again, _ := Resolve("461B-158D")
		if again != got {
			t.Fatalf("resolution changed between calls: %+v vs %+v", again, got)
		}
	}
}

func TestTable_SwappedPairsPreserved(t *testing.T) {
	tests := []struct {
		code string
		want Size
	}{
		{"158A", Size{1080, 1720}},
		{"158D", Size{1720, 1080}},
		{"264A", Size{1020, 3040}},
		{"264C", Size{3040, 1020}},
		{"264E", Size{2040, 3040}},
		{"461A", Size{2040, 3040}},
		{"461B", Size{3040, 2040}},
		{"620A", Size{3060, 10200}},
		{"620C", Size{10200, 3060}},
	}

	for _, tc := range tests {
		e, ok := Lookup(tc.code)
		if !ok {
			t.Errorf("code %s missing from table", tc.code)
			continue
		}
		if e.Size != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.code, tc.want, e.Size)
		}
	}

	if n := len(Table()); n != 23 {
		t.Errorf("expected 23 codes, got %d", n)
	}
}

func TestTable_ReturnsCopy(t *testing.T) {
	tbl := Table()
	tbl[0].Size = Size{1, 1}

	if e, _ := Lookup(tbl[0].Code); e.Size == (Size{1, 1}) {
		t.Error("mutating Table() result changed the code table")
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"461A_photo.jpg", "461A_photo"},
		{"photo.final.png", "photo"},
		{"dir/sub/158B.webp", "158B"},
		{`dir\158B.webp`, "158B"},
		{"noext", "noext"},
		{".hidden.png", ""},
	}

	for _, tc := range tests {
		if got := Stem(tc.input); got != tc.expected {
			t.Errorf("Stem(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestSize(t *testing.T) {
	if !(Size{1, 1}).Valid() {
		t.Error("expected 1x1 to be valid")
	}
	if (Size{0, 5}).Valid() || (Size{5, -1}).Valid() {
		t.Error("expected non-positive sizes to be invalid")
	}
	if s := (Size{800, 600}).String(); s != "800x600" {
		t.Errorf("expected '800x600', got %s", s)
	}
}
