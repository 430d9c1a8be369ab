package changes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ChangedFile
		ok   bool
	}{
		{"modified", "M\tsrc/a.ts", ChangedFile{Path: "src/a.ts", Kind: KindModified}, true},
		{"added", "A\tdocs/new.md", ChangedFile{Path: "docs/new.md", Kind: KindAdded}, true},
		{"rename uses destination", "R100\told/name.go\tnew/name.go", ChangedFile{Path: "new/name.go", Kind: KindModified}, true},
		{"partial rename", "R087\ta.go\tb.go", ChangedFile{Path: "b.go", Kind: KindModified}, true},
		{"copy uses destination", "C075\tsrc.go\tdst.go", ChangedFile{Path: "dst.go", Kind: KindModified}, true},
		{"trailing space is part of the path", "M\tfoo ", ChangedFile{Path: "foo ", Kind: KindModified}, true},
		{"carriage return dropped", "A\tdocs/new.md\r", ChangedFile{Path: "docs/new.md", Kind: KindAdded}, true},
		{"blank with tab", "  \t ", ChangedFile{}, false},
		{"path with spaces", "M\tdir/my file.txt", ChangedFile{Path: "dir/my file.txt", Kind: KindModified}, true},
		{"deleted", "D\told.txt", ChangedFile{}, false},
		{"type change", "T\tlink", ChangedFile{}, false},
		{"unmerged", "U\tconflict.go", ChangedFile{}, false},
		{"unknown", "X\tweird", ChangedFile{}, false},
		{"blank", "   ", ChangedFile{}, false},
		{"missing path", "M", ChangedFile{}, false},
		{"rename missing destination", "R100\tonly.go", ChangedFile{}, false},
		{"added with score is not added", "A100\tx.go", ChangedFile{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStatusLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatusLine_RenameNeverSource(t *testing.T) {
	for _, status := range []string{"R", "R050", "R100", "C", "C090"} {
		got, ok := ParseStatusLine(status + "\tsource.txt\tdest.txt")
		require.True(t, ok, status)
		assert.Equal(t, "dest.txt", got.Path, status)
		assert.Equal(t, KindModified, got.Kind, status)
	}
}

func TestParseStatusOutput(t *testing.T) {
	output := "M\tsrc/a.ts\nA\tdocs/new.md\n\nD\told.txt\nR100\tx.go\tsrc/a.ts\n"

	got := ParseStatusOutput(output)

	assert.Equal(t, []ChangedFile{
		{Path: "src/a.ts", Kind: KindModified},
		{Path: "docs/new.md", Kind: KindAdded},
	}, got)
}

func TestParseStatusOutput_Empty(t *testing.T) {
	assert.Empty(t, ParseStatusOutput(""))
}

func TestAuthorMatches(t *testing.T) {
	tests := []struct {
		name  string
		me    Author
		other Author
		want  bool
	}{
		{"email case-insensitive", Author{Email: "a@x.com"}, Author{Email: " A@X.com "}, true},
		{"email differs", Author{Email: "a@x.com"}, Author{Email: "b@x.com"}, false},
		{"email wins over name", Author{Email: "a@x.com", Name: "Ann"}, Author{Email: "b@x.com", Name: "Ann"}, false},
		{"name when no email", Author{Name: "Ann Lee"}, Author{Email: "z@x.com", Name: "ann lee"}, true},
		{"empty other", Author{Email: "a@x.com"}, Author{}, false},
		{"empty self", Author{}, Author{Email: "a@x.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.me.Matches(tt.other))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "modified", KindModified.String())
	assert.Equal(t, "added", KindAdded.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
