package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Simple(t *testing.T) {
	idx := NewIndex("test-idx").
		Prefix("doc:").
		Tag("category", "").
		Numeric("price", "").
		MustBuild()

	if idx.Name != "test-idx" {
		t.Errorf("name = %q, want test-idx", idx.Name)
	}
	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "category" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want category TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name != "price" || idx.Fields[1].Type != IndexFieldNumeric {
		t.Errorf("field[1] = %+v, want price NUMERIC", idx.Fields[1])
	}
}

func TestIndexBuilder_JSONText(t *testing.T) {
	idx := NewIndex("cand-idx").
		OnJSON().
		Prefix("cand:").
		Language("french").
		Text("$.title_folded", "title", 5).
		TextNoStem("$.autocomplete[*]", "autocomplete").
		Tag("$.sector", "sector").Sortable().
		MustBuild()

	if idx.StorageType != StorageJSON || idx.Language != "french" {
		t.Errorf("unexpected index settings: %+v", idx)
	}
	title := idx.Fields[0]
	if title.Attr() != "title" || title.Weight != 5 || title.NoStem {
		t.Errorf("title field = %+v", title)
	}
	if !idx.Fields[1].NoStem {
		t.Error("autocomplete must be NOSTEM")
	}
	if !idx.Fields[2].Sortable || idx.Fields[0].Sortable {
		t.Error("Sortable must apply to the last field only")
	}
}

func TestIndexBuilder_TagOptions(t *testing.T) {
	idx := NewIndex("tag-idx").
		Prefix("t:").
		TagWithOpts("tags", "", "|", true).
		MustBuild()

	f := idx.Fields[0]
	if f.TagSeparator != "|" {
		t.Errorf("separator = %q, want |", f.TagSeparator)
	}
	if !f.TagCaseSensitive {
		t.Error("expected TagCaseSensitive=true")
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder func() (*IndexDefinition, error)
		wantErr string
	}{
		{
			name: "empty name",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("").Tag("x", "").Build()
			},
			wantErr: "index name is required",
		},
		{
			name: "no fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Build()
			},
			wantErr: "at least one field",
		},
		{
			name: "json without alias",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").OnJSON().Tag("$.status", "").Build()
			},
			wantErr: "requires an alias",
		},
		{
			name: "negative weight",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Text("summary", "", -1).Build()
			},
			wantErr: "negative weight",
		},
		{
			name: "invalid characters",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx with spaces").Tag("x", "").Build()
			},
			wantErr: "invalid characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx := NewIndex("my-idx").
		Prefix("doc:").
		Language("french").
		Tag("cat", "").
		Text("title", "", 5).
		MustBuild()

	s := idx.String()
	if !strings.HasPrefix(s, "FT.CREATE ") {
		t.Errorf("expected FT.CREATE prefix, got %q", s)
	}
	for _, want := range []string{"my-idx", "LANGUAGE french", "title TEXT WEIGHT 5"} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in %q", want, s)
		}
	}
}

func TestIndexBuilder_DuplicateFields(t *testing.T) {
	idx := &IndexDefinition{
		Name: "dup-idx",
		Fields: []IndexField{
			{Name: "$.a", Alias: "field1", Type: IndexFieldTag},
			{Name: "$.b", Alias: "field1", Type: IndexFieldNumeric},
		},
	}

	if err := idx.Validate(); err == nil {
		t.Fatal("expected error for duplicate fields")
	}
}
