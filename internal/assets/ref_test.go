package assets_test

import (
	"testing"

	"tosho/internal/assets"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		ref     assets.SourceRef
		wantErr bool
	}{
		{"plain ok", assets.PlainRef("/lib/one/001.jpg"), false},
		{"archived ok", assets.ArchivedRef("/lib/vol1.cbz", "005.jpg"), false},
		{"empty path", assets.SourceRef{Kind: assets.KindPlain}, true},
		{"plain with member", assets.SourceRef{Kind: assets.KindPlain, Path: "/a.jpg", Member: "x"}, true},
		{"archived without member", assets.SourceRef{Kind: assets.KindArchived, Path: "/a.cbz"}, true},
		{"unknown kind", assets.SourceRef{Kind: "weird", Path: "/a"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ref.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStringDistinguishesMembers(t *testing.T) {
	a := assets.ArchivedRef("/lib/vol1.cbz", "005.jpg").String()
	b := assets.ArchivedRef("/lib/vol1.cbz", "006.jpg").String()
	if a == b {
		t.Fatalf("expected distinct canonical forms, both %q", a)
	}
	plain := assets.PlainRef("/lib/vol1.cbz").String()
	if plain == a {
		t.Fatal("plain and archived forms must differ")
	}
}
