package jobber

import (
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"
)

type staticSource struct {
	tok *oauth2.Token
}

func (s *staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestSavingSourcePersistsRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	initial := &oauth2.Token{AccessToken: "a1", RefreshToken: "r1"}
	if err := saveToken(path, initial); err != nil {
		t.Fatal(err)
	}

	rotated := &oauth2.Token{AccessToken: "a2", RefreshToken: "r2"}
	src := &savingSource{path: path, src: &staticSource{tok: rotated}, last: initial}

	tok, err := src.Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "a2" {
		t.Fatalf("token = %+v", tok)
	}

	stored, err := loadToken(path)
	if err != nil {
		t.Fatal(err)
	}
	if stored.RefreshToken != "r2" {
		t.Fatalf("rotation not persisted: %+v", stored)
	}
}

func TestSplitScopes(t *testing.T) {
	got := splitScopes(" clients.read , quotes.write ,")
	if len(got) != 2 || got[0] != "clients.read" || got[1] != "quotes.write" {
		t.Fatalf("got %v", got)
	}
}
