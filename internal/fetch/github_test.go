package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edurag/courseta-go/internal/content"
)

// newArchiveServer serves a stub GitHub contents API listing three files:
// two ingestable and one with an unsupported extension.
func newArchiveServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/api/v3/repos/course/files/contents/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"type":"file","name":"week1.md","html_url":"https://github.test/week1.md","download_url":"%[1]s/raw/week1.md"},
			{"type":"file","name":"notes.txt","html_url":"https://github.test/notes.txt","download_url":"%[1]s/raw/notes.txt"},
			{"type":"file","name":"logo.png","html_url":"https://github.test/logo.png","download_url":"%[1]s/raw/logo.png"},
			{"type":"dir","name":"extras","html_url":"https://github.test/extras","download_url":null}
		]`, srv.URL)
	})
	mux.HandleFunc("/raw/week1.md", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "# Week 1\ncourse material")
	})
	mux.HandleFunc("/raw/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "plain notes")
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func Test_Archive_FetchFiltersByExtension(t *testing.T) {
	t.Parallel()

	srv := newArchiveServer(t)
	a, err := NewArchive(ArchiveConfig{
		Owner:   "course",
		Repo:    "files",
		BaseURL: srv.URL + "/api/v3/",
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewArchive() error = %v", err)
	}

	docs, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}

	if docs[0].Source != content.SourceGitHub {
		t.Errorf("Source = %q, want %q", docs[0].Source, content.SourceGitHub)
	}
	if docs[0].Title != "week1.md" || docs[0].Content != "# Week 1\ncourse material" {
		t.Errorf("docs[0] = %+v, want week1.md with its contents", docs[0])
	}
	if docs[0].URL != "https://github.test/week1.md" {
		t.Errorf("URL = %q, want html_url", docs[0].URL)
	}
	if docs[1].Title != "notes.txt" || docs[1].Content != "plain notes" {
		t.Errorf("docs[1] = %+v, want notes.txt with its contents", docs[1])
	}
}

func Test_Archive_SkipsFailedDownloads(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/api/v3/repos/course/files/contents/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"type":"file","name":"ok.md","html_url":"https://github.test/ok.md","download_url":"%[1]s/raw/ok.md"},
			{"type":"file","name":"gone.md","html_url":"https://github.test/gone.md","download_url":"%[1]s/raw/gone.md"}
		]`, srv.URL)
	})
	mux.HandleFunc("/raw/ok.md", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "still here")
	})
	mux.HandleFunc("/raw/gone.md", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a, err := NewArchive(ArchiveConfig{
		Owner:   "course",
		Repo:    "files",
		BaseURL: srv.URL + "/api/v3/",
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewArchive() error = %v", err)
	}

	docs, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "ok.md" {
		t.Fatalf("docs = %+v, want only ok.md", docs)
	}
}

func Test_Archive_RequiresOwnerAndRepo(t *testing.T) {
	t.Parallel()

	if _, err := NewArchive(ArchiveConfig{Repo: "files"}); err == nil {
		t.Fatal("NewArchive() error = nil, want missing owner error")
	}
	if _, err := NewArchive(ArchiveConfig{Owner: "course"}); err == nil {
		t.Fatal("NewArchive() error = nil, want missing repo error")
	}
}
