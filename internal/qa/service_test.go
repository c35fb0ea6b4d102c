package qa

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/edurag/courseta-go/internal/content"
	"github.com/edurag/courseta-go/internal/index"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, e.err
}

type fakeSearcher struct {
	results []index.Result
	err     error
	gotK    int
}

func (s *fakeSearcher) Search(_ context.Context, _ []float32, k int) ([]index.Result, error) {
	s.gotK = k
	return s.results, s.err
}

type fakeGenerator struct {
	reply *schema.Message
	err   error
	got   []*schema.Message
}

func (g *fakeGenerator) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	g.got = input
	return g.reply, g.err
}

func result(id int64, title, url, text string, score float32) index.Result {
	return index.Result{
		Doc:   content.Document{ID: id, Title: title, URL: url, Content: text},
		Score: score,
	}
}

func Test_Ask_ReturnsAnswerWithLinksInRelevanceOrder(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []index.Result{
		result(1, "Week 3 notes", "https://x.test/w3", "pandas basics", 0.9),
		result(2, "GA2 thread", "https://x.test/t/12/3", "use merge", 0.7),
	}}
	gen := &fakeGenerator{reply: schema.AssistantMessage("Use pandas merge.", nil)}

	svc := New(&fakeEmbedder{vec: []float32{1, 0}}, searcher, gen, testLogger())
	ans, err := svc.Ask(context.Background(), "How do I join tables?", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if ans.Answer != "Use pandas merge." {
		t.Errorf("Answer = %q, want model reply", ans.Answer)
	}
	if len(ans.Links) != 2 {
		t.Fatalf("len(Links) = %d, want 2", len(ans.Links))
	}
	if ans.Links[0].URL != "https://x.test/w3" || ans.Links[0].Text != "Week 3 notes" {
		t.Errorf("Links[0] = %+v, want top result first", ans.Links[0])
	}
	if ans.Links[1].URL != "https://x.test/t/12/3" {
		t.Errorf("Links[1].URL = %q, want second result", ans.Links[1].URL)
	}
	if searcher.gotK != index.DefaultTopK {
		t.Errorf("search k = %d, want %d", searcher.gotK, index.DefaultTopK)
	}
}

func Test_Ask_PromptContainsRetrievedExcerpts(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []index.Result{
		result(1, "Week 3 notes", "https://x.test/w3", "pandas basics", 0.9),
	}}
	gen := &fakeGenerator{reply: schema.AssistantMessage("ok", nil)}

	svc := New(&fakeEmbedder{vec: []float32{1, 0}}, searcher, gen, testLogger())
	if _, err := svc.Ask(context.Background(), "question?", ""); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(gen.got) != 2 {
		t.Fatalf("len(messages) = %d, want system + user", len(gen.got))
	}
	if gen.got[0].Role != schema.System {
		t.Errorf("messages[0].Role = %q, want system", gen.got[0].Role)
	}
	user := gen.got[1]
	if !strings.Contains(user.Content, "pandas basics") || !strings.Contains(user.Content, "https://x.test/w3") {
		t.Errorf("user prompt missing retrieved excerpt: %q", user.Content)
	}
	if !strings.Contains(user.Content, "question?") {
		t.Errorf("user prompt missing the question: %q", user.Content)
	}
}

func Test_Ask_AttachesImageAsDataURL(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: schema.AssistantMessage("ok", nil)}
	svc := New(&fakeEmbedder{vec: []float32{1, 0}}, &fakeSearcher{}, gen, testLogger())

	if _, err := svc.Ask(context.Background(), "what is in this chart?", "aGVsbG8="); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	user := gen.got[1]
	if len(user.MultiContent) != 2 {
		t.Fatalf("len(MultiContent) = %d, want text + image", len(user.MultiContent))
	}
	img := user.MultiContent[1]
	if img.Type != schema.ChatMessagePartTypeImageURL {
		t.Fatalf("MultiContent[1].Type = %q, want image url", img.Type)
	}
	if want := "data:image/webp;base64,aGVsbG8="; img.ImageURL == nil || img.ImageURL.URL != want {
		t.Errorf("image url = %+v, want %q", img.ImageURL, want)
	}
}

func Test_Ask_EmptyCorpusStillGenerates(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: schema.AssistantMessage("I don't know.", nil)}
	svc := New(&fakeEmbedder{vec: []float32{1, 0}}, &fakeSearcher{}, gen, testLogger())

	ans, err := svc.Ask(context.Background(), "anything?", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if ans.Answer != "I don't know." {
		t.Errorf("Answer = %q, want model reply", ans.Answer)
	}
	if len(ans.Links) != 0 {
		t.Errorf("len(Links) = %d, want 0", len(ans.Links))
	}
	if !strings.Contains(gen.got[1].Content, "no relevant course content") {
		t.Errorf("prompt should state the corpus was empty: %q", gen.got[1].Content)
	}
}

func Test_Ask_EmbedFailureSurfaces(t *testing.T) {
	t.Parallel()

	svc := New(&fakeEmbedder{err: errors.New("proxy down")}, &fakeSearcher{}, &fakeGenerator{}, testLogger())

	if _, err := svc.Ask(context.Background(), "question", ""); err == nil {
		t.Fatal("Ask() error = nil, want embed failure")
	}
}

func Test_Ask_RejectsEmptyQuestion(t *testing.T) {
	t.Parallel()

	svc := New(&fakeEmbedder{}, &fakeSearcher{}, &fakeGenerator{}, testLogger())

	if _, err := svc.Ask(context.Background(), "   ", ""); err == nil {
		t.Fatal("Ask() error = nil, want empty question error")
	}
}
