package testutil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/CarouselPipe/internal/models"
	"github.com/BTreeMap/CarouselPipe/internal/store"
)

func TestFakeGenerator(t *testing.T) {
	gen := &FakeGenerator{Reply: "ok"}
	out, err := gen.Complete(context.Background(), "instruction")
	if err != nil || out != "ok" {
		t.Fatalf("Complete = %q, %v", out, err)
	}
	if gen.Calls() != 1 || gen.LastInstruction() != "instruction" {
		t.Errorf("call not recorded: calls=%d instruction=%q", gen.Calls(), gen.LastInstruction())
	}

	gen = &FakeGenerator{Err: errors.New("boom")}
	if _, err := gen.Complete(context.Background(), "x"); err == nil {
		t.Error("expected scripted error")
	}
}

func TestFakeGenerator_DelayHonorsContext(t *testing.T) {
	gen := &FakeGenerator{Reply: "late", Delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gen.Complete(ctx, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.WriteString(`{"status":"ok","result":{"count":2}}`)

	var result struct {
		Count int `json:"count"`
	}
	env := DecodeEnvelope(t, rr, &result)
	if env.Status != "ok" || result.Count != 2 {
		t.Errorf("unexpected envelope %+v / %+v", env, result)
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/carousels", map[string]string{"story": "x"})
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"story":"x"}` {
		t.Errorf("unexpected JSON body %q", body)
	}

	req = CreateHTTPRequest(t, http.MethodPost, "/carousels", "{raw")
	body, _ = io.ReadAll(req.Body)
	if string(body) != "{raw" {
		t.Errorf("unexpected raw body %q", body)
	}

	req = CreateHTTPRequest(t, http.MethodGet, "/options", nil)
	body, _ = io.ReadAll(req.Body)
	if len(body) != 0 {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestSeedGenerations(t *testing.T) {
	st := store.NewInMemoryStore()
	SeedGenerations(t, st, models.OutcomeSuccess, models.OutcomeFormatError)

	records := AssertGenerationCount(t, st, 2, "seeded")
	if records[0].SlideCount != models.CarouselSize || records[1].SlideCount != 0 {
		t.Errorf("unexpected slide counts: %+v", records)
	}
	if !records[1].CreatedAt.After(records[0].CreatedAt) {
		t.Error("seeded records should be in chronological order")
	}
}

func TestFiveSlideReplyHasFiveObjects(t *testing.T) {
	if n := strings.Count(FiveSlideReply, `"title"`); n != models.CarouselSize {
		t.Errorf("expected %d titles, got %d", models.CarouselSize, n)
	}
}
