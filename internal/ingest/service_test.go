package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quizsmith/internal/cache"
	"quizsmith/internal/models"
	"quizsmith/internal/parser"
)

var errFakeNotFound = errors.New("artifact not found")

type fakeArtifactStore struct {
	mu        sync.Mutex
	artifacts map[string]models.Artifact
	contents  map[string][]byte
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{
		artifacts: map[string]models.Artifact{},
		contents:  map[string][]byte{},
	}
}

func (f *fakeArtifactStore) CreateArtifact(_ context.Context, a models.Artifact, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifacts[a.ArtifactID] = a
	f.contents[a.ArtifactID] = content
	return nil
}

func (f *fakeArtifactStore) GetArtifact(_ context.Context, id string) (models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[id]
	if !ok {
		return models.Artifact{}, errFakeNotFound
	}
	return a, nil
}

func (f *fakeArtifactStore) GetContent(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contents[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return c, nil
}

func (f *fakeArtifactStore) TouchLastAccessed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[id]
	if !ok {
		return errFakeNotFound
	}
	now := time.Now().UTC()
	a.LastAccessed = &now
	f.artifacts[id] = a
	return nil
}

func (f *fakeArtifactStore) UpdateParseStatus(_ context.Context, id, status, failReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[id]
	if !ok {
		return errFakeNotFound
	}
	a.ParseStatus = status
	a.FailReason = failReason
	f.artifacts[id] = a
	return nil
}

func (f *fakeArtifactStore) ReplaceContent(_ context.Context, id, filename, contentType, fingerprint string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[id]
	if !ok {
		return errFakeNotFound
	}
	a.Filename = filename
	a.ContentType = contentType
	a.Fingerprint = fingerprint
	a.ByteSize = int64(len(content))
	f.artifacts[id] = a
	f.contents[id] = content
	return nil
}

func (f *fakeArtifactStore) DeleteArtifact(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[id]
	if !ok {
		return "", errFakeNotFound
	}
	delete(f.artifacts, id)
	delete(f.contents, id)
	return a.Fingerprint, nil
}

type fakeParsedStore struct {
	mu       sync.Mutex
	byArt    map[string]models.ParsedContent
	replaces int
}

func newFakeParsedStore() *fakeParsedStore {
	return &fakeParsedStore{byArt: map[string]models.ParsedContent{}}
}

func (f *fakeParsedStore) Replace(_ context.Context, pc models.ParsedContent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byArt[pc.ArtifactID] = pc
	f.replaces++
	return nil
}

func (f *fakeParsedStore) GetByFingerprint(_ context.Context, fingerprint string) (models.ParsedContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pc := range f.byArt {
		if pc.Fingerprint == fingerprint {
			return pc, nil
		}
	}
	return models.ParsedContent{}, errFakeNotFound
}

func (f *fakeParsedStore) GetByArtifact(_ context.Context, id string) (models.ParsedContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pc, ok := f.byArt[id]
	if !ok {
		return models.ParsedContent{}, errFakeNotFound
	}
	return pc, nil
}

func newTestService(opts Options) (*Service, *fakeArtifactStore, *fakeParsedStore, *cache.ParseCache) {
	artifacts := newFakeArtifactStore()
	parsed := newFakeParsedStore()
	c := cache.New(time.Minute)
	return NewService(opts, c, artifacts, parsed), artifacts, parsed, c
}

const sample = "Chapter 1\n\nIntro text.\n\n\nChapter 2\n\nMore text."

func TestIngestText(t *testing.T) {
	svc, artifacts, parsed, _ := newTestService(Options{})

	res, err := svc.Ingest(context.Background(), "book.txt", "text/plain", []byte(sample), UploadOptions{Title: "Book"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Artifact.ParseStatus != models.ParseStatusParsed {
		t.Fatalf("status %q, want parsed", res.Artifact.ParseStatus)
	}
	if res.Parsed == nil || len(res.Parsed.Sections) != 2 {
		t.Fatalf("unexpected parse result: %+v", res.Parsed)
	}
	if res.Parsed.Sections[1].Title != "Chapter 2" || res.Parsed.Sections[1].Ordinal != 1 {
		t.Fatalf("unexpected second section: %+v", res.Parsed.Sections[1])
	}

	stored, err := artifacts.GetArtifact(context.Background(), res.Artifact.ArtifactID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Fingerprint == "" || stored.Title != "Book" {
		t.Fatalf("artifact not persisted correctly: %+v", stored)
	}
	if _, err := parsed.GetByArtifact(context.Background(), res.Artifact.ArtifactID); err != nil {
		t.Fatalf("parsed content not persisted: %v", err)
	}
}

func TestIngestEmptyRejectedBeforePersist(t *testing.T) {
	svc, artifacts, _, _ := newTestService(Options{})

	_, err := svc.Ingest(context.Background(), "empty.txt", "text/plain", nil, UploadOptions{})
	if !errors.Is(err, parser.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if len(artifacts.artifacts) != 0 {
		t.Fatal("validation failure must not persist an artifact")
	}
}

func TestIngestTooLargeRejectedBeforePersist(t *testing.T) {
	svc, artifacts, _, _ := newTestService(Options{MaxUploadBytes: 8})

	_, err := svc.Ingest(context.Background(), "big.txt", "text/plain", []byte("123456789"), UploadOptions{})
	if !errors.Is(err, parser.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if len(artifacts.artifacts) != 0 {
		t.Fatal("validation failure must not persist an artifact")
	}
}

func TestIngestStrictTypeMismatch(t *testing.T) {
	svc, artifacts, _, _ := newTestService(Options{StrictTypeCheck: true})

	_, err := svc.Ingest(context.Background(), "fake.txt", "text/plain", []byte("%PDF-1.7 not really text"), UploadOptions{})
	if !errors.Is(err, parser.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if len(artifacts.artifacts) != 0 {
		t.Fatal("strict mismatch must not persist an artifact")
	}
}

func TestIngestLenientTypeMismatchFlagged(t *testing.T) {
	svc, _, _, _ := newTestService(Options{})

	res, err := svc.Ingest(context.Background(), "fake.txt", "text/plain", []byte("%PDF-1.7 pretending to be a text file for a while"), UploadOptions{})
	if err != nil {
		t.Fatalf("lenient mode should accept the upload: %v", err)
	}
	if !res.TypeMismatch {
		t.Fatal("mismatch flag not propagated")
	}
}

func TestIngestSameBytesSharesCompute(t *testing.T) {
	svc, _, parsed, _ := newTestService(Options{})

	first, err := svc.Ingest(context.Background(), "a.txt", "text/plain", []byte(sample), UploadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Ingest(context.Background(), "b.txt", "text/plain", []byte(sample), UploadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Fatal("first ingest cannot be a cache hit")
	}
	if !second.CacheHit {
		t.Fatal("identical bytes should hit the cache")
	}
	// Each artifact still gets its own persisted parse with its own identity.
	if first.Parsed.ContentID == second.Parsed.ContentID {
		t.Fatal("rebound parse must carry a fresh content id")
	}
	if first.Parsed.ArtifactID == second.Parsed.ArtifactID {
		t.Fatal("parses bound to different artifacts")
	}
	if parsed.replaces != 2 {
		t.Fatalf("expected 2 persisted parses, got %d", parsed.replaces)
	}
}

func TestIngestExtractionFailureKeepsArtifact(t *testing.T) {
	svc, artifacts, _, _ := newTestService(Options{})

	res, err := svc.Ingest(context.Background(), "numbers.json", "application/json", []byte(`{"count":3}`), UploadOptions{})
	if !errors.Is(err, parser.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if res.Parsed != nil {
		t.Fatal("failed extraction must not yield parsed content")
	}
	stored, getErr := artifacts.GetArtifact(context.Background(), res.Artifact.ArtifactID)
	if getErr != nil {
		t.Fatalf("artifact should survive extraction failure: %v", getErr)
	}
	if stored.ParseStatus != models.ParseStatusFailed || stored.FailReason == "" {
		t.Fatalf("artifact not marked failed: %+v", stored)
	}
}

// textlessPDF builds a well-formed single-page PDF whose only content stream
// is empty, the shape of a scanned document.
func textlessPDF() []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 5)
	obj := func(num int, body string) {
		offsets[num] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>")
	obj(4, "<< /Length 0 >>\nstream\n\nendstream")
	xref := b.Len()
	b.WriteString("xref\n0 5\n0000000000 65535 f \n")
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 5 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return b.Bytes()
}

func TestIngestTextlessPDFKeepsArtifact(t *testing.T) {
	svc, artifacts, parsed, _ := newTestService(Options{})

	res, err := svc.Ingest(context.Background(), "scan.pdf", "application/pdf", textlessPDF(), UploadOptions{})
	if !errors.Is(err, parser.ErrNoExtractableText) {
		t.Fatalf("expected ErrNoExtractableText, got %v", err)
	}
	if res.Parsed != nil {
		t.Fatal("textless pdf must not yield parsed content")
	}
	stored, getErr := artifacts.GetArtifact(context.Background(), res.Artifact.ArtifactID)
	if getErr != nil {
		t.Fatalf("artifact should be retained: %v", getErr)
	}
	if stored.ParseStatus != models.ParseStatusFailed || stored.FailReason == "" {
		t.Fatalf("artifact not marked failed: %+v", stored)
	}
	if _, err := parsed.GetByArtifact(context.Background(), res.Artifact.ArtifactID); err == nil {
		t.Fatal("no parsed row should exist for a failed extraction")
	}
}

func TestReparseStatusGate(t *testing.T) {
	svc, artifacts, _, _ := newTestService(Options{})

	res, err := svc.Ingest(context.Background(), "a.txt", "text/plain", []byte(sample), UploadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reparse(context.Background(), res.Artifact.ArtifactID); !errors.Is(err, ErrNotReparseable) {
		t.Fatalf("parsed artifact must not be reparseable, got %v", err)
	}

	// Force it back to failed; reparse should then succeed.
	if err := artifacts.UpdateParseStatus(context.Background(), res.Artifact.ArtifactID, models.ParseStatusFailed, "earlier crash"); err != nil {
		t.Fatal(err)
	}
	again, err := svc.Reparse(context.Background(), res.Artifact.ArtifactID)
	if err != nil {
		t.Fatalf("reparse of failed artifact: %v", err)
	}
	if again.Artifact.ParseStatus != models.ParseStatusParsed || again.Parsed == nil {
		t.Fatalf("reparse did not recover: %+v", again.Artifact)
	}
}

func TestReupReplacesAndInvalidates(t *testing.T) {
	svc, _, _, c := newTestService(Options{})

	res, err := svc.Ingest(context.Background(), "a.txt", "text/plain", []byte(sample), UploadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	oldFP := res.Artifact.Fingerprint

	updated, err := svc.Reupload(context.Background(), res.Artifact.ArtifactID, "a.txt", "text/plain", []byte("Chapter 1\n\nRewritten body text."))
	if err != nil {
		t.Fatalf("reupload: %v", err)
	}
	if updated.Artifact.Fingerprint == oldFP {
		t.Fatal("fingerprint should change with new bytes")
	}
	if updated.Parsed == nil || updated.Parsed.Sections[0].Body != "Rewritten body text." {
		t.Fatalf("new content not parsed: %+v", updated.Parsed)
	}
	// Old fingerprint was evicted; only the new entry remains.
	if c.Len() != 1 {
		t.Fatalf("expected 1 cache entry after reupload, got %d", c.Len())
	}
}

func TestDeleteInvalidatesCache(t *testing.T) {
	svc, artifacts, _, c := newTestService(Options{})

	res, err := svc.Ingest(context.Background(), "a.txt", "text/plain", []byte(sample), UploadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), res.Artifact.ArtifactID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(artifacts.artifacts) != 0 {
		t.Fatal("artifact not deleted")
	}
	if c.Len() != 0 {
		t.Fatalf("cache entry not invalidated, %d remain", c.Len())
	}
}

func TestDownloadStampsLastAccessed(t *testing.T) {
	svc, artifacts, _, _ := newTestService(Options{})

	res, err := svc.Ingest(context.Background(), "a.txt", "text/plain", []byte(sample), UploadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	artifact, raw, err := svc.Download(context.Background(), res.Artifact.ArtifactID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(raw) != sample {
		t.Fatal("downloaded bytes differ from upload")
	}
	if artifact.ArtifactID != res.Artifact.ArtifactID {
		t.Fatal("wrong artifact returned")
	}
	stored, _ := artifacts.GetArtifact(context.Background(), res.Artifact.ArtifactID)
	if stored.LastAccessed == nil {
		t.Fatal("download must stamp last_accessed")
	}
}

func TestExtractTimeout(t *testing.T) {
	svc, _, _, _ := newTestService(Options{ExtractTimeout: 10 * time.Millisecond})

	slow := slowAdapter{delay: 200 * time.Millisecond}
	_, err := svc.extractWithTimeout(context.Background(), slow, []byte("x"))
	if !errors.Is(err, parser.ErrExtractionTimeout) {
		t.Fatalf("expected ErrExtractionTimeout, got %v", err)
	}
}

type slowAdapter struct{ delay time.Duration }

func (s slowAdapter) Extract(raw []byte) (parser.Extraction, error) {
	time.Sleep(s.delay)
	return parser.Extraction{Text: fmt.Sprintf("%d bytes", len(raw))}, nil
}
