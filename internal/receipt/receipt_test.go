package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSHA = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func sampleWindow() ProcessWindow {
	start := time.Date(2026, time.March, 4, 10, 11, 12, 345_678_000, time.UTC)
	return ProcessWindow{StartedAt: start, DeletedAt: start.Add(1500 * time.Millisecond)}
}

func TestCanonicalFieldOrder(t *testing.T) {
	pages := 2
	r, err := Build(
		FileDescriptor{Name: "a&b<c>.pdf", MIME: "application/pdf", SHA256: testSHA, Size: 1234},
		sampleWindow(),
		ExtractionDescriptor{Pages: &pages},
	)
	require.NoError(t, err)

	got, err := Canonical(r)
	require.NoError(t, err)

	want := `{"kind":"MadeProofDeletionReceipt","version":1,` +
		`"file":{"name":"a&b<c>.pdf","mime":"application/pdf","sha256":"` + testSHA + `","size":1234},` +
		`"process":{"started_at":"2026-03-04T10:11:12.345Z","deleted_at":"2026-03-04T10:11:13.845Z"},` +
		`"extraction":{"pages":2,"ocr":false}}`
	assert.Equal(t, want, string(got))
}

func TestCanonicalNullPages(t *testing.T) {
	r, err := Build(
		FileDescriptor{Name: "scan.jpg", MIME: "image/jpeg", SHA256: testSHA, Size: 10},
		sampleWindow(),
		ExtractionDescriptor{OCR: true},
	)
	require.NoError(t, err)

	got, err := Canonical(r)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(got), `"extraction":{"pages":null,"ocr":true}}`), string(got))
}

func TestBuildConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2026, time.March, 4, 12, 0, 0, 0, loc)
	r, err := Build(
		FileDescriptor{Name: "x", MIME: "text/plain", SHA256: testSHA},
		ProcessWindow{StartedAt: start, DeletedAt: start},
		ExtractionDescriptor{},
	)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04T10:00:00.000Z", r.Process.StartedAt)
	assert.Equal(t, r.Process.StartedAt, r.Process.DeletedAt)
}

func TestBuildRejectsInvertedWindow(t *testing.T) {
	w := sampleWindow()
	w.StartedAt, w.DeletedAt = w.DeletedAt, w.StartedAt
	_, err := Build(FileDescriptor{SHA256: testSHA}, w, ExtractionDescriptor{})
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestBuildRejectsBadDigest(t *testing.T) {
	_, err := Build(FileDescriptor{SHA256: strings.ToUpper(testSHA)}, sampleWindow(), ExtractionDescriptor{})
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	_, err = Build(FileDescriptor{SHA256: "abc"}, sampleWindow(), ExtractionDescriptor{})
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestBuildCopiesPages(t *testing.T) {
	pages := 3
	r, err := Build(FileDescriptor{SHA256: testSHA}, sampleWindow(), ExtractionDescriptor{Pages: &pages})
	require.NoError(t, err)
	pages = 99
	require.NotNil(t, r.Extraction.Pages)
	assert.Equal(t, 3, *r.Extraction.Pages)
}

func TestParseRecanonicalizes(t *testing.T) {
	r, err := Build(FileDescriptor{Name: "n", MIME: "m", SHA256: testSHA, Size: 5}, sampleWindow(), ExtractionDescriptor{})
	require.NoError(t, err)
	canonical, err := Canonical(r)
	require.NoError(t, err)

	pretty := strings.ReplaceAll(string(canonical), ",", ",\n  ")
	parsed, err := Parse([]byte(pretty))
	require.NoError(t, err)

	again, err := Canonical(parsed)
	require.NoError(t, err)
	assert.Equal(t, string(canonical), string(again))
}

func TestParseWithoutSize(t *testing.T) {
	raw := `{"kind":"MadeProofDeletionReceipt","version":1,"file":{"name":"n","mime":"m","sha256":"` + testSHA + `"},` +
		`"process":{"started_at":"2026-03-04T10:11:12.345Z","deleted_at":"2026-03-04T10:11:12.345Z"},"extraction":{"pages":null,"ocr":false}}`
	parsed, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Nil(t, parsed.File.Size)

	again, err := Canonical(parsed)
	require.NoError(t, err)
	assert.Equal(t, raw, string(again))
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{"kind":"MadeProofDeletionReceipt","version":1,"extra":true}`))
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	_, err = Parse([]byte(`{"kind":"Other","version":1}`))
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestTimestampAccessors(t *testing.T) {
	r, err := Build(FileDescriptor{SHA256: testSHA}, sampleWindow(), ExtractionDescriptor{})
	require.NoError(t, err)
	started, err := r.StartedAt()
	require.NoError(t, err)
	deleted, err := r.DeletedAt()
	require.NoError(t, err)
	assert.False(t, deleted.Before(started))
}
