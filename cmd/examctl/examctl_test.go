package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exambot/internal/exam"
	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/service"
)

func sampleDocument() *model.ExamDocument {
	return &model.ExamDocument{
		Name:         "hsk1",
		NumQuestions: 1,
		MaxWrong:     exam.IntPtr(0),
		Timelimit:    20,
		HSKLevel:     1,
		Deck: []model.QuestionDocument{
			{Question: "你好", ValidAnswers: []string{"ni3 hao3"}, Meaning: "hello"},
		},
	}
}

func TestConfirm(t *testing.T) {
	tests := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" yes ":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"maybe\n": false,
	}
	for input, want := range tests {
		var out bytes.Buffer
		assert.Equal(t, want, confirm(strings.NewReader(input), &out, "Overwrite"), "input %q", input)
		assert.Equal(t, "Overwrite [y/N]: ", out.String())
	}
}

func TestEncodeExamDocumentRoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encodeExamDocument(&buf, sampleDocument(), format))
			assert.Contains(t, buf.String(), "你好")

			got, err := service.DecodeExamDocument("hsk1."+format, buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, sampleDocument(), got)
		})
	}

	assert.Error(t, encodeExamDocument(&bytes.Buffer{}, sampleDocument(), "xml"))
}

func TestReadExamFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "hsk1.json")
	var buf bytes.Buffer
	require.NoError(t, encodeExamDocument(&buf, sampleDocument(), "json"))
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0o644))

	doc, err := readExamFile(good)
	require.NoError(t, err)
	assert.Equal(t, "hsk1", doc.Name)

	bad := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: broken\nnumQuestions: 3\ndeck: []\n"), 0o644))
	_, err = readExamFile(bad)
	assert.Error(t, err)

	_, err = readExamFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPrintRecords(t *testing.T) {
	unlimited := sampleDocument()
	unlimited.Name = "hsk2"
	unlimited.MaxWrong = nil

	var out bytes.Buffer
	printRecords(&out, []model.ExamRecord{
		{Document: *sampleDocument(), UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{Document: *unlimited, UpdatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "hsk1")
	assert.Contains(t, lines[1], "20s")
	assert.Contains(t, lines[1], "2026-03-01 12:00:00")
	assert.Contains(t, lines[2], "∞")
}
