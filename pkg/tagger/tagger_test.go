package tagger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postscope/pkg/config"
	"postscope/pkg/models"
)

func posts(texts ...string) []models.Post {
	out := make([]models.Post, len(texts))
	for i, t := range texts {
		out[i] = models.Post{ID: string(rune('a' + i)), Text: t}
	}
	return out
}

func TestCorpusRelativeTopics(t *testing.T) {
	tg := New(DefaultOptions())
	report := tg.TagAll(posts("AI is great!", "I love AI"))

	require.Len(t, report.Tags, 2)
	assert.Contains(t, report.Tags[0].Topics, "ai")
	assert.Contains(t, report.Tags[1].Topics, "ai")

	assert.Contains(t, report.Tags[0].Styles, StyleExclamatory)
	assert.Equal(t, models.SentimentPositive, report.Tags[0].Sentiment)
	assert.Equal(t, models.SentimentPositive, report.Tags[1].Sentiment)

	require.NotEmpty(t, report.Vocabulary)
	assert.Equal(t, models.TopicCount{Name: "ai", Count: 2}, report.Vocabulary[0])
	assert.Empty(t, report.Unclassified)
}

func TestTaggingIsDeterministic(t *testing.T) {
	corpus := posts(
		"Shipping the new release today! #golang",
		"Release notes are up: https://example.com/notes",
		"Is the release stable? Asking for a friend @bob",
		"Terrible bug in the release, sorry everyone",
		"release release release",
		"Coffee first, then code",
	)
	tg := New(Options{TopK: 3})

	first := tg.TagAll(corpus)
	second := tg.TagAll(corpus)
	assert.Equal(t, first, second)

	assert.Len(t, first.Vocabulary, 3)
	assert.Equal(t, "release", first.Vocabulary[0].Name)
	assert.Equal(t, 7, first.Vocabulary[0].Count)
}

func TestVocabularyTiesSortByToken(t *testing.T) {
	tg := New(Options{TopK: 2})
	report := tg.TagAll(posts("zebra yak", "yak zebra xylophone"))

	assert.Equal(t, []models.TopicCount{{Name: "yak", Count: 2}, {Name: "zebra", Count: 2}}, report.Vocabulary)
	assert.Equal(t, []string{"yak", "zebra"}, report.Tags[1].Topics)
}

func TestMinCountAndTokenLength(t *testing.T) {
	tg := New(Options{MinCount: 2, MinTokenLength: 4})
	report := tg.TagAll(posts("rust rust go go gopher", "gopher"))

	assert.Equal(t, []models.TopicCount{{Name: "gopher", Count: 2}, {Name: "rust", Count: 2}}, report.Vocabulary)
}

func TestUnclassifiablePostsGetDefaults(t *testing.T) {
	tg := New(DefaultOptions())
	report := tg.TagAll(posts("@alice https://example.com #tag", "good news everyone"))

	assert.Equal(t, []string{"a"}, report.Unclassified)
	assert.Equal(t, models.DefaultTag(), report.Tags[0])
	assert.Equal(t, models.SentimentPositive, report.Tags[1].Sentiment)
}

func TestSentiment(t *testing.T) {
	tg := New(DefaultOptions())

	tests := []struct {
		text string
		want models.Sentiment
	}{
		{"What a great day", models.SentimentPositive},
		{"This is terrible and sad", models.SentimentNegative},
		{"Good idea, bad timing", models.SentimentNeutral},
		{"The meeting is at noon", models.SentimentNeutral},
		{"LOVE it, love it, love it, but it's a mess", models.SentimentNeutral},
		{"", models.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, tg.Sentiment(tt.text))
		})
	}
}

func TestStyles(t *testing.T) {
	tg := New(DefaultOptions())

	tests := []struct {
		text string
		want []string
	}{
		{"plain words here", []string{}},
		{"is this thing on", []string{StyleQuestion}},
		{"anyone around?", []string{StyleQuestion}},
		{"wow!", []string{StyleExclamatory}},
		{"this is HUGE news", []string{StyleEmphatic}},
		{"I think so", []string{}},
		{"read https://go.dev", []string{StyleReference}},
		{"loving #golang", []string{StyleTagged}},
		{"@bob thanks", []string{StyleConversational}},
		{"Why is THIS broken?! @ops #incident http://status.example", []string{
			StyleQuestion, StyleExclamatory, StyleEmphatic, StyleReference, StyleTagged, StyleConversational,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, tg.Styles(tt.text))
		})
	}
}

func TestEmphaticRatio(t *testing.T) {
	tg := New(Options{EmphaticRatio: 1.0 / 3})

	assert.NotContains(t, tg.Styles("this is HUGE news"), StyleEmphatic)
	assert.Contains(t, tg.Styles("THIS IS huge"), StyleEmphatic)
}

func TestCleanTextAndTokens(t *testing.T) {
	assert.Equal(t, ": shipping it", CleanText("RT @bob: shipping   it #go https://t.co/x"))
	assert.Equal(t, "hello world", CleanText("  hello \n world "))

	assert.Equal(t, []string{"don't", "stop", "café"}, Tokens("Don’t STOP! Café..."))
}

func TestDisplayStyles(t *testing.T) {
	assert.Equal(t, StyleStandard, DisplayStyles(nil))
	assert.Equal(t, "question, tagged", DisplayStyles([]string{StyleQuestion, StyleTagged}))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.DefaultConfig().Tagger)
	assert.Equal(t, 10, opts.TopK)
	assert.Equal(t, 2, opts.MinTokenLength)

	tg := New(Options{})
	assert.Equal(t, DefaultOptions(), tg.opts)
}
