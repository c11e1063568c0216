package tagger

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"postscope/pkg/config"
	"postscope/pkg/models"
)

// Style labels
const (
	StyleQuestion       = "question"
	StyleExclamatory    = "exclamatory"
	StyleEmphatic       = "emphatic"
	StyleReference      = "reference"
	StyleTagged         = "tagged"
	StyleConversational = "conversational"

	// StyleStandard is shown for posts with no style label. It is never
	// stored in a Tag.
	StyleStandard = "standard"
)

var (
	urlPattern         = regexp.MustCompile(`https?://\S+`)
	mentionPattern     = regexp.MustCompile(`@\w+`)
	hashtagPattern     = regexp.MustCompile(`#\w+`)
	retweetPrefix      = regexp.MustCompile(`^RT\s+`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
	apostropheVariants = strings.NewReplacer("’", "'", "‘", "'")
)

// Options tunes the heuristics
type Options struct {
	// TopK is the size of the corpus vocabulary
	TopK int
	// MinTokenLength drops shorter tokens from topic counting
	MinTokenLength int
	// MinCount is the corpus frequency a token needs to become a topic
	MinCount int
	// EmphaticRatio is the share of all-caps words a post must exceed to be
	// emphatic. Zero means any all-caps word.
	EmphaticRatio float64
}

// DefaultOptions returns the default heuristics
func DefaultOptions() Options {
	return Options{TopK: 10, MinTokenLength: 2, MinCount: 1}
}

// OptionsFromConfig converts the tagger config section
func OptionsFromConfig(c config.TaggerConfig) Options {
	return Options{
		TopK:           c.TopK,
		MinTokenLength: c.MinTokenLength,
		MinCount:       c.MinCount,
		EmphaticRatio:  c.EmphaticRatio,
	}
}

// Report is the outcome of tagging a corpus. Tags[i] belongs to posts[i].
type Report struct {
	Tags       []models.Tag
	Vocabulary []models.TopicCount
	// Unclassified lists ids of posts that received the default tag
	Unclassified []string
}

// Tagger assigns topics, sentiment and styles. It holds no mutable state.
type Tagger struct {
	opts Options
}

// New creates a Tagger
func New(opts Options) *Tagger {
	def := DefaultOptions()
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = def.MinTokenLength
	}
	if opts.MinCount <= 0 {
		opts.MinCount = def.MinCount
	}
	if opts.EmphaticRatio < 0 {
		opts.EmphaticRatio = 0
	}
	return &Tagger{opts: opts}
}

// TagAll tags a finished corpus in two passes: the first builds the global
// vocabulary, the second tags each post against it. The same posts always
// produce the same report.
func (t *Tagger) TagAll(posts []models.Post) Report {
	fold := cases.Fold()

	tokens := make([][]string, len(posts))
	counts := make(map[string]int)
	for i, p := range posts {
		tokens[i] = tokenize(fold, CleanText(p.Text))
		for _, tok := range tokens[i] {
			if t.countable(tok) {
				counts[tok]++
			}
		}
	}

	vocab := t.vocabulary(counts)
	report := Report{
		Tags:         make([]models.Tag, len(posts)),
		Vocabulary:   vocab,
		Unclassified: []string{},
	}

	for i, p := range posts {
		tag, ok := t.tagOne(p, tokens[i], vocab)
		if !ok {
			report.Unclassified = append(report.Unclassified, p.ID)
		}
		report.Tags[i] = tag
	}

	return report
}

// tagOne never panics; a post that cannot be classified gets the default tag
func (t *Tagger) tagOne(p models.Post, tokens []string, vocab []models.TopicCount) (tag models.Tag, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			tag, ok = models.DefaultTag(), false
		}
	}()

	if len(tokens) == 0 {
		return models.DefaultTag(), false
	}

	present := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		present[tok] = struct{}{}
	}

	topics := []string{}
	for _, v := range vocab {
		if _, ok := present[v.Name]; ok {
			topics = append(topics, v.Name)
		}
	}

	return models.Tag{
		Topics:    topics,
		Sentiment: sentimentOf(present),
		Styles:    t.Styles(p.Text),
	}, true
}

func (t *Tagger) countable(tok string) bool {
	if utf8.RuneCountInString(tok) < t.opts.MinTokenLength {
		return false
	}
	_, stop := stopWords[tok]
	return !stop
}

// vocabulary returns the top K tokens, most frequent first, ties by token
func (t *Tagger) vocabulary(counts map[string]int) []models.TopicCount {
	vocab := make([]models.TopicCount, 0, len(counts))
	for tok, n := range counts {
		if n >= t.opts.MinCount {
			vocab = append(vocab, models.TopicCount{Name: tok, Count: n})
		}
	}

	sort.Slice(vocab, func(i, j int) bool {
		if vocab[i].Count != vocab[j].Count {
			return vocab[i].Count > vocab[j].Count
		}
		return vocab[i].Name < vocab[j].Name
	})

	if len(vocab) > t.opts.TopK {
		vocab = vocab[:t.opts.TopK]
	}
	return vocab
}

// Sentiment classifies text by lexicon matches. Ties are neutral.
func (t *Tagger) Sentiment(text string) models.Sentiment {
	present := make(map[string]struct{})
	for _, tok := range tokenize(cases.Fold(), CleanText(text)) {
		present[tok] = struct{}{}
	}
	return sentimentOf(present)
}

func sentimentOf(present map[string]struct{}) models.Sentiment {
	pos, neg := 0, 0
	for tok := range present {
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}

	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Styles returns every style label that applies to the raw text, in a fixed
// order. The result may be empty.
func (t *Tagger) Styles(text string) []string {
	styles := []string{}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return styles
	}

	words := strings.Fields(trimmed)

	if strings.HasSuffix(trimmed, "?") || isQuestionWord(words[0]) {
		styles = append(styles, StyleQuestion)
	}
	if strings.Contains(trimmed, "!") {
		styles = append(styles, StyleExclamatory)
	}

	caps := 0
	for _, w := range words {
		if isShouted(w) {
			caps++
		}
	}
	if caps > 0 && float64(caps) > t.opts.EmphaticRatio*float64(len(words)) {
		styles = append(styles, StyleEmphatic)
	}

	if strings.Contains(trimmed, "http://") || strings.Contains(trimmed, "https://") {
		styles = append(styles, StyleReference)
	}
	if strings.Contains(trimmed, "#") {
		styles = append(styles, StyleTagged)
	}
	if strings.Contains(trimmed, "@") {
		styles = append(styles, StyleConversational)
	}

	return styles
}

// DisplayStyles renders styles for output, using "standard" for none
func DisplayStyles(styles []string) string {
	if len(styles) == 0 {
		return StyleStandard
	}
	return strings.Join(styles, ", ")
}

func isQuestionWord(word string) bool {
	_, ok := questionIndicators[strings.ToLower(strings.TrimFunc(word, unicode.IsPunct))]
	return ok
}

// isShouted reports an all-caps word of more than one character
func isShouted(word string) bool {
	if utf8.RuneCountInString(word) < 2 {
		return false
	}
	upper := false
	for _, r := range word {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper = true
		}
	}
	return upper
}

// CleanText strips links, mentions, hashtags and a retweet prefix, and
// collapses whitespace
func CleanText(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "")
	text = hashtagPattern.ReplaceAllString(text, "")
	text = retweetPrefix.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Tokens returns the case-folded tokens of text after cleaning
func Tokens(text string) []string {
	return tokenize(cases.Fold(), CleanText(text))
}

func tokenize(fold cases.Caser, cleaned string) []string {
	cleaned = apostropheVariants.Replace(cleaned)
	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if tok == "" {
			continue
		}
		out = append(out, fold.String(tok))
	}
	return out
}

// String describes the active options, for logs
func (o Options) String() string {
	return fmt.Sprintf("top_k=%d min_token_length=%d min_count=%d emphatic_ratio=%.2f",
		o.TopK, o.MinTokenLength, o.MinCount, o.EmphaticRatio)
}
