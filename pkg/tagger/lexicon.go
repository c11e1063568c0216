package tagger

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var stopWords = wordSet(
	"a", "an", "the", "and", "or", "but", "if", "because", "as", "what",
	"when", "where", "how", "who", "which", "this", "that", "these", "those",
	"then", "just", "so", "than", "such", "both", "through", "about", "for",
	"is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"having", "do", "does", "did", "doing", "to", "from", "in", "out", "on",
	"off", "over", "under", "again", "further", "once", "here", "there",
	"all", "any", "each", "few", "more", "most", "other", "some",
	"no", "nor", "not", "only", "own", "same", "too", "very", "can", "will", "with",
	"at", "by", "of", "up", "it", "its", "it's", "i", "me", "my", "myself",
	"we", "our", "ours", "ourselves", "you", "you're", "you've", "you'll", "you'd",
	"your", "yours", "yourself", "yourselves", "he", "him", "his", "himself",
	"she", "she's", "her", "hers", "herself", "they", "them", "their", "theirs",
	"themselves", "am", "i'm", "isn't", "aren't", "wasn't", "weren't", "hasn't",
	"haven't", "hadn't", "doesn't", "don't", "didn't", "shouldn't", "wouldn't",
	"couldn't", "can't", "won't", "against", "between", "into", "during",
	"before", "after", "above", "below", "while", "why", "could", "should",
	"would", "may", "might", "must", "now",
)

var positiveWords = wordSet(
	"good", "great", "awesome", "excellent", "wonderful", "best", "love", "happy",
	"excited", "nice", "beautiful", "perfect", "amazing", "fantastic", "brilliant",
	"joy", "celebrate", "win", "success", "congratulations", "delighted", "proud",
	"optimistic", "impressive", "remarkable", "exceptional", "pleasure", "grateful",
	"appreciate", "thank", "thanks", "better", "improved", "positive", "hope",
	"promising", "praised", "recommended", "thrilled", "enjoy", "liked", "laugh",
	"smile", "fun", "incredible", "outstanding", "superb", "stunning", "magnificent",
	"delightful", "favorable", "encouraging",
)

var negativeWords = wordSet(
	"bad", "terrible", "awful", "horrible", "worst", "hate", "sad", "angry",
	"upset", "poor", "disappointing", "problem", "fail", "failure", "mess",
	"trouble", "unfortunately", "sorry", "disappointed", "negative", "unhappy",
	"worried", "annoyed", "frustrated", "regret", "mistake", "difficult", "issue",
	"concern", "complaint", "complain", "afraid", "horrific", "dreadful",
	"unpleasant", "unfavorable", "inferior", "lose", "lost", "worse", "disaster",
	"disgrace", "fault", "flaw", "incorrect", "ineffective", "disadvantage",
	"dire", "grim", "severe", "tragic", "unsuccessful", "ugly", "undesirable",
)

var questionIndicators = wordSet(
	"what", "who", "where", "when", "why", "how", "which", "whose", "whom",
	"is", "are", "was", "were", "will", "would", "should", "could", "can",
	"may", "might", "must", "do", "does", "did", "has", "have", "had",
)
