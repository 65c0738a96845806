package classify

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Example is one labelled training document.
type Example struct {
	Label string
	Text  string
}

// Prediction is the posterior distribution over labels for one document.
type Prediction struct {
	Label  string
	Score  float64
	Scores map[string]float64
	// Known is false when no token of the document was seen during training.
	Known bool
}

// NaiveBayes is a multinomial naive Bayes text classifier with Laplace smoothing.
// It is trained once and read-only afterwards, so it is safe for concurrent use.
type NaiveBayes struct {
	labels      []string
	docCount    map[string]int
	tokenCount  map[string]map[string]int
	totalTokens map[string]int
	vocabulary  map[string]struct{}
	totalDocs   int
}

func Train(examples []Example) *NaiveBayes {
	nb := &NaiveBayes{
		docCount:    make(map[string]int),
		tokenCount:  make(map[string]map[string]int),
		totalTokens: make(map[string]int),
		vocabulary:  make(map[string]struct{}),
	}

	for _, ex := range examples {
		tokens := Tokenize(ex.Text)
		if len(tokens) == 0 {
			continue
		}
		if _, ok := nb.tokenCount[ex.Label]; !ok {
			nb.tokenCount[ex.Label] = make(map[string]int)
			nb.labels = append(nb.labels, ex.Label)
		}
		nb.docCount[ex.Label]++
		nb.totalDocs++
		for _, tok := range tokens {
			nb.tokenCount[ex.Label][tok]++
			nb.totalTokens[ex.Label]++
			nb.vocabulary[tok] = struct{}{}
		}
	}
	sort.Strings(nb.labels)
	return nb
}

func (nb *NaiveBayes) Labels() []string {
	return append([]string(nil), nb.labels...)
}

// Classify returns the posterior over all labels. Tokens outside the training
// vocabulary are ignored; a document with no known tokens gets the class priors.
func (nb *NaiveBayes) Classify(text string) Prediction {
	pred := Prediction{Scores: make(map[string]float64, len(nb.labels))}
	if nb.totalDocs == 0 {
		return pred
	}

	var known []string
	for _, tok := range Tokenize(text) {
		if _, ok := nb.vocabulary[tok]; ok {
			known = append(known, tok)
		}
	}
	pred.Known = len(known) > 0

	vocabSize := float64(len(nb.vocabulary))
	logScores := make(map[string]float64, len(nb.labels))
	maxLog := math.Inf(-1)
	for _, label := range nb.labels {
		score := math.Log(float64(nb.docCount[label]) / float64(nb.totalDocs))
		denom := float64(nb.totalTokens[label]) + vocabSize
		for _, tok := range known {
			score += math.Log((float64(nb.tokenCount[label][tok]) + 1) / denom)
		}
		logScores[label] = score
		if score > maxLog {
			maxLog = score
		}
	}

	// log-sum-exp normalisation
	var sum float64
	for _, label := range nb.labels {
		sum += math.Exp(logScores[label] - maxLog)
	}
	for _, label := range nb.labels {
		p := math.Exp(logScores[label]-maxLog) / sum
		pred.Scores[label] = p
		// labels are sorted, so ties resolve alphabetically
		if p > pred.Score {
			pred.Label = label
			pred.Score = p
		}
	}
	return pred
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "to": {}, "of": {}, "for": {},
	"in": {}, "on": {}, "at": {}, "is": {}, "are": {}, "be": {}, "it": {}, "this": {},
	"that": {}, "me": {}, "my": {}, "i": {}, "you": {}, "your": {}, "we": {}, "our": {},
	"with": {}, "please": {}, "can": {}, "could": {}, "would": {}, "so": {}, "do": {},
	"ok": {}, "okay": {}, "then": {}, "what": {}, "about": {}, "just": {}, "some": {},
}

// Tokenize lowercases text, splits on anything that is not a letter or digit
// and drops stopwords and single characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
