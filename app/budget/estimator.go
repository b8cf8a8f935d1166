// Package budget fits a topic's collected items into the LLM context budget.
package budget

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	DefaultTokenBudget = 20000
	DefaultEncoding    = "cl100k_base"
	charsPerToken      = 4
)

// Estimator approximates how many tokens a text costs.
type Estimator interface {
	Estimate(text string) int
}

// CharEstimator counts one token per four runes, rounded up.
type CharEstimator struct{}

func (CharEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// TiktokenEstimator counts BPE tokens with an embedded encoding table.
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

var loaderOnce sync.Once

func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenEstimator{encoding: enc}, nil
}

func (e *TiktokenEstimator) Estimate(text string) int {
	return len(e.encoding.Encode(text, nil, nil))
}

var (
	defaultOnce      sync.Once
	defaultEstimator Estimator
)

// NewEstimator returns the shared cl100k_base estimator, or CharEstimator
// when the encoding cannot be loaded.
func NewEstimator() Estimator {
	defaultOnce.Do(func() {
		e, err := NewTiktokenEstimator(DefaultEncoding)
		if err != nil {
			slog.Warn("Falling back to character token estimate", "encoding", DefaultEncoding, "error", err)
			defaultEstimator = CharEstimator{}
			return
		}
		defaultEstimator = e
	})
	return defaultEstimator
}
