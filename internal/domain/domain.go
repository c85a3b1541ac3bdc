package domain

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

type Source string

const (
	SourceText Source = "text"
	SourceURL  Source = "url"
	SourcePDF  Source = "pdf"
)

// Document is extracted plain text together with where it came from.
type Document struct {
	Text     string
	Source   Source
	Name     string
	Language string
}

type WordCount struct {
	Token string
	Count int
}

// FrequencyTable is ordered by descending count, ties in first-seen order.
type FrequencyTable []WordCount

func (t FrequencyTable) Map() map[string]int {
	m := make(map[string]int, len(t))
	for _, wc := range t {
		m[wc.Token] = wc.Count
	}
	return m
}

// CSV renders the table with a word,count header.
func (t FrequencyTable) CSV() string {
	var b strings.Builder
	w := csv.NewWriter(&b)

	_ = w.Write([]string{"word", "count"})
	for _, wc := range t {
		_ = w.Write([]string{wc.Token, strconv.Itoa(wc.Count)})
	}
	w.Flush()

	return b.String()
}

type Report struct {
	Document    Document
	Result      string
	Failed      bool
	Frequencies FrequencyTable
	WordCloud   []byte
	BarChart    []byte
}

type BatchItem struct {
	Name   string
	Result string
	Failed bool
}

type Analysis struct {
	ID        string
	ChatID    int64
	Source    Source
	Name      string
	Language  string
	TextHash  string
	Result    string
	Failed    bool
	CreatedAt time.Time
}
