package usecase_test

import (
	"testing"

	"github.com/engram-lab/engram/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestExtractKeywords(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "lowercases and splits",
			query: "What about Pizza Night?",
			want:  []string{"what", "about", "pizza", "night"},
		},
		{
			name:  "drops stop words and short tokens",
			query: "go to the office by bus",
			want:  []string{"office", "bus"},
		},
		{
			name:  "deduplicates",
			query: "pizza pizza PIZZA",
			want:  []string{"pizza"},
		},
		{
			name:  "caps at five tokens",
			query: "alpha bravo charlie delta echo foxtrot golf",
			want:  []string{"alpha", "bravo", "charlie", "delta", "echo"},
		},
		{
			name:  "counts runes not bytes",
			query: "日本 東京タワー cafe",
			want:  []string{"東京タワー", "cafe"},
		},
		{
			name:  "empty query",
			query: "",
			want:  []string{},
		},
		{
			name:  "punctuation only",
			query: "?!... ---",
			want:  []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := usecase.ExtractKeywords(tc.query)
			gt.Array(t, got).Length(len(tc.want))
			for i, w := range tc.want {
				gt.Value(t, got[i]).Equal(w)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	gt.Value(t, usecase.CosineSimilarity([]float32{1, 0}, []float32{1, 0})).Equal(1.0)
	gt.Value(t, usecase.CosineSimilarity([]float32{1, 0}, []float32{0, 1})).Equal(0.0)
	gt.Value(t, usecase.CosineSimilarity([]float32{1, 0}, []float32{-1, 0})).Equal(-1.0)

	// mismatched dimensions and zero vectors degrade to no similarity
	gt.Value(t, usecase.CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})).Equal(0.0)
	gt.Value(t, usecase.CosineSimilarity([]float32{0, 0}, []float32{1, 0})).Equal(0.0)
}

func TestParseEntityNames(t *testing.T) {
	names, err := usecase.ParseEntityNames(`["Dana", "Paris"]`)
	gt.NoError(t, err).Required()
	gt.Array(t, names).Length(2)

	names, err = usecase.ParseEntityNames(`{"entities": ["Acme"]}`)
	gt.NoError(t, err).Required()
	gt.Array(t, names).Length(1)
	gt.Value(t, names[0]).Equal("Acme")

	_, err = usecase.ParseEntityNames(`not json`)
	gt.Error(t, err)
}
