package samples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamuelRCrider/legal-auditor/core"
)

func TestDocuments(t *testing.T) {
	docs, err := Documents()
	require.NoError(t, err)
	require.Len(t, docs, 12)

	for _, d := range docs {
		assert.NotEmpty(t, d.Content)
		assert.Contains(t, []string{"slack", "email", "github"}, d.Source)
		assert.NotEmpty(t, d.AuthorEmail)
		assert.True(t, d.Timestamp.IsZero())
	}
	assert.Equal(t, "#customer-support", docs[0].Channel)
}

func TestDocumentsCoverRiskLevels(t *testing.T) {
	docs, err := Documents()
	require.NoError(t, err)

	first := core.Analyze(docs[0].Content)
	assert.Equal(t, []core.Kind{core.KindEmail, core.KindSSN, core.KindPhone}, first.Kinds)
	assert.True(t, first.Flagged)

	for _, i := range []int{7, 11} {
		result := core.Analyze(docs[i].Content)
		assert.Zero(t, result.Count, "document %d should be clean", i+1)
	}
}

func TestPolicies(t *testing.T) {
	clauses, err := Policies()
	require.NoError(t, err)
	require.Len(t, clauses, 12)

	frameworks := map[string]int{}
	for _, c := range clauses {
		frameworks[c.Framework]++
		assert.NotEmpty(t, c.Title)
		assert.NotEmpty(t, c.Content)
		assert.NotEmpty(t, c.Category)
		assert.NotEmpty(t, c.Article)
	}
	assert.Equal(t, map[string]int{"GDPR": 5, "HIPAA": 4, "INTERNAL": 3}, frameworks)

	assert.Equal(t, "DATA_SECURITY", clauses[2].Category)
	assert.Equal(t, "Article 32", clauses[2].Article)
	assert.Equal(t, "2018-05-25", clauses[2].EffectiveDate)
}
