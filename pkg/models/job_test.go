package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobRecordDefaults(t *testing.T) {
	r := NewJobRecord("")
	assert.Equal(t, DefaultSource, r.Source)
	assert.NotNil(t, r.Tags)
	assert.Nil(t, r.Category)
	assert.Nil(t, r.Salary)

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, key := range []string{"id", "company", "company_rating", "salary", "max_salary", "posted_date", "apply_url", "featured_image"} {
		v, ok := m[key]
		assert.True(t, ok, "key %s must always be serialized", key)
		assert.Nil(t, v, "key %s must be null", key)
	}
	assert.Equal(t, []any{}, m["tags"])
}

func TestAddTagDeduplicates(t *testing.T) {
	r := NewJobRecord("test")
	r.AddTag(TagSponsored)
	r.AddTag("Sponsored")
	r.AddTag(" ")
	r.AddTag(TagUrgent)
	r.AddTag(TagUrgent)
	assert.Equal(t, []string{TagSponsored, TagUrgent}, r.Tags)
}

func TestCloneIsDeep(t *testing.T) {
	r := NewJobRecord("")
	r.Title = "Contador"
	r.Company = Ptr("ACME")
	r.AddTag("new")

	c := r.Clone()
	*c.Company = "Other"
	c.AddTag("urgent")
	c.Title = "Changed"

	assert.Equal(t, "ACME", *r.Company)
	assert.Equal(t, []string{"new"}, r.Tags)
	assert.Equal(t, "Contador", r.Title)
}

func TestKey(t *testing.T) {
	r := NewJobRecord("")
	assert.Equal(t, "", r.Key())
	r.ID = Ptr("abc123")
	assert.Equal(t, "abc123", r.Key())
}
