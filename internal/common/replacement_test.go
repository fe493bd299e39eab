package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// createTestLogger creates a logger for testing
func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestReplaceKeyReferences_Simple(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"authority-api-key": "tok-12345"}

	input := "api_key = {authority-api-key}"
	expected := "api_key = tok-12345"

	result := ReplaceKeyReferences(input, kvMap, logger)
	assert.Equal(t, expected, result)
}

func TestReplaceKeyReferences_Multiple(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{
		"key1": "val1",
		"key2": "val2",
		"key3": "val3",
	}

	input := "key1={key1}, key2={key2}, key3={key3}"
	expected := "key1=val1, key2=val2, key3=val3"

	result := ReplaceKeyReferences(input, kvMap, logger)
	assert.Equal(t, expected, result)
}

func TestReplaceKeyReferences_MissingKey(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"other-key": "value"}

	input := "api_key = {missing-key}"
	expected := "api_key = {missing-key}" // Unchanged

	result := ReplaceKeyReferences(input, kvMap, logger)
	assert.Equal(t, expected, result)
}

func TestReplaceKeyReferences_InvalidSyntax(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"invalid key": "value"}

	// Space in key name - doesn't match regex
	input := "api_key = {invalid key}"
	expected := "api_key = {invalid key}" // Unchanged

	result := ReplaceKeyReferences(input, kvMap, logger)
	assert.Equal(t, expected, result)
}

func TestReplaceKeyReferences_EmptyInput(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"key": "value"}

	result := ReplaceKeyReferences("", kvMap, logger)
	assert.Equal(t, "", result)
}

func TestReplaceKeyReferences_NoReferences(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"key": "value"}

	input := "api_key = static-value"
	expected := "api_key = static-value"

	result := ReplaceKeyReferences(input, kvMap, logger)
	assert.Equal(t, expected, result)
}

func TestReplaceInStruct_StringField(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"authority-api-key": "tok-12345"}

	type target struct {
		APIKey string
	}
	s := &target{APIKey: "{authority-api-key}"}

	err := ReplaceInStruct(s, kvMap, logger)
	require.NoError(t, err)

	assert.Equal(t, "tok-12345", s.APIKey)
}

func TestReplaceInStruct_NestedStruct(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"base-url": "https://authority.example.com"}

	type inner struct {
		BaseURL string
	}
	type outer struct {
		Authority inner
	}
	s := &outer{Authority: inner{BaseURL: "{base-url}"}}

	err := ReplaceInStruct(s, kvMap, logger)
	require.NoError(t, err)

	assert.Equal(t, "https://authority.example.com", s.Authority.BaseURL)
}

func TestReplaceInStruct_StringSlice(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{
		"url1": "http://example1.com",
		"url2": "http://example2.com",
	}

	type target struct {
		URLs []string
	}
	s := &target{URLs: []string{"{url1}", "{url2}", "static-url"}}

	err := ReplaceInStruct(s, kvMap, logger)
	require.NoError(t, err)

	assert.Equal(t, "http://example1.com", s.URLs[0])
	assert.Equal(t, "http://example2.com", s.URLs[1])
	assert.Equal(t, "static-url", s.URLs[2])
}

func TestReplaceInStruct_StructSlice(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"fallback-url": "https://caselaw.example.org/{volume}/{reporter}/{page}"}

	s := &Config{}
	s.Verification.AlternateSources = []AlternateSourceConfig{
		{Name: "caselaw", URLTemplate: "{fallback-url}"},
	}

	err := ReplaceInStruct(s, kvMap, logger)
	require.NoError(t, err)

	// The KV reference resolves; the {volume}/{reporter}/{page} placeholders
	// have no KV entries and survive for the alternate source to fill in.
	assert.Equal(t, "https://caselaw.example.org/{volume}/{reporter}/{page}", s.Verification.AlternateSources[0].URLTemplate)
}

func TestReplaceInStruct_MapStringString(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"interval": "750ms"}

	type target struct {
		Throttles map[string]string
	}
	s := &target{Throttles: map[string]string{"job_progress": "{interval}"}}

	err := ReplaceInStruct(s, kvMap, logger)
	require.NoError(t, err)

	assert.Equal(t, "750ms", s.Throttles["job_progress"])
}

func TestReplaceInStruct_SkipsNonStringFields(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{"key1": "val1"}

	type target struct {
		Name  string
		Count int
		Flag  bool
	}
	s := &target{Name: "{key1}", Count: 42, Flag: true}

	err := ReplaceInStruct(s, kvMap, logger)
	require.NoError(t, err)

	assert.Equal(t, "val1", s.Name)
	assert.Equal(t, 42, s.Count)
	assert.True(t, s.Flag)
}

func TestReplaceInStruct_RequiresPointer(t *testing.T) {
	logger := createTestLogger()

	type target struct{ Name string }

	err := ReplaceInStruct(target{}, map[string]string{}, logger)
	require.Error(t, err)
}

func TestReplaceInStruct_MissingKeyLeftIntact(t *testing.T) {
	logger := createTestLogger()
	kvMap := map[string]string{}

	type target struct {
		APIKey string
	}
	s := &target{APIKey: "{never-registered}"}

	err := ReplaceInStruct(s, kvMap, logger)
	require.NoError(t, err)

	assert.Equal(t, "{never-registered}", s.APIKey)
}
