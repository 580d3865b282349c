package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const postBatchSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"platform": {"type": "string"},
			"content": {"type": "string", "minLength": 1}
		},
		"required": ["platform", "content"]
	}
}`

func TestValidateJSONWithSchema_Valid(t *testing.T) {
	batch := `[{"platform": "linkedin", "content": "Read our latest article."}]`
	assert.NoError(t, ValidateJSONWithSchema(postBatchSchema, batch))

	empty := `[]`
	assert.NoError(t, ValidateJSONWithSchema(postBatchSchema, empty))
}

func TestValidateJSONWithSchema_Invalid(t *testing.T) {
	missingContent := `[{"platform": "linkedin"}]`
	err := ValidateJSONWithSchema(postBatchSchema, missingContent)
	assert.Error(t, err)
	if err != nil {
		assert.Contains(t, err.Error(), "missing properties: 'content'")
	}

	wrongType := `[{"platform": "linkedin", "content": 42}]`
	err = ValidateJSONWithSchema(postBatchSchema, wrongType)
	assert.Error(t, err)

	notAnArray := `{"platform": "linkedin", "content": "hi"}`
	err = ValidateJSONWithSchema(postBatchSchema, notAnArray)
	assert.Error(t, err)
}

func TestValidateJSONWithSchema_EmptySchema(t *testing.T) {
	assert.NoError(t, ValidateJSONWithSchema("", `{"anything": true}`))
}

func TestValidateJSONWithSchema_InvalidSchema(t *testing.T) {
	err := ValidateJSONWithSchema(`{"type": "arr"}`, `[]`)
	assert.Error(t, err)
	if err != nil {
		assert.Contains(t, err.Error(), "failed to compile JSON schema")
	}
}

func TestValidateJSONWithSchema_MalformedData(t *testing.T) {
	err := ValidateJSONWithSchema(postBatchSchema, "not json")
	assert.Error(t, err)
	if err != nil {
		assert.Contains(t, err.Error(), "failed to unmarshal JSON data")
	}
}
