package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "sandgraph", cfg.DynamoDBTable)
	assert.Equal(t, "sandgraph-events", cfg.EventBusName)
	assert.Equal(t, 25, cfg.RelayBatchSize)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TABLE_NAME", "graph-prod")
	t.Setenv("ENTITY_HAS_IMAGE_IRI", "http://example.org#entityHasImage")
	t.Setenv("RELAY_BATCH_SIZE", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "graph-prod", cfg.DynamoDBTable)
	assert.Equal(t, 10, cfg.RelayBatchSize)

	intents := cfg.OntologyIntents()
	assert.Equal(t, "http://example.org#entityHasImage", intents["entityHasImage"])
	assert.Empty(t, intents["artifactContainsImageOfEntity"])
}

func TestValidateProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateRejectsNonPositiveBatchSize(t *testing.T) {
	t.Setenv("RELAY_BATCH_SIZE", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}
