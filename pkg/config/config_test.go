package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEWAS_CHAT_API_BASEURL", "http://api.local")
	t.Setenv("LEWAS_CHAT_API_SMARTQUERYKEY", "smart-key")
	t.Setenv("LEWAS_CHAT_COGNITO_CLIENTID", "client")
	t.Setenv("LEWAS_CHAT_DYNAMODB_TABLE", "feedback")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "http://api.local", cfg.API.BaseURL)
	assert.Equal(t, "API-Key", cfg.API.KeyHeader)
	assert.Equal(t, "/query_documents", cfg.API.RetrievalPath)
	assert.Equal(t, 10, cfg.API.ClassifyTimeoutSec)
	assert.Equal(t, 30, cfg.API.AnswerTimeoutSec)
	assert.True(t, cfg.API.ClassifyEnabled)
	assert.Equal(t, "smart-key", cfg.API.ClassifyKey, "classify key falls back to the smart query key")
	assert.Equal(t, "query_id", cfg.DynamoDB.KeyAttribute)
	assert.Equal(t, "lewas_session", cfg.Session.CookieName)
}

func TestLoadRequiresBaseURL(t *testing.T) {
	_, err := load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.baseURL")
}

func TestValidateIntegrations(t *testing.T) {
	cfg := &Config{
		API:      APIConfig{BaseURL: "http://api.local"},
		Cognito:  CognitoConfig{Enabled: true, Region: "us-east-1"},
		DynamoDB: DynamoDBConfig{Enabled: false},
	}
	assert.Error(t, cfg.Validate())

	cfg.Cognito.ClientID = "client"
	assert.NoError(t, cfg.Validate())

	cfg.DynamoDB.Enabled = true
	assert.Error(t, cfg.Validate())
}
