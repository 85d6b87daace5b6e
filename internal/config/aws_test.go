package config

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAWSConfig_RegionAndEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, err := LoadAWSConfig(context.Background(), AWSConfig{
		Region:      "ca-central-1",
		EndpointURL: "http://localhost:4566",
	})
	require.NoError(t, err)
	assert.Equal(t, "ca-central-1", cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", aws.ToString(cfg.BaseEndpoint))
}

func TestLoadAWSConfig_NoEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, err := LoadAWSConfig(context.Background(), AWSConfig{Region: "us-east-1"})
	require.NoError(t, err)
	assert.Nil(t, cfg.BaseEndpoint)
}
