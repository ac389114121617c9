package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTranscriptKey(t *testing.T) {
	require.Equal(t, "transcripts/abc.json", TranscriptKey("abc"))
}

func TestPresignedDownloadURL(t *testing.T) {
	req := require.New(t)
	s, err := NewS3(context.Background(), S3Config{
		Region:            "eu-west-1",
		AccessKeyID:       "AKIDEXAMPLE",
		SecretAccessKey:   "secret",
		TranscriptsBucket: "transcripts-bucket",
	}, nil)
	req.NoError(err)
	req.Equal(15*time.Minute, s.PresignExpire())

	url, err := s.PresignedDownloadURL(context.Background(), TranscriptKey("abc"))
	req.NoError(err)
	req.True(strings.Contains(url, "transcripts-bucket"))
	req.True(strings.Contains(url, "transcripts/abc.json"))
	req.True(strings.Contains(url, "X-Amz-Signature"))
}
