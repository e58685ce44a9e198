package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/crossarb/crossarb/internal/domain"
)

// Archiver implements domain.HistoryArchiver: each batch of ended
// opportunities is written as one JSON object keyed by timestamp.
type Archiver struct {
	client *s3.Client
	bucket string
}

// NewArchiver creates an Archiver writing to the client's bucket.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{client: c.S3(), bucket: c.Bucket()}
}

// archiveEntry is the serialised shape of one ended opportunity.
type archiveEntry struct {
	domain.Arbitrage
	BidPath string `json:"bidPath"`
	AskPath string `json:"askPath"`
}

// Archive uploads the batch under history/<RFC3339 ts>.json.
func (a *Archiver) Archive(ctx context.Context, entries []domain.Arbitrage, ts time.Time) error {
	if len(entries) == 0 {
		return nil
	}

	out := make([]archiveEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, archiveEntry{
			Arbitrage: e,
			BidPath:   e.BidBook.ConversionPath,
			AskPath:   e.AskBook.ConversionPath,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("s3blob: marshal history batch: %w", err)
	}

	key := fmt.Sprintf("history/%s.json", ts.UTC().Format(time.RFC3339))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put history batch %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.HistoryArchiver = (*Archiver)(nil)
