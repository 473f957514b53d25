// Package audit archives ExecutionLog rows to S3 as newline-delimited JSON,
// batched by copier and day, so the retention sweep can prune the
// database table without losing the audit trail.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"tradecopier/internal/database"
	"tradecopier/internal/models"
)

// Archiver uploads batches of ExecutionLog rows to S3 via the SDK's
// upload manager, keyed "{prefix}/{copierId}/{date}.ndjson".
type Archiver struct {
	gw     *database.Gateway
	client *s3.Client
	bucket string
	prefix string
}

func NewArchiver(gw *database.Gateway, client *s3.Client, bucket, prefix string) *Archiver {
	return &Archiver{gw: gw, client: client, bucket: bucket, prefix: prefix}
}

// ArchiveCopierLogs uploads every ExecutionLog row currently stored for one
// copier as one NDJSON object, then returns the object key written. A
// copier with more than 10000 rows is not archived: it returns an error and
// uploads nothing.
func (a *Archiver) ArchiveCopierLogs(ctx context.Context, copierID string, on time.Time) (string, error) {
	entries, err := a.gw.ListExecutionLogsByCopier(ctx, copierID, 10001)
	if err != nil {
		return "", err
	}
	if len(entries) > 10000 {
		return "", fmt.Errorf("copier %s has more than 10000 execution logs; not archived in one batch", copierID)
	}
	if len(entries) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(newLogLine(e)); err != nil {
			return "", err
		}
	}

	key := fmt.Sprintf("%s/%s/%s.ndjson", a.prefix, copierID, on.UTC().Format("2006-01-02"))
	uploader := manager.NewUploader(a.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("copier", copierID).Str("key", key).Int("entries", len(entries)).Msg("archived execution logs to S3")
	return key, nil
}

// logLine is the NDJSON row shape: flat, so a downstream log consumer can
// grep/jq it without unwrapping a nested envelope.
type logLine struct {
	ID             string    `json:"id"`
	CopierID       string    `json:"copierId"`
	Level          string    `json:"level"`
	Message        string    `json:"message"`
	MasterTradeID  *string   `json:"masterTradeId,omitempty"`
	SlaveTradeID   *string   `json:"slaveTradeId,omitempty"`
	SlaveAccountID *string   `json:"slaveAccountId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newLogLine(e models.ExecutionLog) logLine {
	return logLine{
		ID:             e.ID,
		CopierID:       e.CopierID,
		Level:          string(e.Level),
		Message:        e.Message,
		MasterTradeID:  e.MasterTradeID,
		SlaveTradeID:   e.SlaveTradeID,
		SlaveAccountID: e.SlaveAccountID,
		CreatedAt:      e.CreatedAt,
	}
}
