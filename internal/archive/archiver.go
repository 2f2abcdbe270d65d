// Package archive implements PlanArchiver: on PLAN_APPROVED, it uploads a
// JSON snapshot of the plan and its stock placements to an S3-compatible
// bucket, keyed tenantId/planId/approvedAt.json.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cutflow/core/internal/config"
	"github.com/cutflow/core/internal/events"
	"github.com/cutflow/core/internal/store"
	"github.com/rs/zerolog"
)

// NewClient builds an S3 client against cfg's endpoint, the R2-compatible
// shape: a custom endpoint plus a static access key pair rather than an
// instance-role credential chain.
func NewClient(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// Snapshot is the uploaded document shape: {plan, stocks}.
type Snapshot struct {
	Plan   store.CuttingPlan        `json:"plan"`
	Stocks []store.CuttingPlanStock `json:"stocks"`
}

// uploader is the subset of *manager.Uploader that Archive depends on,
// narrowed so tests can substitute a fake instead of talking to S3.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type Archiver struct {
	uploader  uploader
	store     store.Store
	bucket    string
	keyPrefix string
	log       zerolog.Logger
}

func NewArchiver(client *s3.Client, st store.Store, cfg config.ArchiveConfig, log zerolog.Logger) *Archiver {
	return &Archiver{
		uploader:  manager.NewUploader(client),
		store:     st,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		log:       log.With().Str("service", "plan_archiver").Logger(),
	}
}

// newArchiverWithUploader is the test seam: it skips real S3 client
// construction entirely.
func newArchiverWithUploader(u uploader, st store.Store, cfg config.ArchiveConfig, log zerolog.Logger) *Archiver {
	return &Archiver{uploader: u, store: st, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix, log: log}
}

// Start subscribes to PLAN_APPROVED and archives every approved plan.
// Handler recovers from panics so a transient upload failure never takes
// down the event dispatch goroutine.
func (a *Archiver) Start(bus *events.Bus) {
	bus.Subscribe(events.PlanApproved, "plan_archiver", a.handle)
}

func (a *Archiver) handle(event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("plan archiver handler panicked")
		}
	}()

	planID, _ := event.Payload["planId"].(string)
	approvedAt, _ := event.Payload["approvedAt"].(string)
	if planID == "" {
		a.log.Warn().Msg("PLAN_APPROVED event missing planId")
		return
	}

	ctx := context.Background()
	if err := a.Archive(ctx, event.TenantID, planID, approvedAt); err != nil {
		a.log.Error().Err(err).Str("plan_id", planID).Msg("failed to archive approved plan")
	}
}

// Archive uploads the snapshot for planID, keyed
// {keyPrefix}/{tenantID}/{planID}/{approvedAt}.json.
func (a *Archiver) Archive(ctx context.Context, tenantID, planID, approvedAt string) error {
	plan, err := a.store.Plans().GetByID(ctx, planID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	stocks, err := a.store.Plans().StocksByPlanID(ctx, planID)
	if err != nil {
		return fmt.Errorf("load plan stocks: %w", err)
	}

	body, err := json.Marshal(Snapshot{Plan: plan, Stocks: stocks})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s/%s.json", a.keyPrefix, tenantID, planID, approvedAt)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	a.log.Info().Str("plan_id", planID).Str("key", key).Msg("archived approved plan")
	return nil
}
