// Package archive 在过期会话删除前把对话记录写入OSS
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"crm-agent-backend/config"
	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/session"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
)

type objectPutter interface {
	PutObject(ctx context.Context, request *oss.PutObjectRequest, optFns ...func(*oss.Options)) (*oss.PutObjectResult, error)
}

type OSSArchiver struct {
	client objectPutter
	bucket string
	prefix string
}

var _ session.Archiver = (*OSSArchiver)(nil)

func NewOSSArchiver(cfg config.OSSConfig) *OSSArchiver {
	ossCfg := &oss.Config{
		Region: oss.Ptr(cfg.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.AccessKeySecret,
		),
	}
	return &OSSArchiver{
		client: oss.NewClient(ossCfg),
		bucket: cfg.BucketName,
		prefix: cfg.ArchivePrefix,
	}
}

type transcript struct {
	SessionID  string                 `json:"session_id"`
	UserID     string                 `json:"user_id"`
	Page       string                 `json:"page"`
	EntityType string                 `json:"entity_type,omitempty"`
	EntityID   string                 `json:"entity_id,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	ExpiresAt  time.Time              `json:"expires_at"`
	Messages   []model.SessionMessage `json:"messages"`
}

// Archive 对象key为 <prefix><user_id>/<session_id>.json
func (a *OSSArchiver) Archive(ctx context.Context, s *model.Session) error {
	body, err := json.Marshal(transcript{
		SessionID:  s.ID,
		UserID:     s.UserID,
		Page:       s.Page,
		EntityType: s.EntityType,
		EntityID:   s.EntityID,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		Messages:   s.Messages,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %v", err)
	}

	_, err = a.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket:      oss.Ptr(a.bucket),
		Key:         oss.Ptr(objectKey(a.prefix, s)),
		ContentType: oss.Ptr("application/json"),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("failed to put object to oss: %v", err)
	}
	return nil
}

func objectKey(prefix string, s *model.Session) string {
	return prefix + path.Join(s.UserID, s.ID+".json")
}
