package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// SecretDecrypter turns an encrypted environment value into plaintext.
type SecretDecrypter interface {
	DecryptSecret(ctx context.Context, encrypted string) (string, error)
}

type kmsAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSDecrypter decrypts base64 ciphertext produced by `aws kms encrypt`.
type KMSDecrypter struct {
	client kmsAPI
	keyID  string
}

// NewKMSDecrypter uses the default AWS credential chain. keyID may be empty for
// symmetric keys.
func NewKMSDecrypter(ctx context.Context, keyID string) (*KMSDecrypter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("Failed to load AWS SDK config", "error", err)
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	slog.Info("Successfully initialized AWS KMS client")
	return &KMSDecrypter{
		client: kms.NewFromConfig(cfg),
		keyID:  keyID,
	}, nil
}

func (d *KMSDecrypter) DecryptSecret(ctx context.Context, encrypted string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted secret: %w", err)
	}

	input := &kms.DecryptInput{CiphertextBlob: ciphertext}
	if d.keyID != "" {
		input.KeyId = aws.String(d.keyID)
	}

	result, err := d.client.Decrypt(ctx, input)
	if err != nil {
		slog.Error("Failed to decrypt secret", "error", err)
		return "", fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return string(result.Plaintext), nil
}
