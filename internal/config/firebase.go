package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/caarlos0/env/v11"
	"google.golang.org/api/option"
)

type ServiceAccountCredentials struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
	UniverseDomain          string `json:"universe_domain"`
}

type FirebaseConfig struct {
	ProjectID   string
	DatabaseURL string
	Credentials ServiceAccountCredentials
}

type FirebaseClient struct {
	App       *firebase.App
	Firestore *firestore.Client
}

func NewFirebaseClient(ctx context.Context, config *FirebaseConfig) (*FirebaseClient, error) {
	credentialsJSON, err := json.Marshal(config.Credentials)
	if err != nil {
		slog.Error("Failed to marshal Firebase credentials", slog.Any("error", err))
		return nil, err
	}

	opt := option.WithCredentialsJSON(credentialsJSON)

	firebaseConfig := &firebase.Config{
		ProjectID:   config.ProjectID,
		DatabaseURL: config.DatabaseURL,
	}

	app, err := firebase.NewApp(ctx, firebaseConfig, opt)
	if err != nil {
		slog.Error("Failed to create Firebase app", slog.Any("error", err))
		return nil, err
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		slog.Error("Failed to create Firestore client", slog.Any("error", err))
		return nil, err
	}

	return &FirebaseClient{
		App:       app,
		Firestore: firestoreClient,
	}, nil
}

func validateEnvVariables(envVariables []string) error {
	if slices.Contains(envVariables, "") {
		return errors.New("missing required Firebase config environment variables")
	}
	return nil
}

// firebaseEnv is the service account as FIREBASE_* variables.
type firebaseEnv struct {
	ProjectID           string `env:"FIREBASE_PROJECT_ID"`
	DatabaseURL         string `env:"FIREBASE_DATABASE_URL"`
	Type                string `env:"FIREBASE_TYPE"`
	PrivateKeyID        string `env:"FIREBASE_PRIVATE_KEY_ID"`
	PrivateKey          string `env:"FIREBASE_PRIVATE_KEY"`
	PrivateKeyCipher    string `env:"FIREBASE_PRIVATE_KEY_CIPHERTEXT"`
	ClientEmail         string `env:"FIREBASE_CLIENT_EMAIL"`
	ClientID            string `env:"FIREBASE_CLIENT_ID"`
	AuthURI             string `env:"FIREBASE_AUTH_URI"`
	TokenURI            string `env:"FIREBASE_TOKEN_URI"`
	AuthProviderCertURL string `env:"FIREBASE_AUTH_PROVIDER_X509_CERT_URL"`
	ClientCertURL       string `env:"FIREBASE_CLIENT_X509_CERT_URL"`
	UniverseDomain      string `env:"FIREBASE_UNIVERSE_DOMAIN"`
}

// LoadFirebaseConfig reads the service account from FIREBASE_* variables.
// When FIREBASE_PRIVATE_KEY_CIPHERTEXT is set, the private key is decrypted
// with secrets instead of being read in plaintext.
func LoadFirebaseConfig(ctx context.Context, secrets SecretDecrypter) (*FirebaseConfig, error) {
	var vars firebaseEnv
	if err := env.Parse(&vars); err != nil {
		return nil, fmt.Errorf("failed to parse Firebase environment: %w", err)
	}

	privateKey := vars.PrivateKey
	if vars.PrivateKeyCipher != "" {
		if secrets == nil {
			return nil, errors.New("FIREBASE_PRIVATE_KEY_CIPHERTEXT set but no secret decrypter configured")
		}
		plain, err := secrets.DecryptSecret(ctx, vars.PrivateKeyCipher)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt Firebase private key: %w", err)
		}
		privateKey = plain
	}
	// .env files usually carry the PEM with escaped newlines.
	privateKey = strings.ReplaceAll(privateKey, `\n`, "\n")

	requiredVars := []string{
		vars.ProjectID,
		vars.DatabaseURL,
		vars.Type,
		vars.PrivateKeyID,
		privateKey,
		vars.ClientEmail,
		vars.ClientID,
		vars.AuthURI,
		vars.TokenURI,
		vars.AuthProviderCertURL,
		vars.ClientCertURL,
		vars.UniverseDomain,
	}

	if err := validateEnvVariables(requiredVars); err != nil {
		slog.Error("Environment variable validation failed", slog.Any("error", err))
		return nil, err
	}

	credentials := ServiceAccountCredentials{
		Type:                    vars.Type,
		ProjectID:               vars.ProjectID,
		PrivateKeyID:            vars.PrivateKeyID,
		PrivateKey:              privateKey,
		ClientEmail:             vars.ClientEmail,
		ClientID:                vars.ClientID,
		AuthURI:                 vars.AuthURI,
		TokenURI:                vars.TokenURI,
		AuthProviderX509CertURL: vars.AuthProviderCertURL,
		ClientX509CertURL:       vars.ClientCertURL,
		UniverseDomain:          vars.UniverseDomain,
	}

	return &FirebaseConfig{
		ProjectID:   vars.ProjectID,
		DatabaseURL: vars.DatabaseURL,
		Credentials: credentials,
	}, nil
}

// InitFirestore loads the service account and opens the Firestore client.
func InitFirestore(ctx context.Context, secrets SecretDecrypter) (*FirebaseClient, error) {
	slog.Info("Initializing Firebase connection from environment variables")

	firebaseConfig, err := LoadFirebaseConfig(ctx, secrets)
	if err != nil {
		slog.Error("Failed to load Firebase config from environment variables", slog.Any("error", err))
		return nil, err
	}

	client, err := NewFirebaseClient(ctx, firebaseConfig)
	if err != nil {
		slog.Error("Failed to initialize Firebase client", slog.Any("error", err))
		return nil, err
	}

	slog.Info("Firebase connection initialized successfully")
	return client, nil
}

func (c *FirebaseClient) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	if err := c.Firestore.Close(); err != nil {
		slog.Error("Failed to close Firebase connection", slog.Any("error", err))
		return err
	}
	slog.Info("Firebase connection closed successfully")
	return nil
}
